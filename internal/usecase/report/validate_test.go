package report

import (
	"strings"
	"testing"

	"tg-portfolio-bot/internal/domain"
)

func validButton() domain.InlineButton {
	return domain.InlineButton{Text: "Ок", CallbackData: "menu"}
}

func TestValidateMessageOK(t *testing.T) {
	msg := domain.Message{
		Text: "отчёт",
		ReplyMarkup: &domain.InlineKeyboard{
			Rows: [][]domain.InlineButton{{validButton(), validButton()}},
		},
	}
	if err := ValidateMessage(msg); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
}

func TestValidateMessageTextTooLong(t *testing.T) {
	msg := domain.Message{Text: strings.Repeat("я", MessageLimit+1)}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("текст длиннее лимита должен отклоняться")
	}
}

func TestValidateMessageRowTooWide(t *testing.T) {
	row := make([]domain.InlineButton, MaxButtonsPerRow+1)
	for i := range row {
		row[i] = validButton()
	}
	msg := domain.Message{Text: "x", ReplyMarkup: &domain.InlineKeyboard{Rows: [][]domain.InlineButton{row}}}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("ряд шире лимита должен отклоняться")
	}
}

func TestValidateMessageTooManyButtons(t *testing.T) {
	kb := &domain.InlineKeyboard{}
	for i := 0; i < MaxButtonsTotal/2+1; i++ {
		kb.Rows = append(kb.Rows, []domain.InlineButton{validButton(), validButton()})
	}
	msg := domain.Message{Text: "x", ReplyMarkup: kb}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("клавиатура больше лимита должна отклоняться")
	}
}

func TestValidateMessageButtonTextLimits(t *testing.T) {
	long := domain.InlineButton{Text: strings.Repeat("a", MaxButtonTextLen+1), CallbackData: "menu"}
	msg := domain.Message{Text: "x", ReplyMarkup: &domain.InlineKeyboard{Rows: [][]domain.InlineButton{{long}}}}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("длинный текст кнопки должен отклоняться")
	}

	empty := domain.InlineButton{Text: "", CallbackData: "menu"}
	msg.ReplyMarkup.Rows = [][]domain.InlineButton{{empty}}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("пустой текст кнопки должен отклоняться")
	}
}

func TestValidateMessageCallbackDataLimits(t *testing.T) {
	oversize := domain.InlineButton{Text: "Ок", CallbackData: strings.Repeat("x", domain.MaxCallbackBytes+1)}
	msg := domain.Message{Text: "x", ReplyMarkup: &domain.InlineKeyboard{Rows: [][]domain.InlineButton{{oversize}}}}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("callback data длиннее лимита должна отклоняться")
	}

	blank := domain.InlineButton{Text: "Ок", CallbackData: ""}
	msg.ReplyMarkup.Rows = [][]domain.InlineButton{{blank}}
	if err := ValidateMessage(msg); err == nil {
		t.Fatalf("пустая callback data должна отклоняться")
	}
}
