package report

import (
	"fmt"

	"tg-portfolio-bot/internal/domain"
)

// Лимиты платформы на сообщение и inline-клавиатуру.
const (
	MaxButtonsPerRow = 8
	MaxButtonsTotal  = 100
	MaxButtonTextLen = 64
)

// ValidateMessage проверяет сообщение перед передачей отправителю.
// Нарушение любого лимита платформы — ошибка, сообщение не уходит в транспорт.
func ValidateMessage(m domain.Message) error {
	if length := len([]rune(m.Text)); length > MessageLimit {
		return fmt.Errorf("текст длиной %d превышает лимит %d", length, MessageLimit)
	}
	if m.ReplyMarkup == nil {
		return nil
	}
	total := 0
	for i, row := range m.ReplyMarkup.Rows {
		if len(row) > MaxButtonsPerRow {
			return fmt.Errorf("ряд %d содержит %d кнопок, лимит %d", i, len(row), MaxButtonsPerRow)
		}
		for _, btn := range row {
			total++
			if length := len([]rune(btn.Text)); length == 0 || length > MaxButtonTextLen {
				return fmt.Errorf("текст кнопки %q вне лимита %d символов", btn.Text, MaxButtonTextLen)
			}
			if len(btn.CallbackData) == 0 || len(btn.CallbackData) > domain.MaxCallbackBytes {
				return fmt.Errorf("callback data кнопки %q вне лимита %d байт", btn.Text, domain.MaxCallbackBytes)
			}
		}
	}
	if total > MaxButtonsTotal {
		return fmt.Errorf("клавиатура содержит %d кнопок, лимит %d", total, MaxButtonsTotal)
	}
	return nil
}
