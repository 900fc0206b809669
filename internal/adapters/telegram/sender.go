package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
	"tg-portfolio-bot/internal/usecase/report"
)

// Sender доставляет сообщения через Bot API, сглаживая исходящий поток
// token bucket-ом: транспорт сам ограничивает частоту отправки.
type Sender struct {
	bot            *tgbotapi.BotAPI
	limiter        *rate.Limiter
	log            zerolog.Logger
	broadcastDelay time.Duration
}

// NewSender создаёт отправителя. rps — целевая частота запросов к Bot API,
// broadcastDelay — дополнительная пауза между получателями при рассылке.
func NewSender(bot *tgbotapi.BotAPI, log zerolog.Logger, rps int, broadcastDelay time.Duration) *Sender {
	if rps <= 0 {
		rps = 25
	}
	return &Sender{
		bot:            bot,
		limiter:        rate.NewLimiter(rate.Limit(rps), rps),
		log:            log,
		broadcastDelay: broadcastDelay,
	}
}

// Send отправляет подготовленные сообщения в чат по порядку.
func (s *Sender) Send(ctx context.Context, chatID int64, msgs []domain.Message) error {
	for _, m := range msgs {
		if _, err := s.sendOne(ctx, chatID, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) sendOne(ctx context.Context, chatID int64, m domain.Message) (int64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	cfg := tgbotapi.NewMessage(chatID, m.Text)
	cfg.ParseMode = string(m.ParseMode)
	cfg.DisableWebPagePreview = m.DisableLinkPreview
	if m.ReplyMarkup != nil {
		cfg.ReplyMarkup = toMarkup(*m.ReplyMarkup)
	}
	start := time.Now()
	sent, err := s.bot.Send(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		s.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
		return 0, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return int64(sent.MessageID), nil
}

// SendText разбивает произвольный текст по лимиту платформы и отправляет.
// Клавиатура прикрепляется только к последней части. Возвращает id
// последнего доставленного сообщения — роутер запоминает его в сессии.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string, keyboard *domain.InlineKeyboard) (int64, error) {
	parts := report.SplitMessage(text)
	var lastID int64
	for i, part := range parts {
		msg := domain.Message{Text: part, DisableLinkPreview: true}
		if i == len(parts)-1 {
			msg.ReplyMarkup = keyboard
		}
		id, err := s.sendOne(ctx, chatID, msg)
		if err != nil {
			return 0, err
		}
		lastID = id
	}
	return lastID, nil
}

// Broadcast рассылает одно сообщение списку чатов с паузой между
// отправками, чтобы не упереться в лимиты транспорта.
func (s *Sender) Broadcast(ctx context.Context, chatIDs []int64, msg domain.Message) error {
	for i, chatID := range chatIDs {
		if i > 0 && s.broadcastDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.broadcastDelay):
			}
		}
		if err := s.Send(ctx, chatID, []domain.Message{msg}); err != nil {
			s.log.Error().Err(err).Int64("chat", chatID).Msg("broadcast: получатель пропущен")
		}
	}
	return nil
}

// AnswerCallback подтверждает обработку нажатия кнопки.
func (s *Sender) AnswerCallback(callbackID string) {
	start := time.Now()
	_, err := s.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", "callback", start, err)
	if err != nil {
		s.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

// PublishCommands публикует меню команд в Bot API.
func (s *Sender) PublishCommands(commands []tgbotapi.BotCommand) error {
	start := time.Now()
	_, err := s.bot.Request(tgbotapi.NewSetMyCommands(commands...))
	metrics.ObserveNetworkRequest("telegram_bot", "set_my_commands", "commands", start, err)
	return err
}

func toMarkup(kb domain.InlineKeyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var _ domain.Sender = (*Sender)(nil)
