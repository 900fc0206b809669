package bot

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
)

// SecretHeader — заголовок с общим секретом вебхука.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// GatewayErrorKind разделяет ошибки шлюза на классы для HTTP-ответа.
type GatewayErrorKind string

const (
	GatewayAuth       GatewayErrorKind = "auth"
	GatewayValidation GatewayErrorKind = "validation"
)

// GatewayError — типизированная ошибка проверки входящего события.
type GatewayError struct {
	Kind   GatewayErrorKind
	Reason string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s (%s)", e.Reason, e.Kind)
}

func reject(kind GatewayErrorKind, reason string) error {
	metrics.GatewayRejects.WithLabelValues(reason).Inc()
	return &GatewayError{Kind: kind, Reason: reason}
}

// Gateway проверяет входящие события вебхука до передачи их роутеру.
// Проверки выполняются в фиксированном порядке: тело → секрет → формат →
// структура события. Первый провал терминален для запроса.
type Gateway struct {
	secret string
}

// NewGateway создаёт шлюз с общим секретом вебхука.
func NewGateway(secret string) *Gateway {
	return &Gateway{secret: secret}
}

type wireUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

type wireChat struct {
	ID int64 `json:"id"`
}

type wireMessage struct {
	MessageID int64     `json:"message_id"`
	From      *wireUser `json:"from"`
	Chat      *wireChat `json:"chat"`
	Text      string    `json:"text"`
}

type wireCallback struct {
	ID      string       `json:"id"`
	From    *wireUser    `json:"from"`
	Message *wireMessage `json:"message"`
	Data    string       `json:"data"`
}

type wireUpdate struct {
	UpdateID      *int64        `json:"update_id"`
	Message       *wireMessage  `json:"message"`
	CallbackQuery *wireCallback `json:"callback_query"`
}

// Process валидирует сырое событие и приводит его к domain.Update.
func (g *Gateway) Process(header http.Header, body []byte) (domain.Update, error) {
	if len(body) == 0 {
		return domain.Update{}, reject(GatewayValidation, "empty_body")
	}

	// Без настроенного секрета проверка отключена: лишний заголовок
	// от платформы не повод отбрасывать событие.
	if g.secret != "" {
		provided := header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(g.secret)) != 1 {
			return domain.Update{}, reject(GatewayAuth, "secret_mismatch")
		}
	}

	contentType := header.Get("Content-Type")
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
			return domain.Update{}, reject(GatewayValidation, "content_type")
		}
	}

	var wire wireUpdate
	if err := json.Unmarshal(body, &wire); err != nil {
		return domain.Update{}, reject(GatewayValidation, "malformed_json")
	}
	if wire.UpdateID == nil {
		return domain.Update{}, reject(GatewayValidation, "missing_update_id")
	}

	upd := domain.Update{ID: *wire.UpdateID}
	switch {
	case wire.Message != nil:
		msg := wire.Message
		if msg.MessageID == 0 || msg.From == nil || msg.From.ID == 0 || msg.Chat == nil || msg.Chat.ID == 0 {
			return domain.Update{}, reject(GatewayValidation, "message_shape")
		}
		upd.Message = &domain.InboundMessage{
			ID:     msg.MessageID,
			From:   callerFrom(msg.From),
			ChatID: msg.Chat.ID,
			Text:   strings.TrimSpace(msg.Text),
		}
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
	case wire.CallbackQuery != nil:
		cb := wire.CallbackQuery
		if cb.ID == "" || cb.From == nil || cb.From.ID == 0 {
			return domain.Update{}, reject(GatewayValidation, "callback_shape")
		}
		inbound := &domain.InboundCallback{
			ID:   cb.ID,
			From: callerFrom(cb.From),
			Data: cb.Data,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			inbound.ChatID = cb.Message.Chat.ID
			inbound.MessageID = cb.Message.MessageID
		} else {
			inbound.ChatID = cb.From.ID
		}
		upd.Callback = inbound
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	default:
		return domain.Update{}, reject(GatewayValidation, "unsupported_update")
	}
	return upd, nil
}

func callerFrom(u *wireUser) domain.Caller {
	return domain.Caller{
		ID:       u.ID,
		Username: u.Username,
		Locale:   u.LanguageCode,
	}
}
