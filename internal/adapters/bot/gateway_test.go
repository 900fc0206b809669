package bot

import (
	"errors"
	"net/http"
	"testing"
)

const testSecret = "webhook-secret"

func authedHeader() http.Header {
	h := http.Header{}
	h.Set(SecretHeader, testSecret)
	h.Set("Content-Type", "application/json")
	return h
}

func gatewayKind(t *testing.T, err error) GatewayErrorKind {
	t.Helper()
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("ожидали GatewayError, получили %v", err)
	}
	return gerr.Kind
}

func TestProcessEmptyBody(t *testing.T) {
	g := NewGateway(testSecret)
	_, err := g.Process(authedHeader(), nil)
	if kind := gatewayKind(t, err); kind != GatewayValidation {
		t.Fatalf("пустое тело — ошибка валидации, получили %v", kind)
	}
}

func TestProcessSecretMismatch(t *testing.T) {
	g := NewGateway(testSecret)
	h := http.Header{}
	h.Set(SecretHeader, "другой")
	_, err := g.Process(h, []byte(`{"update_id":1}`))
	if kind := gatewayKind(t, err); kind != GatewayAuth {
		t.Fatalf("неверный секрет — ошибка аутентификации, получили %v", kind)
	}
}

func TestProcessSecretCheckedBeforeBodyParse(t *testing.T) {
	g := NewGateway(testSecret)
	h := http.Header{}
	h.Set(SecretHeader, "другой")
	// Тело заведомо битое: до разбора JSON дело дойти не должно.
	_, err := g.Process(h, []byte("{{{"))
	if kind := gatewayKind(t, err); kind != GatewayAuth {
		t.Fatalf("секрет проверяется раньше формата, получили %v", kind)
	}
}

func TestProcessNoSecretConfigured(t *testing.T) {
	// Секрет не задан: события принимаются, даже если платформа
	// прислала заголовок с каким-то значением.
	g := NewGateway("")
	h := http.Header{}
	h.Set(SecretHeader, "неожиданный")
	body := []byte(`{"update_id":1,"message":{"message_id":5,"from":{"id":42},"chat":{"id":100},"text":"/start"}}`)
	if _, err := g.Process(h, body); err != nil {
		t.Fatalf("без настроенного секрета запрос проходит: %v", err)
	}
}

func TestProcessContentType(t *testing.T) {
	g := NewGateway(testSecret)
	h := authedHeader()
	h.Set("Content-Type", "text/plain")
	_, err := g.Process(h, []byte(`{"update_id":1}`))
	if kind := gatewayKind(t, err); kind != GatewayValidation {
		t.Fatalf("чужой content-type — ошибка валидации, получили %v", kind)
	}
}

func TestProcessContentTypeOptional(t *testing.T) {
	g := NewGateway(testSecret)
	h := http.Header{}
	h.Set(SecretHeader, testSecret)
	body := []byte(`{"update_id":1,"message":{"message_id":5,"from":{"id":42},"chat":{"id":100},"text":"/start"}}`)
	if _, err := g.Process(h, body); err != nil {
		t.Fatalf("без заголовка content-type запрос проходит: %v", err)
	}
}

func TestProcessMalformedJSON(t *testing.T) {
	g := NewGateway(testSecret)
	_, err := g.Process(authedHeader(), []byte("{не json"))
	if kind := gatewayKind(t, err); kind != GatewayValidation {
		t.Fatalf("битый JSON — ошибка валидации, получили %v", kind)
	}
}

func TestProcessMissingUpdateID(t *testing.T) {
	g := NewGateway(testSecret)
	_, err := g.Process(authedHeader(), []byte(`{"message":{"message_id":5}}`))
	if err == nil {
		t.Fatalf("событие без update_id должно отклоняться")
	}
}

func TestProcessMessageShape(t *testing.T) {
	g := NewGateway(testSecret)
	// Сообщение без отправителя.
	_, err := g.Process(authedHeader(), []byte(`{"update_id":1,"message":{"message_id":5,"chat":{"id":100}}}`))
	if err == nil {
		t.Fatalf("сообщение без from должно отклоняться")
	}
}

func TestProcessCallbackShape(t *testing.T) {
	g := NewGateway(testSecret)
	_, err := g.Process(authedHeader(), []byte(`{"update_id":1,"callback_query":{"from":{"id":42}}}`))
	if err == nil {
		t.Fatalf("callback без id должен отклоняться")
	}
}

func TestProcessUnsupportedUpdate(t *testing.T) {
	g := NewGateway(testSecret)
	_, err := g.Process(authedHeader(), []byte(`{"update_id":1,"edited_message":{"message_id":5}}`))
	if err == nil {
		t.Fatalf("событие без message/callback должно отклоняться")
	}
}

func TestProcessMessage(t *testing.T) {
	g := NewGateway(testSecret)
	body := []byte(`{"update_id":7,"message":{"message_id":5,"from":{"id":42,"username":"ivan","language_code":"ru"},"chat":{"id":100},"text":"  /report  "}}`)
	upd, err := g.Process(authedHeader(), body)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if upd.ID != 7 || upd.Message == nil || upd.Callback != nil {
		t.Fatalf("ожидали событие-сообщение: %+v", upd)
	}
	if upd.Message.From.ID != 42 || upd.Message.ChatID != 100 {
		t.Fatalf("отправитель и чат разобраны неверно: %+v", upd.Message)
	}
	if upd.Message.Text != "/report" {
		t.Fatalf("текст должен приходить без обрамляющих пробелов: %q", upd.Message.Text)
	}
}

func TestProcessCallback(t *testing.T) {
	g := NewGateway(testSecret)
	body := []byte(`{"update_id":8,"callback_query":{"id":"cb-1","from":{"id":42},"message":{"message_id":9,"chat":{"id":100}},"data":"report_now"}}`)
	upd, err := g.Process(authedHeader(), body)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if upd.Callback == nil || upd.Message != nil {
		t.Fatalf("ожидали событие-callback: %+v", upd)
	}
	if upd.Callback.ChatID != 100 || upd.Callback.MessageID != 9 || upd.Callback.Data != "report_now" {
		t.Fatalf("callback разобран неверно: %+v", upd.Callback)
	}
}

func TestProcessCallbackWithoutMessage(t *testing.T) {
	g := NewGateway(testSecret)
	body := []byte(`{"update_id":9,"callback_query":{"id":"cb-2","from":{"id":42},"data":"menu"}}`)
	upd, err := g.Process(authedHeader(), body)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if upd.Callback.ChatID != 42 {
		t.Fatalf("без исходного сообщения чатом считается отправитель, получили %d", upd.Callback.ChatID)
	}
}
