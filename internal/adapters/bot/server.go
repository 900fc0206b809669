package bot

import (
	"errors"
	"io"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/adapters/telegram"
	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/usecase/ratelimit"
)

const maxWebhookBody = 1 << 20

// Server собирает HTTP-поверхность вебхука: шлюз → лимитер → роутер.
type Server struct {
	gateway *Gateway
	limiter *ratelimit.Limiter
	router  *Router
	sender  *telegram.Sender
	log     zerolog.Logger
}

// NewServer создаёт HTTP-обёртку вебхука.
func NewServer(gateway *Gateway, limiter *ratelimit.Limiter, router *Router, sender *telegram.Sender, log zerolog.Logger) *Server {
	return &Server{
		gateway: gateway,
		limiter: limiter,
		router:  router,
		sender:  sender,
		log:     log,
	}
}

// Routes возвращает маршруты вебхука.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/bot/webhook", s.handleWebhook)
	return r
}

func (s *Server) handleWebhook(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	upd, err := s.gateway.Process(req.Header, body)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.Kind == GatewayAuth {
			s.log.Warn().Str("reason", gwErr.Reason).Msg("webhook: отклонено по секрету")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.log.Warn().Err(err).Msg("webhook: событие не прошло валидацию")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	caller := callerOf(upd)
	if decision := s.limiter.Allow(caller.ID); !decision.Allowed {
		// Событие принято транспортом, но не обработано: пользователю
		// уходит подсказка, когда повторить.
		rlErr := &domain.RateLimitError{RetryAfter: decision.RetryAfter}
		if chatID := chatOf(upd); chatID != 0 {
			if _, sendErr := s.sender.SendText(req.Context(), chatID, "⏳ "+rlErr.Error(), nil); sendErr != nil {
				s.log.Error().Err(sendErr).Int64("chat", chatID).Msg("webhook: не удалось отправить ответ лимитера")
			}
		}
		writeOK(w)
		return
	}

	s.router.Dispatch(req.Context(), upd)
	writeOK(w)
}

func callerOf(upd domain.Update) domain.Caller {
	if upd.Message != nil {
		return upd.Message.From
	}
	if upd.Callback != nil {
		return upd.Callback.From
	}
	return domain.Caller{}
}

func chatOf(upd domain.Update) int64 {
	if upd.Message != nil {
		return upd.Message.ChatID
	}
	if upd.Callback != nil {
		return upd.Callback.ChatID
	}
	return 0
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}
