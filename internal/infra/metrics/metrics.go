package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Входящие события вебхука по типу",
	}, []string{"kind"})

	GatewayRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_rejects_total",
		Help: "Отклонённые вебхуком запросы по причине",
	}, []string{"reason"})

	RateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Запросы, отклонённые лимитером",
	})

	RenderSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_render_seconds",
		Help:    "Время построения отчёта",
		Buckets: prometheus.DefBuckets,
	})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	ScheduledJobFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduled_job_failures_total",
		Help: "Неуспешные выполнения запланированных отчётов",
	}, []string{"job_type"})

	ReportRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_requests_total",
		Help: "Общее количество запросов на построение отчёта",
	})

	ReportRequestsByUser = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_requests_by_user_total",
		Help: "Количество запросов на построение отчёта по пользователям",
	}, []string{"user_id"})

	ABAssignments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ab_assignments_total",
		Help: "Назначения вариантов A/B-тестов",
	}, []string{"test_id", "variant_id"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UpdatesTotal,
		GatewayRejects,
		RateLimitRejections,
		RenderSeconds,
		BotSendErrors,
		ScheduledJobFailures,
		ReportRequestsTotal,
		ReportRequestsByUser,
		ABAssignments,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncReportOverall увеличивает общий счётчик запросов на отчёт.
func IncReportOverall() {
	ReportRequestsTotal.Inc()
}

// IncReportForUser увеличивает счётчик запросов на отчёт для пользователя.
func IncReportForUser(userID int64) {
	ReportRequestsByUser.WithLabelValues(strconv.FormatInt(userID, 10)).Inc()
}

// IncABAssignment фиксирует назначение варианта A/B-теста.
func IncABAssignment(testID, variantID string) {
	ABAssignments.WithLabelValues(testID, variantID).Inc()
}
