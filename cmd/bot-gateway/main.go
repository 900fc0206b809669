package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-portfolio-bot/internal/adapters/bot"
	"tg-portfolio-bot/internal/adapters/dataapi"
	"tg-portfolio-bot/internal/adapters/repo"
	"tg-portfolio-bot/internal/adapters/telegram"
	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/config"
	"tg-portfolio-bot/internal/infra/db"
	"tg-portfolio-bot/internal/infra/log"
	"tg-portfolio-bot/internal/infra/metrics"
	"tg-portfolio-bot/internal/infra/queue"
	"tg-portfolio-bot/internal/usecase/ratelimit"
	"tg-portfolio-bot/internal/usecase/report"
	"tg-portfolio-bot/internal/usecase/schedule"
	"tg-portfolio-bot/internal/usecase/session"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	var reportQueue domain.ReportQueue
	switch cfg.Queues.Backend {
	case "rabbit":
		rabbit, err := queue.NewRabbitReportQueue(cfg.Queues.AMQPURL, cfg.Queues.Reports)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к AMQP")
		}
		defer rabbit.Close()
		reportQueue = rabbit
	default:
		reportQueue = queue.NewRedisReportQueue(redisClient, cfg.Queues.Reports)
	}

	provider, err := dataapi.New(cfg.DataAPI.BaseURL,
		dataapi.WithTimeout(time.Duration(cfg.DataAPI.TimeoutSeconds)*time.Second))
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать клиент данных")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, logger, cfg.Telegram.SendRPS,
		time.Duration(cfg.Telegram.BroadcastDelayMS)*time.Millisecond)

	renderer := report.NewRenderer(logger, cfg.Render.EmergencyDrawdownPct)
	abTests, err := report.ParseTests(cfg.Render.ABTestsJSON)
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректная конфигурация A/B-тестов")
	}
	scheduleService := schedule.NewService(repoAdapter, repoAdapter, repoAdapter, provider, renderer, sender, abTests,
		logger, time.Duration(cfg.Scheduler.TickSeconds)*time.Second)

	sessions := session.NewStore(session.DefaultTTL)
	limiter := ratelimit.New(ratelimit.Config{
		Window:      time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		MaxRequests: cfg.RateLimit.MaxRequests,
		BlockCap:    time.Duration(cfg.RateLimit.BlockCapSeconds) * time.Second,
		Stale:       time.Duration(cfg.RateLimit.StaleSeconds) * time.Second,
	})

	router := bot.NewRouter(sender, repoAdapter, scheduleService, provider, reportQueue, sessions, logger)
	if err := sender.PublishCommands(router.Commands()); err != nil {
		logger.Error().Err(err).Msg("не удалось опубликовать меню команд")
	}

	if cfg.Telegram.WebhookURL != "" {
		// setWebhook вызывается напрямую: secret_token появился в Bot API
		// позже обёртки WebhookConfig.
		params := tgbotapi.Params{"url": cfg.Telegram.WebhookURL}
		if cfg.Telegram.WebhookSecret != "" {
			params["secret_token"] = cfg.Telegram.WebhookSecret
		}
		if _, err := botAPI.MakeRequest("setWebhook", params); err != nil {
			logger.Fatal().Err(err).Msg("не удалось зарегистрировать вебхук")
		}
	}

	gateway := bot.NewGateway(cfg.Telegram.WebhookSecret)
	server := bot.NewServer(gateway, limiter, router, sender, logger)

	// Фоновая уборка in-memory состояния.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sessions.Sweep(now)
				limiter.Sweep(now)
			}
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Routes(),
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("бот-гейтвей запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
