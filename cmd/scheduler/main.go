package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-portfolio-bot/internal/adapters/dataapi"
	"tg-portfolio-bot/internal/adapters/repo"
	"tg-portfolio-bot/internal/adapters/telegram"
	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/cache"
	"tg-portfolio-bot/internal/infra/config"
	"tg-portfolio-bot/internal/infra/db"
	"tg-portfolio-bot/internal/infra/log"
	"tg-portfolio-bot/internal/infra/metrics"
	"tg-portfolio-bot/internal/infra/queue"
	"tg-portfolio-bot/internal/usecase/report"
	"tg-portfolio-bot/internal/usecase/schedule"
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
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	dedup := cache.NewRedis(redisClient)

	var reportQueue domain.ReportQueue
	switch cfg.Queues.Backend {
	case "rabbit":
		rabbit, err := queue.NewRabbitReportQueue(cfg.Queues.AMQPURL, cfg.Queues.Reports)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: нет подключения к AMQP")
		}
		defer rabbit.Close()
		reportQueue = rabbit
	default:
		reportQueue = queue.NewRedisReportQueue(redisClient, cfg.Queues.Reports)
	}

	provider, err := dataapi.New(cfg.DataAPI.BaseURL,
		dataapi.WithTimeout(time.Duration(cfg.DataAPI.TimeoutSeconds)*time.Second))
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось создать клиент данных")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, logger, cfg.Telegram.SendRPS,
		time.Duration(cfg.Telegram.BroadcastDelayMS)*time.Millisecond)

	renderer := report.NewRenderer(logger, cfg.Render.EmergencyDrawdownPct)
	abTests, err := report.ParseTests(cfg.Render.ABTestsJSON)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: некорректная конфигурация A/B-тестов")
	}
	scheduleService := schedule.NewService(repoAdapter, repoAdapter, repoAdapter, provider, renderer, sender, abTests,
		logger, time.Duration(cfg.Scheduler.TickSeconds)*time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduleService.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		scheduleService.RunWorker(ctx, reportQueue, dedup)
	}()

	<-ctx.Done()
	logger.Info().Msg("scheduler: остановка")
	wg.Wait()
}
