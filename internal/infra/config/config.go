package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"UTC"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Telegram struct {
		Token            string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL       string `envconfig:"TG_WEBHOOK_URL"`
		WebhookSecret    string `envconfig:"TG_WEBHOOK_SECRET"`
		SendRPS          int    `envconfig:"TG_SEND_RPS" default:"25"`
		BroadcastDelayMS int    `envconfig:"TG_BROADCAST_DELAY_MS" default:"50"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	DataAPI struct {
		BaseURL        string `envconfig:"DATA_API_BASE_URL"`
		TimeoutSeconds int    `envconfig:"DATA_API_TIMEOUT_SECONDS" default:"10"`
	} `envconfig:""`

	RateLimit struct {
		WindowSeconds   int `envconfig:"RATE_WINDOW_SECONDS" default:"60"`
		MaxRequests     int `envconfig:"RATE_MAX_REQUESTS" default:"20"`
		BlockCapSeconds int `envconfig:"RATE_BLOCK_CAP_SECONDS" default:"3600"`
		StaleSeconds    int `envconfig:"RATE_STALE_SECONDS" default:"600"`
	} `envconfig:""`

	Scheduler struct {
		TickSeconds int `envconfig:"SCHEDULER_TICK_SECONDS" default:"60"`
	} `envconfig:""`

	Render struct {
		EmergencyDrawdownPct float64 `envconfig:"RENDER_EMERGENCY_DRAWDOWN_PCT" default:"15"`
		ABTestsJSON          string  `envconfig:"AB_TESTS_JSON"`
	} `envconfig:""`

	Queues struct {
		Backend string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Reports string `envconfig:"REPORT_QUEUE_KEY" default:"report_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
