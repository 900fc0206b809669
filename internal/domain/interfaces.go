package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable возвращается провайдером, когда данные временно недоступны.
var ErrDataUnavailable = errors.New("данные провайдера временно недоступны")

// DataProvider отдаёт снапшоты данных для построения отчётов.
// Каждый метод возвращает либо данные, либо ErrDataUnavailable.
type DataProvider interface {
	PortfolioSnapshot(ctx context.Context, callerID int64) (PortfolioSnapshot, error)
	Positions(ctx context.Context, callerID int64) ([]Position, error)
	AIAnalysis(ctx context.Context) (AIAnalysis, error)
	RiskAlerts(ctx context.Context, callerID int64) ([]RiskAlert, error)
}

// UserRepo управляет пользователями.
type UserRepo interface {
	UpsertByTGID(tgUserID int64, locale string) (User, error)
	GetByTGID(tgUserID int64) (User, error)
	UpdateTimezone(userID int64, timezone string) error
	UpdatePreferences(userID int64, prefs UserPreferences) error
}

// JobRepo управляет запланированными отчётами.
type JobRepo interface {
	CreateJob(job ScheduledJob) (ScheduledJob, error)
	GetJob(jobID string) (ScheduledJob, error)
	ListDue(now time.Time, limit int) ([]ScheduledJob, error)
	ListForCaller(callerID int64) ([]ScheduledJob, error)
	ListEnabledChatIDs() ([]int64, error)
	UpdateRuns(jobID string, lastRun, nextRun time.Time) error
	UpdateNextRun(jobID string, nextRun time.Time) error
	SetEnabled(jobID string, enabled bool) error
	SaveJobError(jobID, message, stack string, at time.Time) error
}

// ReportLogRepo фиксирует доставленные отчёты.
type ReportLogRepo interface {
	SaveSentReport(rec SentReport) error
}

// Sender доставляет сообщения в чат платформы.
type Sender interface {
	Send(ctx context.Context, chatID int64, msgs []Message) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
