package domain

import (
	"context"
	"time"
)

// JobType определяет периодичность запланированного отчёта.
type JobType string

const (
	JobDaily   JobType = "daily"
	JobWeekly  JobType = "weekly"
	JobMonthly JobType = "monthly"
)

// JobConfig — настройки содержимого отчёта для конкретной задачи.
type JobConfig struct {
	ReportType       string `json:"report_type,omitempty"`
	IncludePositions bool   `json:"include_positions"`
	IncludeAnalysis  bool   `json:"include_analysis"`
}

// ScheduledJob описывает регулярную рассылку отчёта.
// Инвариант: NextRun всегда строго позже LastRun и пересчитывается
// после каждой попытки выполнения, успешной или нет.
type ScheduledJob struct {
	ID       string
	CallerID int64
	ChatID   int64
	Type     JobType
	Spec     string
	Timezone string
	LastRun  *time.Time
	NextRun  time.Time
	Enabled  bool
	Config   JobConfig
}

// ReportCause описывает источник запроса на отчёт.
type ReportCause string

const (
	// ReportCauseManual — пользователь запросил отчёт вручную.
	ReportCauseManual ReportCause = "manual"
	// ReportCauseScheduled — отчёт запланирован по расписанию.
	ReportCauseScheduled ReportCause = "scheduled"
)

// ReportJob содержит информацию о задаче доставки отчёта.
type ReportJob struct {
	ID          string      `json:"job_id,omitempty"`
	CallerID    int64       `json:"caller_id"`
	ChatID      int64       `json:"chat_id"`
	ReportType  string      `json:"report_type,omitempty"`
	RequestedAt time.Time   `json:"requested_at"`
	Cause       ReportCause `json:"cause"`
}

// ReportQueue описывает очередь задач на доставку отчётов.
type ReportQueue interface {
	Enqueue(ctx context.Context, job ReportJob) error
	Pop(ctx context.Context) (ReportJob, error)
}
