package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
)

// ErrUserNotFound возвращается, когда пользователь отсутствует в БД.
var ErrUserNotFound = errors.New("пользователь не найден")

// ErrJobNotFound возвращается, когда расписание отсутствует в БД.
var ErrJobNotFound = errors.New("расписание не найдено")

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo      = (*Postgres)(nil)
	_ domain.JobRepo       = (*Postgres)(nil)
	_ domain.ReportLogRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// UpsertByTGID реализует domain.UserRepo.
func (p *Postgres) UpsertByTGID(tgUserID int64, locale string) (domain.User, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var (
		user     domain.User
		tzValue  sql.NullString
		prefsRaw []byte
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (tg_user_id, locale)
VALUES ($1, COALESCE(NULLIF($2,''),'ru-RU'))
ON CONFLICT (tg_user_id) DO UPDATE SET locale = COALESCE(NULLIF(EXCLUDED.locale,''), users.locale), updated_at = now()
RETURNING id, tg_user_id, locale, tz, role, preferences, created_at, updated_at
`, tgUserID, strings.TrimSpace(locale)).Scan(&user.ID, &user.TGUserID, &user.Locale, &tzValue, &user.Role, &prefsRaw, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_upsert", "users", start, err)
	if err != nil {
		return domain.User{}, err
	}
	if tzValue.Valid {
		user.Timezone = tzValue.String
	}
	if len(prefsRaw) > 0 {
		_ = json.Unmarshal(prefsRaw, &user.Preferences)
	}
	return user, nil
}

// GetByTGID возвращает пользователя по Telegram ID.
func (p *Postgres) GetByTGID(tgUserID int64) (domain.User, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var (
		user     domain.User
		tzValue  sql.NullString
		prefsRaw []byte
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, tg_user_id, locale, tz, role, preferences, created_at, updated_at
FROM users WHERE tg_user_id=$1
`, tgUserID).Scan(&user.ID, &user.TGUserID, &user.Locale, &tzValue, &user.Role, &prefsRaw, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_get_by_tgid", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	if tzValue.Valid {
		user.Timezone = tzValue.String
	}
	if len(prefsRaw) > 0 {
		_ = json.Unmarshal(prefsRaw, &user.Preferences)
	}
	return user, nil
}

// UpdateTimezone обновляет часовой пояс пользователя.
func (p *Postgres) UpdateTimezone(userID int64, timezone string) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	var tzArg any
	if strings.TrimSpace(timezone) != "" {
		tzArg = timezone
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE users SET tz=$2, updated_at=now() WHERE id=$1`, userID, tzArg)
	metrics.ObserveNetworkRequest("postgres", "users_update_timezone", "users", start, err)
	return err
}

// UpdatePreferences сохраняет настройки персонализации.
func (p *Postgres) UpdatePreferences(userID int64, prefs domain.UserPreferences) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("сериализация настроек: %w", err)
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `UPDATE users SET preferences=$2, updated_at=now() WHERE id=$1`, userID, payload)
	metrics.ObserveNetworkRequest("postgres", "users_update_preferences", "users", start, err)
	return err
}

// CreateJob сохраняет расписание (upsert по ID).
func (p *Postgres) CreateJob(job domain.ScheduledJob) (domain.ScheduledJob, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return domain.ScheduledJob{}, fmt.Errorf("сериализация конфига задачи: %w", err)
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO scheduled_jobs (id, caller_id, chat_id, job_type, spec, tz, next_run, enabled, config)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET job_type=EXCLUDED.job_type, spec=EXCLUDED.spec, tz=EXCLUDED.tz, next_run=EXCLUDED.next_run, enabled=EXCLUDED.enabled, config=EXCLUDED.config, updated_at=now()
`, job.ID, job.CallerID, job.ChatID, job.Type, job.Spec, job.Timezone, job.NextRun, job.Enabled, cfg)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_upsert", "scheduled_jobs", start, err)
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	return job, nil
}

const jobColumns = `id, caller_id, chat_id, job_type, spec, tz, last_run, next_run, enabled, config`

func scanJob(row pgx.Row) (domain.ScheduledJob, error) {
	var (
		job     domain.ScheduledJob
		tzValue sql.NullString
		lastRun sql.NullTime
		cfgRaw  []byte
	)
	if err := row.Scan(&job.ID, &job.CallerID, &job.ChatID, &job.Type, &job.Spec, &tzValue, &lastRun, &job.NextRun, &job.Enabled, &cfgRaw); err != nil {
		return domain.ScheduledJob{}, err
	}
	if tzValue.Valid {
		job.Timezone = tzValue.String
	}
	if lastRun.Valid {
		ts := lastRun.Time
		job.LastRun = &ts
	}
	if len(cfgRaw) > 0 {
		_ = json.Unmarshal(cfgRaw, &job.Config)
	}
	return job, nil
}

// GetJob возвращает расписание по ID.
func (p *Postgres) GetJob(jobID string) (domain.ScheduledJob, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs WHERE id=$1`, jobID)
	job, err := scanJob(row)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_get", "scheduled_jobs", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScheduledJob{}, ErrJobNotFound
	}
	return job, err
}

// ListDue возвращает включённые задачи с наступившим next_run.
func (p *Postgres) ListDue(now time.Time, limit int) ([]domain.ScheduledJob, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+jobColumns+`
FROM scheduled_jobs
WHERE enabled AND next_run <= $1
ORDER BY next_run
LIMIT $2
`, now, limit)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_list_due", "scheduled_jobs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListForCaller возвращает расписания пользователя.
func (p *Postgres) ListForCaller(callerID int64) ([]domain.ScheduledJob, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+jobColumns+`
FROM scheduled_jobs
WHERE caller_id=$1
ORDER BY job_type
`, callerID)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_list_for_caller", "scheduled_jobs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListEnabledChatIDs возвращает чаты с хотя бы одним включённым расписанием.
func (p *Postgres) ListEnabledChatIDs() ([]int64, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT chat_id FROM scheduled_jobs WHERE enabled`)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_list_enabled_chats", "scheduled_jobs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatIDs []int64
	for rows.Next() {
		var chatID int64
		if err := rows.Scan(&chatID); err != nil {
			return nil, err
		}
		chatIDs = append(chatIDs, chatID)
	}
	return chatIDs, rows.Err()
}

// UpdateRuns записывает успешный запуск и следующее время.
func (p *Postgres) UpdateRuns(jobID string, lastRun, nextRun time.Time) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE scheduled_jobs SET last_run=$2, next_run=$3, updated_at=now() WHERE id=$1
`, jobID, lastRun, nextRun)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_update_runs", "scheduled_jobs", start, err)
	return err
}

// UpdateNextRun переносит время следующего запуска без фиксации last_run.
func (p *Postgres) UpdateNextRun(jobID string, nextRun time.Time) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE scheduled_jobs SET next_run=$2, updated_at=now() WHERE id=$1`, jobID, nextRun)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_update_next_run", "scheduled_jobs", start, err)
	return err
}

// SetEnabled переключает задачу.
func (p *Postgres) SetEnabled(jobID string, enabled bool) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE scheduled_jobs SET enabled=$2, updated_at=now() WHERE id=$1`, jobID, enabled)
	metrics.ObserveNetworkRequest("postgres", "scheduled_jobs_set_enabled", "scheduled_jobs", start, err)
	return err
}

// SaveJobError фиксирует ошибку выполнения задачи.
func (p *Postgres) SaveJobError(jobID, message, stack string, at time.Time) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	var stackArg any
	if stack != "" {
		stackArg = stack
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO job_errors (job_id, error_message, error_stack, occurred_at)
VALUES ($1,$2,$3,$4)
`, jobID, message, stackArg, at)
	metrics.ObserveNetworkRequest("postgres", "job_errors_insert", "job_errors", start, err)
	return err
}

// SaveSentReport фиксирует доставленный отчёт.
func (p *Postgres) SaveSentReport(rec domain.SentReport) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO sent_reports (report_id, caller_id, chat_id, report_type, report_data, sent_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (report_id) DO NOTHING
`, rec.ReportID, rec.CallerID, rec.ChatID, rec.ReportType, rec.ReportData, rec.SentAt)
	metrics.ObserveNetworkRequest("postgres", "sent_reports_insert", "sent_reports", start, err)
	return err
}
