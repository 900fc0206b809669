package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
	"tg-portfolio-bot/internal/usecase/report"
)

// ErrJobLimit возвращается при превышении лимита задач тарифа.
var ErrJobLimit = errors.New("превышен лимит расписаний для тарифа")

// ErrJobNotFound возвращается, если задача не принадлежит пользователю.
var ErrJobNotFound = errors.New("расписание не найдено")

const dueBatchLimit = 100

// Service владеет жизненным циклом запланированных отчётов: хранит задачи,
// тикает по таймеру и выполняет просроченные, изолируя сбои по задаче.
type Service struct {
	jobs     domain.JobRepo
	users    domain.UserRepo
	reports  domain.ReportLogRepo
	provider domain.DataProvider
	renderer *report.Renderer
	sender   domain.Sender
	tests    []report.ABTest
	log      zerolog.Logger
	tick     time.Duration
}

// NewService создаёт планировщик.
func NewService(jobs domain.JobRepo, users domain.UserRepo, reports domain.ReportLogRepo, provider domain.DataProvider, renderer *report.Renderer, sender domain.Sender, tests []report.ABTest, log zerolog.Logger, tick time.Duration) *Service {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Service{
		jobs:     jobs,
		users:    users,
		reports:  reports,
		provider: provider,
		renderer: renderer,
		sender:   sender,
		tests:    tests,
		log:      log,
		tick:     tick,
	}
}

// Run крутит цикл тиков до отмены контекста. Начатый тик дорабатывает
// до конца: выполняемые задачи не обрываются на середине.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.log.Info().Dur("tick", s.tick).Msg("scheduler: цикл запущен")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler: остановка")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick выполняет все задачи с nextRun <= now. Задачи исполняются
// параллельно, каждая в собственной границе ошибок: сбой одной не мешает
// остальным в этом же тике.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	due, err := s.jobs.ListDue(now, dueBatchLimit)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler: ошибка выборки просроченных задач")
		return
	}
	if len(due) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, job := range due {
		wg.Add(1)
		go func(job domain.ScheduledJob) {
			defer wg.Done()
			s.executeJob(ctx, job, now)
		}(job)
	}
	wg.Wait()
}

// executeJob выполняет одну задачу. nextRun пересчитывается при любом
// исходе, поэтому сбойная задача не зацикливается, а ждёт следующего
// естественного запуска: немедленных ретраев нет намеренно.
func (s *Service) executeJob(ctx context.Context, job domain.ScheduledJob, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			s.markFailed(job, fmt.Sprintf("panic: %v", rec), string(debug.Stack()), now)
		}
	}()

	if err := s.buildAndSend(ctx, job.CallerID, job.ChatID, string(job.Type)); err != nil {
		s.markFailed(job, err.Error(), "", now)
		return
	}

	next, err := NextRun(job, now)
	if err != nil {
		s.markFailed(job, err.Error(), "", now)
		return
	}
	if err := s.jobs.UpdateRuns(job.ID, now, next); err != nil {
		s.log.Error().Err(err).Str("job", job.ID).Msg("scheduler: не удалось сохранить время запуска")
	}
}

func (s *Service) buildAndSend(ctx context.Context, callerID, chatID int64, reportType string) error {
	user, err := s.users.GetByTGID(callerID)
	if err != nil {
		return fmt.Errorf("получение пользователя: %w", err)
	}

	data := report.Collect(ctx, s.provider, callerID)
	msgs, err := s.renderer.Render(callerID, data, user.Preferences, s.tests)
	if err != nil {
		return fmt.Errorf("построение отчёта: %w", err)
	}
	if err := s.sender.Send(ctx, chatID, msgs); err != nil {
		return fmt.Errorf("доставка отчёта: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"regime":      data.Portfolio.MarketRegime,
		"positions":   len(data.Positions),
		"alerts":      len(data.Alerts),
		"unavailable": data.Unavailable,
	})
	rec := domain.SentReport{
		ReportID:   uuid.NewString(),
		CallerID:   callerID,
		ChatID:     chatID,
		ReportType: reportType,
		ReportData: payload,
		SentAt:     time.Now().UTC(),
	}
	if err := s.reports.SaveSentReport(rec); err != nil {
		s.log.Error().Err(err).Int64("caller", callerID).Msg("scheduler: не удалось записать доставленный отчёт")
	}
	return nil
}

// RunWorker потребляет очередь ручных отчётов до отмены контекста.
// Повторная задача с тем же ключом дедуплицируется через кэш: ретрай
// брокера не превращается в дубль сообщения пользователю.
func (s *Service) RunWorker(ctx context.Context, jobs domain.ReportQueue, dedup domain.Cache) {
	s.log.Info().Msg("worker: очередь отчётов запущена")
	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info().Msg("worker: остановка")
				return
			}
			s.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		s.processReportJob(ctx, job, dedup)
	}
}

func (s *Service) processReportJob(ctx context.Context, job domain.ReportJob, dedup domain.Cache) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Int64("caller", job.CallerID).Msg("worker: паника при доставке отчёта")
		}
	}()

	reportType := job.ReportType
	if reportType == "" {
		reportType = string(job.Cause)
	}
	deliver := func() error {
		return s.buildAndSend(ctx, job.CallerID, job.ChatID, reportType)
	}

	if dedup == nil {
		if err := deliver(); err != nil {
			s.log.Error().Err(err).Int64("caller", job.CallerID).Msg("worker: не удалось доставить отчёт")
		}
		return
	}

	key := fmt.Sprintf("report_job:%d:%d:%d", job.CallerID, job.ChatID, job.RequestedAt.Unix())
	if err := dedup.Once(ctx, key, 10*time.Minute, deliver); err != nil {
		s.log.Error().Err(err).Int64("caller", job.CallerID).Msg("worker: не удалось доставить отчёт")
	}
}

func (s *Service) markFailed(job domain.ScheduledJob, message, stack string, now time.Time) {
	metrics.ScheduledJobFailures.WithLabelValues(string(job.Type)).Inc()
	s.log.Error().Str("job", job.ID).Int64("caller", job.CallerID).Str("reason", message).Msg("scheduler: задача завершилась с ошибкой")

	if err := s.jobs.SaveJobError(job.ID, message, stack, now); err != nil {
		s.log.Error().Err(err).Str("job", job.ID).Msg("scheduler: не удалось записать ошибку задачи")
	}

	next, err := NextRun(job, now)
	if err != nil {
		// Расписание не разбирается — задачу выключаем, иначе она будет
		// падать каждый тик.
		if derr := s.jobs.SetEnabled(job.ID, false); derr != nil {
			s.log.Error().Err(derr).Str("job", job.ID).Msg("scheduler: не удалось выключить задачу")
		}
		return
	}
	if err := s.jobs.UpdateNextRun(job.ID, next); err != nil {
		s.log.Error().Err(err).Str("job", job.ID).Msg("scheduler: не удалось сохранить nextRun")
	}
}

// Schedule создаёт или обновляет регулярную рассылку пользователя.
// Лимит числа задач определяется тарифом.
func (s *Service) Schedule(ctx context.Context, callerID, chatID int64, jobType domain.JobType, spec, timezone string) (domain.ScheduledJob, error) {
	user, err := s.users.GetByTGID(callerID)
	if err != nil {
		return domain.ScheduledJob{}, fmt.Errorf("получение пользователя: %w", err)
	}
	if timezone == "" {
		timezone = user.Timezone
	}

	job := domain.ScheduledJob{
		ID:       uuid.NewString(),
		CallerID: callerID,
		ChatID:   chatID,
		Type:     jobType,
		Spec:     spec,
		Timezone: timezone,
		Enabled:  true,
		Config:   domain.JobConfig{IncludePositions: true, IncludeAnalysis: true},
	}
	next, err := NextRun(job, time.Now().UTC())
	if err != nil {
		return domain.ScheduledJob{}, err
	}
	job.NextRun = next

	existing, err := s.jobs.ListForCaller(callerID)
	if err != nil {
		return domain.ScheduledJob{}, fmt.Errorf("список расписаний: %w", err)
	}
	// Задача того же типа переиспользуется: меняем spec, а не плодим дубли.
	for _, e := range existing {
		if e.Type == jobType {
			job.ID = e.ID
			return s.jobs.CreateJob(job)
		}
	}
	if limit := user.Plan().ScheduledJobs; limit > 0 && len(existing) >= limit {
		return domain.ScheduledJob{}, ErrJobLimit
	}
	return s.jobs.CreateJob(job)
}

// ListForCaller возвращает расписания пользователя.
func (s *Service) ListForCaller(callerID int64) ([]domain.ScheduledJob, error) {
	return s.jobs.ListForCaller(callerID)
}

// EnabledChatIDs возвращает чаты с включёнными расписаниями — адресаты
// служебных объявлений.
func (s *Service) EnabledChatIDs() ([]int64, error) {
	return s.jobs.ListEnabledChatIDs()
}

// Toggle переключает задачу пользователя. Отписка всегда выключает,
// а не удаляет: расписание переживает рестарты и повторное включение.
func (s *Service) Toggle(callerID int64, jobID string, enabled bool) error {
	job, err := s.jobs.GetJob(jobID)
	if err != nil {
		return ErrJobNotFound
	}
	if job.CallerID != callerID {
		return ErrJobNotFound
	}
	return s.jobs.SetEnabled(jobID, enabled)
}

// DisableAll выключает все расписания пользователя (опт-аут).
func (s *Service) DisableAll(callerID int64) error {
	jobs, err := s.jobs.ListForCaller(callerID)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := s.jobs.SetEnabled(job.ID, false); err != nil {
			return err
		}
	}
	return nil
}
