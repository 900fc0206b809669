package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/usecase/report"
)

type stubJobRepo struct {
	mu       sync.Mutex
	jobs     map[string]domain.ScheduledJob
	errors   []string
	nextRuns map[string]time.Time
	lastRuns map[string]time.Time
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{
		jobs:     make(map[string]domain.ScheduledJob),
		nextRuns: make(map[string]time.Time),
		lastRuns: make(map[string]time.Time),
	}
}

func (s *stubJobRepo) CreateJob(job domain.ScheduledJob) (domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubJobRepo) GetJob(jobID string) (domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ScheduledJob{}, errors.New("нет такой задачи")
	}
	return job, nil
}

func (s *stubJobRepo) ListDue(now time.Time, limit int) ([]domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.ScheduledJob
	for _, job := range s.jobs {
		if job.Enabled && !job.NextRun.After(now) && len(due) < limit {
			due = append(due, job)
		}
	}
	return due, nil
}

func (s *stubJobRepo) ListForCaller(callerID int64) ([]domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScheduledJob
	for _, job := range s.jobs {
		if job.CallerID == callerID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *stubJobRepo) ListEnabledChatIDs() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{})
	var out []int64
	for _, job := range s.jobs {
		if !job.Enabled {
			continue
		}
		if _, ok := seen[job.ChatID]; ok {
			continue
		}
		seen[job.ChatID] = struct{}{}
		out = append(out, job.ChatID)
	}
	return out, nil
}

func (s *stubJobRepo) UpdateRuns(jobID string, lastRun, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRuns[jobID] = lastRun
	s.nextRuns[jobID] = nextRun
	return nil
}

func (s *stubJobRepo) UpdateNextRun(jobID string, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRuns[jobID] = nextRun
	return nil
}

func (s *stubJobRepo) SetEnabled(jobID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.Enabled = enabled
	s.jobs[jobID] = job
	return nil
}

func (s *stubJobRepo) SaveJobError(jobID, message, stack string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, jobID+": "+message)
	return nil
}

type stubUserRepo struct {
	user domain.User
}

func (s *stubUserRepo) UpsertByTGID(int64, string) (domain.User, error) { return s.user, nil }
func (s *stubUserRepo) GetByTGID(int64) (domain.User, error)            { return s.user, nil }
func (s *stubUserRepo) UpdateTimezone(int64, string) error              { return nil }
func (s *stubUserRepo) UpdatePreferences(int64, domain.UserPreferences) error {
	return nil
}

type stubReportLog struct {
	mu    sync.Mutex
	saved []domain.SentReport
}

func (s *stubReportLog) SaveSentReport(rec domain.SentReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, rec)
	return nil
}

type stubProvider struct{}

func (stubProvider) PortfolioSnapshot(context.Context, int64) (domain.PortfolioSnapshot, error) {
	return domain.PortfolioSnapshot{TotalValue: 1000, DailyChangePct: 1.5, MarketRegime: domain.RegimeBull}, nil
}
func (stubProvider) Positions(context.Context, int64) ([]domain.Position, error) {
	return []domain.Position{{ID: "p1", Symbol: "SBER", PnLPct: 2.1}}, nil
}
func (stubProvider) AIAnalysis(context.Context) (domain.AIAnalysis, error) {
	return domain.AIAnalysis{Summary: "спокойный рынок"}, nil
}
func (stubProvider) RiskAlerts(context.Context, int64) ([]domain.RiskAlert, error) {
	return nil, nil
}

type stubSender struct {
	mu      sync.Mutex
	sent    map[int64]int
	failFor int64
}

func (s *stubSender) Send(_ context.Context, chatID int64, msgs []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor != 0 && chatID == s.failFor {
		return fmt.Errorf("%w: чат недоступен", domain.ErrDeliveryFailed)
	}
	if s.sent == nil {
		s.sent = make(map[int64]int)
	}
	s.sent[chatID] += len(msgs)
	return nil
}

func newTestService(jobs *stubJobRepo, sender *stubSender, reports *stubReportLog) *Service {
	users := &stubUserRepo{user: domain.User{ID: 1, TGUserID: 42, Role: domain.UserRolePro}}
	renderer := report.NewRenderer(zerolog.Nop(), 15)
	return NewService(jobs, users, reports, stubProvider{}, renderer, sender, nil, zerolog.Nop(), time.Minute)
}

func TestTickExecutesDueJobs(t *testing.T) {
	jobs := newStubJobRepo()
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("job-%d", i)
		jobs.jobs[id] = domain.ScheduledJob{
			ID: id, CallerID: 42, ChatID: int64(100 + i),
			Type: domain.JobDaily, Spec: "09:00", Enabled: true,
			NextRun: now.Add(-time.Minute),
		}
	}
	sender := &stubSender{}
	reports := &stubReportLog{}
	svc := newTestService(jobs, sender, reports)

	svc.Tick(context.Background(), now)

	if len(sender.sent) != 3 {
		t.Fatalf("ожидали доставку в 3 чата, получили %d", len(sender.sent))
	}
	if len(reports.saved) != 3 {
		t.Fatalf("ожидали 3 записи о доставке, получили %d", len(reports.saved))
	}
	for id := range jobs.jobs {
		next, ok := jobs.nextRuns[id]
		if !ok {
			t.Fatalf("nextRun задачи %s не пересчитан", id)
		}
		if !next.After(now) {
			t.Fatalf("nextRun должен быть строго позже now: %v", next)
		}
	}
}

func TestTickIsolatesFailures(t *testing.T) {
	jobs := newStubJobRepo()
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("job-%d", i)
		jobs.jobs[id] = domain.ScheduledJob{
			ID: id, CallerID: 42, ChatID: int64(100 + i),
			Type: domain.JobDaily, Spec: "09:00", Enabled: true,
			NextRun: now.Add(-time.Minute),
		}
	}
	sender := &stubSender{failFor: 102}
	reports := &stubReportLog{}
	svc := newTestService(jobs, sender, reports)

	svc.Tick(context.Background(), now)

	if len(sender.sent) != 4 {
		t.Fatalf("сбой одной задачи не должен мешать остальным: доставлено %d из 4", len(sender.sent))
	}
	if len(jobs.errors) != 1 {
		t.Fatalf("ожидали 1 запись об ошибке, получили %d", len(jobs.errors))
	}
	// NextRun пересчитан и для сбойной задачи: немедленных ретраев нет.
	if next, ok := jobs.nextRuns["job-2"]; !ok || !next.After(now) {
		t.Fatalf("nextRun сбойной задачи должен быть пересчитан, получили %v", next)
	}
	if _, ok := jobs.lastRuns["job-2"]; ok {
		t.Fatalf("lastRun сбойной задачи не должен обновляться")
	}
}

func TestTickDisablesUnparseableJob(t *testing.T) {
	jobs := newStubJobRepo()
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	jobs.jobs["bad"] = domain.ScheduledJob{
		ID: "bad", CallerID: 42, ChatID: 200,
		Type: domain.JobDaily, Spec: "мусор", Enabled: true,
		NextRun: now.Add(-time.Minute),
	}
	sender := &stubSender{failFor: 200}
	svc := newTestService(jobs, sender, &stubReportLog{})

	svc.Tick(context.Background(), now)

	if jobs.jobs["bad"].Enabled {
		t.Fatalf("задача с нечитаемым расписанием должна быть выключена")
	}
}

func TestScheduleEnforcesPlanLimit(t *testing.T) {
	jobs := newStubJobRepo()
	users := &stubUserRepo{user: domain.User{ID: 1, TGUserID: 42, Role: domain.UserRoleFree}}
	svc := NewService(jobs, users, &stubReportLog{}, stubProvider{}, report.NewRenderer(zerolog.Nop(), 15), &stubSender{}, nil, zerolog.Nop(), time.Minute)

	if _, err := svc.Schedule(context.Background(), 42, 100, domain.JobDaily, "09:00", ""); err != nil {
		t.Fatalf("первое расписание должно сохраниться: %v", err)
	}
	// Free-тариф: 1 расписание. Второго типа уже не добавить.
	if _, err := svc.Schedule(context.Background(), 42, 100, domain.JobWeekly, "MON 09:00", ""); !errors.Is(err, ErrJobLimit) {
		t.Fatalf("ожидали ErrJobLimit, получили %v", err)
	}
	// Но то же daily-расписание можно переопределить.
	if _, err := svc.Schedule(context.Background(), 42, 100, domain.JobDaily, "21:00", ""); err != nil {
		t.Fatalf("обновление существующего расписания не должно упираться в лимит: %v", err)
	}
}

func TestEnabledChatIDsSkipsDisabled(t *testing.T) {
	jobs := newStubJobRepo()
	jobs.jobs["a"] = domain.ScheduledJob{ID: "a", CallerID: 42, ChatID: 100, Enabled: true}
	jobs.jobs["b"] = domain.ScheduledJob{ID: "b", CallerID: 43, ChatID: 200, Enabled: false}
	svc := newTestService(jobs, &stubSender{}, &stubReportLog{})

	chatIDs, err := svc.EnabledChatIDs()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(chatIDs) != 1 || chatIDs[0] != 100 {
		t.Fatalf("ожидали только чаты включённых расписаний, получили %v", chatIDs)
	}
}

func TestToggleChecksOwnership(t *testing.T) {
	jobs := newStubJobRepo()
	jobs.jobs["alien"] = domain.ScheduledJob{ID: "alien", CallerID: 99, Enabled: true}
	svc := newTestService(jobs, &stubSender{}, &stubReportLog{})

	if err := svc.Toggle(42, "alien", false); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("чужая задача должна быть невидима, получили %v", err)
	}
	if !jobs.jobs["alien"].Enabled {
		t.Fatalf("чужая задача не должна переключаться")
	}
}

func TestDisableAllKeepsJobs(t *testing.T) {
	jobs := newStubJobRepo()
	jobs.jobs["a"] = domain.ScheduledJob{ID: "a", CallerID: 42, Enabled: true}
	jobs.jobs["b"] = domain.ScheduledJob{ID: "b", CallerID: 42, Enabled: true}
	svc := newTestService(jobs, &stubSender{}, &stubReportLog{})

	if err := svc.DisableAll(42); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(jobs.jobs) != 2 {
		t.Fatalf("опт-аут не должен удалять задачи")
	}
	for id, job := range jobs.jobs {
		if job.Enabled {
			t.Fatalf("задача %s должна быть выключена", id)
		}
	}
}
