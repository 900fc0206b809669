package bot

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/domain"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text    string
		name    string
		payload string
	}{
		{"/start", "start", ""},
		{"/schedule daily 09:00", "schedule", "daily 09:00"},
		{"/schedule@portfolio_bot daily 09:00", "schedule", "daily 09:00"},
		{"/REPORT", "report", ""},
		{"/timezone   Europe/Moscow", "timezone", "Europe/Moscow"},
	}
	for _, tc := range cases {
		name, payload := splitCommand(tc.text)
		if name != tc.name || payload != tc.payload {
			t.Fatalf("%q: ожидали (%q, %q), получили (%q, %q)", tc.text, tc.name, tc.payload, name, payload)
		}
	}
}

func newTestRouterClock() (*Router, *time.Time) {
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := &Router{
		cooldowns: make(map[cooldownKey]time.Time),
		manual:    make(map[int64]manualCounter),
		now:       func() time.Time { return current },
	}
	return r, &current
}

func TestCheckCooldown(t *testing.T) {
	r, now := newTestRouterClock()
	cmd := Command{Name: "report", Cooldown: 10 * time.Second}

	if _, ok := r.checkCooldown(42, cmd); !ok {
		t.Fatalf("первый вызов должен проходить")
	}
	wait, ok := r.checkCooldown(42, cmd)
	if ok {
		t.Fatalf("повторный вызов внутри кулдауна должен отклоняться")
	}
	if wait != 10*time.Second {
		t.Fatalf("ожидали остаток 10s, получили %v", wait)
	}
	// Другой пользователь кулдауном не связан.
	if _, ok := r.checkCooldown(43, cmd); !ok {
		t.Fatalf("кулдаун не должен быть общим для пользователей")
	}

	*now = now.Add(11 * time.Second)
	if _, ok := r.checkCooldown(42, cmd); !ok {
		t.Fatalf("после кулдауна вызов должен проходить")
	}
}

func TestCheckCooldownZero(t *testing.T) {
	r, _ := newTestRouterClock()
	cmd := Command{Name: "help"}
	for i := 0; i < 5; i++ {
		if _, ok := r.checkCooldown(42, cmd); !ok {
			t.Fatalf("команда без кулдауна ограничиваться не должна")
		}
	}
}

func TestReserveManualReportLimit(t *testing.T) {
	r, _ := newTestRouterClock()
	user := domain.User{ID: 1, TGUserID: 42, Role: domain.UserRoleFree}
	limit := user.Plan().ManualDailyLimit

	for i := 0; i < limit; i++ {
		if !r.reserveManualReport(user) {
			t.Fatalf("запрос %d из %d должен проходить", i+1, limit)
		}
	}
	if r.reserveManualReport(user) {
		t.Fatalf("запрос сверх суточного лимита должен отклоняться")
	}
}

func TestReserveManualReportDayRollover(t *testing.T) {
	r, now := newTestRouterClock()
	user := domain.User{ID: 1, TGUserID: 42, Role: domain.UserRoleFree}
	limit := user.Plan().ManualDailyLimit

	for i := 0; i < limit; i++ {
		r.reserveManualReport(user)
	}
	if r.reserveManualReport(user) {
		t.Fatalf("лимит на сегодня исчерпан")
	}

	*now = now.Add(24 * time.Hour)
	if !r.reserveManualReport(user) {
		t.Fatalf("на следующие сутки счётчик должен обнуляться")
	}
}

func TestReserveManualReportUnlimited(t *testing.T) {
	r, _ := newTestRouterClock()
	user := domain.User{ID: 1, TGUserID: 42, Role: domain.UserRoleDeveloper}
	for i := 0; i < 100; i++ {
		if !r.reserveManualReport(user) {
			t.Fatalf("тариф без лимита не должен ограничиваться")
		}
	}
}

func TestSetTimePresetRoundTrip(t *testing.T) {
	kb := schedulePresetKeyboard()
	data := kb.Rows[0][1].CallbackData
	action, err := domain.DecodeCallback(data)
	if err != nil {
		t.Fatalf("кнопка пресета должна декодироваться: %v", err)
	}
	value := action.ID
	if action.Value != "" {
		value += ":" + action.Value
	}
	if value != "09:00" {
		t.Fatalf("время пресета должно восстанавливаться, получили %q", value)
	}
}

func TestAnnounceCommandRestricted(t *testing.T) {
	r := NewRouter(nil, nil, nil, nil, nil, nil, zerolog.Nop())
	cmd, ok := r.lookup("announce")
	if !ok {
		t.Fatalf("команда announce должна быть в реестре")
	}
	if !cmd.RequiresAuth || cmd.RequiredTier != domain.UserRoleDeveloper {
		t.Fatalf("announce доступна только тарифу Developer: %+v", cmd)
	}
	for _, published := range r.Commands() {
		if published.Command == "announce" {
			t.Fatalf("скрытая команда не должна публиковаться в меню")
		}
	}
}

func TestJobTypeLabel(t *testing.T) {
	if got := jobTypeLabel(domain.JobWeekly); got != "еженедельный" {
		t.Fatalf("неожиданная подпись: %q", got)
	}
	if got := jobTypeLabel(domain.JobType("custom")); got != "custom" {
		t.Fatalf("неизвестный тип возвращается как есть: %q", got)
	}
}
