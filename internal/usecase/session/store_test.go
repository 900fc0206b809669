package session

import (
	"testing"
	"time"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }
	return s, &current
}

func TestTouchCreatesAndReuses(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	first := s.Touch(42)
	if first.CallerID != 42 {
		t.Fatalf("ожидали сессию для 42, получили %d", first.CallerID)
	}
	second := s.Touch(42)
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("повторный Touch не должен пересоздавать живую сессию")
	}
}

func TestTouchRecreatesExpired(t *testing.T) {
	s, now := newTestStore(time.Hour)
	first := s.Touch(42)
	s.SetCommand(42, "schedule")

	*now = now.Add(2 * time.Hour)
	second := s.Touch(42)
	if second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("истёкшая сессия должна пересоздаваться")
	}
	if _, ok := s.CurrentCommand(42); ok {
		t.Fatalf("пересозданная сессия не должна наследовать команду")
	}
}

func TestCommandLifecycle(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	if _, ok := s.CurrentCommand(42); ok {
		t.Fatalf("до SetCommand ожидания ввода нет")
	}
	s.SetCommand(42, "timezone")
	cmd, ok := s.CurrentCommand(42)
	if !ok || cmd != "timezone" {
		t.Fatalf("ожидали команду timezone, получили %q (%v)", cmd, ok)
	}
	s.ClearCommand(42)
	if _, ok := s.CurrentCommand(42); ok {
		t.Fatalf("после ClearCommand ожидание должно сброситься")
	}
}

func TestCurrentCommandExpired(t *testing.T) {
	s, now := newTestStore(time.Hour)
	s.SetCommand(42, "schedule")
	*now = now.Add(61 * time.Minute)
	if _, ok := s.CurrentCommand(42); ok {
		t.Fatalf("истёкшая сессия не должна отдавать команду")
	}
}

func TestSetLastMessage(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	s.Touch(42)
	s.SetLastMessage(42, 777)
	if got := s.Touch(42); got.LastMessageID != 777 {
		t.Fatalf("ожидали id последнего сообщения 777, получили %d", got.LastMessageID)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	s, now := newTestStore(time.Hour)
	s.Touch(1)
	s.Touch(2)
	*now = now.Add(30 * time.Minute)
	s.Touch(3)

	if removed := s.Sweep(now.Add(45 * time.Minute)); removed != 2 {
		t.Fatalf("ожидали удаление 2 истёкших сессий, удалили %d", removed)
	}
	if _, ok := s.CurrentCommand(3); ok {
		t.Fatalf("живой сессии команда и не назначалась")
	}
	if got := s.Touch(3); got.CallerID != 3 {
		t.Fatalf("живая сессия должна пережить Sweep")
	}
}
