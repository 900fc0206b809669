package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-portfolio-bot/internal/domain"
)

// ErrInvalidSpec возвращается для нераспознанной строки расписания.
var ErrInvalidSpec = errors.New("некорректная строка расписания")

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("некорректный часовой пояс")

var weekdays = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// NextRun вычисляет ближайшее время запуска задачи строго после now.
// Расчёт зависит от типа расписания: daily "HH:MM", weekly "MON HH:MM",
// monthly "15 HH:MM" (день месяца обрезается по длине месяца).
func NextRun(job domain.ScheduledJob, now time.Time) (time.Time, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(job.Timezone); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimezone, job.Timezone)
		}
		loc = parsed
	}
	local := now.In(loc)

	switch job.Type {
	case domain.JobDaily:
		hh, mm, err := parseClock(job.Spec)
		if err != nil {
			return time.Time{}, err
		}
		candidate := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc)
		if !candidate.After(local) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case domain.JobWeekly:
		fields := strings.Fields(strings.TrimSpace(job.Spec))
		if len(fields) != 2 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSpec, job.Spec)
		}
		target, ok := weekdays[strings.ToUpper(fields[0])]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: день недели %q", ErrInvalidSpec, fields[0])
		}
		hh, mm, err := parseClock(fields[1])
		if err != nil {
			return time.Time{}, err
		}
		delta := (int(target) - int(local.Weekday()) + 7) % 7
		candidate := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc).AddDate(0, 0, delta)
		if !candidate.After(local) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate, nil

	case domain.JobMonthly:
		fields := strings.Fields(strings.TrimSpace(job.Spec))
		if len(fields) != 2 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSpec, job.Spec)
		}
		day := 0
		if _, err := fmt.Sscanf(fields[0], "%d", &day); err != nil || day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("%w: день месяца %q", ErrInvalidSpec, fields[0])
		}
		hh, mm, err := parseClock(fields[1])
		if err != nil {
			return time.Time{}, err
		}
		candidate := monthlyOccurrence(local.Year(), local.Month(), day, hh, mm, loc)
		if !candidate.After(local) {
			year, month := local.Year(), local.Month()+1
			candidate = monthlyOccurrence(year, month, day, hh, mm, loc)
		}
		return candidate, nil

	default:
		return time.Time{}, fmt.Errorf("%w: тип %q", ErrInvalidSpec, job.Type)
	}
}

// monthlyOccurrence строит дату запуска в указанном месяце, обрезая день
// по фактической длине месяца (31 → 28/29/30 при необходимости).
func monthlyOccurrence(year int, month time.Month, day, hh, mm int, loc *time.Location) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hh, mm, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseClock(spec string) (int, int, error) {
	tm, err := time.Parse("15:04", strings.TrimSpace(spec))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: время %q", ErrInvalidSpec, spec)
	}
	return tm.Hour(), tm.Minute(), nil
}
