package ratelimit

import (
	"sync"
	"time"

	"tg-portfolio-bot/internal/infra/metrics"
)

const shardCount = 16

// Config задаёт параметры скользящего окна и блокировок.
type Config struct {
	// Window — длина скользящего окна.
	Window time.Duration
	// MaxRequests — допустимое число запросов внутри окна.
	MaxRequests int
	// BlockCap — потолок длительности блокировки.
	BlockCap time.Duration
	// Stale — порог простоя, после которого запись вычищается Sweep.
	Stale time.Duration
}

// Decision — результат проверки допуска.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type callerState struct {
	timestamps   []time.Time
	blockedUntil time.Time
	violations   int
	lastSeen     time.Time
}

type shard struct {
	mu     sync.Mutex
	states map[int64]*callerState
}

// Limiter — скользящее окно с эскалацией блокировок по нарушителям.
// Состояние шардируется по caller id, чтобы запросы разных пользователей
// не сериализовались на одном замке.
type Limiter struct {
	cfg    Config
	shards [shardCount]*shard
	now    func() time.Time
}

// New создаёт лимитер.
func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg, now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{states: make(map[int64]*callerState)}
	}
	return l
}

func (l *Limiter) shardFor(callerID int64) *shard {
	idx := callerID % shardCount
	if idx < 0 {
		idx = -idx
	}
	return l.shards[idx]
}

// Allow решает, пропускать ли запрос пользователя. Никогда не возвращает
// ошибку: это чистое admission-control решение.
//
// Пользователь внутри активной блокировки отклоняется сразу, не расходуя
// бюджет окна. При переполнении окна блокировка растёт экспоненциально:
// window * 2^(violations-1), но не больше BlockCap. Счётчик нарушений
// сбрасывается после чистого окна с момента окончания блокировки;
// долгий простой вычищается Sweep вместе со всей записью.
func (l *Limiter) Allow(callerID int64) Decision {
	sh := l.shardFor(callerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := l.now()
	st, ok := sh.states[callerID]
	if !ok {
		st = &callerState{}
		sh.states[callerID] = st
	}
	st.lastSeen = now

	if st.blockedUntil.After(now) {
		metrics.RateLimitRejections.Inc()
		return Decision{Allowed: false, RetryAfter: st.blockedUntil.Sub(now)}
	}

	st.timestamps = pruneOld(st.timestamps, now.Add(-l.cfg.Window))

	if !st.blockedUntil.IsZero() {
		// Нарушения сбрасываются только после чистого окна с момента
		// окончания блокировки: немедленный возврат к флуду эскалирует.
		if now.Sub(st.blockedUntil) >= l.cfg.Window && len(st.timestamps) == 0 {
			st.violations = 0
		}
		st.blockedUntil = time.Time{}
	}

	if len(st.timestamps) >= l.cfg.MaxRequests {
		st.violations++
		block := l.blockDuration(st.violations)
		st.blockedUntil = now.Add(block)
		metrics.RateLimitRejections.Inc()
		return Decision{Allowed: false, RetryAfter: block}
	}

	st.timestamps = append(st.timestamps, now)
	return Decision{Allowed: true}
}

func (l *Limiter) blockDuration(violations int) time.Duration {
	block := l.cfg.Window
	for i := 1; i < violations; i++ {
		block *= 2
		if block >= l.cfg.BlockCap {
			return l.cfg.BlockCap
		}
	}
	if block > l.cfg.BlockCap {
		return l.cfg.BlockCap
	}
	return block
}

// Sweep вычищает записи, простаивающие дольше Stale. Активные блокировки
// не трогаются. Возвращает число удалённых записей.
func (l *Limiter) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		for id, st := range sh.states {
			if st.blockedUntil.After(now) {
				continue
			}
			if now.Sub(st.lastSeen) > l.cfg.Stale {
				delete(sh.states, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func pruneOld(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return timestamps
	}
	return append(timestamps[:0], timestamps[idx:]...)
}
