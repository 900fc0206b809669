package session

import (
	"sync"
	"time"
)

const shardCount = 16

// DefaultTTL — время жизни сессии с момента создания.
const DefaultTTL = 24 * time.Hour

// Session — состояние диалога одного пользователя.
type Session struct {
	CallerID       int64
	CurrentCommand string
	LastMessageID  int64
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// Store — шардированное in-memory хранилище сессий с явной TTL-очисткой.
type Store struct {
	ttl    time.Duration
	shards [shardCount]*shard
	now    func() time.Time
}

// NewStore создаёт хранилище.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{ttl: ttl, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[int64]*Session)}
	}
	return s
}

func (s *Store) shardFor(callerID int64) *shard {
	idx := callerID % shardCount
	if idx < 0 {
		idx = -idx
	}
	return s.shards[idx]
}

// Touch возвращает сессию пользователя, создавая её при первом обращении
// и пересоздавая после истечения TTL.
func (s *Store) Touch(callerID int64) Session {
	sh := s.shardFor(callerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	sess, ok := sh.sessions[callerID]
	if !ok || !sess.ExpiresAt.After(now) {
		sess = &Session{
			CallerID:  callerID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		sh.sessions[callerID] = sess
	}
	return *sess
}

// SetCommand запоминает команду, ожидающую от пользователя ввода.
func (s *Store) SetCommand(callerID int64, command string) {
	sh := s.shardFor(callerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	sess, ok := sh.sessions[callerID]
	if !ok || !sess.ExpiresAt.After(now) {
		sess = &Session{CallerID: callerID, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
		sh.sessions[callerID] = sess
	}
	sess.CurrentCommand = command
}

// CurrentCommand возвращает ожидающую ввода команду, если она есть.
func (s *Store) CurrentCommand(callerID int64) (string, bool) {
	sh := s.shardFor(callerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[callerID]
	if !ok || !sess.ExpiresAt.After(s.now()) || sess.CurrentCommand == "" {
		return "", false
	}
	return sess.CurrentCommand, true
}

// ClearCommand сбрасывает ожидание ввода.
func (s *Store) ClearCommand(callerID int64) {
	sh := s.shardFor(callerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sess, ok := sh.sessions[callerID]; ok {
		sess.CurrentCommand = ""
	}
}

// SetLastMessage запоминает id последнего сообщения бота в чате.
func (s *Store) SetLastMessage(callerID, messageID int64) {
	sh := s.shardFor(callerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sess, ok := sh.sessions[callerID]; ok {
		sess.LastMessageID = messageID
	}
}

// Sweep удаляет истёкшие сессии. Возвращает число удалённых.
func (s *Store) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if !sess.ExpiresAt.After(now) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
