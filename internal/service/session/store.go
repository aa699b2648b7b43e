package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store хранит сессии в памяти по ID. Между перезапусками ничего не сохраняется.
type Store struct {
	maxTurns int
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(maxTurns int, logger *zap.SugaredLogger) *Store {
	return &Store{
		maxTurns: maxTurns,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get возвращает сессию по ID и отмечает активность.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// GetOrCreate возвращает существующую сессию или создаёт новую с новым ID.
// created=true, если сессия новая.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}
	return st.Create(), true
}

func (st *Store) Create() *Session {
	id := uuid.NewString()
	s := newSession(id, st.maxTurns, st.now)
	st.mu.Lock()
	st.sessions[id] = s
	n := len(st.sessions)
	st.mu.Unlock()
	st.logger.Debugw("Session created", "session", id, "active", n)
	return s
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep удаляет сессии, неактивные дольше ttl. Возвращает число удалённых.
func (st *Store) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	deadline := st.now().Add(-ttl)

	st.mu.Lock()
	removed := 0
	for id, s := range st.sessions {
		if s.LastSeen().Before(deadline) {
			delete(st.sessions, id)
			removed++
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	if removed > 0 {
		st.logger.Infow("Idle sessions expired", "removed", removed, "active", n)
	}
	return removed
}

// Run периодически чистит неактивные сессии до отмены контекста.
func (st *Store) Run(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Sweep(ttl)
		}
	}
}
