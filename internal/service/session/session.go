package session

import (
	"FruitBot/internal/service/turns"
	"sync"
	"time"
)

// Session состояние одного пользователя. Буфер реплик ни с кем не разделяется.
type Session struct {
	ID string

	// cycle сериализует циклы запрос-ответ; mu защищает буфер,
	// поэтому снимок можно читать, пока идёт вызов модели.
	cycle    sync.Mutex
	mu       sync.Mutex
	buf      *turns.Buffer
	maxTurns int
	lastSeen time.Time
	now      func() time.Time
}

func newSession(id string, maxTurns int, now func() time.Time) *Session {
	return &Session{ID: id, buf: turns.New(maxTurns), maxTurns: maxTurns, lastSeen: now(), now: now}
}

// Exclusive выполняет fn, не допуская параллельных циклов в одной сессии.
func (s *Session) Exclusive(fn func()) {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	fn()
}

func (s *Session) AddUser(text string) {
	s.mu.Lock()
	s.buf.AddUser(text)
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) AddAssistant(text string) {
	s.mu.Lock()
	s.buf.AddAssistant(text)
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// Messages возвращает снимок реплик.
func (s *Session) Messages() []turns.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Messages()
}

// Reset начинает диалог заново с пустым буфером.
func (s *Session) Reset() {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	s.mu.Lock()
	s.buf = turns.New(s.maxTurns)
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}
