package app

import (
	"sync"

	"lid-inspector/internal/domain/entity"
)

// SessionState живые настройки и счётчики процесса.
// Настройки меняет только операторский интерфейс, счётчики — только Dispatcher.
type SessionState struct {
	mu       sync.RWMutex
	settings entity.Settings
	counters entity.Counters
}

// NewSessionState создаёт состояние с проверкой начальной строгости.
func NewSessionState(initial entity.Settings) (*SessionState, error) {
	if err := entity.ValidateStrictness(initial.Strictness); err != nil {
		return nil, err
	}
	return &SessionState{settings: initial}, nil
}

// Snapshot возвращает строгость и режим одним согласованным снимком.
func (s *SessionState) Snapshot() entity.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetStrictness меняет уровень строгости; значение вне 1..5 отклоняется.
func (s *SessionState) SetStrictness(level int) error {
	if err := entity.ValidateStrictness(level); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.Strictness = level
	s.mu.Unlock()
	return nil
}

func (s *SessionState) SetNoBrandMode(on bool) {
	s.mu.Lock()
	s.settings.NoBrandMode = on
	s.mu.Unlock()
}

func (s *SessionState) Counters() entity.Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

func (s *SessionState) count(v entity.Verdict) entity.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v {
	case entity.VerdictAccept:
		s.counters.Accepted++
	case entity.VerdictReject:
		s.counters.Rejected++
	}
	return s.counters
}

func (s *SessionState) clearCounters() {
	s.mu.Lock()
	s.counters = entity.Counters{}
	s.mu.Unlock()
}
