package app

import "sync"

// ProcessedSet имена файлов, уже поставленных в очередь в текущей сессии.
type ProcessedSet struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{names: make(map[string]struct{})}
}

// Add добавляет имя и возвращает false, если оно уже было.
func (s *ProcessedSet) Add(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

func (s *ProcessedSet) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[name]
	return ok
}

func (s *ProcessedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Reset очищает набор.
func (s *ProcessedSet) Reset() {
	s.mu.Lock()
	s.names = make(map[string]struct{})
	s.mu.Unlock()
}
