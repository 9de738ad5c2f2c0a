package entity

import "fmt"

const (
	MinStrictness     = 1
	MaxStrictness     = 5
	DefaultStrictness = 3
)

// Settings настройки инспекции, читаемые обработчиком одним снимком.
type Settings struct {
	Strictness  int
	NoBrandMode bool
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{Strictness: DefaultStrictness}
}

// ValidateStrictness проверяет границы уровня строгости.
func ValidateStrictness(level int) error {
	if level < MinStrictness || level > MaxStrictness {
		return fmt.Errorf("%w: %d (allowed %d..%d)", ErrStrictnessOutOfRange, level, MinStrictness, MaxStrictness)
	}
	return nil
}

// Counters счётчики принятых и отбракованных изделий.
type Counters struct {
	Accepted uint64
	Rejected uint64
}

// Total общее число вердиктов.
func (c Counters) Total() uint64 {
	return c.Accepted + c.Rejected
}

// Signal аппаратное отражение последнего вердикта.
// Одновременно может быть поднята не более чем одна линия.
type Signal struct {
	Accept bool
	Reject bool
}

// Neutral — обе линии сброшены.
func (s Signal) Neutral() bool {
	return !s.Accept && !s.Reject
}

// SignalFor возвращает состояние линий для вердикта.
func SignalFor(v Verdict) Signal {
	switch v {
	case VerdictAccept:
		return Signal{Accept: true}
	case VerdictReject:
		return Signal{Reject: true}
	default:
		return Signal{}
	}
}

// Status снимок состояния конвейера для операторских интерфейсов.
type Status struct {
	Settings  Settings
	Counters  Counters
	Signal    Signal
	Epoch     uint64
	Queued    int
	Processed int
	Last      *ImageRecord
}
