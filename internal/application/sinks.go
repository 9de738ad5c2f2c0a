package app

import (
	"errors"

	"lid-inspector/internal/domain/port"
)

// SignalFanout дублирует команды линий на несколько выходов (Modbus, GPIO).
// Ошибка одного выхода не мешает остальным.
type SignalFanout []port.SignalSink

func (f SignalFanout) SetAccept(on bool) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SetAccept(on))
	}
	return errors.Join(errs...)
}

func (f SignalFanout) SetReject(on bool) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SetReject(on))
	}
	return errors.Join(errs...)
}
