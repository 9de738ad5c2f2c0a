package app

import (
	"errors"
	"log/slog"
	"sync"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

type epochSource interface {
	Epoch() uint64
}

// Dispatcher единственный писатель сигнальных линий и счётчиков.
// Apply и reset выполняются под одним мьютексом, поэтому результат,
// пришедший после сброса, отбрасывается по устаревшей эпохе.
type Dispatcher struct {
	mu        sync.Mutex
	sink      port.SignalSink
	session   *SessionState
	epochs    epochSource
	presenter port.Presenter
	logger    *slog.Logger

	signal entity.Signal
	last   *entity.ImageRecord
}

// NewDispatcher создаёт диспетчер результатов.
func NewDispatcher(sink port.SignalSink, session *SessionState, epochs epochSource, presenter port.Presenter, logger *slog.Logger) *Dispatcher {
	if sink == nil {
		sink = nopSink{}
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	return &Dispatcher{
		sink:      sink,
		session:   session,
		epochs:    epochs,
		presenter: presenter,
		logger:    loggerOr(logger),
	}
}

// BeginAnalysis сбрасывает обе линии перед классификацией.
// Возвращает false для записи из устаревшей эпохи.
func (d *Dispatcher) BeginAnalysis(record *entity.ImageRecord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stale(record) {
		return false
	}
	if err := d.neutral(); err != nil {
		d.logger.Warn("deassert signals before analysis", "file", record.Name, "error", err)
	}
	return true
}

// Apply применяет терминальную запись к сигналам, счётчикам и представлению.
func (d *Dispatcher) Apply(record *entity.ImageRecord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stale(record) {
		d.logger.Info("discarding stale result",
			"file", record.Name,
			"epoch", record.Epoch,
			"current_epoch", d.epochs.Epoch(),
		)
		return false
	}
	if !record.State.Terminal() {
		d.logger.Warn("ignoring non-terminal record", "file", record.Name, "state", record.State)
		return false
	}

	switch record.State {
	case entity.StateDecided:
		if err := d.neutral(); err != nil {
			// Не поднимаем линию, если не удалось сбросить вторую.
			d.logger.Error("deassert signals", "file", record.Name, "error", err)
		} else if err := d.assert(record.Verdict); err != nil {
			d.logger.Error("assert signal", "file", record.Name, "verdict", record.Verdict, "error", err)
		}
		counters := d.session.count(record.Verdict)
		d.remember(record)
		d.presenter.OnDecided(*record)
		d.presenter.OnCountersChanged(counters)
	case entity.StateFailed:
		if err := d.neutral(); err != nil {
			d.logger.Error("deassert signals", "file", record.Name, "error", err)
		}
		d.remember(record)
		d.presenter.OnDecided(*record)
	}
	return true
}

// reset под мьютексом диспетчера выполняет drain (он начинает новую эпоху),
// обнуляет счётчики и переводит линии в нейтральное состояние.
func (d *Dispatcher) reset(drain func() uint64) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	epoch := drain()
	d.session.clearCounters()
	if err := d.neutral(); err != nil {
		d.logger.Error("deassert signals on reset", "error", err)
	}
	d.last = nil
	d.presenter.OnCountersChanged(entity.Counters{})
	return epoch
}

// release сбрасывает линии при остановке процесса.
func (d *Dispatcher) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.neutral(); err != nil {
		d.logger.Warn("deassert signals on shutdown", "error", err)
	}
}

// Signal текущее командное состояние линий.
func (d *Dispatcher) Signal() entity.Signal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.signal
}

// Last последняя применённая запись (копия) или nil.
func (d *Dispatcher) Last() *entity.ImageRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return nil
	}
	cp := *d.last
	return &cp
}

func (d *Dispatcher) stale(record *entity.ImageRecord) bool {
	return record.Epoch != d.epochs.Epoch()
}

func (d *Dispatcher) remember(record *entity.ImageRecord) {
	cp := *record
	d.last = &cp
}

func (d *Dispatcher) neutral() error {
	errAccept := d.sink.SetAccept(false)
	if errAccept == nil {
		d.signal.Accept = false
	}
	errReject := d.sink.SetReject(false)
	if errReject == nil {
		d.signal.Reject = false
	}
	return errors.Join(errAccept, errReject)
}

func (d *Dispatcher) assert(v entity.Verdict) error {
	target := entity.SignalFor(v)
	if target.Accept {
		if err := d.sink.SetAccept(true); err != nil {
			return err
		}
		d.signal.Accept = true
	}
	if target.Reject {
		if err := d.sink.SetReject(true); err != nil {
			return err
		}
		d.signal.Reject = true
	}
	return nil
}

type nopSink struct{}

func (nopSink) SetAccept(bool) error { return nil }
func (nopSink) SetReject(bool) error { return nil }
