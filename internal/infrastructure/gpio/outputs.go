package gpio

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// Config имена выводов и полярность.
type Config struct {
	AcceptPin string
	RejectPin string
	ActiveLow bool // реле включается низким уровнем
}

// Outputs дискретные выходы ACCEPT/REJECT на GPIO.
type Outputs struct {
	accept    gpio.PinOut
	reject    gpio.PinOut
	activeLow bool
}

// Open инициализирует драйверы periph и находит выводы по имени.
func Open(cfg Config) (*Outputs, error) {
	if strings.TrimSpace(cfg.AcceptPin) == "" || strings.TrimSpace(cfg.RejectPin) == "" {
		return nil, entity.Wrap(entity.ErrConfiguration, "gpio pins are not configured", nil)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	accept := gpioreg.ByName(cfg.AcceptPin)
	if accept == nil {
		return nil, entity.Wrap(entity.ErrConfiguration, "unknown gpio pin "+cfg.AcceptPin, nil)
	}
	reject := gpioreg.ByName(cfg.RejectPin)
	if reject == nil {
		return nil, entity.Wrap(entity.ErrConfiguration, "unknown gpio pin "+cfg.RejectPin, nil)
	}
	return New(accept, reject, cfg.ActiveLow)
}

// New оборачивает готовые выводы и сбрасывает их в неактивное состояние.
func New(accept, reject gpio.PinOut, activeLow bool) (*Outputs, error) {
	o := &Outputs{accept: accept, reject: reject, activeLow: activeLow}
	if err := o.Close(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Outputs) SetAccept(on bool) error {
	return o.drive(o.accept, on)
}

func (o *Outputs) SetReject(on bool) error {
	return o.drive(o.reject, on)
}

// Close переводит оба выхода в неактивное состояние.
func (o *Outputs) Close() error {
	return errors.Join(o.drive(o.accept, false), o.drive(o.reject, false))
}

func (o *Outputs) drive(pin gpio.PinOut, on bool) error {
	level := gpio.Level(on != o.activeLow)
	if err := pin.Out(level); err != nil {
		return fmt.Errorf("drive %s to %s: %w", pin.Name(), level, err)
	}
	return nil
}

var _ port.SignalSink = (*Outputs)(nil)
