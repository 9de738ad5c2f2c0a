package fieldbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simonvetter/modbus"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// Раскладка holding-регистров относительно RegisterBase.
const (
	regAcceptedHi = iota
	regAcceptedLo
	regRejectedHi
	regRejectedLo
	regStrictness
	regNoBrand
	regLastOutcome
	regLastConfidence
	regEpoch
	registerCount
)

// Коды последнего результата в регистре regLastOutcome.
const (
	OutcomeNone   uint16 = 0
	OutcomeAccept uint16 = 1
	OutcomeReject uint16 = 2
	OutcomeFailed uint16 = 3
)

// coilSpace размер адресного пространства катушек, читаемого без ошибки.
const coilSpace = 100

// Config параметры Modbus TCP сервера.
type Config struct {
	Listen       string
	AcceptCoil   uint16
	RejectCoil   uint16
	ResetCoil    uint16
	RegisterBase uint16
	MaxClients   uint
	Timeout      time.Duration
}

// Server Modbus TCP slave для ПЛК линии.
// Катушки отражают сигнальные линии, регистры читаются из Status конвейера
// в момент запроса.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	signal   entity.Signal
	controls port.Controls
}

// NewServer создаёт сервер; прослушивание начинается в Run.
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.AcceptCoil == cfg.RejectCoil || cfg.AcceptCoil == cfg.ResetCoil || cfg.RejectCoil == cfg.ResetCoil {
		return nil, entity.Wrap(entity.ErrConfiguration, "modbus coil addresses must be distinct", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}, nil
}

// Attach подключает операторский интерфейс для регистров настроек и катушки сброса.
func (s *Server) Attach(controls port.Controls) {
	s.mu.Lock()
	s.controls = controls
	s.mu.Unlock()
}

// Run слушает порт до отмены контекста.
func (s *Server) Run(ctx context.Context) error {
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + s.cfg.Listen,
		Timeout:    s.cfg.Timeout,
		MaxClients: s.cfg.MaxClients,
	}, s)
	if err != nil {
		return fmt.Errorf("create modbus server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("start modbus server on %s: %w", s.cfg.Listen, err)
	}
	s.logger.Info("modbus server listening", "listen", s.cfg.Listen)

	<-ctx.Done()
	if err := server.Stop(); err != nil {
		s.logger.Warn("stop modbus server", "error", err)
	}
	return nil
}

// SetAccept выставляет катушку ACCEPT.
func (s *Server) SetAccept(on bool) error {
	s.mu.Lock()
	s.signal.Accept = on
	s.mu.Unlock()
	return nil
}

// SetReject выставляет катушку REJECT.
func (s *Server) SetReject(on bool) error {
	s.mu.Lock()
	s.signal.Reject = on
	s.mu.Unlock()
	return nil
}

// HandleCoils чтение сигнальных катушек и запись катушки сброса.
func (s *Server) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if req.IsWrite {
		return nil, s.writeCoils(req)
	}
	return s.readCoils(req.Addr, req.Quantity)
}

// HandleDiscreteInputs дублирует сигнальные катушки только для чтения.
func (s *Server) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return s.readCoils(req.Addr, req.Quantity)
}

// HandleHoldingRegisters чтение карты регистров и запись настроек.
func (s *Server) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		return nil, s.writeRegisters(req.Addr, req.Args)
	}
	return s.readRegisters(req.Addr, req.Quantity)
}

// HandleInputRegisters дублирует карту регистров только для чтения.
func (s *Server) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return s.readRegisters(req.Addr, req.Quantity)
}

func (s *Server) readCoils(addr, quantity uint16) ([]bool, error) {
	if int(addr)+int(quantity) > coilSpace {
		return nil, modbus.ErrIllegalDataAddress
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bool, quantity)
	for i := range out {
		switch addr + uint16(i) {
		case s.cfg.AcceptCoil:
			out[i] = s.signal.Accept
		case s.cfg.RejectCoil:
			out[i] = s.signal.Reject
		}
	}
	return out, nil
}

func (s *Server) writeCoils(req *modbus.CoilsRequest) error {
	reset := false
	for i, value := range req.Args {
		if req.Addr+uint16(i) != s.cfg.ResetCoil {
			return modbus.ErrIllegalDataAddress
		}
		reset = reset || value
	}
	if !reset {
		return nil
	}

	controls := s.attached()
	if controls == nil {
		return modbus.ErrServerDeviceFailure
	}
	s.logger.Info("reset requested over modbus", "client", req.ClientAddr)
	controls.Reset(context.Background())
	return nil
}

func (s *Server) readRegisters(addr, quantity uint16) ([]uint16, error) {
	offset := int(addr) - int(s.cfg.RegisterBase)
	if offset < 0 || offset+int(quantity) > registerCount {
		return nil, modbus.ErrIllegalDataAddress
	}
	regs := s.snapshot()
	return regs[offset : offset+int(quantity)], nil
}

func (s *Server) writeRegisters(addr uint16, values []uint16) error {
	offset := int(addr) - int(s.cfg.RegisterBase)
	for i := range values {
		switch offset + i {
		case regStrictness, regNoBrand:
		default:
			return modbus.ErrIllegalDataAddress
		}
	}

	controls := s.attached()
	if controls == nil {
		return modbus.ErrServerDeviceFailure
	}

	// Сначала проверяем все значения, чтобы не применять запись частично.
	for i, v := range values {
		switch offset + i {
		case regStrictness:
			if entity.ValidateStrictness(int(v)) != nil {
				return modbus.ErrIllegalDataValue
			}
		case regNoBrand:
			if v > 1 {
				return modbus.ErrIllegalDataValue
			}
		}
	}
	for i, v := range values {
		switch offset + i {
		case regStrictness:
			if err := controls.SetStrictness(int(v)); err != nil {
				if errors.Is(err, entity.ErrStrictnessOutOfRange) {
					return modbus.ErrIllegalDataValue
				}
				return modbus.ErrServerDeviceFailure
			}
		case regNoBrand:
			controls.SetNoBrandMode(v == 1)
		}
	}
	return nil
}

func (s *Server) attached() port.Controls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controls
}

func (s *Server) snapshot() []uint16 {
	regs := make([]uint16, registerCount)
	controls := s.attached()
	if controls == nil {
		return regs
	}

	status := controls.Status()
	regs[regAcceptedHi], regs[regAcceptedLo] = split32(status.Counters.Accepted)
	regs[regRejectedHi], regs[regRejectedLo] = split32(status.Counters.Rejected)
	regs[regStrictness] = uint16(status.Settings.Strictness)
	if status.Settings.NoBrandMode {
		regs[regNoBrand] = 1
	}
	regs[regLastOutcome], regs[regLastConfidence] = outcome(status.Last)
	regs[regEpoch] = uint16(status.Epoch & 0xFFFF)
	return regs
}

// outcome код и уверенность последней терминальной записи.
func outcome(last *entity.ImageRecord) (code, confidence uint16) {
	switch {
	case last == nil:
		return OutcomeNone, 0
	case last.State == entity.StateFailed:
		return OutcomeFailed, 0
	case last.Verdict == entity.VerdictAccept:
		return OutcomeAccept, uint16(last.Confidence)
	case last.Verdict == entity.VerdictReject:
		return OutcomeReject, uint16(last.Confidence)
	default:
		return OutcomeNone, 0
	}
}

func split32(v uint64) (hi, lo uint16) {
	v32 := uint32(v)
	return uint16(v32 >> 16), uint16(v32)
}

var (
	_ port.SignalSink       = (*Server)(nil)
	_ modbus.RequestHandler = (*Server)(nil)
)
