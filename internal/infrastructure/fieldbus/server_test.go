package fieldbus

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/require"

	app "lid-inspector/internal/application"
	"lid-inspector/internal/domain/entity"
)

type fakeControls struct {
	settings entity.Settings
	counters entity.Counters
	last     *entity.ImageRecord
	epoch    uint64
	resets   int
}

func (f *fakeControls) SetStrictness(level int) error {
	if err := entity.ValidateStrictness(level); err != nil {
		return err
	}
	f.settings.Strictness = level
	return nil
}

func (f *fakeControls) SetNoBrandMode(on bool) { f.settings.NoBrandMode = on }

func (f *fakeControls) Reset(context.Context) {
	f.resets++
	f.epoch++
}

func (f *fakeControls) Status() entity.Status {
	return entity.Status{Settings: f.settings, Counters: f.counters, Last: f.last, Epoch: f.epoch}
}

func newTestServer(t *testing.T) (*Server, *fakeControls) {
	t.Helper()
	s, err := NewServer(Config{Listen: "127.0.0.1:0", AcceptCoil: 1, RejectCoil: 2, ResetCoil: 10, RegisterBase: 100}, nil)
	require.NoError(t, err)
	controls := &fakeControls{settings: entity.DefaultSettings()}
	s.Attach(controls)
	return s, controls
}

func TestNewServer_RejectsOverlappingCoils(t *testing.T) {
	_, err := NewServer(Config{AcceptCoil: 1, RejectCoil: 1, ResetCoil: 10}, nil)
	require.ErrorIs(t, err, entity.ErrConfiguration)
}

func TestServer_CoilsMirrorSignal(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.SetReject(false))
	require.NoError(t, s.SetAccept(true))

	coils, err := s.HandleCoils(&modbus.CoilsRequest{Addr: 0, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, []bool{false, true, false}, coils)

	inputs, err := s.HandleDiscreteInputs(&modbus.DiscreteInputsRequest{Addr: 1, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, inputs)

	_, err = s.HandleCoils(&modbus.CoilsRequest{Addr: 99, Quantity: 2})
	require.ErrorIs(t, err, modbus.ErrIllegalDataAddress)
}

func TestServer_CoilWrites(t *testing.T) {
	s, controls := newTestServer(t)

	_, err := s.HandleCoils(&modbus.CoilsRequest{Addr: 1, Quantity: 1, IsWrite: true, Args: []bool{true}})
	require.ErrorIs(t, err, modbus.ErrIllegalDataAddress)

	_, err = s.HandleCoils(&modbus.CoilsRequest{Addr: 10, Quantity: 1, IsWrite: true, Args: []bool{false}})
	require.NoError(t, err)
	require.Zero(t, controls.resets)

	_, err = s.HandleCoils(&modbus.CoilsRequest{Addr: 10, Quantity: 1, IsWrite: true, Args: []bool{true}})
	require.NoError(t, err)
	require.Equal(t, 1, controls.resets)
}

func TestServer_RegisterMap(t *testing.T) {
	s, controls := newTestServer(t)
	controls.epoch = 0x1_0002
	controls.counters = entity.Counters{Accepted: 70_000, Rejected: 3}
	controls.last = &entity.ImageRecord{State: entity.StateDecided, Verdict: entity.VerdictReject, Confidence: 88}

	regs, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 100, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, []uint16{1, 4464, 0, 3, 3, 0, OutcomeReject, 88, 2}, regs)

	input, err := s.HandleInputRegisters(&modbus.InputRegistersRequest{Addr: 106, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, []uint16{OutcomeReject, 88}, input)

	_, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 99, Quantity: 1})
	require.ErrorIs(t, err, modbus.ErrIllegalDataAddress)
	_, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 105, Quantity: 5})
	require.ErrorIs(t, err, modbus.ErrIllegalDataAddress)

	controls.last = &entity.ImageRecord{State: entity.StateFailed, Reason: "timeout"}
	regs, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 106, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, []uint16{OutcomeFailed, 0}, regs)

	controls.counters = entity.Counters{}
	controls.last = nil
	regs, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 100, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 0, 0, 0, 3, 0, OutcomeNone, 0, 2}, regs)
}

func TestServer_RegistersWithoutControls(t *testing.T) {
	s, err := NewServer(Config{AcceptCoil: 1, RejectCoil: 2, ResetCoil: 10}, nil)
	require.NoError(t, err)

	regs, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 0, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, make([]uint16, 9), regs)
}

// blockingPresenter держит каждое уведомление о вердикте до закрытия release.
type blockingPresenter struct {
	release chan struct{}
}

func (blockingPresenter) OnDiscovered(entity.ImageRecord)   {}
func (p blockingPresenter) OnDecided(entity.ImageRecord)    { <-p.release }
func (blockingPresenter) OnCountersChanged(entity.Counters) {}

type staticClassifier string

func (c staticClassifier) Classify(context.Context, entity.ImagePayload, entity.Settings) (string, error) {
	return string(c), nil
}

type bytesPreprocessor struct{}

func (bytesPreprocessor) Prepare(_ context.Context, path string) (entity.ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ImagePayload{}, entity.Wrap(entity.ErrPreprocessing, "read", err)
	}
	return entity.ImagePayload{Data: data, MediaType: "image/jpeg"}, nil
}

func TestServer_RegistersFollowPipelineDespiteSlowPresenter(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for i := 1; i <= 6; i++ {
		path := filepath.Join(dir, strconv.Itoa(i)+".jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o644))
		require.NoError(t, os.Chtimes(path, old, old))
	}

	s, err := NewServer(Config{AcceptCoil: 1, RejectCoil: 2, ResetCoil: 10}, nil)
	require.NoError(t, err)

	slow := blockingPresenter{release: make(chan struct{})}

	pipeline, err := app.NewPipeline(app.PipelineConfig{
		Dir:          dir,
		PollInterval: 10 * time.Millisecond,
		Retry:        app.DefaultRetryPolicy(),
		Settings:     entity.DefaultSettings(),
		EventBuffer:  1,
	}, bytesPreprocessor{}, staticClassifier("ACCEPT - clean lid (Confidence: 97%)"), s, nil, slow)
	require.NoError(t, err)
	s.Attach(pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pipeline.Run(ctx) }()

	require.Eventually(t, func() bool {
		return pipeline.Status().Counters.Accepted == 6
	}, 2*time.Second, 5*time.Millisecond)

	regs, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 0, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 6}, regs[regAcceptedHi:regRejectedHi])
	require.Equal(t, []uint16{OutcomeAccept, 97}, regs[regLastOutcome:regEpoch])

	coils, err := s.HandleCoils(&modbus.CoilsRequest{Addr: 1, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, coils)

	cancel()
	close(slow.release)
	require.NoError(t, <-done)

	pipeline.Reset(context.Background())
	regs, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 0, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 0, 0, 0}, regs[:regStrictness])
	require.Equal(t, []uint16{OutcomeNone, 0, 1}, regs[regLastOutcome:])
}

func TestServer_RegisterWrites(t *testing.T) {
	s, controls := newTestServer(t)

	_, err := s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 104, Quantity: 2, IsWrite: true, Args: []uint16{5, 1}})
	require.NoError(t, err)
	require.Equal(t, entity.Settings{Strictness: 5, NoBrandMode: true}, controls.settings)

	_, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 104, Quantity: 2, IsWrite: true, Args: []uint16{2, 7}})
	require.ErrorIs(t, err, modbus.ErrIllegalDataValue)
	require.Equal(t, 5, controls.settings.Strictness)

	_, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 104, Quantity: 1, IsWrite: true, Args: []uint16{0}})
	require.ErrorIs(t, err, modbus.ErrIllegalDataValue)

	_, err = s.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{Addr: 100, Quantity: 1, IsWrite: true, Args: []uint16{0}})
	require.ErrorIs(t, err, modbus.ErrIllegalDataAddress)
}
