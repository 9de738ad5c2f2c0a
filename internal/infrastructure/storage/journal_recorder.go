package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const recordTimeout = 5 * time.Second

// JournalRecorder презентер, пишущий терминальные записи в журнал.
type JournalRecorder struct {
	journal port.Journal
	runID   string
	logger  *slog.Logger
}

// NewJournalRecorder создаёт презентер журнала для одного запуска процесса.
func NewJournalRecorder(journal port.Journal, logger *slog.Logger) *JournalRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalRecorder{
		journal: journal,
		runID:   uuid.NewString(),
		logger:  logger,
	}
}

// RunID идентификатор запуска.
func (r *JournalRecorder) RunID() string {
	return r.runID
}

func (r *JournalRecorder) OnDiscovered(entity.ImageRecord) {}

func (r *JournalRecorder) OnCountersChanged(entity.Counters) {}

// OnDecided добавляет запись в журнал; ошибка только логируется.
func (r *JournalRecorder) OnDecided(record entity.ImageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := entity.JournalEntryFor(uuid.NewString(), r.runID, record)
	if err := r.journal.Append(ctx, entry); err != nil {
		r.logger.Warn("journal append failed", "file", record.Name, "error", err)
	}
}

// Durable журнал не теряет терминальные записи при переполнении очереди.
func (r *JournalRecorder) Durable() bool {
	return true
}

var _ port.DurablePresenter = (*JournalRecorder)(nil)
