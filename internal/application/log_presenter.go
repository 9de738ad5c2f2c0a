package app

import (
	"log/slog"

	"lid-inspector/internal/domain/entity"
)

// LogPresenter пишет события конвейера в журнал процесса.
type LogPresenter struct {
	logger *slog.Logger
}

func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	return &LogPresenter{logger: loggerOr(logger)}
}

func (p *LogPresenter) OnDiscovered(record entity.ImageRecord) {
	p.logger.Info("image queued", "file", record.Name)
}

func (p *LogPresenter) OnDecided(record entity.ImageRecord) {
	if record.State == entity.StateFailed {
		p.logger.Warn("inspection failed", "file", record.Name, "reason", record.Reason, "attempts", record.Attempts)
		return
	}
	p.logger.Info("inspection verdict",
		"file", record.Name,
		"verdict", record.Verdict,
		"confidence", record.Confidence,
		"reason", record.Reason,
	)
}

func (p *LogPresenter) OnCountersChanged(counters entity.Counters) {
	p.logger.Debug("counters changed", "accepted", counters.Accepted, "rejected", counters.Rejected)
}
