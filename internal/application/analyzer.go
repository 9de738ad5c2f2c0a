package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

// Analyzer готовит изображение и опрашивает классификатор,
// повторяя вызов только при временных сбоях.
type Analyzer struct {
	preprocessor port.Preprocessor
	classifier   port.Classifier
	retry        RetryPolicy
	logger       *slog.Logger

	sleep func(context.Context, time.Duration) error
}

// NewAnalyzer создаёт анализатор с заданной политикой повторов.
func NewAnalyzer(preprocessor port.Preprocessor, classifier port.Classifier, retry RetryPolicy, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		preprocessor: preprocessor,
		classifier:   classifier,
		retry:        retry,
		logger:       loggerOr(logger),
		sleep:        sleepContext,
	}
}

// Analyze разбирает вердикт для record.Path с настройками record.Settings.
// record.Attempts отражает число обращений к классификатору.
func (a *Analyzer) Analyze(ctx context.Context, record *entity.ImageRecord) (entity.Classification, error) {
	payload, err := a.preprocessor.Prepare(ctx, record.Path)
	if err != nil {
		if !errors.Is(err, entity.ErrPreprocessing) {
			err = entity.Wrap(entity.ErrPreprocessing, "prepare "+record.Name, err)
		}
		return entity.Classification{}, err
	}

	reply, err := a.classify(ctx, record, payload)
	if err != nil {
		return entity.Classification{}, err
	}
	return entity.ParseReply(reply)
}

func (a *Analyzer) classify(ctx context.Context, record *entity.ImageRecord, payload entity.ImagePayload) (string, error) {
	attempts := a.retry.attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		record.Attempts = attempt
		reply, err := a.classifier.Classify(ctx, payload, record.Settings)
		if err == nil {
			if attempt > 1 {
				a.logger.Info("classification succeeded after retry", "file", record.Name, "attempt", attempt)
			}
			return reply, nil
		}
		if !entity.IsTransient(err) {
			return "", err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := a.retry.Delay(attempt)
		a.logger.Warn("transient classification failure, retrying",
			"file", record.Name,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err,
		)
		if err := a.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("classify %s: failed after %d attempts: %w", record.Name, attempts, lastErr)
}
