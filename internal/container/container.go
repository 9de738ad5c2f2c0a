package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"lid-inspector/config"
	telegram "lid-inspector/internal/api"
	app "lid-inspector/internal/application"
	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
	"lid-inspector/internal/infrastructure/classifier"
	"lid-inspector/internal/infrastructure/fieldbus"
	"lid-inspector/internal/infrastructure/fswatch"
	"lid-inspector/internal/infrastructure/gpio"
	"lid-inspector/internal/infrastructure/storage"
	"lid-inspector/internal/infrastructure/vision"
)

// Container собранный процесс инспекции.
type Container struct {
	Pipeline  *app.Pipeline
	Operators *app.OperatorService
	Journal   *storage.Journal
	Modbus    *fieldbus.Server
	GPIO      *gpio.Outputs
	Notifier  *fswatch.Notifier
	Bot       *telegram.Bot

	logger  *slog.Logger
	runners []func(context.Context) error
	closers []func() error
}

// NewClassifier создаёт классификатор по конфигурации.
func NewClassifier(cfg *config.Config, logger *slog.Logger) (*classifier.Claude, error) {
	if err := cfg.RequireClassifier(); err != nil {
		return nil, err
	}
	prompts, err := classifier.LoadPrompts(cfg.Classifier.PromptsFile)
	if err != nil {
		return nil, err
	}
	return classifier.NewClaude(classifier.Config{
		APIKey:      cfg.Classifier.APIKey,
		BaseURL:     cfg.Classifier.BaseURL,
		Model:       cfg.Classifier.Model,
		MaxTokens:   cfg.Classifier.MaxTokens,
		Timeout:     cfg.ClassifierTimeout(),
		MinInterval: cfg.MinInterval(),
	}, prompts, logger.With("component", "classifier"))
}

// NewPreprocessor создаёт препроцессор изображений.
func NewPreprocessor() port.Preprocessor {
	return vision.NewGlareRemover()
}

// New собирает адаптеры и конвейер. Ошибки здесь фатальны для запуска.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{logger: logger}
	built := false
	defer func() {
		if !built {
			_ = c.Close()
		}
	}()

	cls, err := NewClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !vision.Enabled {
		logger.Warn("built without gocv, glare removal disabled")
	}

	var sinks app.SignalFanout
	var presenters []port.Presenter
	presenters = append(presenters, app.NewLogPresenter(logger.With("component", "presenter")))

	if cfg.Modbus.Enabled {
		c.Modbus, err = fieldbus.NewServer(fieldbus.Config{
			Listen:       cfg.Modbus.Listen,
			AcceptCoil:   cfg.Modbus.AcceptCoil,
			RejectCoil:   cfg.Modbus.RejectCoil,
			ResetCoil:    cfg.Modbus.ResetCoil,
			RegisterBase: cfg.Modbus.RegisterBase,
			MaxClients:   cfg.Modbus.MaxClients,
		}, logger.With("component", "modbus"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, c.Modbus)
		c.runners = append(c.runners, c.Modbus.Run)
	}

	if cfg.GPIO.Enabled {
		c.GPIO, err = gpio.Open(gpio.Config{
			AcceptPin: cfg.GPIO.AcceptPin,
			RejectPin: cfg.GPIO.RejectPin,
			ActiveLow: cfg.GPIO.ActiveLow,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, c.GPIO)
		c.closers = append(c.closers, c.GPIO.Close)
	}

	if cfg.Storage.Journal {
		c.Journal, err = storage.OpenJournal(ctx, cfg.Storage.StateDir)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, c.Journal.Close)
		recorder := storage.NewJournalRecorder(c.Journal, logger.With("component", "journal"))
		presenters = append(presenters, recorder)
		logger.Info("verdict journal enabled", "path", c.Journal.Path(), "run_id", recorder.RunID())
	}

	c.Operators = app.NewOperatorService(storage.NewMemoryOperatorRepository())
	if cfg.Telegram.Enabled {
		c.Bot, err = telegram.NewBot(cfg.Telegram.Token, c.Operators, telegram.Options{
			AllowedChats: cfg.Telegram.AllowedChats,
			SendPhotos:   cfg.Telegram.SendPhotos,
		}, logger.With("component", "telegram"))
		if err != nil {
			return nil, err
		}
		presenters = append(presenters, c.Bot)
		c.runners = append(c.runners, c.Bot.Run)
	}

	var trigger <-chan struct{}
	if cfg.Watch.FSNotify {
		notifier, nerr := fswatch.NewNotifier(cfg.Watch.Dir, logger.With("component", "fswatch"))
		if nerr != nil {
			// Без уведомлений остаётся опрос.
			logger.Warn("fsnotify unavailable, polling only", "dir", cfg.Watch.Dir, "error", nerr)
		} else {
			c.Notifier = notifier
			trigger = notifier.Hints()
			c.runners = append(c.runners, notifier.Run)
			c.closers = append(c.closers, notifier.Close)
		}
	}

	base, ceiling := cfg.RetryDelays()
	var sink port.SignalSink
	if len(sinks) > 0 {
		sink = sinks
	}
	c.Pipeline, err = app.NewPipeline(app.PipelineConfig{
		Dir:          cfg.Watch.Dir,
		PollInterval: cfg.PollInterval(),
		Settle:       cfg.Settle(),
		Trigger:      trigger,
		Retry: app.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   base,
			MaxDelay:    ceiling,
		},
		Settings: entity.Settings{
			Strictness:  cfg.Session.Strictness,
			NoBrandMode: cfg.Session.NoBrandMode,
		},
		EventBuffer: cfg.EventBuffer,
	}, NewPreprocessor(), cls, sink, logger, presenters...)
	if err != nil {
		return nil, err
	}

	if c.Modbus != nil {
		c.Modbus.Attach(c.Pipeline)
	}
	if c.Bot != nil {
		c.Bot.Attach(c.Pipeline)
	}
	built = true
	return c, nil
}

// Run запускает конвейер и все адаптеры; первая ошибка останавливает остальных.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Pipeline.Run(ctx) })
	for _, run := range c.runners {
		g.Go(func() error { return run(ctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("inspector stopped: %w", err)
	}
	return nil
}

// Close освобождает ресурсы в обратном порядке.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
