package config

import (
	"errors"
	"fmt"

	"lid-inspector/internal/domain/entity"
)

// RequireClassifier проверяет секреты, нужные командам, которые обращаются к модели.
// Чтение журнала и служебные команды работают без ключа.
func (c *Config) RequireClassifier() error {
	if c.Classifier.APIKey == "" {
		return entity.Wrap(entity.ErrConfiguration, "", errors.New("ANTHROPIC_API_KEY is required (environment or .env)"))
	}
	return nil
}

// Validate проверяет пригодность конфигурации.
func (c *Config) Validate() error {
	var errs []error
	if c.Watch.Dir == "" {
		errs = append(errs, errors.New("watch.dir must be set"))
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		errs = append(errs, errors.New("watch.poll_interval_seconds must be positive"))
	}
	if c.Watch.SettleMillis < 0 {
		errs = append(errs, errors.New("watch.settle_ms must not be negative"))
	}
	if c.Classifier.MaxTokens <= 0 {
		errs = append(errs, errors.New("classifier.max_tokens must be positive"))
	}
	if c.Classifier.MinIntervalMs < 0 {
		errs = append(errs, errors.New("classifier.min_interval_ms must not be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Retry.BaseDelayMs < 0 || c.Retry.MaxDelayMs < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if err := entity.ValidateStrictness(c.Session.Strictness); err != nil {
		errs = append(errs, fmt.Errorf("session.strictness: %w", err))
	}
	if c.Modbus.Enabled {
		if c.Modbus.AcceptCoil == c.Modbus.RejectCoil || c.Modbus.AcceptCoil == c.Modbus.ResetCoil || c.Modbus.RejectCoil == c.Modbus.ResetCoil {
			errs = append(errs, errors.New("modbus coil addresses must be distinct"))
		}
		if c.Modbus.Listen == "" {
			errs = append(errs, errors.New("modbus.listen must be set"))
		}
	}
	if c.GPIO.Enabled && (c.GPIO.AcceptPin == "" || c.GPIO.RejectPin == "") {
		errs = append(errs, errors.New("gpio.accept_pin and gpio.reject_pin must be set when gpio is enabled"))
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required when telegram is enabled"))
	}
	if c.Storage.StateDir == "" {
		errs = append(errs, errors.New("storage.state_dir must be set"))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return entity.Wrap(entity.ErrConfiguration, "", err)
	}
	return nil
}
