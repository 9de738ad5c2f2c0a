package config

const (
	defaultWatchDir            = "/home/keyence/iv3_images"
	defaultPollIntervalSeconds = 3
	defaultSettleMillis        = 1000
	defaultFSNotify            = true
	defaultModel               = "claude-sonnet-4-5"
	defaultMaxTokens           = 300
	defaultTimeoutSeconds      = 60
	defaultRetryAttempts       = 3
	defaultRetryBaseDelayMs    = 1000
	defaultRetryMaxDelayMs     = 8000
	defaultStrictness          = 3
	defaultModbusListen        = "0.0.0.0:502"
	defaultAcceptCoil          = 1
	defaultRejectCoil          = 2
	defaultResetCoil           = 10
	defaultMaxClients          = 5
	defaultStateDir            = "~/.local/share/lid-inspector"
	defaultJournal             = true
	defaultLogLevel            = "info"
	defaultEventBuffer         = 64
)

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() Config {
	return Config{
		Watch: Watch{
			Dir:                 defaultWatchDir,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			SettleMillis:        defaultSettleMillis,
			FSNotify:            defaultFSNotify,
		},
		Classifier: Classifier{
			Model:          defaultModel,
			MaxTokens:      defaultMaxTokens,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryAttempts,
			BaseDelayMs: defaultRetryBaseDelayMs,
			MaxDelayMs:  defaultRetryMaxDelayMs,
		},
		Session: Session{
			Strictness: defaultStrictness,
		},
		Modbus: Modbus{
			Listen:     defaultModbusListen,
			AcceptCoil: defaultAcceptCoil,
			RejectCoil: defaultRejectCoil,
			ResetCoil:  defaultResetCoil,
			MaxClients: defaultMaxClients,
		},
		Telegram: Telegram{
			SendPhotos: true,
		},
		Storage: Storage{
			StateDir: defaultStateDir,
			Journal:  defaultJournal,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
		EventBuffer: defaultEventBuffer,
	}
}
