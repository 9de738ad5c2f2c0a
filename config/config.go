package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Watch настройки наблюдения за каталогом камеры.
type Watch struct {
	Dir                 string `toml:"dir"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	SettleMillis        int    `toml:"settle_ms"`
	FSNotify            bool   `toml:"fsnotify"`
}

// Classifier настройки обращения к модели.
type Classifier struct {
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MinIntervalMs  int    `toml:"min_interval_ms"`
	PromptsFile    string `toml:"prompts_file"`
	APIKey         string `toml:"-"`
}

// Retry политика повторов временных сбоев.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMs int `toml:"base_delay_ms"`
	MaxDelayMs  int `toml:"max_delay_ms"`
}

// Session начальные настройки инспекции.
type Session struct {
	Strictness  int  `toml:"strictness"`
	NoBrandMode bool `toml:"no_brand_mode"`
}

// Modbus настройки Modbus TCP сервера.
type Modbus struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen"`
	AcceptCoil   uint16 `toml:"accept_coil"`
	RejectCoil   uint16 `toml:"reject_coil"`
	ResetCoil    uint16 `toml:"reset_coil"`
	RegisterBase uint16 `toml:"register_base"`
	MaxClients   uint   `toml:"max_clients"`
}

// GPIO дискретные выходы.
type GPIO struct {
	Enabled   bool   `toml:"enabled"`
	AcceptPin string `toml:"accept_pin"`
	RejectPin string `toml:"reject_pin"`
	ActiveLow bool   `toml:"active_low"`
}

// Telegram операторский бот.
type Telegram struct {
	Enabled      bool    `toml:"enabled"`
	AllowedChats []int64 `toml:"allowed_chats"`
	SendPhotos   bool    `toml:"send_photos"`
	Token        string  `toml:"-"`
}

// Storage каталог состояния и журнал вердиктов.
type Storage struct {
	StateDir string `toml:"state_dir"`
	Journal  bool   `toml:"journal"`
}

// Logging параметры журнала процесса.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config конфигурация инспектора.
type Config struct {
	Watch       Watch      `toml:"watch"`
	Classifier  Classifier `toml:"classifier"`
	Retry       Retry      `toml:"retry"`
	Session     Session    `toml:"session"`
	Modbus      Modbus     `toml:"modbus"`
	GPIO        GPIO       `toml:"gpio"`
	Telegram    Telegram   `toml:"telegram"`
	Storage     Storage    `toml:"storage"`
	Logging     Logging    `toml:"logging"`
	EventBuffer int        `toml:"event_buffer"`
}

// SampleConfig возвращает пример файла конфигурации.
func SampleConfig() string {
	return sampleConfig
}

// Load читает .env, затем TOML (если файл есть), переменные окружения и проверяет результат.
// Возвращает путь к файлу и признак его существования.
func Load(path string) (*Config, string, bool, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnv() {
	c.Classifier.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	c.Telegram.Token = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	if v := strings.TrimSpace(os.Getenv("LIDINSPECTOR_WATCH_DIR")); v != "" {
		c.Watch.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("LIDINSPECTOR_MODEL")); v != "" {
		c.Classifier.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("LIDINSPECTOR_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Watch.Dir, err = expandPath(c.Watch.Dir); err != nil {
		return fmt.Errorf("watch.dir: %w", err)
	}
	if c.Storage.StateDir, err = expandPath(c.Storage.StateDir); err != nil {
		return fmt.Errorf("storage.state_dir: %w", err)
	}
	if c.Classifier.PromptsFile, err = expandPath(c.Classifier.PromptsFile); err != nil {
		return fmt.Errorf("classifier.prompts_file: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// PollInterval интервал опроса каталога.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalSeconds) * time.Second
}

// Settle интервал успокоения файла.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Watch.SettleMillis) * time.Millisecond
}

// ClassifierTimeout предел одного запроса к модели.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// MinInterval минимальный интервал между запросами к модели.
func (c *Config) MinInterval() time.Duration {
	return time.Duration(c.Classifier.MinIntervalMs) * time.Millisecond
}

// RetryDelays базовая и максимальная задержки повторов.
func (c *Config) RetryDelays() (base, ceiling time.Duration) {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond, time.Duration(c.Retry.MaxDelayMs) * time.Millisecond
}

// LockPath файл блокировки единственного экземпляра.
func (c *Config) LockPath() string {
	return filepath.Join(c.Storage.StateDir, "lid-inspector.lock")
}

// EnsureDirectories создаёт каталог состояния.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir %q: %w", c.Storage.StateDir, err)
	}
	return nil
}

// DefaultConfigPath путь к пользовательскому файлу конфигурации.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lid-inspector/config.toml")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("lid-inspector.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
