package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 300
	DefaultTimeout   = 60 * time.Second
)

// Config параметры клиента классификатора.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	MinInterval time.Duration // минимальный интервал между запросами, 0 без ограничения
}

// Claude классификатор крышек на Anthropic Messages API.
// Повторы выполняет обработчик, поэтому встроенные повторы SDK выключены.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	limiter   *rate.Limiter
	prompts   *Prompts
	logger    *slog.Logger
}

// NewClaude создаёт клиента. prompts nil означает встроенный набор.
func NewClaude(cfg Config, prompts *Prompts, logger *slog.Logger) (*Claude, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, entity.Wrap(entity.ErrConfiguration, "anthropic api key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}

	return &Claude{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		limiter:   limiter,
		prompts:   prompts,
		logger:    logger,
	}, nil
}

// Classify отправляет изображение и возвращает сырой текст ответа модели.
func (c *Claude) Classify(ctx context.Context, image entity.ImagePayload, settings entity.Settings) (string, error) {
	if len(image.Data) == 0 {
		return "", entity.Wrap(entity.ErrPermanentClassification, "classify", errors.New("empty image"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.client.Messages.New(callCtx, c.request(image, settings))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	c.logger.Debug("classifier call",
		"model", c.model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(started),
	)
	if strings.TrimSpace(text.String()) == "" {
		return "", entity.Wrap(entity.ErrPermanentClassification, "classify", errors.New("empty model reply"))
	}
	return text.String(), nil
}

func (c *Claude) request(image entity.ImagePayload, settings entity.Settings) anthropic.MessageNewParams {
	mediaType := image.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, 4)
	for _, ref := range c.prompts.References(settings) {
		blocks = append(blocks, anthropic.NewTextBlock("Reference: "+ref))
	}
	blocks = append(blocks,
		anthropic.NewTextBlock("Here is the image to inspect:"),
		anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(image.Data)),
	)

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: c.prompts.System(settings)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
}

// classifyError переводит ошибку SDK в таксономию: временная или постоянная.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if transientStatus(apiErr.StatusCode) {
			return entity.Wrap(entity.ErrTransientClassification, fmt.Sprintf("anthropic status %d", apiErr.StatusCode), err)
		}
		return entity.Wrap(entity.ErrPermanentClassification, fmt.Sprintf("anthropic status %d", apiErr.StatusCode), err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return entity.Wrap(entity.ErrTransientClassification, "anthropic timeout", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return entity.Wrap(entity.ErrTransientClassification, "anthropic network", err)
	}
	return entity.Wrap(entity.ErrPermanentClassification, "anthropic", err)
}

func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooManyRequests,
		code == 529:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

var _ port.Classifier = (*Claude)(nil)
