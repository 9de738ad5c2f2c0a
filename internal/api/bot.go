package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "lid-inspector/internal/application"
	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я бот инспекции крышек.

🔔 Вы подписаны на уведомления о вердиктах.

📋 Команды:
/status — состояние линии
/strict N — строгость от 1 до 5
/nobrand on|off — режим без оценки брендирования
/clear — сбросить сессию
/stop — отписаться от уведомлений
/help — справка`

	msgHelp = `ℹ️ Бот показывает вердикты инспекции и управляет линией.

📋 Команды:
/start — подписаться на уведомления
/stop — отписаться
/status — счётчики, настройки и последний результат
/strict N — строгость (1 мягко … 5 очень строго)
/nobrand on|off — оценивать только поверхность и цвет
/clear — очистить очередь, счётчики и сигналы`

	msgStopped        = "🔕 Уведомления отключены. /start — включить снова."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgNotCommand     = "📋 Я понимаю только команды. Используйте /help для справки."
	msgForbidden      = "⛔ Этот чат не может управлять линией."
	msgNotReady       = "⏳ Конвейер ещё не запущен."
	msgStrictUsage    = "Использование: /strict N, где N от 1 до 5."
	msgNoBrandUsage   = "Использование: /nobrand on или /nobrand off."
	msgCleared        = "🧹 Сессия сброшена: очередь, счётчики и сигналы очищены."
	msgError          = "⚠️ Не удалось выполнить команду."
)

const (
	pollTimeout = 60 // секунды long polling
	httpTimeout = 90 * time.Second
)

// sender часть tgbotapi.BotAPI, нужная для ответов и рассылки.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options параметры бота.
type Options struct {
	AllowedChats []int64 // пусто — управлять может любой чат
	SendPhotos   bool
}

// Bot представляет Telegram-бота оператора линии
type Bot struct {
	api       sender
	botAPI    *tgbotapi.BotAPI
	operators *app.OperatorService
	controls  port.Controls
	allowed   map[int64]struct{}
	photos    bool
	logger    *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, operators *app.OperatorService, opts Options, logger *slog.Logger) (*Bot, error) {
	// Таймаут клиента больше long polling, но ограничивает зависшую отправку фото.
	client := &http.Client{Timeout: httpTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	b := newBot(api, operators, opts, logger)
	b.botAPI = api
	b.logger.Info("telegram bot authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(api sender, operators *app.OperatorService, opts Options, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[int64]struct{}, len(opts.AllowedChats))
	for _, id := range opts.AllowedChats {
		allowed[id] = struct{}{}
	}
	return &Bot{
		api:       api,
		operators: operators,
		allowed:   allowed,
		photos:    opts.SendPhotos,
		logger:    logger,
	}
}

// Attach подключает управление конвейером.
func (b *Bot) Attach(controls port.Controls) {
	b.controls = controls
}

// Run запускает основной цикл обработки сообщений
func (b *Bot) Run(ctx context.Context) error {
	if b.botAPI == nil {
		return fmt.Errorf("telegram bot is not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.botAPI.GetUpdatesChan(u)
	defer b.botAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgNotCommand)
		return
	}
	b.sendMessage(msg.Chat.ID, b.handleCommand(ctx, msg))
}

// handleCommand выполняет команду и возвращает текст ответа
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) string {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		if _, err := b.operators.Subscribe(ctx, msg.From.ID, chatID); err != nil {
			b.logger.Warn("subscribe operator", "chat", chatID, "error", err)
			return msgError
		}
		return msgStart

	case "stop":
		if _, err := b.operators.Unsubscribe(ctx, msg.From.ID, chatID); err != nil {
			b.logger.Warn("unsubscribe operator", "chat", chatID, "error", err)
			return msgError
		}
		return msgStopped

	case "help":
		return msgHelp

	case "status":
		if b.controls == nil {
			return msgNotReady
		}
		return formatStatus(b.controls.Status())

	case "strict":
		if reply, ok := b.guard(chatID); !ok {
			return reply
		}
		level, err := strconv.Atoi(args)
		if err != nil {
			return msgStrictUsage
		}
		if err := b.controls.SetStrictness(level); err != nil {
			return msgStrictUsage
		}
		b.logger.Info("strictness changed from telegram", "chat", chatID, "strictness", level)
		return fmt.Sprintf("🎚 Строгость: %d/%d", level, entity.MaxStrictness)

	case "nobrand":
		if reply, ok := b.guard(chatID); !ok {
			return reply
		}
		var on bool
		switch strings.ToLower(args) {
		case "on", "1", "вкл":
			on = true
		case "off", "0", "выкл":
			on = false
		default:
			return msgNoBrandUsage
		}
		b.controls.SetNoBrandMode(on)
		b.logger.Info("no-brand mode changed from telegram", "chat", chatID, "no_brand", on)
		return "🏷 Режим без брендирования: " + onOff(on)

	case "clear":
		if reply, ok := b.guard(chatID); !ok {
			return reply
		}
		b.controls.Reset(ctx)
		b.logger.Info("session reset from telegram", "chat", chatID)
		return msgCleared

	default:
		return msgUnknownCommand
	}
}

// guard проверяет право чата на управляющие команды
func (b *Bot) guard(chatID int64) (string, bool) {
	if b.controls == nil {
		return msgNotReady, false
	}
	if len(b.allowed) == 0 {
		return "", true
	}
	if _, ok := b.allowed[chatID]; ok {
		return "", true
	}
	return msgForbidden, false
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("telegram send failed", "chat", chatID, "error", err)
	}
}

func formatStatus(s entity.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Принято: %d\n", s.Counters.Accepted)
	fmt.Fprintf(&sb, "📊 Отбраковано: %d\n", s.Counters.Rejected)
	fmt.Fprintf(&sb, "🎚 Строгость: %d/%d\n", s.Settings.Strictness, entity.MaxStrictness)
	fmt.Fprintf(&sb, "🏷 Без брендирования: %s\n", onOff(s.Settings.NoBrandMode))
	fmt.Fprintf(&sb, "📥 В очереди: %d, обработано в сессии: %d\n", s.Queued, s.Processed)
	switch {
	case s.Signal.Accept:
		sb.WriteString("🟢 Сигнал: ACCEPT\n")
	case s.Signal.Reject:
		sb.WriteString("🔴 Сигнал: REJECT\n")
	default:
		sb.WriteString("⚪ Сигнал: нет\n")
	}
	if s.Last != nil {
		sb.WriteString("🕘 Последний: " + recordSummary(*s.Last))
	} else {
		sb.WriteString("🕘 Ожидание изображений...")
	}
	return sb.String()
}

func recordSummary(r entity.ImageRecord) string {
	switch {
	case r.State == entity.StateFailed:
		return fmt.Sprintf("⚠️ %s: ошибка анализа (%s)", r.Name, r.Reason)
	case r.Verdict == entity.VerdictAccept:
		return fmt.Sprintf("✅ %s: ACCEPT, %s (уверенность %d%%)", r.Name, r.Reason, r.Confidence)
	default:
		return fmt.Sprintf("❌ %s: REJECT, %s (уверенность %d%%)", r.Name, r.Reason, r.Confidence)
	}
}

func onOff(on bool) string {
	if on {
		return "вкл"
	}
	return "выкл"
}
