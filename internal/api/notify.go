package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const notifyTimeout = 10 * time.Second

func (b *Bot) OnDiscovered(entity.ImageRecord) {}

func (b *Bot) OnCountersChanged(entity.Counters) {}

// OnDecided рассылает вердикт подписанным операторам.
func (b *Bot) OnDecided(record entity.ImageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	chats, err := b.operators.SubscribedChats(ctx)
	if err != nil {
		b.logger.Warn("list subscribed chats", "error", err)
		return
	}

	text := recordSummary(record)
	for _, chatID := range chats {
		if b.photos && record.State == entity.StateDecided && record.Path != "" {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(record.Path))
			photo.Caption = text
			_, err := b.api.Send(photo)
			if err == nil {
				continue
			}
			b.logger.Warn("telegram photo send failed, falling back to text", "chat", chatID, "file", record.Name, "error", err)
		}
		b.sendMessage(chatID, text)
	}
}

var _ port.Presenter = (*Bot)(nil)
