package notify

import (
	"context"

	"btg-funds/internal/core/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSender is the subset of *tgbotapi.BotAPI used here
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends notifications to a configured chat
type Telegram struct {
	bot    BotSender
	chatID int64
}

// NewTelegram creates a telegram notifier
func NewTelegram(bot BotSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts the notification text to the chat
func (t *Telegram) Send(ctx context.Context, n services.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, "📨 "+n.Text()))
	return err
}
