// Package notify delivers ledger notifications to clients.
package notify

import (
	"fmt"
	"net/http"
	"time"

	"btg-funds/internal/config"
	"btg-funds/internal/core/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// New builds the notifier selected by cfg.Channel
func New(cfg config.NotifyConfig, logger zerolog.Logger) (services.Notifier, error) {
	switch cfg.Channel {
	case config.ChannelWebhook:
		return NewWebhook(cfg.WebhookURL, &http.Client{Timeout: 10 * time.Second}), nil
	case config.ChannelTelegram:
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		return NewTelegram(bot, cfg.TelegramChatID), nil
	default:
		return NewLog(logger), nil
	}
}
