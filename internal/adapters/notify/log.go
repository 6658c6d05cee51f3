package notify

import (
	"context"

	"btg-funds/internal/core/services"

	"github.com/rs/zerolog"
)

// Log writes notifications to the structured log instead of contacting the client
type Log struct {
	log zerolog.Logger
}

// NewLog creates a log notifier
func NewLog(logger zerolog.Logger) *Log {
	return &Log{log: logger.With().Str("component", "notifier").Logger()}
}

func (l *Log) Name() string { return "log" }

// Send logs the notification
func (l *Log) Send(_ context.Context, n services.Notification) error {
	l.log.Info().
		Str("channel", string(n.Channel)).
		Str("client", n.ClientName).
		Str("fund", n.FundName).
		Str("type", string(n.Type)).
		Str("amount", n.Amount.StringFixed(2)).
		Msg("📨 Notification sent")
	return nil
}
