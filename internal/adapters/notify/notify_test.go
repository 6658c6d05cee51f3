package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"btg-funds/internal/config"
	"btg-funds/internal/core/domain"
	"btg-funds/internal/core/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = services.Notification{
	ClientID:   "c1",
	ClientName: "Ana",
	Channel:    domain.NotifyByEmail,
	FundID:     "1",
	FundName:   "FPV_BTG_PACTUAL_RECAUDADORA",
	Type:       domain.TxSubscribe,
	Amount:     decimal.NewFromInt(75000),
}

func TestWebhook_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, srv.Client()).Send(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "c1", got["client_id"])
	assert.Equal(t, "SUBSCRIBE", got["type"])
	assert.Contains(t, got["text"], "FPV_BTG_PACTUAL_RECAUDADORA")
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, nil).Send(context.Background(), sample)
	assert.ErrorContains(t, err, "502")
}

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegram_Send(t *testing.T) {
	bot := &fakeBot{}
	require.NoError(t, NewTelegram(bot, 42).Send(context.Background(), sample))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "Ana")

	bot.err = errors.New("forbidden")
	assert.Error(t, NewTelegram(bot, 42).Send(context.Background(), sample))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewTelegram(bot, 42).Send(ctx, sample), context.Canceled)
}

func TestNew(t *testing.T) {
	n, err := New(config.NotifyConfig{Channel: config.ChannelLog}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "log", n.Name())
	assert.NoError(t, n.Send(context.Background(), sample))

	n, err = New(config.NotifyConfig{Channel: config.ChannelWebhook, WebhookURL: "http://localhost"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "webhook", n.Name())
}
