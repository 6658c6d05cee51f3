package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const sendTimeout = 10 * time.Second

// Notification is one message about a ledger movement
type Notification struct {
	ClientID   string                        `json:"client_id"`
	ClientName string                        `json:"client_name"`
	Email      string                        `json:"email"`
	Phone      string                        `json:"phone,omitempty"`
	Channel    domain.NotificationPreference `json:"channel"`
	FundID     string                        `json:"fund_id"`
	FundName   string                        `json:"fund_name"`
	Type       domain.TransactionType        `json:"type"`
	Amount     decimal.Decimal               `json:"amount"`
	At         time.Time                     `json:"at"`
}

// Text renders the notification as a human-readable message
func (n Notification) Text() string {
	action := "Subscription to"
	if n.Type == domain.TxCancel {
		action = "Cancellation of"
	}
	return fmt.Sprintf("%s fund %s\nClient: %s\nAmount: %s\nChannel: %s",
		action, n.FundName, n.ClientName, n.Amount.StringFixed(2), n.Channel)
}

// Notifier delivers a notification through one channel
type Notifier interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// NotificationService queues notifications and delivers them from a background worker.
// Notify never blocks; a full queue drops the message.
type NotificationService struct {
	notifier Notifier
	queue    chan Notification
	limiter  *rate.Limiter
	log      zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewNotificationService creates a new notification service.
// perSecond <= 0 disables pacing.
func NewNotificationService(notifier Notifier, queueSize int, perSecond float64, logger zerolog.Logger) *NotificationService {
	if queueSize <= 0 {
		queueSize = 100
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &NotificationService{
		notifier: notifier,
		queue:    make(chan Notification, queueSize),
		limiter:  rate.NewLimiter(limit, 1),
		log:      logger.With().Str("component", "notify").Str("channel", notifier.Name()).Logger(),
	}
}

// Start launches the delivery worker; it runs until Stop or ctx is done
func (s *NotificationService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	s.log.Info().Msg("✅ Notification worker started")
}

// Stop stops accepting messages and waits for queued ones to be delivered
func (s *NotificationService) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
}

// Notify enqueues a notification about a ledger movement
func (s *NotificationService) Notify(_ context.Context, client *domain.Client, fund *domain.Fund, signedAmount decimal.Decimal) {
	n := Notification{
		ClientID:   client.ID,
		ClientName: client.Name,
		Email:      client.Email,
		Phone:      client.Phone,
		Channel:    client.NotificationPreference,
		FundID:     fund.ID,
		FundName:   fund.Name,
		Type:       domain.TxSubscribe,
		Amount:     signedAmount,
		At:         time.Now().UTC(),
	}
	if signedAmount.IsNegative() {
		n.Type = domain.TxCancel
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.RecordNotification("dropped")
		s.log.Warn().Str("client_id", n.ClientID).Msg("Notification service stopped, message dropped")
		return
	}

	select {
	case s.queue <- n:
	default:
		metrics.RecordNotification("dropped")
		s.log.Warn().Str("client_id", n.ClientID).Msg("⚠️ Notification queue full, message dropped")
	}
}

func (s *NotificationService) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-s.queue:
			if !ok {
				return
			}
			s.deliver(ctx, n)
		}
	}
}

func (s *NotificationService) deliver(ctx context.Context, n Notification) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.notifier.Send(sendCtx, n); err != nil {
		metrics.RecordNotification("failed")
		s.log.Error().Err(err).Str("client_id", n.ClientID).Str("fund_id", n.FundID).Msg("Failed to deliver notification")
		return
	}
	metrics.RecordNotification("sent")
}
