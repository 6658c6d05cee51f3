package services

import (
	"context"
	"errors"
	"time"

	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService subscribes clients to funds and cancels those subscriptions.
// Each operation updates the client aggregate and appends exactly one
// transaction inside a single store transaction.
type LedgerService struct {
	clients     ClientStore
	funds       FundCatalog
	txlog       TransactionLog
	tx          Transactor
	notifier    NotificationPort
	maxAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	clients ClientStore,
	funds FundCatalog,
	txlog TransactionLog,
	tx Transactor,
	notifier NotificationPort,
	maxAttempts int,
	logger zerolog.Logger,
) *LedgerService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &LedgerService{
		clients:     clients,
		funds:       funds,
		txlog:       txlog,
		tx:          tx,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.With().Str("component", "ledger").Logger(),
	}
}

// SubscribeInput is the subscribe request body
type SubscribeInput struct {
	FundID string           `json:"fund_id"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// CancelInput is the cancel request body
type CancelInput struct {
	FundID string `json:"fund_id"`
}

// Subscribe commits amount (or the fund minimum when nil) from the client's balance to a fund
func (s *LedgerService) Subscribe(ctx context.Context, clientID, fundID string, amount *decimal.Decimal) (result *domain.Transaction, err error) {
	defer func() { metrics.RecordLedger("subscribe", metrics.Outcome(err)) }()

	if amount != nil {
		if !amount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		if !domain.IsMoney(*amount) {
			return nil, domain.ErrAmountPrecision
		}
	}

	var (
		client *domain.Client
		fund   *domain.Fund
	)
	err = s.unit(ctx, func(ctx context.Context) error {
		// 1. Load client and fund
		c, err := s.client(ctx, clientID)
		if err != nil {
			return err
		}
		f, err := s.funds.GetByID(ctx, fundID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrFundNotFound
			}
			return err
		}

		// 2. Business rules
		effective := f.MinimumAmount
		if amount != nil {
			effective = *amount
		}
		if _, ok := c.Allocation(f.ID); ok {
			return domain.Detail(domain.ErrAlreadySubscribed, "client already holds an active subscription to fund %s", f.Name)
		}
		if effective.LessThan(f.MinimumAmount) {
			return domain.Detail(domain.ErrBelowMinimum, "minimum amount to subscribe to %s is %s", f.Name, f.MinimumAmount.StringFixed(2))
		}
		if c.Balance.LessThan(effective) {
			return domain.Detail(domain.ErrInsufficientBalance, "insufficient balance to subscribe to fund %s", f.Name)
		}

		// 3. Mutate and persist
		now := s.now()
		if err := c.Debit(f, effective, now); err != nil {
			return err
		}
		c.UpdatedAt = now
		if err := s.clients.Update(ctx, c); err != nil {
			return err
		}

		// 4. Record the movement
		tx := &domain.Transaction{
			ID:        uuid.NewString(),
			ClientID:  c.ID,
			FundID:    f.ID,
			Type:      domain.TxSubscribe,
			Amount:    effective,
			Status:    domain.TxStatusCompleted,
			CreatedAt: now,
		}
		if err := s.txlog.Append(ctx, tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		client, fund, result = c, f, tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("client_id", client.ID).
		Str("fund_id", fund.ID).
		Str("amount", result.Amount.StringFixed(2)).
		Msg("✅ Subscription created")

	s.notifier.Notify(ctx, client, fund, result.Amount)
	return result, nil
}

// Cancel returns the committed amount of an active allocation to the client's balance
func (s *LedgerService) Cancel(ctx context.Context, clientID, fundID string) (result *domain.Transaction, err error) {
	defer func() { metrics.RecordLedger("cancel", metrics.Outcome(err)) }()

	var (
		client *domain.Client
		fund   *domain.Fund
	)
	err = s.unit(ctx, func(ctx context.Context) error {
		c, err := s.client(ctx, clientID)
		if err != nil {
			return err
		}

		now := s.now()
		alloc, err := c.Credit(fundID)
		if err != nil {
			return err
		}
		c.UpdatedAt = now
		if err := s.clients.Update(ctx, c); err != nil {
			return err
		}

		tx := &domain.Transaction{
			ID:        uuid.NewString(),
			ClientID:  c.ID,
			FundID:    alloc.FundID,
			Type:      domain.TxCancel,
			Amount:    alloc.Amount.Neg(),
			Status:    domain.TxStatusCompleted,
			CreatedAt: now,
		}
		if err := s.txlog.Append(ctx, tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// the allocation snapshot is enough to describe the fund
		client, result = c, tx
		fund = &domain.Fund{ID: alloc.FundID, Name: alloc.FundName}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("client_id", client.ID).
		Str("fund_id", fund.ID).
		Str("amount", result.Amount.StringFixed(2)).
		Msg("✅ Subscription cancelled")

	s.notifier.Notify(ctx, client, fund, result.Amount)
	return result, nil
}

// History returns the client's transactions newest first
func (s *LedgerService) History(ctx context.Context, clientID string) ([]domain.Transaction, error) {
	return s.txlog.ListByClient(ctx, clientID)
}

// unit runs fn in a store transaction, retrying from scratch on version conflicts
func (s *LedgerService) unit(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := s.tx.WithinTransaction(ctx, fn)
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if attempt >= s.maxAttempts {
			s.log.Warn().Int("attempts", attempt).Msg("Giving up after version conflicts")
			return domain.ErrConcurrentWrite
		}
		s.log.Debug().Int("attempt", attempt).Msg("Version conflict, retrying ledger unit")
	}
}

func (s *LedgerService) client(ctx context.Context, id string) (*domain.Client, error) {
	c, err := s.clients.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrClientNotFound
	}
	return c, err
}
