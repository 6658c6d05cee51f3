package services

import (
	"context"
	"sync"
	"time"

	"btg-funds/internal/adapters/persistence/memory"
	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/password"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testingT is satisfied by *testing.T and *rapid.T
type testingT interface {
	require.TestingT
	Helper()
}

type sentNotification struct {
	ClientID string
	FundID   string
	Amount   decimal.Decimal
}

// recordingNotifier implements NotificationPort synchronously
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, client *domain.Client, fund *domain.Fund, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{ClientID: client.ID, FundID: fund.ID, Amount: amount})
}

func (r *recordingNotifier) Sent() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotification(nil), r.sent...)
}

type ledgerFixture struct {
	db       *memory.DB
	clients  *memory.ClientStore
	funds    *memory.FundCatalog
	txlog    *memory.TransactionLog
	notifier *recordingNotifier
	ledger   *LedgerService
}

func newLedgerFixture(t testingT) *ledgerFixture {
	t.Helper()
	db := memory.NewDB()
	f := &ledgerFixture{
		db:       db,
		clients:  memory.NewClientStore(db),
		funds:    memory.NewFundCatalog(db),
		txlog:    memory.NewTransactionLog(db),
		notifier: &recordingNotifier{},
	}
	f.ledger = NewLedgerService(f.clients, f.funds, f.txlog, memory.NewTransactor(db), f.notifier, 3, zerolog.Nop())
	return f
}

// withLog rebuilds the ledger around a different transaction log
func (f *ledgerFixture) withLog(log TransactionLog) {
	f.ledger = NewLedgerService(f.clients, f.funds, log, memory.NewTransactor(f.db), f.notifier, 3, zerolog.Nop())
}

// withClients rebuilds the ledger around a different client store
func (f *ledgerFixture) withClients(clients ClientStore) {
	f.ledger = NewLedgerService(clients, f.funds, f.txlog, memory.NewTransactor(f.db), f.notifier, 3, zerolog.Nop())
}

func (f *ledgerFixture) addFund(t testingT, id string, minimum int64) *domain.Fund {
	t.Helper()
	fund := &domain.Fund{ID: id, Name: "Fund " + id, MinimumAmount: decimal.NewFromInt(minimum), Category: domain.CategoryFPV}
	require.NoError(t, f.funds.Upsert(context.Background(), fund))
	return fund
}

func (f *ledgerFixture) addClient(t testingT, id string, balance int64) {
	t.Helper()
	require.NoError(t, f.clients.Add(context.Background(), &domain.Client{
		ID:                     id,
		Name:                   "Client " + id,
		Email:                  id + "@example.com",
		Balance:                decimal.NewFromInt(balance),
		NotificationPreference: domain.NotifyByEmail,
	}))
}

func (f *ledgerFixture) client(t testingT, id string) *domain.Client {
	t.Helper()
	c, err := f.clients.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *ledgerFixture) history(t testingT, id string) []domain.Transaction {
	t.Helper()
	txs, err := f.ledger.History(context.Background(), id)
	require.NoError(t, err)
	return txs
}

type authFixture struct {
	users  *memory.UserStore
	tokens *TokenManager
	auth   *AuthService
}

func newAuthFixture(t testingT) *authFixture {
	t.Helper()
	db := memory.NewDB()
	users := memory.NewUserStore(db)
	tokens, _ := newTestTokenManager(true)
	// access tokens are validated against the wall clock
	tokens.now = time.Now
	return &authFixture{
		users:  users,
		tokens: tokens,
		auth:   NewAuthService(users, password.NewHasher(bcrypt.MinCost), tokens, 3, zerolog.Nop()),
	}
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// failingLog fails every Append
type failingLog struct {
	TransactionLog
}

func (failingLog) Append(context.Context, *domain.Transaction) error {
	return context.DeadlineExceeded
}

// cancellingLog appends, then cancels the caller's context
type cancellingLog struct {
	TransactionLog
	cancel context.CancelFunc
}

func (l cancellingLog) Append(ctx context.Context, tx *domain.Transaction) error {
	if err := l.TransactionLog.Append(ctx, tx); err != nil {
		return err
	}
	l.cancel()
	return nil
}

// conflictingClients reports a version conflict for the first n updates
type conflictingClients struct {
	ClientStore
	mu sync.Mutex
	n  int
}

func (c *conflictingClients) Update(ctx context.Context, client *domain.Client) error {
	c.mu.Lock()
	if c.n > 0 {
		c.n--
		c.mu.Unlock()
		return domain.ErrVersionConflict
	}
	c.mu.Unlock()
	return c.ClientStore.Update(ctx, client)
}

// conflictingUsers reports a version conflict for the first n updates
type conflictingUsers struct {
	UserStore
	n int
}

func (u *conflictingUsers) Update(ctx context.Context, user *domain.User) error {
	if u.n > 0 {
		u.n--
		return domain.ErrVersionConflict
	}
	return u.UserStore.Update(ctx, user)
}
