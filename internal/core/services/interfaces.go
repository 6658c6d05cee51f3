package services

import (
	"context"
	"time"

	"btg-funds/internal/core/domain"

	"github.com/shopspring/decimal"
)

// UserStore persists users together with their refresh-token sets.
// Get methods return domain.ErrNotFound when nothing matches; Update returns
// domain.ErrVersionConflict when the stored version differs from user.Version.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByRefreshToken(ctx context.Context, tokenHash string) (*domain.User, error)
	Add(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

// ClientStore persists the client aggregate (balance + allocations)
type ClientStore interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	Add(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
}

// FundCatalog is read-only reference data
type FundCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.Fund, error)
	GetAll(ctx context.Context) ([]domain.Fund, error)
}

// TransactionLog is the append-only ledger
type TransactionLog interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	// ListByClient returns transactions newest first
	ListByClient(ctx context.Context, clientID string) ([]domain.Transaction, error)
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// NotificationPort is fire-and-forget from the ledger's point of view
type NotificationPort interface {
	Notify(ctx context.Context, client *domain.Client, fund *domain.Fund, signedAmount decimal.Decimal)
}

// Transactor runs fn as one atomic unit. Stores called with the ctx passed to
// fn take part in the unit; any error returned by fn rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
