package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role represents user role in the system
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// User represents an account able to authenticate
type User struct {
	ID            string
	Username      string
	PasswordHash  string
	Role          Role
	RefreshTokens TokenSet
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RefreshToken is a persisted refresh token record.
// Only the SHA-256 digest of the opaque value is kept.
type RefreshToken struct {
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
	ReplacedBy string
}

// IsActive reports whether the token can still be exchanged
func (t RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !now.After(t.ExpiresAt)
}

// IsExpired reports whether the token expiry has passed
func (t RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenSet is the refresh token collection owned by one user.
// Records are appended on issue and rotation; rotated records stay as chain links.
type TokenSet []RefreshToken

// Index returns the position of the record with the given digest, or -1
func (s TokenSet) Index(tokenHash string) int {
	for i := range s {
		if s[i].TokenHash == tokenHash {
			return i
		}
	}
	return -1
}

// ActiveCount counts records that are still usable at now
func (s TokenSet) ActiveCount(now time.Time) int {
	n := 0
	for _, t := range s {
		if t.IsActive(now) {
			n++
		}
	}
	return n
}

// NotificationPreference is the channel a client wants to be notified through
type NotificationPreference string

const (
	NotifyByEmail NotificationPreference = "EMAIL"
	NotifyBySMS   NotificationPreference = "SMS"
)

// Valid reports whether p is a known preference
func (p NotificationPreference) Valid() bool {
	return p == NotifyByEmail || p == NotifyBySMS
}

// maxMoney bounds the integer part to what a decimal(18,2) column holds
var maxMoney = decimal.New(1, 16)

// IsMoney reports whether d is storable as money: at most 2 decimal places and 16 integer digits
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThan(maxMoney)
}

// Client is the ledger aggregate: balance plus active fund allocations
type Client struct {
	ID                     string
	Name                   string
	Email                  string
	Phone                  string
	Balance                decimal.Decimal
	NotificationPreference NotificationPreference
	Allocations            []FundAllocation
	Version                int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Allocation returns the active allocation for a fund
func (c *Client) Allocation(fundID string) (FundAllocation, bool) {
	for _, a := range c.Allocations {
		if a.FundID == fundID {
			return a, true
		}
	}
	return FundAllocation{}, false
}

// Committed is the sum of all active allocation amounts
func (c *Client) Committed() decimal.Decimal {
	total := decimal.Zero
	for _, a := range c.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Debit moves amount from the balance into a new allocation.
// Callers must have checked the business rules; Debit only guards the invariants.
func (c *Client) Debit(fund *Fund, amount decimal.Decimal, at time.Time) error {
	if c.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	if _, ok := c.Allocation(fund.ID); ok {
		return ErrAlreadySubscribed
	}
	c.Balance = c.Balance.Sub(amount)
	c.Allocations = append(c.Allocations, FundAllocation{
		FundID:   fund.ID,
		FundName: fund.Name,
		Amount:   amount,
		LinkedAt: at,
	})
	return nil
}

// Credit removes the allocation for fundID and returns its amount to the balance
func (c *Client) Credit(fundID string) (FundAllocation, error) {
	for i, a := range c.Allocations {
		if a.FundID != fundID {
			continue
		}
		c.Balance = c.Balance.Add(a.Amount)
		c.Allocations = append(c.Allocations[:i:i], c.Allocations[i+1:]...)
		return a, nil
	}
	return FundAllocation{}, ErrNoActiveSubscription
}

// Clone returns a deep copy so stores never share slices with callers
func (c *Client) Clone() *Client {
	cp := *c
	cp.Allocations = append([]FundAllocation(nil), c.Allocations...)
	return &cp
}

// FundAllocation is a client's commitment to one fund
type FundAllocation struct {
	FundID   string
	FundName string
	Amount   decimal.Decimal
	LinkedAt time.Time
}

// Fund categories
const (
	CategoryFPV = "FPV"
	CategoryFIC = "FIC"
)

// Fund is a catalog entry (read-only reference data)
type Fund struct {
	ID            string
	Name          string
	MinimumAmount decimal.Decimal
	Category      string
}

// TransactionType is the kind of ledger movement
type TransactionType string

const (
	TxSubscribe TransactionType = "SUBSCRIBE"
	TxCancel    TransactionType = "CANCEL"
)

// TransactionStatus is the outcome recorded with a transaction
type TransactionStatus string

const (
	TxStatusCompleted TransactionStatus = "COMPLETED"
)

// Transaction is an append-only ledger record.
// Amount is positive for subscriptions and negative for cancellations.
type Transaction struct {
	ID        string
	ClientID  string
	FundID    string
	Type      TransactionType
	Amount    decimal.Decimal
	Status    TransactionStatus
	CreatedAt time.Time
}
