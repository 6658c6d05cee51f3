package models

import (
	"time"

	"btg-funds/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Auth Tables
// ============================================================

// User represents users table
type User struct {
	ID            string         `gorm:"primaryKey;size:36"`
	Username      string         `gorm:"uniqueIndex;size:50;not null"`
	PasswordHash  string         `gorm:"size:255;not null"`
	Role          string         `gorm:"size:20;not null;default:'client'"`
	Version       int64          `gorm:"not null;default:1"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// RefreshToken represents refresh_tokens table.
// Only the SHA-256 digest of the token is stored.
type RefreshToken struct {
	ID         uint       `gorm:"primaryKey"`
	UserID     string     `gorm:"size:36;index;not null"`
	TokenHash  string     `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	CreatedAt  time.Time  `gorm:"not null"`
	Revoked    bool       `gorm:"not null;default:false"`
	RevokedAt  *time.Time `gorm:"default:null"`
	ReplacedBy string     `gorm:"size:64"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// UserFromDomain maps a domain user onto its row
func UserFromDomain(u *domain.User) *User {
	m := &User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Version:      u.Version,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	m.RefreshTokens = RefreshTokensFromDomain(u.ID, u.RefreshTokens)
	return m
}

// RefreshTokensFromDomain maps a token set onto rows owned by userID
func RefreshTokensFromDomain(userID string, set domain.TokenSet) []RefreshToken {
	rows := make([]RefreshToken, 0, len(set))
	for _, t := range set {
		rows = append(rows, RefreshToken{
			UserID:     userID,
			TokenHash:  t.TokenHash,
			ExpiresAt:  t.ExpiresAt,
			CreatedAt:  t.CreatedAt,
			Revoked:    t.Revoked,
			RevokedAt:  t.RevokedAt,
			ReplacedBy: t.ReplacedBy,
		})
	}
	return rows
}

// ToDomain maps the row back to a domain user
func (m *User) ToDomain() *domain.User {
	u := &domain.User{
		ID:            m.ID,
		Username:      m.Username,
		PasswordHash:  m.PasswordHash,
		Role:          domain.Role(m.Role),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		RefreshTokens: make(domain.TokenSet, 0, len(m.RefreshTokens)),
	}
	for _, t := range m.RefreshTokens {
		u.RefreshTokens = append(u.RefreshTokens, domain.RefreshToken{
			TokenHash:  t.TokenHash,
			ExpiresAt:  t.ExpiresAt,
			CreatedAt:  t.CreatedAt,
			Revoked:    t.Revoked,
			RevokedAt:  t.RevokedAt,
			ReplacedBy: t.ReplacedBy,
		})
	}
	return u
}

// ============================================================
// Ledger Tables
// ============================================================

// Client represents clients table
type Client struct {
	ID                     string           `gorm:"primaryKey;size:36"`
	Name                   string           `gorm:"size:100;not null"`
	Email                  string           `gorm:"size:100;not null"`
	Phone                  string           `gorm:"size:30"`
	Balance                decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	NotificationPreference string           `gorm:"size:10;not null;default:'EMAIL'"`
	Version                int64            `gorm:"not null;default:1"`
	CreatedAt              time.Time        `gorm:"autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"autoUpdateTime"`
	Allocations            []FundAllocation `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

func (Client) TableName() string {
	return "clients"
}

// FundAllocation represents fund_allocations table (active subscriptions)
type FundAllocation struct {
	ID       uint            `gorm:"primaryKey"`
	ClientID string          `gorm:"size:36;not null;uniqueIndex:idx_client_fund"`
	FundID   string          `gorm:"size:36;not null;uniqueIndex:idx_client_fund"`
	FundName string          `gorm:"size:100;not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LinkedAt time.Time       `gorm:"type:datetime(6);not null"`
}

func (FundAllocation) TableName() string {
	return "fund_allocations"
}

// ClientFromDomain maps a domain client onto its row
func ClientFromDomain(c *domain.Client) *Client {
	return &Client{
		ID:                     c.ID,
		Name:                   c.Name,
		Email:                  c.Email,
		Phone:                  c.Phone,
		Balance:                c.Balance,
		NotificationPreference: string(c.NotificationPreference),
		Version:                c.Version,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
		Allocations:            AllocationsFromDomain(c.ID, c.Allocations),
	}
}

// AllocationsFromDomain maps allocations onto rows owned by clientID
func AllocationsFromDomain(clientID string, allocs []domain.FundAllocation) []FundAllocation {
	rows := make([]FundAllocation, 0, len(allocs))
	for _, a := range allocs {
		rows = append(rows, FundAllocation{
			ClientID: clientID,
			FundID:   a.FundID,
			FundName: a.FundName,
			Amount:   a.Amount,
			LinkedAt: a.LinkedAt,
		})
	}
	return rows
}

// ToDomain maps the row back to a domain client
func (m *Client) ToDomain() *domain.Client {
	c := &domain.Client{
		ID:                     m.ID,
		Name:                   m.Name,
		Email:                  m.Email,
		Phone:                  m.Phone,
		Balance:                m.Balance,
		NotificationPreference: domain.NotificationPreference(m.NotificationPreference),
		Version:                m.Version,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
	for _, a := range m.Allocations {
		c.Allocations = append(c.Allocations, domain.FundAllocation{
			FundID:   a.FundID,
			FundName: a.FundName,
			Amount:   a.Amount,
			LinkedAt: a.LinkedAt,
		})
	}
	return c
}

// Fund represents funds table (catalog)
type Fund struct {
	ID            string          `gorm:"primaryKey;size:36"`
	Name          string          `gorm:"size:100;not null"`
	MinimumAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Category      string          `gorm:"size:10;not null"`
}

func (Fund) TableName() string {
	return "funds"
}

// FundFromDomain maps a catalog entry onto its row
func FundFromDomain(f *domain.Fund) *Fund {
	return &Fund{ID: f.ID, Name: f.Name, MinimumAmount: f.MinimumAmount, Category: f.Category}
}

// ToDomain maps the row back to a catalog entry
func (m *Fund) ToDomain() *domain.Fund {
	return &domain.Fund{ID: m.ID, Name: m.Name, MinimumAmount: m.MinimumAmount, Category: m.Category}
}

// Transaction represents transactions table (append-only ledger)
type Transaction struct {
	ID        string          `gorm:"primaryKey;size:36"`
	ClientID  string          `gorm:"size:36;not null;index:idx_client_created,priority:1"`
	FundID    string          `gorm:"size:36;not null"`
	Type      string          `gorm:"size:20;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status    string          `gorm:"size:20;not null"`
	CreatedAt time.Time       `gorm:"type:datetime(6);not null;index:idx_client_created,priority:2"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionFromDomain maps a ledger record onto its row
func TransactionFromDomain(t *domain.Transaction) *Transaction {
	return &Transaction{
		ID:        t.ID,
		ClientID:  t.ClientID,
		FundID:    t.FundID,
		Type:      string(t.Type),
		Amount:    t.Amount,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
}

// ToDomain maps the row back to a ledger record
func (m *Transaction) ToDomain() domain.Transaction {
	return domain.Transaction{
		ID:        m.ID,
		ClientID:  m.ClientID,
		FundID:    m.FundID,
		Type:      domain.TransactionType(m.Type),
		Amount:    m.Amount,
		Status:    domain.TransactionStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Auth
		&User{},
		&RefreshToken{},
		// Ledger
		&Fund{},
		&Client{},
		&FundAllocation{},
		&Transaction{},
	)
}
