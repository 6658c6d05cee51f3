package mongostore

import (
	"time"

	"btg-funds/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type userDoc struct {
	ID            string            `bson:"_id"`
	Username      string            `bson:"username"`
	PasswordHash  string            `bson:"passwordHash"`
	Role          string            `bson:"role"`
	Version       int64             `bson:"version"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt"`
	RefreshTokens []refreshTokenDoc `bson:"refreshTokens"`
}

type refreshTokenDoc struct {
	TokenHash  string     `bson:"tokenHash"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	CreatedAt  time.Time  `bson:"createdAt"`
	Revoked    bool       `bson:"revoked"`
	RevokedAt  *time.Time `bson:"revokedAt,omitempty"`
	ReplacedBy string     `bson:"replacedBy,omitempty"`
}

func newUserDoc(u *domain.User, version int64) *userDoc {
	doc := &userDoc{
		ID:            u.ID,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		Version:       version,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		RefreshTokens: make([]refreshTokenDoc, 0, len(u.RefreshTokens)),
	}
	for _, t := range u.RefreshTokens {
		doc.RefreshTokens = append(doc.RefreshTokens, refreshTokenDoc{
			TokenHash:  t.TokenHash,
			ExpiresAt:  t.ExpiresAt,
			CreatedAt:  t.CreatedAt,
			Revoked:    t.Revoked,
			RevokedAt:  t.RevokedAt,
			ReplacedBy: t.ReplacedBy,
		})
	}
	return doc
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:            d.ID,
		Username:      d.Username,
		PasswordHash:  d.PasswordHash,
		Role:          domain.Role(d.Role),
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		RefreshTokens: make(domain.TokenSet, 0, len(d.RefreshTokens)),
	}
	for _, t := range d.RefreshTokens {
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

type clientDoc struct {
	ID                     string          `bson:"_id"`
	Name                   string          `bson:"name"`
	Email                  string          `bson:"email"`
	Phone                  string          `bson:"phone,omitempty"`
	Balance                bson.Decimal128 `bson:"balance"`
	NotificationPreference string          `bson:"notificationPreference"`
	Version                int64           `bson:"version"`
	CreatedAt              time.Time       `bson:"createdAt"`
	UpdatedAt              time.Time       `bson:"updatedAt"`
	Allocations            []allocationDoc `bson:"allocations"`
}

type allocationDoc struct {
	FundID   string          `bson:"fundId"`
	FundName string          `bson:"fundName"`
	Amount   bson.Decimal128 `bson:"amount"`
	LinkedAt time.Time       `bson:"linkedAt"`
}

func newClientDoc(c *domain.Client, version int64) *clientDoc {
	doc := &clientDoc{
		ID:                     c.ID,
		Name:                   c.Name,
		Email:                  c.Email,
		Phone:                  c.Phone,
		Balance:                toDecimal128(c.Balance),
		NotificationPreference: string(c.NotificationPreference),
		Version:                version,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
		Allocations:            make([]allocationDoc, 0, len(c.Allocations)),
	}
	for _, a := range c.Allocations {
		doc.Allocations = append(doc.Allocations, allocationDoc{
			FundID:   a.FundID,
			FundName: a.FundName,
			Amount:   toDecimal128(a.Amount),
			LinkedAt: a.LinkedAt,
		})
	}
	return doc
}

func (d *clientDoc) toDomain() *domain.Client {
	c := &domain.Client{
		ID:                     d.ID,
		Name:                   d.Name,
		Email:                  d.Email,
		Phone:                  d.Phone,
		Balance:                fromDecimal128(d.Balance),
		NotificationPreference: domain.NotificationPreference(d.NotificationPreference),
		Version:                d.Version,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
	for _, a := range d.Allocations {
		c.Allocations = append(c.Allocations, domain.FundAllocation{
			FundID:   a.FundID,
			FundName: a.FundName,
			Amount:   fromDecimal128(a.Amount),
			LinkedAt: a.LinkedAt,
		})
	}
	return c
}

type fundDoc struct {
	ID            string          `bson:"_id"`
	Name          string          `bson:"name"`
	MinimumAmount bson.Decimal128 `bson:"minimumAmount"`
	Category      string          `bson:"category"`
}

func (d *fundDoc) toDomain() *domain.Fund {
	return &domain.Fund{
		ID:            d.ID,
		Name:          d.Name,
		MinimumAmount: fromDecimal128(d.MinimumAmount),
		Category:      d.Category,
	}
}

type transactionDoc struct {
	ID        string          `bson:"_id"`
	ClientID  string          `bson:"clientId"`
	FundID    string          `bson:"fundId"`
	Type      string          `bson:"type"`
	Amount    bson.Decimal128 `bson:"amount"`
	Status    string          `bson:"status"`
	CreatedAt time.Time       `bson:"createdAt"`
}

func (d *transactionDoc) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:        d.ID,
		ClientID:  d.ClientID,
		FundID:    d.FundID,
		Type:      domain.TransactionType(d.Type),
		Amount:    fromDecimal128(d.Amount),
		Status:    domain.TransactionStatus(d.Status),
		CreatedAt: d.CreatedAt,
	}
}
