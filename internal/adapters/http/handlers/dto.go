package handlers

import (
	"time"

	"btg-funds/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RegisterRequest represents registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token; the refresh_token cookie is used when empty
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// FundResponse is a catalog entry
type FundResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
	Category      string          `json:"category"`
}

// AllocationResponse is an active subscription
type AllocationResponse struct {
	FundID   string          `json:"fund_id"`
	FundName string          `json:"fund_name"`
	Amount   decimal.Decimal `json:"amount"`
	LinkedAt time.Time       `json:"linked_at"`
}

// ClientResponse is a client profile with its subscriptions
type ClientResponse struct {
	ID                     string               `json:"id"`
	Name                   string               `json:"name"`
	Email                  string               `json:"email"`
	Phone                  string               `json:"phone,omitempty"`
	Balance                decimal.Decimal      `json:"balance"`
	NotificationPreference string               `json:"notification_preference"`
	Funds                  []AllocationResponse `json:"funds"`
}

// TransactionResponse is a ledger record
type TransactionResponse struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"client_id"`
	FundID    string          `json:"fund_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func toFundResponse(f domain.Fund) FundResponse {
	return FundResponse{ID: f.ID, Name: f.Name, MinimumAmount: f.MinimumAmount, Category: f.Category}
}

func toClientResponse(c *domain.Client) ClientResponse {
	resp := ClientResponse{
		ID:                     c.ID,
		Name:                   c.Name,
		Email:                  c.Email,
		Phone:                  c.Phone,
		Balance:                c.Balance,
		NotificationPreference: string(c.NotificationPreference),
		Funds:                  make([]AllocationResponse, 0, len(c.Allocations)),
	}
	for _, a := range c.Allocations {
		resp.Funds = append(resp.Funds, AllocationResponse{
			FundID:   a.FundID,
			FundName: a.FundName,
			Amount:   a.Amount,
			LinkedAt: a.LinkedAt,
		})
	}
	return resp
}

func toTransactionResponse(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		ClientID:  t.ClientID,
		FundID:    t.FundID,
		Type:      string(t.Type),
		Amount:    t.Amount,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
}
