package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"btg-funds/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ClientService manages client profiles and exposes the fund catalog
type ClientService struct {
	clients        ClientStore
	funds          FundCatalog
	initialBalance decimal.Decimal
	log            zerolog.Logger
}

// NewClientService creates a new client service
func NewClientService(clients ClientStore, funds FundCatalog, initialBalance decimal.Decimal, logger zerolog.Logger) *ClientService {
	return &ClientService{
		clients:        clients,
		funds:          funds,
		initialBalance: initialBalance,
		log:            logger.With().Str("component", "clients").Logger(),
	}
}

// CreateClientInput represents the profile creation body
type CreateClientInput struct {
	Name                   string           `json:"name"`
	Email                  string           `json:"email"`
	Phone                  string           `json:"phone"`
	Balance                *decimal.Decimal `json:"balance,omitempty"`
	NotificationPreference string           `json:"notification_preference"`
}

// Requester identifies the caller of a read
type Requester struct {
	UserID string
	Role   domain.Role
}

// CreateProfile creates the client profile of userID; the client id is the user id
func (s *ClientService) CreateProfile(ctx context.Context, userID string, input *CreateClientInput) (*domain.Client, error) {
	// 1. Validate
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidProfile
	}
	balance := s.initialBalance
	if input.Balance != nil {
		balance = *input.Balance
	}
	if balance.IsNegative() {
		return nil, domain.ErrNegativeBalance
	}
	if !domain.IsMoney(balance) {
		return nil, domain.ErrAmountPrecision
	}
	pref := domain.NotifyByEmail
	if p := strings.ToUpper(strings.TrimSpace(input.NotificationPreference)); p != "" {
		pref = domain.NotificationPreference(p)
	}
	if !pref.Valid() {
		return nil, domain.NewError(domain.KindBadRequest, "notification preference must be %s or %s", domain.NotifyByEmail, domain.NotifyBySMS)
	}

	// 2. Create
	now := time.Now().UTC()
	client := &domain.Client{
		ID:                     userID,
		Name:                   name,
		Email:                  email,
		Phone:                  strings.TrimSpace(input.Phone),
		Balance:                balance,
		NotificationPreference: pref,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.clients.Add(ctx, client); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.ErrClientExists
		}
		return nil, err
	}

	s.log.Info().Str("client_id", client.ID).Msgf("✅ Client profile created: %s", client.Name)
	return client, nil
}

// Get returns a client; non-admins may only read their own profile
func (s *ClientService) Get(ctx context.Context, requester Requester, clientID string) (*domain.Client, error) {
	if requester.Role != domain.RoleAdmin && requester.UserID != clientID {
		return nil, domain.ErrForbidden
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrClientNotFound
	}
	return c, err
}

// ListFunds returns the fund catalog
func (s *ClientService) ListFunds(ctx context.Context) ([]domain.Fund, error) {
	return s.funds.GetAll(ctx)
}
