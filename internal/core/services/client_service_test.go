package services

import (
	"context"
	"testing"

	"btg-funds/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientService(f *ledgerFixture) *ClientService {
	return NewClientService(f.clients, f.funds, decimal.NewFromInt(500000), zerolog.Nop())
}

func TestCreateProfile(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newClientService(f)

	c, err := svc.CreateProfile(context.Background(), "user-1", &CreateClientInput{
		Name:  " Ana ",
		Email: "ana@example.com",
		Phone: "3001234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.ID)
	assert.Equal(t, "Ana", c.Name)
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, domain.NotifyByEmail, c.NotificationPreference)
	assert.Empty(t, c.Allocations)

	_, err = svc.CreateProfile(context.Background(), "user-1", &CreateClientInput{Name: "Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, domain.ErrClientExists)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestCreateProfile_Validation(t *testing.T) {
	f := newLedgerFixture(t)
	svc := newClientService(f)
	ctx := context.Background()
	negative := decimal.NewFromInt(-1)
	subCent := decimal.RequireFromString("1000.005")
	tooLarge := decimal.New(1, 16)

	cases := []struct {
		name  string
		input CreateClientInput
		want  error
	}{
		{"missing name", CreateClientInput{Email: "a@b.co"}, domain.ErrInvalidProfile},
		{"missing email", CreateClientInput{Name: "Ana"}, domain.ErrInvalidProfile},
		{"email without at", CreateClientInput{Name: "Ana", Email: "ana.example.com"}, domain.ErrInvalidProfile},
		{"negative balance", CreateClientInput{Name: "Ana", Email: "a@b.co", Balance: &negative}, domain.ErrNegativeBalance},
		{"sub-cent balance", CreateClientInput{Name: "Ana", Email: "a@b.co", Balance: &subCent}, domain.ErrAmountPrecision},
		{"balance beyond column range", CreateClientInput{Name: "Ana", Email: "a@b.co", Balance: &tooLarge}, domain.ErrAmountPrecision},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProfile(ctx, "user-1", &tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := svc.CreateProfile(ctx, "user-1", &CreateClientInput{Name: "Ana", Email: "a@b.co", NotificationPreference: "pigeon"})
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))

	c, err := svc.CreateProfile(ctx, "user-2", &CreateClientInput{Name: "Ana", Email: "a@b.co", NotificationPreference: "sms", Balance: amount(0)})
	require.NoError(t, err)
	assert.Equal(t, domain.NotifyBySMS, c.NotificationPreference)
	assert.True(t, c.Balance.IsZero())
}

func TestGetClient_Ownership(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 1000)
	svc := newClientService(f)
	ctx := context.Background()

	c, err := svc.Get(ctx, Requester{UserID: "c1", Role: domain.RoleClient}, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	_, err = svc.Get(ctx, Requester{UserID: "c2", Role: domain.RoleClient}, "c1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Get(ctx, Requester{UserID: "admin", Role: domain.RoleAdmin}, "c1")
	assert.NoError(t, err)

	_, err = svc.Get(ctx, Requester{UserID: "admin", Role: domain.RoleAdmin}, "missing")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestListFunds(t *testing.T) {
	f := newLedgerFixture(t)
	f.addFund(t, "2", 1000)
	f.addFund(t, "1", 500)

	funds, err := newClientService(f).ListFunds(context.Background())
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Equal(t, "1", funds[0].ID)
	assert.Equal(t, "2", funds[1].ID)
}
