package config

import (
	"context"
	"testing"

	"btg-funds/internal/adapters/persistence/memory"
	"btg-funds/internal/core/domain"
	"btg-funds/internal/pkg/password"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadFunds(t *testing.T) {
	funds, err := LoadFunds()
	require.NoError(t, err)
	require.Len(t, funds, 5)

	assert.Equal(t, "FPV_BTG_PACTUAL_RECAUDADORA", funds[0].Name)
	assert.True(t, funds[0].MinimumAmount.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, domain.CategoryFIC, funds[3].Category)
	assert.True(t, funds[3].MinimumAmount.Equal(decimal.NewFromInt(250000)))
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	funds := memory.NewFundCatalog(db)
	users := memory.NewUserStore(db)
	hasher := password.NewHasher(bcrypt.MinCost)

	seeder := NewSeeder(funds, users, hasher, SeedConfig{AdminUsername: "admin", AdminPassword: "admin123456"})
	require.NoError(t, seeder.Run(ctx))
	// idempotent
	require.NoError(t, seeder.Run(ctx))

	all, err := funds.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.True(t, hasher.Verify("admin123456", admin.PasswordHash))
}

func TestSeeder_SkipsAdminWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	users := memory.NewUserStore(db)

	seeder := NewSeeder(memory.NewFundCatalog(db), users, password.NewHasher(bcrypt.MinCost), SeedConfig{})
	require.NoError(t, seeder.Run(ctx))

	_, err := users.GetByUsername(ctx, "admin")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
