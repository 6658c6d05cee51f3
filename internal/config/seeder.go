package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"btg-funds/internal/core/domain"
	"btg-funds/internal/core/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed funds.yaml
var fundCatalog []byte

// FundWriter is implemented by every fund catalog backend
type FundWriter interface {
	Upsert(ctx context.Context, fund *domain.Fund) error
}

type fundEntry struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	MinimumAmount string `yaml:"minimum_amount"`
	Category      string `yaml:"category"`
}

// Seeder handles database seeding
type Seeder struct {
	funds  FundWriter
	users  services.UserStore
	hasher services.PasswordHasher
	admin  SeedConfig
}

// NewSeeder creates a new seeder instance
func NewSeeder(funds FundWriter, users services.UserStore, hasher services.PasswordHasher, admin SeedConfig) *Seeder {
	return &Seeder{funds: funds, users: users, hasher: hasher, admin: admin}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	log.Info().Msg("🌱 Running database seeders...")

	if err := s.seedFunds(ctx); err != nil {
		return err
	}
	if err := s.seedAdminUser(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ Admin seeder skipped")
	}

	log.Info().Msg("✅ Database seeding completed")
	return nil
}

// LoadFunds parses the embedded fund catalog
func LoadFunds() ([]domain.Fund, error) {
	var doc struct {
		Funds []fundEntry `yaml:"funds"`
	}
	if err := yaml.Unmarshal(fundCatalog, &doc); err != nil {
		return nil, fmt.Errorf("invalid fund catalog: %w", err)
	}

	funds := make([]domain.Fund, 0, len(doc.Funds))
	for _, e := range doc.Funds {
		minimum, err := decimal.NewFromString(e.MinimumAmount)
		if err != nil {
			return nil, fmt.Errorf("fund %s: invalid minimum_amount: %w", e.ID, err)
		}
		funds = append(funds, domain.Fund{
			ID:            e.ID,
			Name:          e.Name,
			MinimumAmount: minimum,
			Category:      e.Category,
		})
	}
	return funds, nil
}

// seedFunds upserts the catalog so reruns pick up edits
func (s *Seeder) seedFunds(ctx context.Context) error {
	funds, err := LoadFunds()
	if err != nil {
		return err
	}
	for i := range funds {
		if err := s.funds.Upsert(ctx, &funds[i]); err != nil {
			return fmt.Errorf("seed fund %s: %w", funds[i].ID, err)
		}
	}
	log.Info().Int("count", len(funds)).Msg("✅ Fund catalog seeded")
	return nil
}

// seedAdminUser creates the admin account from ADMIN_USERNAME/ADMIN_PASSWORD.
// Nothing happens when either is unset or the user already exists.
func (s *Seeder) seedAdminUser(ctx context.Context) error {
	if s.admin.AdminUsername == "" || s.admin.AdminPassword == "" {
		return nil
	}

	_, err := s.users.GetByUsername(ctx, s.admin.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(s.admin.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := &domain.User{
		ID:           uuid.NewString(),
		Username:     s.admin.AdminUsername,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Add(ctx, admin); err != nil {
		return err
	}

	log.Info().Str("username", admin.Username).Msg("✅ Admin user created")
	return nil
}
