package repositories

import (
	"context"

	"btg-funds/internal/adapters/persistence/models"
	"btg-funds/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FundRepository implements services.FundCatalog on MySQL
type FundRepository struct {
	db *gorm.DB
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *gorm.DB) *FundRepository {
	return &FundRepository{db: db}
}

// GetByID gets a fund by ID
func (r *FundRepository) GetByID(ctx context.Context, id string) (*domain.Fund, error) {
	var fund models.Fund
	if err := conn(ctx, r.db).Where("id = ?", id).First(&fund).Error; err != nil {
		return nil, translate(err)
	}
	return fund.ToDomain(), nil
}

// GetAll lists the catalog ordered by ID
func (r *FundRepository) GetAll(ctx context.Context) ([]domain.Fund, error) {
	var rows []models.Fund
	if err := conn(ctx, r.db).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	funds := make([]domain.Fund, 0, len(rows))
	for i := range rows {
		funds = append(funds, *rows[i].ToDomain())
	}
	return funds, nil
}

// Upsert inserts a fund or overwrites the existing row
func (r *FundRepository) Upsert(ctx context.Context, fund *domain.Fund) error {
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.FundFromDomain(fund)).Error
}
