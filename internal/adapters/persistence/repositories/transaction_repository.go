package repositories

import (
	"context"

	"btg-funds/internal/adapters/persistence/models"
	"btg-funds/internal/core/domain"

	"gorm.io/gorm"
)

// TransactionRepository implements services.TransactionLog on MySQL
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts a ledger record. Records are never updated.
func (r *TransactionRepository) Append(ctx context.Context, tx *domain.Transaction) error {
	return translate(conn(ctx, r.db).Create(models.TransactionFromDomain(tx)).Error)
}

// ListByClient returns a client's transactions newest first
func (r *TransactionRepository) ListByClient(ctx context.Context, clientID string) ([]domain.Transaction, error) {
	var rows []models.Transaction
	err := conn(ctx, r.db).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].ToDomain())
	}
	return txs, nil
}
