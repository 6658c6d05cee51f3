package repositories

import (
	"context"

	"btg-funds/internal/adapters/persistence/models"
	"btg-funds/internal/core/domain"

	"gorm.io/gorm"
)

// ClientRepository implements services.ClientStore on MySQL
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetByID gets a client with its allocations
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var client models.Client
	err := conn(ctx, r.db).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("linked_at ASC") }).
		Where("id = ?", id).
		First(&client).Error
	if err != nil {
		return nil, translate(err)
	}
	return client.ToDomain(), nil
}

// Add creates a client
func (r *ClientRepository) Add(ctx context.Context, client *domain.Client) error {
	row := models.ClientFromDomain(client)
	row.Version = 1
	err := atomic(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		return translate(err)
	}
	client.Version = 1
	return nil
}

// Update writes balance and allocations when the version matches
func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) error {
	err := atomic(ctx, r.db, func(tx *gorm.DB) error {
		if err := versionedUpdate(tx, &models.Client{}, client.ID, client.Version, map[string]any{
			"name":                    client.Name,
			"email":                   client.Email,
			"phone":                   client.Phone,
			"balance":                 client.Balance,
			"notification_preference": string(client.NotificationPreference),
			"updated_at":              client.UpdatedAt,
		}); err != nil {
			return err
		}

		if err := tx.Where("client_id = ?", client.ID).Delete(&models.FundAllocation{}).Error; err != nil {
			return err
		}
		rows := models.AllocationsFromDomain(client.ID, client.Allocations)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return translate(err)
	}
	client.Version++
	return nil
}
