package repositories

import (
	"context"
	"time"

	"btg-funds/internal/adapters/persistence/models"
	"btg-funds/internal/core/domain"

	"gorm.io/gorm"
)

// UserRepository implements services.UserStore on MySQL
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user models.User
	err := conn(ctx, r.db).Preload("RefreshTokens").Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return user.ToDomain(), nil
}

// GetByUsername gets a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user models.User
	err := conn(ctx, r.db).Preload("RefreshTokens").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return user.ToDomain(), nil
}

// GetByRefreshToken gets the owner of a refresh token digest
func (r *UserRepository) GetByRefreshToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	var user models.User
	err := conn(ctx, r.db).
		Preload("RefreshTokens").
		Joins("JOIN refresh_tokens rt ON rt.user_id = users.id").
		Where("rt.token_hash = ?", tokenHash).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return user.ToDomain(), nil
}

// Add creates a user together with its refresh tokens
func (r *UserRepository) Add(ctx context.Context, user *domain.User) error {
	row := models.UserFromDomain(user)
	row.Version = 1
	err := atomic(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		return translate(err)
	}
	user.Version = 1
	return nil
}

// Update replaces the user row and its token set when the version matches
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	err := atomic(ctx, r.db, func(tx *gorm.DB) error {
		if err := versionedUpdate(tx, &models.User{}, user.ID, user.Version, map[string]any{
			"password_hash": user.PasswordHash,
			"role":          string(user.Role),
			"updated_at":    user.UpdatedAt,
		}); err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		rows := models.RefreshTokensFromDomain(user.ID, user.RefreshTokens)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return translate(err)
	}
	user.Version++
	return nil
}

// DeleteExpiredRefreshTokens removes every refresh token that expired before the given time
func (r *UserRepository) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	res := conn(ctx, r.db).Where("expires_at < ?", before).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
