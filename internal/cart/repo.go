package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
)

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListLines returns the owner's cart lines with products preloaded, oldest first.
func (r *Repository) ListLines(ctx context.Context, owner Owner) ([]models.CartLine, error) {
	var rows []models.CartLine
	err := owner.scope(r.db.WithContext(ctx)).
		Preload("Product").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindLine loads a single line by id, restricted to the owner.
func (r *Repository) FindLine(ctx context.Context, owner Owner, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := owner.scope(r.db.WithContext(ctx)).
		Preload("Product").
		Where("id = ?", lineID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// FindLineByProduct loads the owner's line for a given product.
func (r *Repository) FindLineByProduct(ctx context.Context, owner Owner, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := owner.scope(r.db.WithContext(ctx)).
		Where("product_id = ?", productID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// CreateLine inserts a new cart line.
func (r *Repository) CreateLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateQuantity sets the quantity on an owner's line.
func (r *Repository) UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) error {
	return owner.scope(r.db.WithContext(ctx).Model(&models.CartLine{})).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

// DeleteLine removes an owner's line.
func (r *Repository) DeleteLine(ctx context.Context, owner Owner, lineID uuid.UUID) error {
	return owner.scope(r.db.WithContext(ctx)).
		Where("id = ?", lineID).
		Delete(&models.CartLine{}).Error
}

// Purge removes every line belonging to the owner.
func (r *Repository) Purge(ctx context.Context, owner Owner) error {
	return owner.scope(r.db.WithContext(ctx)).
		Delete(&models.CartLine{}).Error
}

// ReassignGuestLines moves every line under the guest token to the user in a
// single UPDATE. Lines are kept as-is; duplicates across the two carts stay
// separate entries.
func (r *Repository) ReassignGuestLines(ctx context.Context, sessionToken string, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("session_token = ?", sessionToken).
		Updates(map[string]any{
			"user_id":       userID,
			"session_token": nil,
		})
	return result.RowsAffected, result.Error
}
