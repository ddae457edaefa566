package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	"github.com/pharmacare/pharmacare-backend/pkg/enums"
)

// Repository exposes the persistence primitives used while placing an order.
type Repository struct {
	db *gorm.DB
}

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

// DecrementStock takes quantity units off the product if and only if enough
// stock remains. The conditional WHERE clause is the authority on
// availability; callers must treat a false result as sold out.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// orderNumberLockID keys the advisory lock that serializes number allocation.
const orderNumberLockID int64 = 874502193

// NextOrderNumber reserves the next sequential customer-facing number. The
// MAX read is only safe when allocations are serialized: on Postgres a
// transaction-scoped advisory lock holds concurrent checkouts apart until
// commit, and SQLite has a single writer. The unique index on order_number
// backstops both.
func (r *Repository) NextOrderNumber(ctx context.Context) (int64, error) {
	if r.db.Dialector.Name() == "postgres" {
		if err := r.db.WithContext(ctx).
			Exec("SELECT pg_advisory_xact_lock(?)", orderNumberLockID).Error; err != nil {
			return 0, err
		}
	}

	var current int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(MAX(order_number), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// CreateOrder inserts the order row.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateItems inserts the order's line snapshots in one batch.
func (r *Repository) CreateItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// PurgeUserCart drops the customer's cart lines after the order is recorded.
func (r *Repository) PurgeUserCart(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartLine{}).Error
}
