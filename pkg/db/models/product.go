package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog listing. Price is the current list price;
// orders snapshot it at placement time.
type Product struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID           *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Name                 string          `gorm:"column:name;not null"`
	Description          *string         `gorm:"column:description"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	StockQuantity        int             `gorm:"column:stock_quantity;not null;default:0"`
	RequiresPrescription bool            `gorm:"column:requires_prescription;not null;default:false"`
	// No gorm default: the zero value must be writable so a listing can be
	// created deactivated. The migration carries the column default.
	IsActive  bool      `gorm:"column:is_active;not null"`
	ImageURL  *string   `gorm:"column:image_url"`
	Category  *Category `gorm:"foreignKey:CategoryID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
