package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacare/pharmacare-backend/pkg/enums"
)

// Order is the immutable record produced by checkout. TotalAmount is fixed at
// creation; only Status changes afterwards, by admins.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber      int64             `gorm:"column:order_number;not null;uniqueIndex"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	SubtotalAmount   decimal.Decimal   `gorm:"column:subtotal_amount;type:numeric(10,2);not null"`
	ShippingAmount   decimal.Decimal   `gorm:"column:shipping_amount;type:numeric(10,2);not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	ShippingAddress  string            `gorm:"column:shipping_address;not null"`
	PrescriptionFile *string           `gorm:"column:prescription_file"`
	Notes            *string           `gorm:"column:notes"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
