package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one product entry in a cart. Exactly one of UserID or
// SessionToken is set; guest lines carry the session token until merge.
type CartLine struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	SessionToken *string    `gorm:"column:session_token;type:text;index"`
	ProductID    uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	Quantity     int        `gorm:"column:quantity;not null"`
	Product      *Product   `gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
