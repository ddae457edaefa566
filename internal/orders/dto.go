package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	"github.com/pharmacare/pharmacare-backend/pkg/enums"
	"github.com/pharmacare/pharmacare-backend/pkg/pagination"
)

// ItemDTO is one snapshot line on an order.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDTO is the full order view.
type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	OrderNumber      string            `json:"order_number"`
	Status           enums.OrderStatus `json:"status"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Shipping         decimal.Decimal   `json:"shipping"`
	Total            decimal.Decimal   `json:"total"`
	ShippingAddress  string            `json:"shipping_address"`
	PrescriptionFile *string           `json:"prescription_file,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	Items            []ItemDTO         `json:"items,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// ListFilters narrows admin order listings.
type ListFilters struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
}

// ListOrdersInput drives paginated order listings.
type ListOrdersInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}

func fromModel(o *models.Order, withItems bool) *OrderDTO {
	dto := &OrderDTO{
		ID:               o.ID,
		UserID:           o.UserID,
		OrderNumber:      FormatOrderNumber(o.OrderNumber),
		Status:           o.Status,
		Subtotal:         o.SubtotalAmount,
		Shipping:         o.ShippingAmount,
		Total:            o.TotalAmount,
		ShippingAddress:  o.ShippingAddress,
		PrescriptionFile: o.PrescriptionFile,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
	}
	if withItems {
		dto.Items = make([]ItemDTO, 0, len(o.Items))
		for _, item := range o.Items {
			dto.Items = append(dto.Items, ItemDTO{
				ID:          item.ID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				UnitPrice:   item.UnitPrice,
				Quantity:    item.Quantity,
				LineTotal:   item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			})
		}
	}
	return dto
}
