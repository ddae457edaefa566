package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacare/pharmacare-backend/pkg/checkout"
	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
)

// LineDTO is one cart entry with its priced extension.
type LineDTO struct {
	ID                   uuid.UUID       `json:"id"`
	ProductID            uuid.UUID       `json:"product_id"`
	ProductName          string          `json:"product_name"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	Quantity             int             `json:"quantity"`
	LineTotal            decimal.Decimal `json:"line_total"`
	RequiresPrescription bool            `json:"requires_prescription"`
	ImageURL             *string         `json:"image_url,omitempty"`
}

// CartDTO is the full cart with shipping applied. ItemCount is the summed
// quantity shown as the storefront badge.
type CartDTO struct {
	Lines     []LineDTO       `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
}

// RequiresPrescription reports whether any line needs an uploaded prescription.
func (c *CartDTO) RequiresPrescription() bool {
	for _, line := range c.Lines {
		if line.RequiresPrescription {
			return true
		}
	}
	return false
}

func buildCartDTO(rows []models.CartLine, freeThreshold, shippingCost decimal.Decimal) *CartDTO {
	dto := &CartDTO{Lines: make([]LineDTO, 0, len(rows))}
	subtotal := decimal.Zero
	for i := range rows {
		row := rows[i]
		line := LineDTO{
			ID:        row.ID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
		}
		if row.Product != nil {
			line.ProductName = row.Product.Name
			line.UnitPrice = row.Product.Price
			line.RequiresPrescription = row.Product.RequiresPrescription
			line.ImageURL = row.Product.ImageURL
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity)))
		subtotal = subtotal.Add(line.LineTotal)
		dto.ItemCount += row.Quantity
		dto.Lines = append(dto.Lines, line)
	}

	totals := checkout.ComputeTotals(subtotal, freeThreshold, shippingCost)
	dto.Subtotal = totals.Subtotal
	dto.Shipping = totals.Shipping
	dto.Total = totals.Total
	return dto
}
