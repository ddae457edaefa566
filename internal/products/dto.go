package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	"github.com/pharmacare/pharmacare-backend/pkg/pagination"
)

// ProductDTO is the transport shape for catalog listings.
type ProductDTO struct {
	ID                   uuid.UUID       `json:"id"`
	CategoryID           *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName         *string         `json:"category_name,omitempty"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description,omitempty"`
	Price                decimal.Decimal `json:"price"`
	StockQuantity        int             `json:"stock_quantity"`
	RequiresPrescription bool            `json:"requires_prescription"`
	IsActive             bool            `json:"is_active"`
	ImageURL             *string         `json:"image_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CreateProductDTO holds the fields accepted when an admin creates a listing.
type CreateProductDTO struct {
	CategoryID           *uuid.UUID
	Name                 string
	Description          *string
	Price                decimal.Decimal
	StockQuantity        int
	RequiresPrescription bool
	ImageURL             *string
}

// UpdateProductDTO carries partial updates; nil fields are left untouched.
type UpdateProductDTO struct {
	CategoryID           *uuid.UUID
	Name                 *string
	Description          *string
	Price                *decimal.Decimal
	StockQuantity        *int
	RequiresPrescription *bool
	IsActive             *bool
	ImageURL             *string
}

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	Query           string     `json:"q,omitempty"`
	Prescription    *bool      `json:"requires_prescription,omitempty"`
	IncludeInactive bool       `json:"-"`
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
type ListProductsInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ProductList is a single page of catalog results.
type ProductList struct {
	Products   []ProductDTO `json:"products"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:                   p.ID,
		CategoryID:           p.CategoryID,
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price,
		StockQuantity:        p.StockQuantity,
		RequiresPrescription: p.RequiresPrescription,
		IsActive:             p.IsActive,
		ImageURL:             p.ImageURL,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.Category != nil {
		dto.CategoryName = &p.Category.Name
	}
	return dto
}
