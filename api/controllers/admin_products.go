package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacare/pharmacare-backend/api/responses"
	"github.com/pharmacare/pharmacare-backend/api/validators"
	productsvc "github.com/pharmacare/pharmacare-backend/internal/products"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
	"github.com/pharmacare/pharmacare-backend/pkg/logger"
)

type createProductRequest struct {
	CategoryID           *uuid.UUID `json:"category_id,omitempty"`
	Name                 string     `json:"name" validate:"required,min=1,max=255"`
	Description          *string    `json:"description,omitempty"`
	Price                string     `json:"price" validate:"required"`
	StockQuantity        int        `json:"stock_quantity" validate:"min=0"`
	RequiresPrescription bool       `json:"requires_prescription"`
	ImageURL             *string    `json:"image_url,omitempty" validate:"omitempty,url"`
}

type updateProductRequest struct {
	CategoryID           *uuid.UUID `json:"category_id,omitempty"`
	Name                 *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description          *string    `json:"description,omitempty"`
	Price                *string    `json:"price,omitempty"`
	StockQuantity        *int       `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	RequiresPrescription *bool      `json:"requires_prescription,omitempty"`
	IsActive             *bool      `json:"is_active,omitempty"`
	ImageURL             *string    `json:"image_url,omitempty" validate:"omitempty,url"`
}

// AdminCreateProduct adds a listing to the catalog.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), productsvc.CreateProductDTO{
			CategoryID:           body.CategoryID,
			Name:                 body.Name,
			Description:          body.Description,
			Price:                price,
			StockQuantity:        body.StockQuantity,
			RequiresPrescription: body.RequiresPrescription,
			ImageURL:             body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies partial edits to a listing.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.UpdateProductDTO{
			CategoryID:           body.CategoryID,
			Name:                 body.Name,
			Description:          body.Description,
			StockQuantity:        body.StockQuantity,
			RequiresPrescription: body.RequiresPrescription,
			IsActive:             body.IsActive,
			ImageURL:             body.ImageURL,
		}
		if body.Price != nil {
			price, err := parsePrice(*body.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Price = &price
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a listing.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminListProducts exposes the full catalog to the back office, inactive
// listings included.
func AdminListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := parseListProductsQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Filters.IncludeInactive = true

		page, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	return price, nil
}
