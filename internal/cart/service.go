package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/config"
	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart operations for both guests and authenticated customers.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner Owner, lineID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner Owner) error
	Merge(ctx context.Context, sessionToken string, userID uuid.UUID) error
}

type service struct {
	repo          *Repository
	tx            txRunner
	products      productLoader
	freeThreshold decimal.Decimal
	shippingCost  decimal.Decimal
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader, cfg config.CheckoutConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:          repo,
		tx:            tx,
		products:      products,
		freeThreshold: cfg.FreeShippingThresholdAmount(),
		shippingCost:  cfg.ShippingCostAmount(),
	}, nil
}

// GetCart returns the owner's cart with shipping quoted.
func (s *service) GetCart(ctx context.Context, owner Owner) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	rows, err := s.repo.ListLines(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart lines")
	}
	return buildCartDTO(rows, s.freeThreshold, s.shippingCost), nil
}

// AddItem puts a product in the cart, topping up an existing line when the
// product is already there. Quantities never exceed the current stock.
func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.StockQuantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeStockUnavailable, "product is out of stock").
			WithDetails(map[string]any{"product_id": productID})
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		line, err := txRepo.FindLineByProduct(ctx, owner, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if line != nil {
			next := clampQuantity(line.Quantity+quantity, product.StockQuantity)
			return txRepo.UpdateQuantity(ctx, owner, line.ID, next)
		}

		_, err = txRepo.CreateLine(ctx, &models.CartLine{
			UserID:       owner.UserID(),
			SessionToken: owner.SessionToken(),
			ProductID:    productID,
			Quantity:     clampQuantity(quantity, product.StockQuantity),
		})
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: add cart line")
	}

	return s.GetCart(ctx, owner)
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the line;
// anything above the available stock is clamped down to it.
func (s *service) UpdateQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	line, err := s.repo.FindLine(ctx, owner, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	if quantity <= 0 {
		if err := s.repo.DeleteLine(ctx, owner, line.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
		}
		return s.GetCart(ctx, owner)
	}

	stock := 0
	if line.Product != nil {
		stock = line.Product.StockQuantity
	}
	next := clampQuantity(quantity, stock)
	if next == 0 {
		if err := s.repo.DeleteLine(ctx, owner, line.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
		}
		return s.GetCart(ctx, owner)
	}

	if err := s.repo.UpdateQuantity(ctx, owner, line.ID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart line")
	}
	return s.GetCart(ctx, owner)
}

// RemoveItem deletes a single line from the owner's cart.
func (s *service) RemoveItem(ctx context.Context, owner Owner, lineID uuid.UUID) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	if _, err := s.repo.FindLine(ctx, owner, lineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	if err := s.repo.DeleteLine(ctx, owner, lineID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
	}
	return s.GetCart(ctx, owner)
}

// Clear drops every line in the owner's cart.
func (s *service) Clear(ctx context.Context, owner Owner) error {
	if !owner.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if err := s.repo.Purge(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: purge cart")
	}
	return nil
}

// Merge reassigns guest cart lines to the user at login. Lines stay separate
// entries; nothing is deduplicated or re-summed.
func (s *service) Merge(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	if sessionToken == "" {
		return nil
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if _, err := s.repo.ReassignGuestLines(ctx, sessionToken, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge guest cart")
	}
	return nil
}

func clampQuantity(requested, stock int) int {
	if requested < 0 {
		return 0
	}
	if requested > stock {
		return stock
	}
	return requested
}
