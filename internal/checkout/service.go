package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/internal/cart"
	"github.com/pharmacare/pharmacare-backend/internal/orders"
	"github.com/pharmacare/pharmacare-backend/internal/prescriptions"
	pkgcheckout "github.com/pharmacare/pharmacare-backend/pkg/checkout"
	"github.com/pharmacare/pharmacare-backend/pkg/config"
	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	"github.com/pharmacare/pharmacare-backend/pkg/enums"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
	"github.com/pharmacare/pharmacare-backend/pkg/logger"
	"github.com/pharmacare/pharmacare-backend/pkg/metrics"
	"github.com/pharmacare/pharmacare-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartLoader interface {
	ListLines(ctx context.Context, owner cart.Owner) ([]models.CartLine, error)
}

type contactSyncer interface {
	SyncContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, phone, address string) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PlaceOrderInput is the checkout form payload.
type PlaceOrderInput struct {
	FullName        string
	Email           string
	Phone           string
	ShippingAddress string
	Notes           *string
	Prescription    *prescriptions.Upload
}

// shippingDetails holds the trimmed contact block persisted with the order.
type shippingDetails struct {
	FullName string
	Phone    string
	Email    string
	Address  string
}

// Block renders the four-line shipping address stored on the order row.
func (d shippingDetails) Block() string {
	return strings.Join([]string{d.FullName, d.Phone, d.Email, d.Address}, "\n")
}

// OrderConfirmationDTO is returned once the order transaction commits.
type OrderConfirmationDTO struct {
	OrderID          uuid.UUID         `json:"order_id"`
	OrderNumber      string            `json:"order_number"`
	Status           enums.OrderStatus `json:"status"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Shipping         decimal.Decimal   `json:"shipping"`
	Total            decimal.Decimal   `json:"total"`
	PrescriptionFile *string           `json:"prescription_file,omitempty"`
}

// Service places orders.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderConfirmationDTO, error)
}

type service struct {
	repo          *Repository
	tx            txRunner
	cartRepo      cartLoader
	users         contactSyncer
	files         prescriptions.Store
	events        outboxEmitter
	logg          *logger.Logger
	checkoutStats *metrics.CheckoutMetrics
	freeThreshold decimal.Decimal
	shippingCost  decimal.Decimal
}

// NewService builds the checkout service.
func NewService(
	repo *Repository,
	tx txRunner,
	cartRepo cartLoader,
	users contactSyncer,
	files prescriptions.Store,
	events outboxEmitter,
	logg *logger.Logger,
	checkoutStats *metrics.CheckoutMetrics,
	cfg config.CheckoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart loader required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if files == nil {
		return nil, fmt.Errorf("prescription store required")
	}
	return &service{
		repo:          repo,
		tx:            tx,
		cartRepo:      cartRepo,
		users:         users,
		files:         files,
		events:        events,
		logg:          logg,
		checkoutStats: checkoutStats,
		freeThreshold: cfg.FreeShippingThresholdAmount(),
		shippingCost:  cfg.ShippingCostAmount(),
	}, nil
}

// PlaceOrder turns the customer's cart into an order. The prescription file,
// when one is needed, is written to disk before the transaction opens and
// removed again if the transaction does not commit.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderConfirmationDTO, error) {
	started := time.Now()
	confirmation, err := s.placeOrder(ctx, userID, input)
	if err != nil {
		reason := "internal"
		if typed := pkgerrors.As(err); typed != nil {
			reason = strings.ToLower(string(typed.Code()))
		}
		s.checkoutStats.IncFailed(reason)
		s.checkoutStats.ObserveDuration("failure", time.Since(started))
		return nil, err
	}
	s.checkoutStats.IncPlaced()
	s.checkoutStats.ObserveDuration("success", time.Since(started))
	return confirmation, nil
}

func (s *service) placeOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderConfirmationDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	shipping, err := validateShipping(input)
	if err != nil {
		return nil, err
	}

	owner := cart.UserOwner(userID)
	lines, err := s.cartRepo.ListLines(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	// Products deactivated after they were added to the cart drop out of the
	// order silently, the same way a storefront listing disappears.
	lines = activeLines(lines)
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	subtotal, items := buildOrderItems(lines)

	// Advisory pre-check so the common sold-out case fails before any file
	// is written. The in-transaction decrement is still the authority.
	if sold := findSoldOut(lines); len(sold) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStockUnavailable, "some products are no longer available").
			WithDetails(map[string]any{"products": sold})
	}

	prescriptionFile, err := s.storePrescription(ctx, userID, lines, input.Prescription)
	if err != nil {
		return nil, err
	}

	totals := pkgcheckout.ComputeTotals(subtotal, s.freeThreshold, s.shippingCost)

	var order *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		for _, line := range lines {
			ok, err := txRepo.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if !ok {
				details := map[string]any{"product_id": line.ProductID}
				if line.Product != nil {
					details["product_name"] = line.Product.Name
				}
				return pkgerrors.New(pkgerrors.CodeStockUnavailable, "product sold out during checkout").
					WithDetails(details)
			}
		}

		number, err := txRepo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: next order number")
		}

		order = &models.Order{
			UserID:           userID,
			OrderNumber:      number,
			Status:           enums.OrderStatusPending,
			SubtotalAmount:   totals.Subtotal,
			ShippingAmount:   totals.Shipping,
			TotalAmount:      totals.Total,
			ShippingAddress:  shipping.Block(),
			PrescriptionFile: prescriptionFile,
			Notes:            input.Notes,
		}
		if _, err := txRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		if err := txRepo.CreateItems(ctx, order.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order items")
		}
		if err := txRepo.PurgeUserCart(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: purge cart")
		}
		if err := s.users.SyncContact(ctx, tx, userID, shipping.Phone, shipping.Address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sync contact")
		}

		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPlaced,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
				Data: map[string]any{
					"order_number": order.OrderNumber,
					"total_amount": order.TotalAmount,
					"item_count":   len(items),
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
			}
		}
		return nil
	})
	if txErr != nil {
		if prescriptionFile != nil {
			if cleanupErr := s.files.Delete(ctx, *prescriptionFile); cleanupErr != nil && s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("orphaned prescription file %s: %v", *prescriptionFile, cleanupErr))
			}
		}
		if pkgerrors.As(txErr) != nil {
			return nil, txErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "place order")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_number": orders.FormatOrderNumber(order.OrderNumber),
			"total":        order.TotalAmount.String(),
		})
		s.logg.Info(logCtx, "order placed")
	}

	return &OrderConfirmationDTO{
		OrderID:          order.ID,
		OrderNumber:      orders.FormatOrderNumber(order.OrderNumber),
		Status:           order.Status,
		Subtotal:         order.SubtotalAmount,
		Shipping:         order.ShippingAmount,
		Total:            order.TotalAmount,
		PrescriptionFile: order.PrescriptionFile,
	}, nil
}

// storePrescription enforces the prescription gate and writes the upload when
// the cart needs one.
func (s *service) storePrescription(ctx context.Context, userID uuid.UUID, lines []models.CartLine, upload *prescriptions.Upload) (*string, error) {
	required := false
	for _, line := range lines {
		if line.Product != nil && line.Product.RequiresPrescription {
			required = true
			break
		}
	}
	if !required {
		return nil, nil
	}
	if upload == nil {
		return nil, pkgerrors.New(pkgerrors.CodePrescriptionRequired, "this order contains prescription items").
			WithDetails(map[string]any{"products": prescriptionProductNames(lines)})
	}

	filename, err := s.files.Save(ctx, userID, *upload)
	if err != nil {
		return nil, err
	}
	return &filename, nil
}

var validate = validator.New()

// validateShipping trims and checks the contact fields, collecting every
// failure into one validation error so the form can show them all at once.
func validateShipping(input PlaceOrderInput) (shippingDetails, error) {
	details := shippingDetails{
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
		Email:    strings.TrimSpace(input.Email),
		Address:  strings.TrimSpace(input.ShippingAddress),
	}

	problems := map[string]string{}
	if details.FullName == "" {
		problems["full_name"] = "is required"
	}
	if details.Phone == "" {
		problems["phone"] = "is required"
	}
	if details.Address == "" {
		problems["shipping_address"] = "is required"
	}
	switch {
	case details.Email == "":
		problems["email"] = "is required"
	case validate.Var(details.Email, "email") != nil:
		problems["email"] = "must be a valid email address"
	}
	if len(problems) > 0 {
		return shippingDetails{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").
			WithDetails(problems)
	}
	return details, nil
}

// activeLines drops cart lines whose product is gone or deactivated.
func activeLines(lines []models.CartLine) []models.CartLine {
	kept := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Product != nil && line.Product.IsActive {
			kept = append(kept, line)
		}
	}
	return kept
}

func buildOrderItems(lines []models.CartLine) (decimal.Decimal, []models.OrderItem) {
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		lineTotal := line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		productID := line.ProductID
		items = append(items, models.OrderItem{
			ProductID:   &productID,
			ProductName: line.Product.Name,
			UnitPrice:   line.Product.Price,
			Quantity:    line.Quantity,
		})
	}
	return subtotal, items
}

func findSoldOut(lines []models.CartLine) []string {
	var sold []string
	for _, line := range lines {
		if line.Product != nil && line.Product.StockQuantity < line.Quantity {
			sold = append(sold, line.Product.Name)
		}
	}
	return sold
}

func prescriptionProductNames(lines []models.CartLine) []string {
	var names []string
	for _, line := range lines {
		if line.Product != nil && line.Product.RequiresPrescription {
			names = append(names, line.Product.Name)
		}
	}
	return names
}
