package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/db"
	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	"github.com/pharmacare/pharmacare-backend/pkg/enums"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
)

type stubCategoryLoader struct {
	rows map[uuid.UUID]*models.Category
}

func (s *stubCategoryLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if row, ok := s.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(t *testing.T, conn *gorm.DB, categories categoryLoader, events outboxEmitter) Service {
	t.Helper()
	client, err := db.NewWithConn(conn)
	if err != nil {
		t.Fatalf("wrap conn: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client, categories, events)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestValidateListing(t *testing.T) {
	t.Run("blankName", func(t *testing.T) {
		err := validateListing("   ", decimal.NewFromInt(1), 0)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("negativePrice", func(t *testing.T) {
		err := validateListing("Aspirin", decimal.RequireFromString("-0.01"), 0)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("negativeStock", func(t *testing.T) {
		err := validateListing("Aspirin", decimal.NewFromInt(1), -1)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("valid", func(t *testing.T) {
		if err := validateListing("Aspirin", decimal.NewFromInt(1), 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestServiceCreateProduct(t *testing.T) {
	conn := openTestDB(t)
	category := mustCreateTestCategory(t, conn)
	loader := &stubCategoryLoader{rows: map[uuid.UUID]*models.Category{category.ID: category}}
	svc := newTestService(t, conn, loader, &recordingEmitter{})

	t.Run("success", func(t *testing.T) {
		dto, err := svc.CreateProduct(context.Background(), CreateProductDTO{
			CategoryID:    &category.ID,
			Name:          "  Cough Syrup  ",
			Price:         decimal.RequireFromString("7.25"),
			StockQuantity: 8,
		})
		if err != nil {
			t.Fatalf("create product: %v", err)
		}
		if dto.Name != "Cough Syrup" {
			t.Fatalf("expected trimmed name, got %q", dto.Name)
		}
		if !dto.IsActive {
			t.Fatal("expected new listing to be active")
		}
		if dto.CategoryName == nil || *dto.CategoryName != category.Name {
			t.Fatalf("expected category name %q, got %v", category.Name, dto.CategoryName)
		}
	})

	t.Run("unknownCategory", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.CreateProduct(context.Background(), CreateProductDTO{
			CategoryID: &missing,
			Name:       "Orphan",
			Price:      decimal.NewFromInt(1),
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestServiceUpdateProduct(t *testing.T) {
	conn := openTestDB(t)
	loader := &stubCategoryLoader{rows: map[uuid.UUID]*models.Category{}}

	t.Run("partialUpdate", func(t *testing.T) {
		svc := newTestService(t, conn, loader, &recordingEmitter{})
		product := mustCreateTestProduct(t, conn, nil)

		price := decimal.RequireFromString("9.99")
		stock := 3
		dto, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductDTO{
			Price:         &price,
			StockQuantity: &stock,
		})
		if err != nil {
			t.Fatalf("update product: %v", err)
		}
		if !dto.Price.Equal(price) {
			t.Fatalf("expected price %s, got %s", price, dto.Price)
		}
		if dto.StockQuantity != stock {
			t.Fatalf("expected stock %d, got %d", stock, dto.StockQuantity)
		}
		if dto.Name != product.Name {
			t.Fatalf("expected untouched name %q, got %q", product.Name, dto.Name)
		}
	})

	t.Run("deactivationEmitsEvent", func(t *testing.T) {
		emitter := &recordingEmitter{}
		svc := newTestService(t, conn, loader, emitter)
		product := mustCreateTestProduct(t, conn, nil)

		inactive := false
		if _, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductDTO{IsActive: &inactive}); err != nil {
			t.Fatalf("update product: %v", err)
		}
		if len(emitter.events) != 1 {
			t.Fatalf("expected 1 outbox event, got %d", len(emitter.events))
		}
		event := emitter.events[0]
		if event.EventType != enums.EventProductDeactivated {
			t.Fatalf("expected product_deactivated event, got %s", event.EventType)
		}
		if event.AggregateID != product.ID {
			t.Fatalf("expected aggregate id %s, got %s", product.ID, event.AggregateID)
		}
	})

	t.Run("alreadyInactiveDoesNotReemit", func(t *testing.T) {
		emitter := &recordingEmitter{}
		svc := newTestService(t, conn, loader, emitter)
		product := mustCreateTestProduct(t, conn, func(p *models.Product) {
			p.IsActive = false
		})

		inactive := false
		if _, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductDTO{IsActive: &inactive}); err != nil {
			t.Fatalf("update product: %v", err)
		}
		if len(emitter.events) != 0 {
			t.Fatalf("expected no outbox events, got %d", len(emitter.events))
		}
	})

	t.Run("notFound", func(t *testing.T) {
		svc := newTestService(t, conn, loader, &recordingEmitter{})
		name := "whatever"
		_, err := svc.UpdateProduct(context.Background(), uuid.New(), UpdateProductDTO{Name: &name})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestServiceDeleteProduct(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubCategoryLoader{}, &recordingEmitter{})
	product := mustCreateTestProduct(t, conn, nil)

	if err := svc.DeleteProduct(context.Background(), product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := svc.GetProduct(context.Background(), product.ID); pkgerrors.As(err) == nil {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	err := svc.DeleteProduct(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestServiceListProducts(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &stubCategoryLoader{}, &recordingEmitter{})
	mustCreateTestProduct(t, conn, nil)
	mustCreateTestProduct(t, conn, func(p *models.Product) { p.IsActive = false })

	page, err := svc.ListProducts(context.Background(), ListProductsInput{})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(page.Products) != 1 {
		t.Fatalf("expected 1 active product, got %d", len(page.Products))
	}
	if page.NextCursor != nil {
		t.Fatalf("expected no next cursor, got %v", *page.NextCursor)
	}
}
