package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/config"
	"github.com/pharmacare/pharmacare-backend/pkg/db"
	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}, &models.CartLine{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM cart_lines")
		conn.Exec("DELETE FROM products")
		conn.Exec("DELETE FROM categories")
	})
	return conn
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		Name:          fmt.Sprintf("Aspirin %s", uuid.NewString()[:8]),
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client, err := db.NewWithConn(conn)
	if err != nil {
		t.Fatalf("wrap conn: %v", err)
	}
	repo := NewRepository(conn)
	svc, err := NewService(repo, client, productFinder{conn: conn}, config.CheckoutConfig{
		FreeShippingThreshold: "50.00",
		ShippingCost:          "5.99",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

type productFinder struct {
	conn *gorm.DB
}

func (p productFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := p.conn.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func TestServiceAddItem(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	t.Run("newLineAndTotals", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "12.50", 10)
		owner := UserOwner(uuid.New())

		cart, err := svc.AddItem(ctx, owner, product.ID, 2)
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
		if len(cart.Lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(cart.Lines))
		}
		if cart.Lines[0].Quantity != 2 {
			t.Fatalf("expected quantity 2, got %d", cart.Lines[0].Quantity)
		}
		if cart.ItemCount != 2 {
			t.Fatalf("expected item count 2, got %d", cart.ItemCount)
		}
		if !cart.Subtotal.Equal(decimal.RequireFromString("25.00")) {
			t.Fatalf("expected subtotal 25.00, got %s", cart.Subtotal)
		}
		if !cart.Shipping.Equal(decimal.RequireFromString("5.99")) {
			t.Fatalf("expected shipping 5.99, got %s", cart.Shipping)
		}
		if !cart.Total.Equal(decimal.RequireFromString("30.99")) {
			t.Fatalf("expected total 30.99, got %s", cart.Total)
		}
	})

	t.Run("freeShippingAtThreshold", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "12.50", 10)
		owner := UserOwner(uuid.New())

		cart, err := svc.AddItem(ctx, owner, product.ID, 5)
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
		if !cart.Subtotal.Equal(decimal.RequireFromString("62.50")) {
			t.Fatalf("expected subtotal 62.50, got %s", cart.Subtotal)
		}
		if !cart.Shipping.IsZero() {
			t.Fatalf("expected free shipping, got %s", cart.Shipping)
		}
		if !cart.Total.Equal(decimal.RequireFromString("62.50")) {
			t.Fatalf("expected total 62.50, got %s", cart.Total)
		}
	})

	t.Run("topsUpExistingLine", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 10)
		owner := GuestOwner("guest-token-topup")

		if _, err := svc.AddItem(ctx, owner, product.ID, 2); err != nil {
			t.Fatalf("first add: %v", err)
		}
		cart, err := svc.AddItem(ctx, owner, product.ID, 3)
		if err != nil {
			t.Fatalf("second add: %v", err)
		}
		if len(cart.Lines) != 1 {
			t.Fatalf("expected single merged line, got %d", len(cart.Lines))
		}
		if cart.Lines[0].Quantity != 5 {
			t.Fatalf("expected quantity 5, got %d", cart.Lines[0].Quantity)
		}
	})

	t.Run("clampsToStock", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 3)
		owner := UserOwner(uuid.New())

		cart, err := svc.AddItem(ctx, owner, product.ID, 10)
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
		if cart.Lines[0].Quantity != 3 {
			t.Fatalf("expected quantity clamped to 3, got %d", cart.Lines[0].Quantity)
		}
	})

	t.Run("outOfStock", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 0)
		owner := UserOwner(uuid.New())

		_, err := svc.AddItem(ctx, owner, product.ID, 1)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStockUnavailable {
			t.Fatalf("expected stock unavailable error, got %v", err)
		}
	})

	t.Run("inactiveProductLooksMissing", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 5)
		conn.Model(product).Update("is_active", false)
		owner := UserOwner(uuid.New())

		_, err := svc.AddItem(ctx, owner, product.ID, 1)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("unknownProduct", func(t *testing.T) {
		_, err := svc.AddItem(ctx, UserOwner(uuid.New()), uuid.New(), 1)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestServiceUpdateQuantity(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	t.Run("setsQuantity", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 10)
		owner := UserOwner(uuid.New())
		cart, err := svc.AddItem(ctx, owner, product.ID, 2)
		if err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		updated, err := svc.UpdateQuantity(ctx, owner, cart.Lines[0].ID, 7)
		if err != nil {
			t.Fatalf("update quantity: %v", err)
		}
		if updated.Lines[0].Quantity != 7 {
			t.Fatalf("expected quantity 7, got %d", updated.Lines[0].Quantity)
		}
	})

	t.Run("zeroRemovesLine", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 10)
		owner := UserOwner(uuid.New())
		cart, err := svc.AddItem(ctx, owner, product.ID, 2)
		if err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		updated, err := svc.UpdateQuantity(ctx, owner, cart.Lines[0].ID, 0)
		if err != nil {
			t.Fatalf("update quantity: %v", err)
		}
		if len(updated.Lines) != 0 {
			t.Fatalf("expected empty cart, got %d lines", len(updated.Lines))
		}
	})

	t.Run("clampsToStock", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 4)
		owner := UserOwner(uuid.New())
		cart, err := svc.AddItem(ctx, owner, product.ID, 2)
		if err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		updated, err := svc.UpdateQuantity(ctx, owner, cart.Lines[0].ID, 99)
		if err != nil {
			t.Fatalf("update quantity: %v", err)
		}
		if updated.Lines[0].Quantity != 4 {
			t.Fatalf("expected quantity clamped to 4, got %d", updated.Lines[0].Quantity)
		}
	})

	t.Run("foreignLineLooksMissing", func(t *testing.T) {
		product := mustCreateTestProduct(t, conn, "4.00", 10)
		owner := UserOwner(uuid.New())
		cart, err := svc.AddItem(ctx, owner, product.ID, 2)
		if err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		_, err = svc.UpdateQuantity(ctx, UserOwner(uuid.New()), cart.Lines[0].ID, 1)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestServiceRemoveAndClear(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	first := mustCreateTestProduct(t, conn, "4.00", 10)
	second := mustCreateTestProduct(t, conn, "6.00", 10)
	owner := GuestOwner("guest-token-remove")

	cart, err := svc.AddItem(ctx, owner, first.ID, 1)
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if cart, err = svc.AddItem(ctx, owner, second.ID, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	cart, err = svc.RemoveItem(ctx, owner, cart.Lines[0].ID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line after removal, got %d", len(cart.Lines))
	}

	if err := svc.Clear(ctx, owner); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	cart, err = svc.GetCart(ctx, owner)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart.Lines))
	}
	if !cart.Total.IsZero() {
		t.Fatalf("expected zero total for empty cart, got %s", cart.Total)
	}
}

func TestServiceMergeKeepsLinesSeparate(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	product := mustCreateTestProduct(t, conn, "4.00", 10)
	userID := uuid.New()
	guest := GuestOwner("guest-token-merge")

	if _, err := svc.AddItem(ctx, UserOwner(userID), product.ID, 2); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}
	if _, err := svc.AddItem(ctx, guest, product.ID, 3); err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}

	if err := svc.Merge(ctx, "guest-token-merge", userID); err != nil {
		t.Fatalf("merge: %v", err)
	}

	cart, err := svc.GetCart(ctx, UserOwner(userID))
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("expected both lines kept separate, got %d", len(cart.Lines))
	}

	guestCart, err := svc.GetCart(ctx, guest)
	if err != nil {
		t.Fatalf("get guest cart: %v", err)
	}
	if len(guestCart.Lines) != 0 {
		t.Fatalf("expected empty guest cart after merge, got %d lines", len(guestCart.Lines))
	}

	if err := svc.Merge(ctx, "", userID); err != nil {
		t.Fatalf("merge with empty token should be a no-op, got %v", err)
	}
}
