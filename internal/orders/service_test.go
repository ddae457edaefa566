package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/db"
	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	"github.com/pharmacare/pharmacare-backend/pkg/enums"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
	"github.com/pharmacare/pharmacare-backend/pkg/outbox"
	"github.com/pharmacare/pharmacare-backend/pkg/pagination"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM order_items")
		conn.Exec("DELETE FROM orders")
	})
	return conn
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

var orderSeq int64

func mustCreateTestOrder(t *testing.T, tx *gorm.DB, userID uuid.UUID, status enums.OrderStatus, mutate func(*models.Order)) *models.Order {
	t.Helper()
	orderSeq++
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		OrderNumber:     orderSeq,
		Status:          status,
		SubtotalAmount:  decimal.RequireFromString("25.00"),
		ShippingAmount:  decimal.RequireFromString("5.99"),
		TotalAmount:     decimal.RequireFromString("30.99"),
		ShippingAddress: "12 High Street",
		Items: []models.OrderItem{
			{
				ID:          uuid.New(),
				ProductName: "Paracetamol 500mg",
				UnitPrice:   decimal.RequireFromString("12.50"),
				Quantity:    2,
			},
		},
	}
	if mutate != nil {
		mutate(order)
	}
	if err := tx.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func newTestService(t *testing.T, conn *gorm.DB, emitter *recordingEmitter) Service {
	t.Helper()
	client, err := db.NewWithConn(conn)
	if err != nil {
		t.Fatalf("wrap conn: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestFormatOrderNumber(t *testing.T) {
	if got := FormatOrderNumber(1); got != "#000001" {
		t.Fatalf("expected #000001, got %s", got)
	}
	if got := FormatOrderNumber(123456); got != "#123456" {
		t.Fatalf("expected #123456, got %s", got)
	}
	if got := FormatOrderNumber(1234567); got != "#1234567" {
		t.Fatalf("expected #1234567, got %s", got)
	}
}

func TestGetMyOrderOwnership(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &recordingEmitter{})
	ctx := context.Background()

	owner := uuid.New()
	order := mustCreateTestOrder(t, conn, owner, enums.OrderStatusPending, nil)

	dto, err := svc.GetMyOrder(ctx, owner, order.ID)
	if err != nil {
		t.Fatalf("get my order: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected items preloaded, got %d", len(dto.Items))
	}
	if !dto.Items[0].LineTotal.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected line total 25.00, got %s", dto.Items[0].LineTotal)
	}
	if dto.OrderNumber != FormatOrderNumber(order.OrderNumber) {
		t.Fatalf("expected formatted number, got %s", dto.OrderNumber)
	}

	// Another customer probing this id learns nothing about its existence.
	_, err = svc.GetMyOrder(ctx, uuid.New(), order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListMyOrdersPagination(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &recordingEmitter{})
	ctx := context.Background()

	owner := uuid.New()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Minute
		mustCreateTestOrder(t, conn, owner, enums.OrderStatusPending, func(o *models.Order) {
			o.CreatedAt = base.Add(offset)
		})
	}
	mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)

	first, err := svc.ListMyOrders(ctx, owner, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list my orders: %v", err)
	}
	if len(first.Orders) != 2 {
		t.Fatalf("expected 2 orders on first page, got %d", len(first.Orders))
	}
	if first.NextCursor == nil {
		t.Fatal("expected next cursor")
	}

	second, err := svc.ListMyOrders(ctx, owner, pagination.Params{Limit: 2, Cursor: *first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Orders) != 1 {
		t.Fatalf("expected 1 order on second page, got %d", len(second.Orders))
	}
	for _, dto := range append(first.Orders, second.Orders...) {
		if dto.UserID != owner {
			t.Fatalf("expected only the owner's orders, got user %s", dto.UserID)
		}
	}
}

func TestListOrdersStatusFilter(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, &recordingEmitter{})
	ctx := context.Background()

	mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)
	mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusShipped, nil)

	shipped := enums.OrderStatusShipped
	page, err := svc.ListOrders(ctx, ListOrdersInput{Filters: ListFilters{Status: &shipped}})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Orders) != 1 || page.Orders[0].Status != enums.OrderStatusShipped {
		t.Fatalf("expected only shipped orders, got %+v", page.Orders)
	}

	bogus := enums.OrderStatus("misplaced")
	_, err = svc.ListOrders(ctx, ListOrdersInput{Filters: ListFilters{Status: &bogus}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("walksTheLifecycle", func(t *testing.T) {
		emitter := &recordingEmitter{}
		svc := newTestService(t, conn, emitter)
		order := mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)

		for _, next := range []enums.OrderStatus{
			enums.OrderStatusProcessing,
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
		} {
			dto, err := svc.UpdateStatus(ctx, adminID, order.ID, next)
			if err != nil {
				t.Fatalf("transition to %s: %v", next, err)
			}
			if dto.Status != next {
				t.Fatalf("expected status %s, got %s", next, dto.Status)
			}
		}
		if len(emitter.events) != 3 {
			t.Fatalf("expected 3 status events, got %d", len(emitter.events))
		}
		if emitter.events[0].EventType != enums.EventOrderStatusChanged {
			t.Fatalf("expected order_status_changed, got %s", emitter.events[0].EventType)
		}
	})

	t.Run("rejectsSkippingAhead", func(t *testing.T) {
		svc := newTestService(t, conn, &recordingEmitter{})
		order := mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)

		_, err := svc.UpdateStatus(ctx, adminID, order.ID, enums.OrderStatusDelivered)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict error, got %v", err)
		}
	})

	t.Run("terminalStatesFrozen", func(t *testing.T) {
		svc := newTestService(t, conn, &recordingEmitter{})
		order := mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusCancelled, nil)

		_, err := svc.UpdateStatus(ctx, adminID, order.ID, enums.OrderStatusProcessing)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict error, got %v", err)
		}
	})

	t.Run("sameStatusIsNoop", func(t *testing.T) {
		emitter := &recordingEmitter{}
		svc := newTestService(t, conn, emitter)
		order := mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)

		dto, err := svc.UpdateStatus(ctx, adminID, order.ID, enums.OrderStatusPending)
		if err != nil {
			t.Fatalf("same-status update: %v", err)
		}
		if dto.Status != enums.OrderStatusPending {
			t.Fatalf("expected pending, got %s", dto.Status)
		}
		if len(emitter.events) != 0 {
			t.Fatalf("expected no events for a no-op, got %d", len(emitter.events))
		}
	})

	t.Run("invalidStatus", func(t *testing.T) {
		svc := newTestService(t, conn, &recordingEmitter{})
		order := mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)

		_, err := svc.UpdateStatus(ctx, adminID, order.ID, enums.OrderStatus("returned"))
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("missingOrder", func(t *testing.T) {
		svc := newTestService(t, conn, &recordingEmitter{})
		_, err := svc.UpdateStatus(ctx, adminID, uuid.New(), enums.OrderStatusProcessing)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestFindByNumber(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := mustCreateTestOrder(t, conn, uuid.New(), enums.OrderStatusPending, func(o *models.Order) {
		o.OrderNumber = 42
	})

	for _, raw := range []string{"#000042", "000042", "42", fmt.Sprintf("#%06d", 42)} {
		found, err := repo.FindByNumber(ctx, raw)
		if err != nil {
			t.Fatalf("find by %q: %v", raw, err)
		}
		if found.ID != order.ID {
			t.Fatalf("expected order %s for %q, got %s", order.ID, raw, found.ID)
		}
	}

	if _, err := repo.FindByNumber(ctx, "#abc"); err == nil {
		t.Fatal("expected error for malformed number")
	}
}
