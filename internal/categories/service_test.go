package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM products")
		conn.Exec("DELETE FROM categories")
	})
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client, err := db.NewWithConn(conn)
	if err != nil {
		t.Fatalf("wrap conn: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceCreateCategory(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)

	t.Run("success", func(t *testing.T) {
		dto, err := svc.CreateCategory(context.Background(), UpsertCategoryDTO{Name: "  Pain Relief  "})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		if dto.Name != "Pain Relief" {
			t.Fatalf("expected trimmed name, got %q", dto.Name)
		}
	})

	t.Run("blankName", func(t *testing.T) {
		_, err := svc.CreateCategory(context.Background(), UpsertCategoryDTO{Name: "   "})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("duplicateName", func(t *testing.T) {
		if _, err := svc.CreateCategory(context.Background(), UpsertCategoryDTO{Name: "Vitamins"}); err != nil {
			t.Fatalf("seed category: %v", err)
		}
		_, err := svc.CreateCategory(context.Background(), UpsertCategoryDTO{Name: "Vitamins"})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict error, got %v", err)
		}
	})
}

func TestServiceUpdateCategory(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)

	created, err := svc.CreateCategory(context.Background(), UpsertCategoryDTO{Name: "Cold and Flu"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	description := "Seasonal remedies"
	updated, err := svc.UpdateCategory(context.Background(), created.ID, UpsertCategoryDTO{
		Name:        "Cold & Flu",
		Description: &description,
	})
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if updated.Name != "Cold & Flu" {
		t.Fatalf("expected renamed category, got %q", updated.Name)
	}
	if updated.Description == nil || *updated.Description != description {
		t.Fatalf("expected description %q, got %v", description, updated.Description)
	}

	_, err = svc.UpdateCategory(context.Background(), uuid.New(), UpsertCategoryDTO{Name: "Ghost"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestServiceDeleteCategory(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	t.Run("refusesWhenProductsRemain", func(t *testing.T) {
		created, err := svc.CreateCategory(ctx, UpsertCategoryDTO{Name: fmt.Sprintf("busy-%s", uuid.NewString())})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		product := &models.Product{
			ID:         uuid.New(),
			CategoryID: &created.ID,
			Name:       "Linked Product",
			Price:      decimal.NewFromInt(5),
			IsActive:   true,
		}
		if err := conn.Create(product).Error; err != nil {
			t.Fatalf("create product: %v", err)
		}

		err = svc.DeleteCategory(ctx, created.ID)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict error, got %v", err)
		}
	})

	t.Run("deletesEmptyCategory", func(t *testing.T) {
		created, err := svc.CreateCategory(ctx, UpsertCategoryDTO{Name: fmt.Sprintf("empty-%s", uuid.NewString())})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		if err := svc.DeleteCategory(ctx, created.ID); err != nil {
			t.Fatalf("delete category: %v", err)
		}
		if _, err := svc.GetCategory(ctx, created.ID); pkgerrors.As(err) == nil {
			t.Fatalf("expected not found after delete, got %v", err)
		}
	})

	t.Run("missingCategory", func(t *testing.T) {
		err := svc.DeleteCategory(ctx, uuid.New())
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestServiceListCategoriesOrdersByName(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	for _, name := range []string{"Vitamins", "Antibiotics", "Pain Relief"} {
		if _, err := svc.CreateCategory(ctx, UpsertCategoryDTO{Name: name}); err != nil {
			t.Fatalf("create category %q: %v", name, err)
		}
	}

	rows, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(rows))
	}
	expected := []string{"Antibiotics", "Pain Relief", "Vitamins"}
	for i, name := range expected {
		if rows[i].Name != name {
			t.Fatalf("expected %q at index %d, got %q", name, i, rows[i].Name)
		}
	}
}
