package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmacare/pharmacare-backend/pkg/db/models"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
)

func openUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		conn.Exec("DELETE FROM users")
	})
	return conn
}

func mustSeedUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()

	repo := NewRepository(conn)
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:        email,
		PasswordHash: "$argon2id$stub",
		FullName:     "Jane Doe",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func strPtr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	conn := openUsersTestDB(t)
	user := mustSeedUser(t, conn, "jane@example.com")
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	t.Run("returnsOwnProfile", func(t *testing.T) {
		profile, err := svc.GetProfile(context.Background(), user.ID)
		if err != nil {
			t.Fatalf("get profile: %v", err)
		}
		if profile.Email != "jane@example.com" || profile.FullName != "Jane Doe" {
			t.Fatalf("unexpected profile %+v", profile)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.GetProfile(context.Background(), uuid.Nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("unknownUser", func(t *testing.T) {
		_, err := svc.GetProfile(context.Background(), uuid.New())
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	conn := openUsersTestDB(t)
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	t.Run("updatesOnlyProvidedFields", func(t *testing.T) {
		user := mustSeedUser(t, conn, "update-fields@example.com")

		profile, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileDTO{
			Phone: strPtr("+34 600 000 001"),
		})
		if err != nil {
			t.Fatalf("update profile: %v", err)
		}
		if profile.Phone == nil || *profile.Phone != "+34 600 000 001" {
			t.Fatalf("expected phone updated, got %+v", profile.Phone)
		}
		if profile.FullName != "Jane Doe" {
			t.Fatalf("expected full name untouched, got %q", profile.FullName)
		}
	})

	t.Run("rejectsBlankFullName", func(t *testing.T) {
		user := mustSeedUser(t, conn, "blank-name@example.com")

		_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileDTO{
			FullName: strPtr("   "),
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
