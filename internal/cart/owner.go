package cart

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Owner identifies who a cart belongs to. A cart is keyed by either an
// authenticated user id or a guest session token, never both.
type Owner struct {
	userID       *uuid.UUID
	sessionToken *string
}

// UserOwner builds an owner for an authenticated customer.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{userID: &userID}
}

// GuestOwner builds an owner for an anonymous session.
func GuestOwner(sessionToken string) Owner {
	token := strings.TrimSpace(sessionToken)
	return Owner{sessionToken: &token}
}

// Valid reports whether the owner carries a usable identity.
func (o Owner) Valid() bool {
	if o.userID != nil {
		return *o.userID != uuid.Nil
	}
	return o.sessionToken != nil && *o.sessionToken != ""
}

// IsUser reports whether the owner is an authenticated customer.
func (o Owner) IsUser() bool {
	return o.userID != nil
}

// UserID returns the user id for authenticated owners.
func (o Owner) UserID() *uuid.UUID {
	return o.userID
}

// SessionToken returns the guest token for anonymous owners.
func (o Owner) SessionToken() *string {
	return o.sessionToken
}

func (o Owner) scope(query *gorm.DB) *gorm.DB {
	if o.userID != nil {
		return query.Where("user_id = ?", *o.userID)
	}
	return query.Where("session_token = ?", *o.sessionToken)
}
