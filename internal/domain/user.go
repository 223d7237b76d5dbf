package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserType distinguishes storefront customers from back-office admins.
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeAdmin    UserType = "admin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	return t == UserTypeCustomer || t == UserTypeAdmin
}

// User represents a registered account. PasswordHash is a bcrypt hash and
// must never be serialized to clients.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	UserType     UserType  `json:"userType"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user carries admin capability.
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}
