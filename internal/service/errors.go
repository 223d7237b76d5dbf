package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrForbidden means the caller is authenticated but not allowed to act on
// the resource.
var ErrForbidden = errors.New("forbidden")

// InputError is a request the caller can fix: a missing field, a bad enum
// value, an out-of-range quantity, an unavailable or short-stocked
// product. Maps to 400.
type InputError struct {
	Message string
	Detail  string
}

func (e *InputError) Error() string { return e.Message }

// NewInputError builds an InputError with an optional detail string.
func NewInputError(message, detail string) *InputError {
	return &InputError{Message: message, Detail: detail}
}

// NotFoundError names a resource that does not exist. Maps to 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ConflictError is a uniqueness clash: duplicate email or SKU. Maps
// to 409.
type ConflictError struct {
	Message string
	Detail  string
}

func (e *ConflictError) Error() string { return e.Message }

// DuplicateOrderError rejects an order that repeats a recent one with the
// same products. Carries the prior order so the client can show it.
type DuplicateOrderError struct {
	OrderID     uuid.UUID
	OrderNumber string
	CreatedAt   time.Time
}

func (e *DuplicateOrderError) Error() string {
	return "an identical order was placed moments ago"
}

// GatewayError wraps a payment verification failure. Maps to 400 with the
// gateway's reason as detail.
type GatewayError struct {
	Reason string
}

func (e *GatewayError) Error() string { return "payment verification failed: " + e.Reason }
