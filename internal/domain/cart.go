package domain

import (
	"time"

	"github.com/google/uuid"
)

// ItemOptions is the closed set of per-item customization fields a shopper
// can pick for curtain and blind products. All fields are optional strings;
// two selections are the same configuration iff the structs compare equal.
type ItemOptions struct {
	Color        string `json:"color,omitempty"`
	Pleats       string `json:"pleats,omitempty"`
	Width        string `json:"width,omitempty"`
	Height       string `json:"height,omitempty"`
	Additional   string `json:"additional,omitempty"`
	Installation string `json:"installation,omitempty"`
	Rod          string `json:"rod,omitempty"`
}

// CartItem is a per-user selection of a product with a quantity and options.
// TotalPrice is product price times quantity, recomputed on every mutation;
// it is not a frozen price snapshot.
type CartItem struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"userId"`
	ProductID  uuid.UUID   `json:"productId"`
	Quantity   int         `json:"quantity"`
	Options    ItemOptions `json:"options"`
	TotalPrice int64       `json:"totalPrice"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`

	// Product is populated on reads that join the catalog.
	Product *Product `json:"product,omitempty"`
}
