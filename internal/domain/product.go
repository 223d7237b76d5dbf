package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is the fixed set of catalog categories. Values are the Korean
// wire strings the storefront renders directly.
type Category string

const (
	CategoryCurtain    Category = "커튼"
	CategoryBlind      Category = "블라인드"
	CategoryRollScreen Category = "롤스크린"
	CategoryAccessory  Category = "부자재"
)

// Categories lists every valid category, in display order.
func Categories() []Category {
	return []Category{CategoryCurtain, CategoryBlind, CategoryRollScreen, CategoryAccessory}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCurtain, CategoryBlind, CategoryRollScreen, CategoryAccessory:
		return true
	}
	return false
}

// ProductStatus describes the sale state of a catalog entry.
type ProductStatus string

const (
	ProductOnSale       ProductStatus = "판매중"
	ProductOutOfStock   ProductStatus = "품절"
	ProductDiscontinued ProductStatus = "판매중지"
)

// Valid reports whether s is one of the known product statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductOnSale, ProductOutOfStock, ProductDiscontinued:
		return true
	}
	return false
}

// Product is a catalog entry. Price is in KRW. Images is an ordered list of
// CDN URLs stored as JSONB.
type Product struct {
	ID          uuid.UUID     `json:"id"`
	SKU         string        `json:"sku"`
	Name        string        `json:"name"`
	Price       int64         `json:"price"`
	Category    Category      `json:"category"`
	Images      []string      `json:"images"`
	Description string        `json:"description"`
	Status      ProductStatus `json:"status"`
	Stock       int           `json:"stock"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
