package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopmall/internal/domain"
	"shopmall/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// CreateProductInput carries the fields of a product creation request.
type CreateProductInput struct {
	SKU         string
	Name        string
	Price       int64
	Category    domain.Category
	Images      []string
	Description string
	Status      domain.ProductStatus
	Stock       int
}

// UpdateProductInput carries the optional fields of a product update.
// Nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Price       *int64
	Category    *domain.Category
	Images      []string
	Description *string
	Status      *domain.ProductStatus
	Stock       *int
}

// ProductPage is a catalog listing result with pagination totals.
type ProductPage struct {
	Products   []*domain.Product
	Count      int
	Total      int
	Page       int
	TotalPages int
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, NewInputError("invalid category", string(*filter.Category))
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, NewInputError("invalid product status", string(*filter.Status))
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := total / filter.Limit
	if total%filter.Limit != 0 {
		totalPages++
	}

	return &ProductPage{
		Products:   products,
		Count:      len(products),
		Total:      total,
		Page:       filter.Page,
		TotalPages: totalPages,
	}, nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	product, err := s.productRepo.FindBySKU(ctx, normalizeSKU(sku))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	input.SKU = normalizeSKU(input.SKU)
	if input.SKU == "" {
		return nil, NewInputError("sku is required", "")
	}
	if !input.Category.Valid() {
		return nil, NewInputError("invalid category", string(input.Category))
	}
	if input.Status == "" {
		input.Status = domain.ProductOnSale
	}
	if !input.Status.Valid() {
		return nil, NewInputError("invalid product status", string(input.Status))
	}
	if input.Price < 0 {
		return nil, NewInputError("price must not be negative", "")
	}
	if input.Stock < 0 {
		return nil, NewInputError("stock must not be negative", "")
	}

	product := &domain.Product{
		ID:          uuid.New(),
		SKU:         input.SKU,
		Name:        input.Name,
		Price:       input.Price,
		Category:    input.Category,
		Images:      input.Images,
		Description: input.Description,
		Status:      input.Status,
		Stock:       input.Stock,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrSKUExists) {
			return nil, &ConflictError{Message: "sku already exists", Detail: input.SKU}
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, NewInputError("price must not be negative", "")
		}
		product.Price = *input.Price
	}
	if input.Category != nil {
		if !input.Category.Valid() {
			return nil, NewInputError("invalid category", string(*input.Category))
		}
		product.Category = *input.Category
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, NewInputError("invalid product status", string(*input.Status))
		}
		product.Status = *input.Status
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, NewInputError("stock must not be negative", "")
		}
		product.Stock = *input.Stock
	}
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product and returns the deleted row.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return product, nil
}

// normalizeSKU canonicalizes SKUs to uppercase for storage and lookup.
func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
