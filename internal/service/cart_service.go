package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopmall/internal/domain"
	"shopmall/internal/repository"

	"github.com/google/uuid"
)

// Cart is a user's cart items together with their sum.
type Cart struct {
	Items       []*domain.CartItem `json:"items"`
	TotalAmount int64              `json:"totalAmount"`
}

// CartService defines the interface for cart business logic. Every
// operation is scoped to the owning user.
type CartService interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, options domain.ItemOptions) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int, options *domain.ItemOptions) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	RemoveItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddItem puts a product selection in the cart. An existing item with the
// same product and identical options absorbs the quantity instead of
// creating a second line.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, options domain.ItemOptions) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, NewInputError("quantity must be at least 1", "")
	}

	product, err := s.availableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.FindMergeTarget(ctx, userID, productID, options)
	if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
		return nil, fmt.Errorf("failed to look up cart item: %w", err)
	}

	if existing != nil {
		newQuantity := existing.Quantity + quantity
		if product.Stock < newQuantity {
			return nil, NewInputError("insufficient stock", product.Name)
		}
		existing.Quantity = newQuantity
		existing.TotalPrice = product.Price * int64(newQuantity)
		existing.UpdatedAt = time.Now()
		if err := s.cartRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
		existing.Product = product
		return existing, nil
	}

	if product.Stock < quantity {
		return nil, NewInputError("insufficient stock", product.Name)
	}

	item := &domain.CartItem{
		ID:         uuid.New(),
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
		Options:    options,
		TotalPrice: product.Price * int64(quantity),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.cartRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create cart item: %w", err)
	}

	item.Product = product
	return item, nil
}

// UpdateItem changes an item's quantity and optionally its options,
// recomputing the total from the current product price.
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int, options *domain.ItemOptions) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, NewInputError("quantity must be at least 1", "")
	}

	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.availableProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, NewInputError("insufficient stock", product.Name)
	}

	item.Quantity = quantity
	if options != nil {
		item.Options = *options
	}
	item.TotalPrice = product.Price * int64(quantity)
	item.UpdatedAt = time.Now()

	if err := s.cartRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	item.Product = product
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if err := s.cartRepo.Delete(ctx, item.ID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return &NotFoundError{Resource: "cart item"}
		}
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

// RemoveItems deletes the given items, silently skipping IDs that do not
// belong to the user. Returns the number actually removed.
func (s *cartService) RemoveItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, NewInputError("no cart item ids given", "")
	}
	removed, err := s.cartRepo.DeleteByIDs(ctx, userID, itemIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart items: %w", err)
	}
	return removed, nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	removed, err := s.cartRepo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return removed, nil
}

func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	cart := &Cart{Items: items}
	for _, item := range items {
		cart.TotalAmount += item.TotalPrice
	}
	return cart, nil
}

// ownedItem loads a cart item and verifies the caller owns it. A foreign
// item reads as not found rather than forbidden, to avoid leaking IDs.
func (s *cartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartItem, error) {
	item, err := s.cartRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, &NotFoundError{Resource: "cart item"}
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	if item.UserID != userID {
		return nil, &NotFoundError{Resource: "cart item"}
	}
	return item, nil
}

// availableProduct loads a product and checks it is on sale.
func (s *cartService) availableProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product.Status != domain.ProductOnSale {
		return nil, NewInputError("product is not available for sale", product.Name)
	}
	return product, nil
}
