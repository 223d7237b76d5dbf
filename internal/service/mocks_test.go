package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopmall/internal/domain"
	"shopmall/internal/payment"
	"shopmall/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, userType *domain.UserType, email string) ([]*domain.User, error) {
	var out []*domain.User
	for _, user := range m.users {
		if userType != nil && user.UserType != *userType {
			continue
		}
		if email != "" && !strings.Contains(user.Email, email) {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	for email, existing := range m.users {
		if existing.ID == user.ID {
			m.users[email] = user
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	for email, existing := range m.users {
		if existing.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	for _, p := range m.products {
		if p.SKU == product.SKU {
			return repository.ErrSKUExists
		}
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	delete(m.products, id)
	return product, nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	var out []*domain.Product
	for _, p := range m.products {
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

type mockCartRepository struct {
	items map[uuid.UUID]*domain.CartItem
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{items: make(map[uuid.UUID]*domain.CartItem)}
}

func (m *mockCartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockCartRepository) Update(ctx context.Context, item *domain.CartItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return repository.ErrCartItemNotFound
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockCartRepository) DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	var removed int64
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.UserID == userID {
			delete(m.items, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockCartRepository) DeleteAllByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var removed int64
	for id, item := range m.items {
		if item.UserID == userID {
			delete(m.items, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CartItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	return item, nil
}

func (m *mockCartRepository) FindByIDsForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*domain.CartItem, error) {
	var out []*domain.CartItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockCartRepository) FindMergeTarget(ctx context.Context, userID, productID uuid.UUID, options domain.ItemOptions) (*domain.CartItem, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID && item.Options == options {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	var out []*domain.CartItem
	for _, item := range m.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

type mockOrderRepository struct {
	orders map[uuid.UUID]*domain.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.OrderNumber = domain.GenerateOrderNumber(time.Now())
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	var out []*domain.Order
	for _, order := range m.orders {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.PaymentMethod != nil && order.Payment.Method != *filter.PaymentMethod {
			continue
		}
		if filter.DateFrom != nil && order.CreatedAt.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && order.CreatedAt.After(*filter.DateTo) {
			continue
		}
		out = append(out, order)
	}
	return out, len(out), nil
}

func (m *mockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) FindRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range m.orders {
		if order.UserID != userID || order.CreatedAt.Before(since) {
			continue
		}
		for _, s := range statuses {
			if order.Status == s {
				out = append(out, order)
				break
			}
		}
	}
	return out, nil
}

// mockVerifier approves or rejects every transaction.
type mockVerifier struct {
	fail   bool
	reason string
}

func (m *mockVerifier) Verify(ctx context.Context, transactionID, merchantUID string, expectedAmount int64) (*payment.Verification, error) {
	if m.fail {
		reason := m.reason
		if reason == "" {
			reason = "rejected"
		}
		return nil, errors.New(reason)
	}
	return &payment.Verification{
		TransactionID: transactionID,
		MerchantUID:   merchantUID,
		Amount:        expectedAmount,
		Status:        "paid",
	}, nil
}
