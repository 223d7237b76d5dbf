package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shopmall/internal/domain"

	"github.com/google/uuid"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepository defines the interface for cart data access. Reads return
// items with the referenced product populated so callers can show current
// prices.
type CartRepository interface {
	Create(ctx context.Context, item *domain.CartItem) error
	Update(ctx context.Context, item *domain.CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CartItem, error)
	FindByIDsForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*domain.CartItem, error)
	FindMergeTarget(ctx context.Context, userID, productID uuid.UUID, options domain.ItemOptions) (*domain.CartItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository.
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

const cartSelect = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.options, c.total_price,
	       c.created_at, c.updated_at,
	       p.id, p.sku, p.name, p.price, p.category, p.images, p.description,
	       p.status, p.stock, p.created_at, p.updated_at
	FROM cart_items c
	JOIN products p ON p.id = c.product_id
`

func scanCartItem(row interface{ Scan(...any) error }) (*domain.CartItem, error) {
	item := &domain.CartItem{Product: &domain.Product{}}
	var options, images []byte
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&options,
		&item.TotalPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Product.ID,
		&item.Product.SKU,
		&item.Product.Name,
		&item.Product.Price,
		&item.Product.Category,
		&images,
		&item.Product.Description,
		&item.Product.Status,
		&item.Product.Stock,
		&item.Product.CreatedAt,
		&item.Product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &item.Options); err != nil {
		return nil, fmt.Errorf("failed to decode cart options: %w", err)
	}
	if err := json.Unmarshal(images, &item.Product.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	return item, nil
}

func (r *cartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	options, err := json.Marshal(item.Options)
	if err != nil {
		return fmt.Errorf("failed to encode cart options: %w", err)
	}

	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, options, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.UserID,
		item.ProductID,
		item.Quantity,
		options,
		item.TotalPrice,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) Update(ctx context.Context, item *domain.CartItem) error {
	options, err := json.Marshal(item.Options)
	if err != nil {
		return fmt.Errorf("failed to encode cart options: %w", err)
	}

	query := `
		UPDATE cart_items
		SET quantity = $2, options = $3, total_price = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, item.ID, item.Quantity, options, item.TotalPrice, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// DeleteByIDs removes the given cart rows, scoped to the owning user.
func (r *cartRepository) DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := []any{userID}
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`DELETE FROM cart_items WHERE user_id = $1 AND id IN (%s)`,
		strings.Join(placeholders, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart items: %w", err)
	}

	return result.RowsAffected()
}

func (r *cartRepository) DeleteAllByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return result.RowsAffected()
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CartItem, error) {
	item, err := scanCartItem(r.db.QueryRowContext(ctx, cartSelect+" WHERE c.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return item, nil
}

// FindByIDsForUser returns the subset of the given cart rows that exist and
// belong to userID, with products populated.
func (r *cartRepository) FindByIDsForUser(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*domain.CartItem, error) {
	if len(ids) == 0 {
		return []*domain.CartItem{}, nil
	}

	placeholders := make([]string, len(ids))
	args := []any{userID}
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(cartSelect+" WHERE c.user_id = $1 AND c.id IN (%s) ORDER BY c.created_at",
		strings.Join(placeholders, ", "))

	return r.queryCartItems(ctx, query, args...)
}

// FindMergeTarget looks up an existing row for the same user, product and
// options combination. Options equality is structural (jsonb compare).
func (r *cartRepository) FindMergeTarget(ctx context.Context, userID, productID uuid.UUID, options domain.ItemOptions) (*domain.CartItem, error) {
	encoded, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart options: %w", err)
	}

	query := cartSelect + " WHERE c.user_id = $1 AND c.product_id = $2 AND c.options = $3::jsonb"

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, productID, encoded))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item for merge: %w", err)
	}
	return item, nil
}

func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := cartSelect + " WHERE c.user_id = $1 ORDER BY c.created_at DESC"
	return r.queryCartItems(ctx, query, userID)
}

func (r *cartRepository) queryCartItems(ctx context.Context, query string, args ...any) ([]*domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}
