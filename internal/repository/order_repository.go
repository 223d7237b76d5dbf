package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopmall/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNumberExhausted means ten consecutive candidates collided;
	// the caller should retry the whole creation.
	ErrOrderNumberExhausted = errors.New("failed to generate a unique order number")
)

const orderNumberAttempts = 10

// OrderFilter narrows an order listing. Nil fields mean no filter. UserID
// is set for non-admin callers to scope to their own orders.
type OrderFilter struct {
	UserID        *uuid.UUID
	Status        *domain.OrderStatus
	PaymentMethod *domain.PaymentMethod
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	Limit         int
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create persists the order and its items in one transaction,
	// assigning a unique order number via a bounded retry loop.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	Update(ctx context.Context, order *domain.Order) error

	// FindRecentByUser returns the user's orders created at or after
	// since whose status is one of statuses, items populated with
	// product IDs only. Used by duplicate-order detection.
	FindRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time, statuses []domain.OrderStatus) ([]*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id,
	shipping_recipient_name, shipping_recipient_phone, shipping_address,
	shipping_address_detail, shipping_postal_code, shipping_delivery_request, shipping_fee,
	payment_method, payment_status, payment_amount, payment_paid_at, payment_transaction_id,
	refund_amount, refund_reason, refund_refunded_at,
	discount_amount, final_amount, status,
	cancelled_at, cancelled_by,
	tracking_number, carrier, shipped_at, delivered_at,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	var cancelledBy sql.NullString
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Shipping.RecipientName,
		&order.Shipping.RecipientPhone,
		&order.Shipping.Address,
		&order.Shipping.AddressDetail,
		&order.Shipping.PostalCode,
		&order.Shipping.DeliveryRequest,
		&order.Shipping.ShippingFee,
		&order.Payment.Method,
		&order.Payment.Status,
		&order.Payment.Amount,
		&order.Payment.PaidAt,
		&order.Payment.TransactionID,
		&order.Payment.Refund.Amount,
		&order.Payment.Refund.Reason,
		&order.Payment.Refund.RefundedAt,
		&order.Amounts.DiscountAmount,
		&order.Amounts.FinalAmount,
		&order.Status,
		&order.Cancellation.CancelledAt,
		&cancelledBy,
		&order.Tracking.TrackingNumber,
		&order.Tracking.Carrier,
		&order.Tracking.ShippedAt,
		&order.Tracking.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cancelledBy.Valid {
		order.Cancellation.CancelledBy = domain.CancelledBy(cancelledBy.String)
	}
	return order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	number, err := r.assignOrderNumber(ctx, tx)
	if err != nil {
		return err
	}
	order.OrderNumber = number

	var cancelledBy any
	if order.Cancellation.CancelledBy != "" {
		cancelledBy = order.Cancellation.CancelledBy
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.Shipping.RecipientName,
		order.Shipping.RecipientPhone,
		order.Shipping.Address,
		order.Shipping.AddressDetail,
		order.Shipping.PostalCode,
		order.Shipping.DeliveryRequest,
		order.Shipping.ShippingFee,
		order.Payment.Method,
		order.Payment.Status,
		order.Payment.Amount,
		order.Payment.PaidAt,
		order.Payment.TransactionID,
		order.Payment.Refund.Amount,
		order.Payment.Refund.Reason,
		order.Payment.Refund.RefundedAt,
		order.Amounts.DiscountAmount,
		order.Amounts.FinalAmount,
		order.Status,
		order.Cancellation.CancelledAt,
		cancelledBy,
		order.Tracking.TrackingNumber,
		order.Tracking.Carrier,
		order.Tracking.ShippedAt,
		order.Tracking.DeliveredAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}

		options, err := json.Marshal(item.Options)
		if err != nil {
			return fmt.Errorf("failed to encode item options: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, options)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, order.ID, item.ProductID, item.Quantity, options)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// assignOrderNumber generates candidates until one is unused, giving up
// after a bounded number of attempts.
func (r *orderRepository) assignOrderNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		candidate := domain.GenerateOrderNumber(time.Now())

		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, candidate).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrOrderNumberExhausted
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	if err := r.loadUsers(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	conditions := []string{}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentMethod != nil {
		args = append(args, *filter.PaymentMethod)
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`
		SELECT `+orderColumns+`
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	if err := r.loadUsers(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// Update writes the mutable fields of an order: status, payment, tracking
// and cancellation. Items and shipping are immutable after creation.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	var cancelledBy any
	if order.Cancellation.CancelledBy != "" {
		cancelledBy = order.Cancellation.CancelledBy
	}

	query := `
		UPDATE orders
		SET payment_status = $2, payment_paid_at = $3, payment_transaction_id = $4,
		    refund_amount = $5, refund_reason = $6, refund_refunded_at = $7,
		    status = $8, cancelled_at = $9, cancelled_by = $10,
		    tracking_number = $11, carrier = $12, shipped_at = $13, delivered_at = $14,
		    updated_at = $15
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.Payment.Status,
		order.Payment.PaidAt,
		order.Payment.TransactionID,
		order.Payment.Refund.Amount,
		order.Payment.Refund.Reason,
		order.Payment.Refund.RefundedAt,
		order.Status,
		order.Cancellation.CancelledAt,
		cancelledBy,
		order.Tracking.TrackingNumber,
		order.Tracking.Carrier,
		order.Tracking.ShippedAt,
		order.Tracking.DeliveredAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) FindRecentByUser(ctx context.Context, userID uuid.UUID, since time.Time, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	if len(statuses) == 0 {
		return []*domain.Order{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := []any{userID, since}
	for i, s := range statuses {
		args = append(args, s)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1 AND created_at >= $2 AND status IN (%s)
		ORDER BY created_at DESC
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// loadItems populates Items (with products) for all given orders in one
// query.
func (r *orderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	placeholders := make([]string, len(orders))
	args := []any{}
	for i, o := range orders {
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
		args = append(args, o.ID)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.options,
		       p.id, p.sku, p.name, p.price, p.category, p.images, p.description,
		       p.status, p.stock, p.created_at, p.updated_at
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id IN (%s)
		ORDER BY i.id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item           domain.OrderItem
			orderID        uuid.UUID
			options        []byte
			pID            sql.Null[uuid.UUID]
			pSKU, pName    sql.NullString
			pPrice         sql.NullInt64
			pCategory      sql.NullString
			pImages        []byte
			pDescription   sql.NullString
			pStatus        sql.NullString
			pStock         sql.NullInt64
			pCreat, pUpdat sql.NullTime
		)

		err := rows.Scan(
			&item.ID, &orderID, &item.ProductID, &item.Quantity, &options,
			&pID, &pSKU, &pName, &pPrice, &pCategory, &pImages,
			&pDescription, &pStatus, &pStock, &pCreat, &pUpdat,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if err := json.Unmarshal(options, &item.Options); err != nil {
			return fmt.Errorf("failed to decode item options: %w", err)
		}

		// The product may have been deleted since the order was placed.
		if pID.Valid {
			product := &domain.Product{
				ID:          pID.V,
				SKU:         pSKU.String,
				Name:        pName.String,
				Price:       pPrice.Int64,
				Category:    domain.Category(pCategory.String),
				Description: pDescription.String,
				Status:      domain.ProductStatus(pStatus.String),
				Stock:       int(pStock.Int64),
				CreatedAt:   pCreat.Time,
				UpdatedAt:   pUpdat.Time,
			}
			if len(pImages) > 0 {
				if err := json.Unmarshal(pImages, &product.Images); err != nil {
					return fmt.Errorf("failed to decode product images: %w", err)
				}
			}
			item.Product = product
		}

		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	return rows.Err()
}

// loadUsers populates the owning user's contact fields on each order.
func (r *orderRepository) loadUsers(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	seen := map[uuid.UUID][]*domain.Order{}
	placeholders := []string{}
	args := []any{}
	for _, o := range orders {
		if _, ok := seen[o.UserID]; !ok {
			args = append(args, o.UserID)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		seen[o.UserID] = append(seen[o.UserID], o)
	}

	query := fmt.Sprintf(`
		SELECT id, email, name, phone, address
		FROM users
		WHERE id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.Address); err != nil {
			return fmt.Errorf("failed to scan order user: %w", err)
		}
		for _, o := range seen[user.ID] {
			o.User = user
		}
	}

	return rows.Err()
}
