package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"shopmall/internal/domain"
	"shopmall/internal/events"
	"shopmall/internal/payment"
	"shopmall/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// duplicateWindow is how far back identical-order detection looks.
const duplicateWindow = 5 * time.Minute

// duplicateStatuses are the order states a prior order may be in to count
// as a duplicate. Cancelled and delivered orders never block a reorder.
var duplicateStatuses = []domain.OrderStatus{domain.OrderReceived, domain.OrderPaid}

// Actor identifies the authenticated caller for ownership checks.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// OrderItemInput is one directly-specified order line.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Options   domain.ItemOptions
}

// CreateOrderInput carries a checkout request. Items come either from
// CartItemIDs or from Items; CartItemIDs wins when both are present.
type CreateOrderInput struct {
	CartItemIDs    []uuid.UUID
	Items          []OrderItemInput
	Shipping       domain.ShippingInfo
	PaymentMethod  domain.PaymentMethod
	PaymentAmount  int64
	TransactionID  string
	MerchantUID    string
	DiscountAmount int64
}

// UpdateOrderInput carries the mutable fields of an order update. Nil
// fields are left unchanged.
type UpdateOrderInput struct {
	Status         *domain.OrderStatus
	PaymentStatus  *domain.PaymentStatus
	TransactionID  *string
	TrackingNumber *string
	Carrier        *string
	RefundAmount   *int64
	RefundReason   *string
	CancelledAt    *time.Time
	CancelledBy    *domain.CancelledBy
}

// OrderPage is a listing result with pagination totals.
type OrderPage struct {
	Orders     []*domain.Order
	Count      int
	Total      int
	Page       int
	TotalPages int
}

// ListOrdersInput narrows an order listing.
type ListOrdersInput struct {
	Status        *domain.OrderStatus
	PaymentMethod *domain.PaymentMethod
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	Limit         int
}

// OrderService defines the interface for order business logic
type OrderService interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, actor Actor, input ListOrdersInput) (*OrderPage, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateOrderInput) (*domain.Order, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	verifier    payment.Verifier
	publisher   *events.Publisher
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	verifier payment.Verifier,
	publisher *events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		verifier:    verifier,
		publisher:   publisher,
		logger:      logger,
	}
}

// Create runs the checkout workflow: validate shipping and payment, reject
// duplicate submissions, verify the gateway transaction, resolve and check
// the items, then persist and clean up the cart.
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*domain.Order, error) {
	if err := validateShipping(input.Shipping); err != nil {
		return nil, err
	}
	if input.PaymentMethod == "" {
		return nil, NewInputError("payment method is required", "")
	}
	if !input.PaymentMethod.Valid() {
		return nil, NewInputError("invalid payment method", string(input.PaymentMethod))
	}
	if input.PaymentAmount <= 0 {
		return nil, NewInputError("payment amount must be greater than zero", "")
	}
	if input.DiscountAmount < 0 {
		return nil, NewInputError("discount amount must not be negative", "")
	}
	if len(input.CartItemIDs) == 0 && len(input.Items) == 0 {
		return nil, NewInputError("order must contain at least one item", "")
	}

	var items []domain.OrderItem
	fromCart := len(input.CartItemIDs) > 0
	if fromCart {
		cartLines, err := s.resolveCartItems(ctx, userID, input.CartItemIDs)
		if err != nil {
			return nil, err
		}
		items = cartLines

		if err := s.checkDuplicate(ctx, userID, items); err != nil {
			return nil, err
		}
	}

	// The gateway is consulted before any availability check, so a
	// rejected transaction always surfaces as a verification failure.
	paymentStatus := domain.PaymentPending
	var paidAt *time.Time
	if input.TransactionID != "" {
		if _, err := s.verifier.Verify(ctx, input.TransactionID, input.MerchantUID, input.PaymentAmount); err != nil {
			return nil, &GatewayError{Reason: gatewayReason(err)}
		}
		paymentStatus = domain.PaymentCompleted
		now := time.Now()
		paidAt = &now
	}

	if !fromCart {
		directItems, err := s.resolveDirectItems(ctx, input.Items)
		if err != nil {
			return nil, err
		}
		items = directItems
	}

	// Availability is all-or-nothing: any sold-out or short-stocked line
	// aborts the whole order.
	for _, item := range items {
		if err := checkAvailability(item.Product, item.Quantity); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order := &domain.Order{
		ID:       uuid.New(),
		UserID:   userID,
		Items:    items,
		Shipping: input.Shipping,
		Payment: domain.PaymentInfo{
			Method:        input.PaymentMethod,
			Status:        paymentStatus,
			Amount:        input.PaymentAmount,
			PaidAt:        paidAt,
			TransactionID: input.TransactionID,
		},
		Amounts: domain.Amounts{
			DiscountAmount: input.DiscountAmount,
			FinalAmount:    input.PaymentAmount,
		},
		Status:    domain.OrderReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if fromCart {
		if _, err := s.cartRepo.DeleteByIDs(ctx, userID, input.CartItemIDs); err != nil {
			// The order stands; a stale cart is recoverable.
			s.logger.Warn("Failed to remove ordered items from cart",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
		}
	}

	if err := s.publisher.OrderCreated(order); err != nil {
		s.logger.Warn("Failed to publish order created event",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}

	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, actor Actor, input ListOrdersInput) (*OrderPage, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, NewInputError("invalid order status", string(*input.Status))
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.Valid() {
		return nil, NewInputError("invalid payment method", string(*input.PaymentMethod))
	}

	page, limit := normalizePage(input.Page, input.Limit)
	filter := repository.OrderFilter{
		Status:        input.Status,
		PaymentMethod: input.PaymentMethod,
		DateFrom:      input.DateFrom,
		Page:          page,
		Limit:         limit,
	}
	if input.DateTo != nil {
		// Inclusive: extend the cutoff to the end of that day.
		end := input.DateTo.Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}
	if !actor.Admin {
		filter.UserID = &actor.UserID
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return &OrderPage{
		Orders:     orders,
		Count:      len(orders),
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// Update applies an admin's (or, for cancellation only, the owner's)
// changes to an order's status, payment and tracking fields.
func (s *orderService) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateOrderInput) (*domain.Order, error) {
	order, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !input.Status.Valid() {
		return nil, NewInputError("invalid order status", string(*input.Status))
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.Valid() {
		return nil, NewInputError("invalid payment status", string(*input.PaymentStatus))
	}
	if input.CancelledBy != nil && !input.CancelledBy.Valid() {
		return nil, NewInputError("invalid cancelledBy", string(*input.CancelledBy))
	}

	// Customers may only cancel through an update.
	if !actor.Admin {
		if input.Status == nil || *input.Status != domain.OrderCancelled ||
			input.PaymentStatus != nil || input.TrackingNumber != nil ||
			input.Carrier != nil || input.RefundAmount != nil || input.RefundReason != nil ||
			input.CancelledAt != nil || input.CancelledBy != nil {
			return nil, ErrForbidden
		}
	}

	now := time.Now()

	if input.Status != nil && *input.Status != order.Status {
		if err := s.applyStatus(order, *input.Status, actor, now); err != nil {
			return nil, err
		}
	}

	if input.PaymentStatus != nil && *input.PaymentStatus != order.Payment.Status {
		order.Payment.Status = *input.PaymentStatus
		if *input.PaymentStatus == domain.PaymentCompleted && order.Payment.PaidAt == nil {
			order.Payment.PaidAt = &now
		}
		if (*input.PaymentStatus == domain.PaymentRefunded || *input.PaymentStatus == domain.PaymentPartialRefund) &&
			order.Payment.Refund.RefundedAt == nil {
			order.Payment.Refund.RefundedAt = &now
		}
	}
	if input.TransactionID != nil {
		order.Payment.TransactionID = *input.TransactionID
	}
	if input.RefundAmount != nil {
		if *input.RefundAmount < 0 || *input.RefundAmount > order.Payment.Amount {
			return nil, NewInputError("refund amount out of range", "")
		}
		order.Payment.Refund.Amount = *input.RefundAmount
	}
	if input.RefundReason != nil {
		order.Payment.Refund.Reason = *input.RefundReason
	}
	if input.TrackingNumber != nil {
		order.Tracking.TrackingNumber = *input.TrackingNumber
	}
	if input.Carrier != nil {
		order.Tracking.Carrier = *input.Carrier
	}
	if input.CancelledAt != nil {
		order.Cancellation.CancelledAt = input.CancelledAt
	}
	if input.CancelledBy != nil {
		order.Cancellation.CancelledBy = *input.CancelledBy
	}

	order.UpdatedAt = now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	return order, nil
}

// Cancel moves a cancellable order to 주문취소 and publishes the event.
func (s *orderService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error) {
	order, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.Cancellable() {
		return nil, NewInputError(
			"order can no longer be cancelled",
			fmt.Sprintf("current status is %s", order.Status),
		)
	}

	now := time.Now()
	order.Status = domain.OrderCancelled
	order.Cancellation.CancelledAt = &now
	order.Cancellation.CancelledBy = cancelledBy(actor)
	order.UpdatedAt = now

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	if err := s.publisher.OrderCancelled(order); err != nil {
		s.logger.Warn("Failed to publish order cancelled event",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}

	return order, nil
}

// applyStatus transitions the order status, stamping the timestamps that
// come with shipping and cancellation states.
func (s *orderService) applyStatus(order *domain.Order, status domain.OrderStatus, actor Actor, now time.Time) error {
	if status == domain.OrderCancelled {
		if !order.Status.Cancellable() {
			return NewInputError(
				"order can no longer be cancelled",
				fmt.Sprintf("current status is %s", order.Status),
			)
		}
		if order.Cancellation.CancelledAt == nil {
			order.Cancellation.CancelledAt = &now
			order.Cancellation.CancelledBy = cancelledBy(actor)
		}
	}
	if status == domain.OrderShipping && order.Tracking.ShippedAt == nil {
		order.Tracking.ShippedAt = &now
	}
	if status == domain.OrderDelivered && order.Tracking.DeliveredAt == nil {
		order.Tracking.DeliveredAt = &now
	}
	order.Status = status
	return nil
}

func cancelledBy(actor Actor) domain.CancelledBy {
	if actor.Admin {
		return domain.CancelledByAdmin
	}
	return domain.CancelledByCustomer
}

// resolveCartItems turns the user's cart rows into order lines.
// Availability is checked by the caller, after the duplicate guard and
// the gateway call have run.
func (s *orderService) resolveCartItems(ctx context.Context, userID uuid.UUID, cartItemIDs []uuid.UUID) ([]domain.OrderItem, error) {
	cartItems, err := s.cartRepo.FindByIDsForUser(ctx, userID, cartItemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	if len(cartItems) == 0 {
		return nil, &NotFoundError{Resource: "cart item"}
	}

	items := make([]domain.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		items = append(items, domain.OrderItem{
			ID:        uuid.New(),
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Options:   ci.Options,
			Product:   ci.Product,
		})
	}
	return items, nil
}

// resolveDirectItems turns directly-specified lines into order lines by
// loading each product.
func (s *orderService) resolveDirectItems(ctx context.Context, inputs []OrderItemInput) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, NewInputError("quantity must be at least 1", "")
		}
		product, err := s.productRepo.FindByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, &NotFoundError{Resource: "product"}
			}
			return nil, fmt.Errorf("failed to find product: %w", err)
		}
		items = append(items, domain.OrderItem{
			ID:        uuid.New(),
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Options:   in.Options,
			Product:   product,
		})
	}
	return items, nil
}

// checkDuplicate rejects the order if the user placed one with the same
// product set within the last five minutes. Lookup failures count as
// not-duplicate so checkout never breaks on the guard itself.
func (s *orderService) checkDuplicate(ctx context.Context, userID uuid.UUID, items []domain.OrderItem) error {
	since := time.Now().Add(-duplicateWindow)
	recent, err := s.orderRepo.FindRecentByUser(ctx, userID, since, duplicateStatuses)
	if err != nil {
		s.logger.Warn("Duplicate order check failed", zap.Error(err))
		return nil
	}

	key := productSetKey(items)
	for _, prior := range recent {
		if productSetKey(prior.Items) == key {
			return &DuplicateOrderError{
				OrderID:     prior.ID,
				OrderNumber: prior.OrderNumber,
				CreatedAt:   prior.CreatedAt,
			}
		}
	}
	return nil
}

// productSetKey canonicalizes an item list to its sorted unique product
// IDs, so duplicate detection compares sets, not sequences.
func productSetKey(items []domain.OrderItem) string {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

func checkAvailability(product *domain.Product, quantity int) error {
	if product == nil {
		return &NotFoundError{Resource: "product"}
	}
	if product.Status != domain.ProductOnSale {
		return NewInputError("product is not available for sale", product.Name)
	}
	if product.Stock < quantity {
		return NewInputError("insufficient stock", product.Name)
	}
	return nil
}

// validateShipping checks required shipping fields in a fixed order so the
// first missing field is always the one reported.
func validateShipping(shipping domain.ShippingInfo) error {
	if strings.TrimSpace(shipping.RecipientName) == "" {
		return NewInputError("shipping information is incomplete", "recipientName is required")
	}
	if strings.TrimSpace(shipping.RecipientPhone) == "" {
		return NewInputError("shipping information is incomplete", "recipientPhone is required")
	}
	if strings.TrimSpace(shipping.Address) == "" {
		return NewInputError("shipping information is incomplete", "address is required")
	}
	return nil
}

func gatewayReason(err error) string {
	if errors.Is(err, payment.ErrAmountMismatch) {
		return "paid amount does not match order amount"
	}
	return err.Error()
}
