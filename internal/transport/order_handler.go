package transport

import (
	"net/http"
	"strconv"
	"time"

	"shopmall/internal/domain"
	"shopmall/internal/middleware"
	"shopmall/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemRequest is one directly-specified order line
type OrderItemRequest struct {
	ProductID string             `json:"productId" validate:"required,uuid"`
	Quantity  int                `json:"quantity" validate:"required,gte=1"`
	Options   domain.ItemOptions `json:"options"`
}

// ShippingRequest is the shipping sub-document of a checkout payload.
// Required-field checks run in the service so the first missing field is
// reported deterministically.
type ShippingRequest struct {
	RecipientName   string `json:"recipientName"`
	RecipientPhone  string `json:"recipientPhone"`
	Address         string `json:"address"`
	AddressDetail   string `json:"addressDetail"`
	PostalCode      string `json:"postalCode"`
	DeliveryRequest string `json:"deliveryRequest"`
	ShippingFee     int64  `json:"shippingFee" validate:"gte=0"`
}

// PaymentRequest is the payment sub-document of a checkout payload
type PaymentRequest struct {
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transactionId"`
}

// AmountsRequest is the optional amounts sub-document
type AmountsRequest struct {
	DiscountAmount int64 `json:"discountAmount" validate:"gte=0"`
}

// CreateOrderRequest represents the checkout payload
type CreateOrderRequest struct {
	CartItemIDs []string           `json:"cartItemIds"`
	Items       []OrderItemRequest `json:"items"`
	Shipping    ShippingRequest    `json:"shipping"`
	Payment     PaymentRequest     `json:"payment"`
	Amounts     *AmountsRequest    `json:"amounts"`
	MerchantUID string             `json:"merchantUid"`
}

// OrderRefundUpdate is the refund part of a payment update
type OrderRefundUpdate struct {
	Amount *int64  `json:"amount"`
	Reason *string `json:"reason"`
}

// OrderPaymentUpdate is the payment part of an order update
type OrderPaymentUpdate struct {
	Status        *string            `json:"status"`
	TransactionID *string            `json:"transactionId"`
	Refund        *OrderRefundUpdate `json:"refund"`
}

// OrderTrackingUpdate is the tracking part of an order update
type OrderTrackingUpdate struct {
	TrackingNumber *string `json:"trackingNumber"`
	Carrier        *string `json:"carrier"`
}

// OrderCancellationUpdate is the cancellation part of an order update
type OrderCancellationUpdate struct {
	CancelledAt *time.Time `json:"cancelledAt"`
	CancelledBy *string    `json:"cancelledBy"`
}

// UpdateOrderRequest represents the order update payload
type UpdateOrderRequest struct {
	Status       *string                  `json:"status"`
	Payment      *OrderPaymentUpdate      `json:"payment"`
	Tracking     *OrderTrackingUpdate     `json:"tracking"`
	Cancellation *OrderCancellationUpdate `json:"cancellation"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers order routes; every route requires auth and
// checkout is rate limited.
func (h *OrderHandler) RegisterRoutes(r chi.Router, auth, limit func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth)
		r.With(limit).Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.CancelOrder)
	})
}

// CreateOrder runs the checkout workflow
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	input := service.CreateOrderInput{
		Shipping: domain.ShippingInfo{
			RecipientName:   req.Shipping.RecipientName,
			RecipientPhone:  req.Shipping.RecipientPhone,
			Address:         req.Shipping.Address,
			AddressDetail:   req.Shipping.AddressDetail,
			PostalCode:      req.Shipping.PostalCode,
			DeliveryRequest: req.Shipping.DeliveryRequest,
			ShippingFee:     req.Shipping.ShippingFee,
		},
		PaymentMethod: domain.PaymentMethod(req.Payment.Method),
		PaymentAmount: req.Payment.Amount,
		TransactionID: req.Payment.TransactionID,
		MerchantUID:   req.MerchantUID,
	}
	if req.Amounts != nil {
		input.DiscountAmount = req.Amounts.DiscountAmount
	}

	for _, raw := range req.CartItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item id")
			return
		}
		input.CartItemIDs = append(input.CartItemIDs, id)
	}
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		input.Items = append(input.Items, service.OrderItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Options:   item.Options,
		})
	}

	order, err := h.orderService.Create(r.Context(), actor.UserID, input)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create order")
		return
	}

	h.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "order created",
		"order":   order,
	})
}

// ListOrders returns a filtered, paginated order listing; customers see
// only their own orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	q := r.URL.Query()
	input := service.ListOrdersInput{}

	if v := q.Get("status"); v != "" {
		s := domain.OrderStatus(v)
		input.Status = &s
	}
	if v := q.Get("paymentMethod"); v != "" {
		m := domain.PaymentMethod(v)
		input.PaymentMethod = &m
	}
	if v := q.Get("dateFrom"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid dateFrom, expected YYYY-MM-DD")
			return
		}
		input.DateFrom = &t
	}
	if v := q.Get("dateTo"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid dateTo, expected YYYY-MM-DD")
			return
		}
		input.DateTo = &t
	}
	input.Page, _ = strconv.Atoi(q.Get("page"))
	input.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.orderService.List(r.Context(), actor, input)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message":    "orders retrieved",
		"orders":     page.Orders,
		"count":      page.Count,
		"total":      page.Total,
		"page":       page.Page,
		"totalPages": page.TotalPages,
	})
}

// GetOrder returns one order
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.GetByID(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "order retrieved",
		"order":   order,
	})
}

// UpdateOrder applies status, payment, tracking and refund changes
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	input := service.UpdateOrderInput{}
	if req.Status != nil {
		s := domain.OrderStatus(*req.Status)
		input.Status = &s
	}
	if req.Payment != nil {
		if req.Payment.Status != nil {
			s := domain.PaymentStatus(*req.Payment.Status)
			input.PaymentStatus = &s
		}
		input.TransactionID = req.Payment.TransactionID
		if req.Payment.Refund != nil {
			input.RefundAmount = req.Payment.Refund.Amount
			input.RefundReason = req.Payment.Refund.Reason
		}
	}
	if req.Tracking != nil {
		input.TrackingNumber = req.Tracking.TrackingNumber
		input.Carrier = req.Tracking.Carrier
	}
	if req.Cancellation != nil {
		input.CancelledAt = req.Cancellation.CancelledAt
		if req.Cancellation.CancelledBy != nil {
			by := domain.CancelledBy(*req.Cancellation.CancelledBy)
			input.CancelledBy = &by
		}
	}

	order, err := h.orderService.Update(r.Context(), actor, id, input)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "order updated",
		"order":   order,
	})
}

// CancelOrder cancels an order still in a cancellable status
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.Cancel(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to cancel order")
		return
	}

	h.logger.Info("Order cancelled",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "order cancelled",
		"order":   order,
	})
}
