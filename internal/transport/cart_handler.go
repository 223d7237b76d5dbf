package transport

import (
	"encoding/json"
	"net/http"

	"shopmall/internal/domain"
	"shopmall/internal/middleware"
	"shopmall/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	ProductID string             `json:"productId" validate:"required,uuid"`
	Quantity  int                `json:"quantity" validate:"required,gte=1"`
	Options   domain.ItemOptions `json:"options"`
}

// UpdateCartItemRequest represents the cart item update payload
type UpdateCartItemRequest struct {
	Quantity int                 `json:"quantity" validate:"required,gte=1"`
	Options  *domain.ItemOptions `json:"options"`
}

// BulkDeleteRequest selects cart items for bulk removal
type BulkDeleteRequest struct {
	CartItemIDs []string `json:"cartItemIds"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers cart routes; every route requires auth
func (h *CartHandler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", h.GetCart)
		r.Post("/", h.AddItem)
		r.Put("/{id}", h.UpdateItem)
		r.Delete("/{id}", h.RemoveItem)
		r.Delete("/", h.ClearOrRemoveItems)
	})
}

// GetCart returns the caller's cart with its total
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	cart, err := h.cartService.Get(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message":     "cart retrieved",
		"count":       len(cart.Items),
		"totalAmount": cart.TotalAmount,
		"items":       cart.Items,
	})
}

// AddItem puts a product in the caller's cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	var req AddCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	item, err := h.cartService.AddItem(r.Context(), actor.UserID, productID, req.Quantity, req.Options)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to add cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message":  "item added to cart",
		"cartItem": item,
	})
}

// UpdateItem changes quantity or options of a cart item
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item id")
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	item, err := h.cartService.UpdateItem(r.Context(), actor.UserID, id, req.Quantity, req.Options)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message":  "cart item updated",
		"cartItem": item,
	})
}

// RemoveItem deletes one cart item
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item id")
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), actor.UserID, id); err != nil {
		respondServiceError(w, h.logger, err, "failed to remove cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{"message": "cart item removed"})
}

// ClearOrRemoveItems empties the cart, or removes the items named in an
// optional body
func (h *CartHandler) ClearOrRemoveItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	var req BulkDeleteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if len(req.CartItemIDs) == 0 {
		removed, err := h.cartService.Clear(r.Context(), actor.UserID)
		if err != nil {
			respondServiceError(w, h.logger, err, "failed to clear cart")
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
			"message": "cart cleared",
			"removed": removed,
		})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.CartItemIDs))
	for _, raw := range req.CartItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item id")
			return
		}
		ids = append(ids, id)
	}

	removed, err := h.cartService.RemoveItems(r.Context(), actor.UserID, ids)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to remove cart items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "cart items removed",
		"removed": removed,
	})
}
