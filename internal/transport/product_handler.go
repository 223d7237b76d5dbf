package transport

import (
	"net/http"
	"strconv"

	"shopmall/internal/domain"
	"shopmall/internal/middleware"
	"shopmall/internal/repository"
	"shopmall/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	SKU         string   `json:"sku" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Price       int64    `json:"price" validate:"gte=0"`
	Category    string   `json:"category" validate:"required"`
	Images      []string `json:"images"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Stock       int      `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest represents the product update payload
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Price       *int64   `json:"price"`
	Category    *string  `json:"category"`
	Images      []string `json:"images"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Stock       *int     `json:"stock"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers catalog routes; reads are public, writes are
// admin-gated
func (h *ProductHandler) RegisterRoutes(r chi.Router, auth, admin func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/sku/{sku}", h.GetProductBySKU)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(auth, admin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})
}

// ListProducts returns a filtered catalog page
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Search: q.Get("search"),
	}
	if v := q.Get("category"); v != "" {
		c := domain.Category(v)
		filter.Category = &c
	}
	if v := q.Get("status"); v != "" {
		s := domain.ProductStatus(v)
		filter.Status = &s
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.productService.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message":    "products retrieved",
		"products":   page.Products,
		"count":      page.Count,
		"total":      page.Total,
		"page":       page.Page,
		"totalPages": page.TotalPages,
	})
}

// GetProduct returns one product by ID
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "product retrieved",
		"product": product,
	})
}

// GetProductBySKU returns one product by SKU
func (h *ProductHandler) GetProductBySKU(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.GetBySKU(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "product retrieved",
		"product": product,
	})
}

// CreateProduct adds a catalog entry
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	product, err := h.productService.Create(r.Context(), service.CreateProductInput{
		SKU:         req.SKU,
		Name:        req.Name,
		Price:       req.Price,
		Category:    domain.Category(req.Category),
		Images:      req.Images,
		Description: req.Description,
		Status:      domain.ProductStatus(req.Status),
		Stock:       req.Stock,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "product created",
		"product": product,
	})
}

// UpdateProduct modifies a catalog entry
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	input := service.UpdateProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Images:      req.Images,
		Description: req.Description,
		Stock:       req.Stock,
	}
	if req.Category != nil {
		c := domain.Category(*req.Category)
		input.Category = &c
	}
	if req.Status != nil {
		s := domain.ProductStatus(*req.Status)
		input.Status = &s
	}

	product, err := h.productService.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "product updated",
		"product": product,
	})
}

// DeleteProduct removes a catalog entry and echoes the deleted row
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted",
		zap.String("product_id", id.String()),
		zap.String("sku", product.SKU),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "product deleted",
		"product": product,
	})
}
