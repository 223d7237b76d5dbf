package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopmall/internal/domain"
	"shopmall/internal/middleware"
	"shopmall/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stubOrderService lets each test script the service layer directly.
type stubOrderService struct {
	create  func(ctx context.Context, userID uuid.UUID, input service.CreateOrderInput) (*domain.Order, error)
	getByID func(ctx context.Context, actor service.Actor, id uuid.UUID) (*domain.Order, error)
	update  func(ctx context.Context, actor service.Actor, id uuid.UUID, input service.UpdateOrderInput) (*domain.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, userID uuid.UUID, input service.CreateOrderInput) (*domain.Order, error) {
	return s.create(ctx, userID, input)
}

func (s *stubOrderService) GetByID(ctx context.Context, actor service.Actor, id uuid.UUID) (*domain.Order, error) {
	return s.getByID(ctx, actor, id)
}

func (s *stubOrderService) List(ctx context.Context, actor service.Actor, input service.ListOrdersInput) (*service.OrderPage, error) {
	return &service.OrderPage{Page: 1, TotalPages: 0}, nil
}

func (s *stubOrderService) Update(ctx context.Context, actor service.Actor, id uuid.UUID, input service.UpdateOrderInput) (*domain.Order, error) {
	return s.update(ctx, actor, id, input)
}

func (s *stubOrderService) Cancel(ctx context.Context, actor service.Actor, id uuid.UUID) (*domain.Order, error) {
	return &domain.Order{ID: id, Status: domain.OrderCancelled}, nil
}

// fakeAuth injects admin claims the way AuthMiddleware would.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, uuid.NewString())
		ctx = context.WithValue(ctx, middleware.UserRoleKey, "admin")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func noopMiddleware(next http.Handler) http.Handler { return next }

func newOrderRouter(svc service.OrderService, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	NewOrderHandler(svc, zap.NewNop()).RegisterRoutes(r, fakeAuth, limit)
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestCreateOrder_ShortStockIsBadRequest(t *testing.T) {
	svc := &stubOrderService{
		create: func(ctx context.Context, userID uuid.UUID, input service.CreateOrderInput) (*domain.Order, error) {
			return nil, service.NewInputError("insufficient stock", "암막 커튼")
		},
	}
	router := newOrderRouter(svc, noopMiddleware)

	payload := `{
		"items": [{"productId": "` + uuid.NewString() + `", "quantity": 2}],
		"shipping": {"recipientName": "홍길동", "recipientPhone": "010-1111-2222", "address": "서울"},
		"payment": {"method": "무통장입금", "amount": 20000}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, rec)
	if body["error"] != "insufficient stock" {
		t.Errorf("error = %v, want %q", body["error"], "insufficient stock")
	}
}

func TestUpdateOrder_NestedRefundAndCancellationDecoded(t *testing.T) {
	var captured service.UpdateOrderInput
	svc := &stubOrderService{
		update: func(ctx context.Context, actor service.Actor, id uuid.UUID, input service.UpdateOrderInput) (*domain.Order, error) {
			captured = input
			return &domain.Order{ID: id}, nil
		},
	}
	router := newOrderRouter(svc, noopMiddleware)

	payload := `{
		"payment": {"refund": {"amount": 5000, "reason": "damaged in transit"}},
		"cancellation": {"cancelledBy": "admin"}
	}`
	req := httptest.NewRequest(http.MethodPut, "/api/orders/"+uuid.NewString(), strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if captured.RefundAmount == nil || *captured.RefundAmount != 5000 {
		t.Errorf("refund amount not decoded from payment.refund: %+v", captured.RefundAmount)
	}
	if captured.RefundReason == nil || *captured.RefundReason != "damaged in transit" {
		t.Errorf("refund reason not decoded from payment.refund: %+v", captured.RefundReason)
	}
	if captured.CancelledBy == nil || *captured.CancelledBy != domain.CancelledByAdmin {
		t.Errorf("cancelledBy not decoded from cancellation: %+v", captured.CancelledBy)
	}
}

func TestOrderReadResponsesCarryMessage(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{
		getByID: func(ctx context.Context, actor service.Actor, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderReceived}, nil
		},
	}
	router := newOrderRouter(svc, noopMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["message"] != "order retrieved" {
		t.Errorf("get message = %v, want %q", body["message"], "order retrieved")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["message"] != "orders retrieved" {
		t.Errorf("list message = %v, want %q", body["message"], "orders retrieved")
	}
}

// Login and checkout go through the rate limiter; other routes do not.
func TestRateLimiterGuardsLoginAndCheckoutOnly(t *testing.T) {
	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Limited", "1")
			next.ServeHTTP(w, r)
		})
	}

	svc := &stubOrderService{
		create: func(ctx context.Context, userID uuid.UUID, input service.CreateOrderInput) (*domain.Order, error) {
			return nil, service.NewInputError("order must contain at least one item", "")
		},
	}
	router := chi.NewRouter()
	NewOrderHandler(svc, zap.NewNop()).RegisterRoutes(router, fakeAuth, marker)
	userHandler, _ := newTestUserHandler()
	userHandler.RegisterRoutes(router, fakeAuth, noopMiddleware, marker)

	tests := []struct {
		method  string
		target  string
		body    string
		limited bool
	}{
		{http.MethodPost, "/api/orders/", `{}`, true},
		{http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"wrong-password"}`, true},
		{http.MethodGet, "/api/orders/", "", false},
		{http.MethodGet, "/api/auth/me", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		got := rec.Header().Get("X-Limited") == "1"
		if got != tt.limited {
			t.Errorf("%s %s: limited = %v, want %v", tt.method, tt.target, got, tt.limited)
		}
	}
}
