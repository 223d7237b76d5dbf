package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func rateLimitedHandler(t *testing.T, mr *miniredis.Miniredis, limit int, prefix string) (http.Handler, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            1 * time.Second,
		KeyPrefix:         prefix,
	}

	handler := RateLimitMiddleware(client, cfg, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return handler, client
}

func TestProperty_ExcessRequestsGetThrottled(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests beyond the window limit return 429", prop.ForAll(
		func(limit int, excess int) bool {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("failed to start miniredis: %v", err)
				return false
			}
			defer mr.Close()

			handler, client := rateLimitedHandler(t, mr, limit, "throttle")
			defer client.Close()

			allowed := 0
			blocked := 0
			for i := 0; i < limit+excess; i++ {
				req := httptest.NewRequest("GET", "/api/products", nil)
				req.RemoteAddr = "10.0.0.7"
				w := httptest.NewRecorder()

				handler.ServeHTTP(w, req)

				switch w.Code {
				case http.StatusOK:
					allowed++
				case http.StatusTooManyRequests:
					blocked++
				}
			}

			return allowed == limit && blocked == excess
		},
		gen.IntRange(3, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_RateLimitHeadersPresent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("responses carry limit and remaining headers", prop.ForAll(
		func(limit int) bool {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("failed to start miniredis: %v", err)
				return false
			}
			defer mr.Close()

			handler, client := rateLimitedHandler(t, mr, limit, "headers")
			defer client.Close()

			req := httptest.NewRequest("GET", "/api/cart", nil)
			req.RemoteAddr = "10.0.0.8"
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Header().Get("X-RateLimit-Limit") != "" &&
				w.Header().Get("X-RateLimit-Remaining") != ""
		},
		gen.IntRange(5, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitKeyedPerUser(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	handler, client := rateLimitedHandler(t, mr, 2, "peruser")
	defer client.Close()

	send := func(userID string) int {
		req := httptest.NewRequest("GET", "/api/orders", nil)
		req.RemoteAddr = "10.0.0.9"
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	// First user exhausts their window
	for i := 0; i < 2; i++ {
		if code := send("user-a"); code != http.StatusOK {
			t.Fatalf("request %d for user-a: got %d, want 200", i+1, code)
		}
	}
	if code := send("user-a"); code != http.StatusTooManyRequests {
		t.Fatalf("exhausted user-a: got %d, want 429", code)
	}

	// A different user is unaffected
	if code := send("user-b"); code != http.StatusOK {
		t.Fatalf("user-b: got %d, want 200", code)
	}
}

func TestRateLimitFailsOpenWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	handler, client := rateLimitedHandler(t, mr, 1, "failopen")
	defer client.Close()

	mr.Close()

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/products", nil)
		req.RemoteAddr = "10.0.0.10"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d with redis down: got %d, want 200", i+1, w.Code)
		}
	}
}
