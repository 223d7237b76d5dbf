package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"shopmall/internal/config"
	"shopmall/internal/events"
	custommiddleware "shopmall/internal/middleware"
	"shopmall/internal/payment"
	"shopmall/internal/repository"
	"shopmall/internal/service"
	"shopmall/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        *sql.DB
	redis     *redis.Client
	publisher *events.Publisher
}

// NewServer wires repositories, services and handlers into a configured
// HTTP server. redisClient and publisher may be nil; rate limiting and
// event publishing are then disabled.
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client, publisher *events.Publisher) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", healthHandler(db))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// External collaborators
	verifier := payment.NewClient(cfg.Payment)

	// Services
	tokenExpiry := time.Duration(cfg.JWT.ExpiryHrs) * time.Hour
	userService := service.NewUserService(userRepo, cfg.JWT.Secret, tokenExpiry)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, productRepo, verifier, publisher, logger)

	// Handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(productService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)

	auth := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	admin := custommiddleware.RequireAdmin(logger)

	// Login and checkout are rate limited when Redis is configured; the
	// rest of the API is not.
	limit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		limit = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 30,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit:sensitive",
		}, logger)
	}

	// API routes share the store-availability gate.
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.StoreCheckMiddleware(db, logger))

		userHandler.RegisterRoutes(r, auth, admin, limit)
		productHandler.RegisterRoutes(r, auth, admin)
		cartHandler.RegisterRoutes(r, auth)
		orderHandler.RegisterRoutes(r, auth, limit)
	})

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","database":"up"}`))
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
