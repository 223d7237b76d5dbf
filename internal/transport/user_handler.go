package transport

import (
	"net/http"
	"time"

	"shopmall/internal/domain"
	"shopmall/internal/middleware"
	"shopmall/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the signup request payload
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest represents a profile or admin user update payload
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	UserType *string `json:"userType"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// UserHandler handles HTTP requests for auth and account operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers auth and user routes. limit guards the login
// endpoint against credential stuffing.
func (h *UserHandler) RegisterRoutes(r chi.Router, auth, admin, limit func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(limit).Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/me", h.Me)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/me", h.Me)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth, admin)
			r.Get("/", h.ListUsers)
			r.Delete("/{id}", h.DeleteUser)
		})
	})
}

// Register handles account signup
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		respondDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to register user")
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user":    user,
	})
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		respondDecodeError(w, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		respondServiceError(w, h.logger, err, "failed to log in")
		return
	}

	h.logger.Info("User logged in", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		Message:   "login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}

// Me returns the authenticated user's profile
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	user, err := h.userService.GetByID(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "user retrieved",
		"user":    user,
	})
}

// GetUser returns one user; customers may only fetch themselves
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !actor.Admin && actor.UserID != id {
		middleware.RespondWithError(w, http.StatusForbidden, "you do not have access to this resource")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "user retrieved",
		"user":    user,
	})
}

// ListUsers returns all users, optionally filtered by type or email
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var userType *domain.UserType
	if v := r.URL.Query().Get("userType"); v != "" {
		t := domain.UserType(v)
		userType = &t
	}

	users, err := h.userService.List(r.Context(), userType, r.URL.Query().Get("email"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list users")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "users retrieved",
		"users":   users,
		"count":   len(users),
	})
}

// UpdateUser updates a profile; customers may only update themselves and
// may not change their user type
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !actor.Admin && actor.UserID != id {
		middleware.RespondWithError(w, http.StatusForbidden, "you do not have access to this resource")
		return
	}

	var req UpdateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.UserType != nil && !actor.Admin {
		middleware.RespondWithError(w, http.StatusForbidden, "only admins may change user types")
		return
	}

	input := service.UpdateUserInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
		Password: req.Password,
	}
	if req.UserType != nil {
		t := domain.UserType(*req.UserType)
		input.UserType = &t
	}

	user, err := h.userService.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "user updated",
		"user":    user,
	})
}

// DeleteUser removes an account
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]any{"message": "user deleted"})
}
