package transport

import (
	"errors"
	"net/http"
	"time"

	"shopmall/internal/middleware"
	"shopmall/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondServiceError translates a service-layer error into the wire error
// shape, falling back to a 500 with the given message.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var (
		inputErr  *service.InputError
		notFound  *service.NotFoundError
		conflict  *service.ConflictError
		duplicate *service.DuplicateOrderError
		gateway   *service.GatewayError
	)

	switch {
	case errors.As(err, &inputErr):
		var details any
		if inputErr.Detail != "" {
			details = inputErr.Detail
		}
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, inputErr.Message, details)
	case errors.As(err, &gateway):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "payment verification failed", gateway.Reason)
	case errors.As(err, &notFound):
		middleware.RespondWithError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &duplicate):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, duplicate.Error(), map[string]any{
			"orderId":     duplicate.OrderID.String(),
			"orderNumber": duplicate.OrderNumber,
			"createdAt":   duplicate.CreatedAt.Format(time.RFC3339),
		})
	case errors.As(err, &conflict):
		var details any
		if conflict.Detail != "" {
			details = conflict.Detail
		}
		middleware.RespondWithErrorDetails(w, http.StatusConflict, conflict.Message, details)
	case errors.Is(err, service.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, "you do not have access to this resource")
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// respondDecodeError reports a body that failed decoding or validation.
func respondDecodeError(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

// currentActor reads the authenticated caller from the request context.
func currentActor(r *http.Request) (service.Actor, bool) {
	idStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, false
	}
	role, _ := middleware.GetUserRole(r.Context())
	return service.Actor{UserID: id, Admin: role == "admin"}, true
}

// uuidParam parses a chi URL parameter as a UUID.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
