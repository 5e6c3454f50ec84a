package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func abort(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: kind, Message: msg})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind error) int {
	switch kind {
	case domain.ErrValidation, domain.ErrPaymentVerification:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrInvalidTransition:
		return http.StatusConflict
	case domain.ErrUpstreamGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Storage and unclassified errors are not
// echoed to the client.
func fail(c *gin.Context, err error) {
	kind := domain.Kind(err)
	_ = c.Error(err)
	switch kind {
	case nil:
		abort(c, http.StatusInternalServerError, "internal_error", "internal error")
	case domain.ErrPersistence:
		abort(c, http.StatusInternalServerError, kind.Error(), "storage unavailable, retry the request")
	default:
		abort(c, statusOf(kind), kind.Error(), err.Error())
	}
}

func badRequest(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, domain.ErrValidation.Error(), err.Error())
}
