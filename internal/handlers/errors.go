package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/validation"
)

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

func abortValidation(c *gin.Context, verr *validation.Error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "validation_failed",
		"message": verr.Error(),
		"fields":  verr.Fields,
	})
}

// abortStoreError maps domain and store errors onto the error response.
func abortStoreError(c *gin.Context, err error) {
	_ = c.Error(err)

	var invalid *orders.InvalidTransitionError
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		abortValidation(c, verr)
	case errors.As(err, &invalid):
		abortError(c, http.StatusConflict, "invalid_transition", invalid.Error())
	case errors.Is(err, orders.ErrReasonRequired):
		abortValidation(c, validation.NewError("reason", "must not be blank"))
	case errors.Is(err, orders.ErrStatusMismatch):
		abortError(c, http.StatusConflict, "status_changed", "the order was changed by someone else, reload it")
	case errors.Is(err, orders.ErrNotFound):
		abortError(c, http.StatusNotFound, "not_found", "order not found")
	default:
		abortError(c, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
