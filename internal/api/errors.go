package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"order-assistant/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

var errInternal = &apperr.Error{Code: "INTERNAL_ERROR", Message: "something went wrong, please try again"}

// bindJSON decodes the body into obj, rejecting unknown fields, and runs binding validation
func bindJSON(c *gin.Context, obj interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		return apperr.New(apperr.CodeInvalidRequest, "invalid request body: %v", err)
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return apperr.New(apperr.CodeInvalidRequest, "invalid request body: %v", err)
	}
	return nil
}

// statusFor maps an error code to its HTTP status
func statusFor(err *apperr.Error) int {
	switch err.Code {
	case apperr.CodeInvalidRequest:
		return http.StatusBadRequest
	case apperr.CodeItemNotFound, apperr.CodeTenantNotFound, apperr.CodeOrderNotFound:
		return http.StatusNotFound
	}

	switch err.Kind() {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConsistency:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders typed errors as they are. Anything else is logged and
// replaced with an opaque message.
func (h *Handler) writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(statusFor(appErr), gin.H{"error": appErr})
		return
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternal})
}
