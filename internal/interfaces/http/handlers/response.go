// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// respondError maps a domain error onto the response. Messages of
// validation and not-found errors are shown as is; everything else gets the
// public message for its kind.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var lineErr *cart.LineFailuresError
	if errors.As(err, &lineErr) {
		kind := lineErr.Kind()
		c.JSON(apperrors.HTTPStatus(kind), gin.H{
			"error":     apperrors.PublicMessage(kind),
			"kind":      kind,
			"retryable": apperrors.Retryable(kind),
			"failures":  lineErr.Failures,
		})
		return
	}

	kind := apperrors.KindOf(err)
	message := apperrors.PublicMessage(kind)

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch kind {
		case apperrors.KindValidation, apperrors.KindNotFound, apperrors.KindInvalidCartLine:
			message = appErr.Message
		}
	}

	c.JSON(apperrors.HTTPStatus(kind), gin.H{
		"error":     message,
		"kind":      kind,
		"retryable": apperrors.Retryable(kind),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return 0, false
	}
	return userID, true
}

func parseIDParam(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + label,
		})
		return 0, false
	}
	return uint(id), true
}

// destination returns the country resolved by the Country middleware
func destination(c *gin.Context) (country.Destination, bool) {
	dest, ok := middleware.GetCountryFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Country not resolved",
		})
	}
	return dest, ok
}
