// internal/interfaces/http/middleware/country.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

const countryKey = "country"

// Country resolves the buyer's destination once per request. The header wins
// over the cookie; a signed-in buyer's saved preference wins over both.
// A malformed header is rejected with 400; a malformed cookie falls back.
// Must run after the auth middlewares.
func Country(resolver *country.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		stored := c.GetHeader(country.HeaderName)
		if stored != "" {
			if _, err := country.Parse(stored); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "Invalid " + country.HeaderName + " header",
					"kind":      apperrors.KindValidation,
					"retryable": false,
				})
				c.Abort()
				return
			}
		} else {
			stored, _ = c.Cookie(country.CookieName)
		}

		c.Set(countryKey, resolver.Resolve(c.Request.Context(), UserIDPtr(c), stored))
		c.Next()
	}
}

// GetCountryFromContext returns the destination resolved by Country
func GetCountryFromContext(c *gin.Context) (country.Destination, bool) {
	v, exists := c.Get(countryKey)
	if !exists {
		return country.Destination{}, false
	}
	d, ok := v.(country.Destination)
	return d, ok
}
