// internal/interfaces/http/handlers/country.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// preference cookie lifetime
const countryCookieMaxAge = 365 * 24 * 60 * 60

// CountryHandler reads and stores the buyer's country preference
type CountryHandler struct {
	resolver *country.Resolver
}

// NewCountryHandler creates a new country handler
func NewCountryHandler(resolver *country.Resolver) *CountryHandler {
	return &CountryHandler{resolver: resolver}
}

// GetCountry handles GET /country
func (h *CountryHandler) GetCountry(c *gin.Context) {
	dest, ok := destination(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": dest,
	})
}

// SetCountry handles PUT /country. Guests get the cookie only; signed-in
// buyers also get the preference saved server-side.
func (h *CountryHandler) SetCountry(c *gin.Context) {
	var req country.Destination
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	saved, err := h.resolver.Save(c.Request.Context(), middleware.UserIDPtr(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(country.CookieName, saved.Encode(), countryCookieMaxAge, "/", "", false, false)

	c.JSON(http.StatusOK, gin.H{
		"message": "Country updated successfully",
		"data":    saved,
	})
}
