// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

const (
	sessionCookie = "session_id"
	// maxRefreshLines bounds the client cart accepted by POST /cart/refresh
	maxRefreshLines = 100
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	syncer      *cart.Syncer
	sessionTTL  int
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, syncer *cart.Syncer, sessionTTLSeconds int) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		syncer:      syncer,
		sessionTTL:  sessionTTLSeconds,
	}
}

// RefreshCartRequest is a client-held cart to re-price
type RefreshCartRequest struct {
	Lines []cart.CartLine `json:"lines" binding:"dive"`
}

// RefreshCart handles POST /cart/refresh
func (h *CartHandler) RefreshCart(c *gin.Context) {
	var req RefreshCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.Lines) > maxRefreshLines {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Too many cart lines",
		})
		return
	}

	dest, ok := destination(c)
	if !ok {
		return
	}

	result, err := h.syncer.Refresh(c.Request.Context(), req.Lines, dest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart refreshed successfully",
		"data":    result,
	})
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	dest, ok := destination(c)
	if !ok {
		return
	}

	cartResponse, err := h.cartService.GetCart(c.Request.Context(), h.owner(c), dest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    cartResponse,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req cart.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	owner := h.owner(c)
	if err := h.cartService.AddLine(c.Request.Context(), owner, req); err != nil {
		respondError(c, err)
		return
	}

	h.respondCart(c, owner, "Item added to cart successfully")
}

// UpdateCartItem handles PUT /cart/items
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req cart.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	owner := h.owner(c)
	if err := h.cartService.SetQuantity(c.Request.Context(), owner, req.LineKey, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	h.respondCart(c, owner, "Cart item updated successfully")
}

// RemoveFromCart handles DELETE /cart/items?product_id=&variant_id=&size_id=
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	var key cart.LineKey
	if err := c.ShouldBindQuery(&key); err != nil {
		respondBindError(c, err)
		return
	}

	owner := h.owner(c)
	if err := h.cartService.RemoveLine(c.Request.Context(), owner, key); err != nil {
		respondError(c, err)
		return
	}

	h.respondCart(c, owner, "Item removed from cart successfully")
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), h.owner(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// SaveCart handles POST /cart/save
func (h *CartHandler) SaveCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	dest, ok := destination(c)
	if !ok {
		return
	}

	saved, refreshed, err := h.cartService.Save(c.Request.Context(), userID, dest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart saved successfully",
		"data": gin.H{
			"cart":     saved,
			"failures": refreshed.Failures,
		},
	})
}

// MergeCart handles POST /cart/merge, moving the guest session's lines into
// the signed-in buyer's cart
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	sessionID, _ := c.Cookie(sessionCookie)
	if err := h.cartService.MergeGuestCart(c.Request.Context(), userID, sessionID); err != nil {
		respondError(c, err)
		return
	}
	if sessionID != "" {
		c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	}

	h.respondCart(c, h.owner(c), "Cart merged successfully")
}

func (h *CartHandler) respondCart(c *gin.Context, owner cart.Owner, message string) {
	dest, ok := destination(c)
	if !ok {
		return
	}

	cartResponse, err := h.cartService.GetCart(c.Request.Context(), owner, dest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    cartResponse,
	})
}

// owner returns the signed-in buyer, or the guest session from the cookie,
// starting a new session when there is none
func (h *CartHandler) owner(c *gin.Context) cart.Owner {
	if userID := middleware.UserIDPtr(c); userID != nil {
		return cart.Owner{UserID: userID}
	}

	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || sessionID == "" {
		sessionID = uuid.NewString()
		c.SetCookie(sessionCookie, sessionID, h.sessionTTL, "/", "", false, true)
	}
	return cart.Owner{SessionID: sessionID}
}
