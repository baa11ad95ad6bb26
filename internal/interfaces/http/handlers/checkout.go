// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// PlaceOrder handles POST /checkout/orders
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.UserID = userID
	req.Email, _ = middleware.GetUserEmailFromContext(c)

	dest, ok := destination(c)
	if !ok {
		return
	}

	result, err := h.checkoutService.PlaceOrder(c.Request.Context(), req, dest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Order placed successfully",
		"order_id": result.OrderID,
		"data":     result.Order,
	})
}

// SummaryQuery selects the stored cart to preview
type SummaryQuery struct {
	CartID uint `form:"cart_id" binding:"required"`
}

// GetCheckoutSummary handles GET /checkout/summary?cart_id=
func (h *CheckoutHandler) GetCheckoutSummary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var q SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	dest, ok := destination(c)
	if !ok {
		return
	}

	summary, err := h.checkoutService.Summarize(c.Request.Context(), q.CartID, userID, dest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary retrieved successfully",
		"data":    summary,
	})
}
