// internal/interfaces/http/handlers/order.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/pkg/pdf"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	logger       *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, pdfService *pdf.Service, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		pdfService:   pdfService,
		logger:       logger,
	}
}

// GetOrders handles GET /orders (user's own orders)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.orderService.ListUserOrders(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// CancelOrderRequest carries the buyer's cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelOrder handles PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	o, err := h.orderService.CancelOrder(c.Request.Context(), orderID, userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{"order_id": o.ID, "user_id": userID}).Info("Order cancelled")

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

// GetPackingSlip handles GET /orders/:id/groups/:groupId/packing-slip.
// ?format=html returns the HTML rendering instead of the PDF.
func (h *OrderHandler) GetPackingSlip(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id", "order ID")
	if !ok {
		return
	}
	groupID, ok := parseIDParam(c, "groupId", "group ID")
	if !ok {
		return
	}

	o, group, err := h.orderService.GetGroup(c.Request.Context(), orderID, groupID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "html" {
		html, err := h.pdfService.RenderPackingSlip(o, group)
		if err != nil {
			h.logger.WithError(err).WithField("order_id", o.ID).Error("Failed to render packing slip")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate packing slip",
			})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}

	pdfBuffer, err := h.pdfService.GeneratePackingSlip(o, group)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", o.ID).Error("Failed to generate packing slip")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate packing slip",
		})
		return
	}

	// Set headers for PDF download
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=packing-slip-%s-S%d.pdf", o.OrderNumber, group.StoreID))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
