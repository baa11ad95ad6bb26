// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service answers buyer queries about placed orders
type Service struct {
	db *gorm.DB
}

// NewService creates a new order service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func preloadTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Groups.Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// ListUserOrders retrieves a page of the buyer's orders
func (s *Service) ListUserOrders(ctx context.Context, userID uint, req OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromContext(fmt.Errorf("failed to count orders: %w", err), "order lookup timed out")
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := preloadTree(query).
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).
		Limit(req.Limit).
		Find(&orders).Error; err != nil {
		return nil, apperrors.FromContext(fmt.Errorf("failed to retrieve orders: %w", err), "order lookup timed out")
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetOrder retrieves one of the buyer's orders with its groups and items.
// Orders belonging to someone else are reported as not found.
func (s *Service) GetOrder(ctx context.Context, id, userID uint) (*Order, error) {
	var order Order
	err := preloadTree(s.db.WithContext(ctx)).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "order not found")
		}
		return nil, apperrors.FromContext(fmt.Errorf("failed to retrieve order: %w", err), "order lookup timed out")
	}
	return &order, nil
}

// GetGroup retrieves one store's group of a buyer's order
func (s *Service) GetGroup(ctx context.Context, orderID, groupID, userID uint) (*Order, *OrderGroup, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, nil, err
	}
	group, ok := order.Group(groupID)
	if !ok {
		return nil, nil, apperrors.New(apperrors.KindNotFound, "order group not found")
	}
	return order, group, nil
}

// CancelOrder cancels a pending order and every group in it
func (s *Service) CancelOrder(ctx context.Context, orderID, userID uint, reason string) (*Order, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeCancelled() {
		return nil, apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("order cannot be cancelled in current status: %s", order.Status))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Order{}).Where("id = ?", order.ID).
			Update("status", OrderStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if err := tx.Model(&OrderGroup{}).Where("order_id = ?", order.ID).
			Update("status", OrderStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to update order group status: %w", err)
		}

		comment := "Order cancelled"
		if reason != "" {
			comment = fmt.Sprintf("Order cancelled: %s", reason)
		}
		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusCancelled,
			Comment:   comment,
			CreatedBy: userID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsContextError(err) {
			return nil, apperrors.Wrap(apperrors.KindTimeout, "order cancellation timed out", err)
		}
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to cancel order", err)
	}

	return s.GetOrder(ctx, orderID, userID)
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total":        true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	// id breaks ties between orders created in the same instant
	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
