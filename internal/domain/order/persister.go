// internal/domain/order/persister.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Header is the buyer-supplied part of an order
type Header struct {
	UserID          uint
	Email           string
	ShippingAddress Address
	Currency        string
	Destination     country.Destination
	Notes           string
}

// Persister writes an order plan as one atomic record
type Persister struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewPersister creates a new order persister
func NewPersister(db *gorm.DB, logger *logrus.Logger) *Persister {
	return &Persister{db: db, logger: logger}
}

var errTotalsNotWritten = errors.New("order totals update affected no rows")

// Persist stores the order, its groups and their items in a single
// transaction. The aggregate totals and order number are the last write, so
// a committed order always carries totals matching its groups. Any failure
// leaves nothing behind.
func (p *Persister) Persist(ctx context.Context, header Header, plan *Plan) (*Order, error) {
	if plan == nil || len(plan.Groups) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "order has no groups")
	}
	if err := plan.Verify(); err != nil {
		return nil, fmt.Errorf("refusing to persist order: %w", err)
	}

	var placed Order
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Totals start at zero and the number is provisional until every
		// group has been written.
		order := Order{
			OrderNumber:     "TMP-" + uuid.NewString(),
			UserID:          header.UserID,
			Email:           header.Email,
			Status:          OrderStatusPending,
			PaymentStatus:   PaymentStatusPending,
			Currency:        header.Currency,
			CountryCode:     header.Destination.Code,
			CountryName:     header.Destination.Name,
			ShippingAddress: header.ShippingAddress,
			Notes:           header.Notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, gp := range plan.Groups {
			group := OrderGroup{
				OrderID:             order.ID,
				StoreID:             gp.StoreID,
				StoreName:           gp.StoreName,
				Status:              OrderStatusPending,
				SubTotal:            gp.SubTotal,
				ShippingFees:        gp.ShippingFees,
				Total:               gp.Total,
				ShippingService:     gp.Window.ShippingService,
				ShippingDeliveryMin: gp.Window.DeliveryMin,
				ShippingDeliveryMax: gp.Window.DeliveryMax,
			}
			if err := tx.Create(&group).Error; err != nil {
				return fmt.Errorf("failed to create order group for store %d: %w", gp.StoreID, err)
			}

			items := make([]OrderItem, len(gp.Items))
			for i, item := range gp.Items {
				items[i] = OrderItem{
					OrderGroupID: group.ID,
					OrderID:      order.ID,
					ProductID:    item.ProductID,
					VariantID:    item.VariantID,
					SizeID:       item.SizeID,
					ProductSlug:  item.ProductSlug,
					VariantSlug:  item.VariantSlug,
					SKU:          item.SKU,
					Name:         item.Name,
					VariantName:  item.VariantName,
					Image:        item.Image,
					Size:         item.Size,
					Quantity:     item.Quantity,
					Price:        item.UnitPrice,
					ShippingFee:  item.ShippingFee,
					TotalPrice:   item.TotalPrice,
				}
			}
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to create order items for store %d: %w", gp.StoreID, err)
			}
		}

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusPending,
			Comment:   "Order created",
			CreatedBy: header.UserID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		res := tx.Model(&Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"order_number":  order.GenerateOrderNumber(),
			"sub_total":     plan.SubTotal,
			"shipping_fees": plan.ShippingFees,
			"total":         plan.Total,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update order totals: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return errTotalsNotWritten
		}

		// Read back before commit: a committed order is never reported as failed.
		if err := tx.
			Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Preload("Groups.Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			First(&placed, order.ID).Error; err != nil {
			return fmt.Errorf("failed to load complete order: %w", err)
		}
		return nil
	})
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"user_id": header.UserID,
			"groups":  len(plan.Groups),
		}).WithError(err).Error("Order transaction rolled back")

		if apperrors.IsContextError(err) {
			return nil, apperrors.Wrap(apperrors.KindTimeout, "order placement timed out", err)
		}
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to save order", err)
	}

	p.logger.WithFields(logrus.Fields{
		"order_id":     placed.ID,
		"order_number": placed.OrderNumber,
		"user_id":      placed.UserID,
		"groups":       len(placed.Groups),
		"total":        placed.Total.String(),
	}).Info("Order placed")

	return &placed, nil
}
