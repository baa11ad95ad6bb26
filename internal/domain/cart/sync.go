// internal/domain/cart/sync.go
package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// RefreshedCartLine is a display line with current price, stock and shipping
type RefreshedCartLine struct {
	ProductID         uint                      `json:"product_id"`
	VariantID         uint                      `json:"variant_id"`
	SizeID            uint                      `json:"size_id"`
	StoreID           uint                      `json:"store_id"`
	StoreName         string                    `json:"store_name"`
	ProductSlug       string                    `json:"product_slug"`
	VariantSlug       string                    `json:"variant_slug"`
	SKU               string                    `json:"sku"`
	Name              string                    `json:"name"`
	VariantName       string                    `json:"variant_name"`
	Image             string                    `json:"image"`
	Size              string                    `json:"size"`
	Price             decimal.Decimal           `json:"price"`
	RequestedQuantity int                       `json:"requested_quantity"`
	Quantity          int                       `json:"quantity"`
	Stock             int                       `json:"stock"`
	Weight            decimal.Decimal           `json:"weight"`
	ShippingFee       decimal.Decimal           `json:"shipping_fee"`
	ExtraShippingFee  decimal.Decimal           `json:"extra_shipping_fee"`
	ShippingMethod    catalog.ShippingFeeMethod `json:"shipping_method"`
	ShippingService   string                    `json:"shipping_service"`
	DeliveryTimeMin   int                       `json:"delivery_time_min"`
	DeliveryTimeMax   int                       `json:"delivery_time_max"`
	IsFreeShipping    bool                      `json:"is_free_shipping"`
	ReturnPolicy      string                    `json:"return_policy"`
	TotalPrice        decimal.Decimal           `json:"total_price"`
}

// RefreshResult is a refreshed cart for one destination
type RefreshResult struct {
	Country  country.Destination `json:"country"`
	Lines    []RefreshedCartLine `json:"lines"`
	Failures []LineFailure       `json:"failures"`
	Totals   CartTotals          `json:"totals"`
}

// Syncer keeps a stored or client cart's prices and fees current without
// creating an order
type Syncer struct {
	revalidator *Revalidator
}

// NewSyncer creates a new cart syncer
func NewSyncer(revalidator *Revalidator) *Syncer {
	return &Syncer{revalidator: revalidator}
}

// Refresh re-prices lines for dest. The result depends only on the catalog
// and dest, so repeating the call with unchanged inputs yields the same value.
func (s *Syncer) Refresh(ctx context.Context, lines []CartLine, dest country.Destination) (*RefreshResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTimeout, "cart refresh cancelled", err)
	}

	items, failures := Partition(s.revalidator.Revalidate(ctx, lines, dest))

	refreshed := make([]RefreshedCartLine, len(items))
	for i, item := range items {
		refreshed[i] = toRefreshedLine(item)
	}
	if failures == nil {
		failures = []LineFailure{}
	}

	return &RefreshResult{
		Country:  dest,
		Lines:    refreshed,
		Failures: failures,
		Totals:   Totals(items),
	}, nil
}

func toRefreshedLine(item ValidatedLineItem) RefreshedCartLine {
	return RefreshedCartLine{
		ProductID:         item.ProductID,
		VariantID:         item.VariantID,
		SizeID:            item.SizeID,
		StoreID:           item.StoreID,
		StoreName:         item.StoreName,
		ProductSlug:       item.ProductSlug,
		VariantSlug:       item.VariantSlug,
		SKU:               item.SKU,
		Name:              item.Name,
		VariantName:       item.VariantName,
		Image:             item.Image,
		Size:              item.Size,
		Price:             item.UnitPrice,
		RequestedQuantity: item.RequestedQuantity,
		Quantity:          item.Quantity,
		Stock:             item.Stock,
		Weight:            item.Weight,
		ShippingFee:       item.ShippingFee,
		ExtraShippingFee:  item.Shipping.ExtraFee,
		ShippingMethod:    item.Shipping.Method,
		ShippingService:   item.Shipping.ShippingService,
		DeliveryTimeMin:   item.Shipping.DeliveryTimeMin,
		DeliveryTimeMax:   item.Shipping.DeliveryTimeMax,
		IsFreeShipping:    item.Shipping.IsFreeShipping,
		ReturnPolicy:      item.Shipping.ReturnPolicy,
		TotalPrice:        item.TotalPrice,
	}
}
