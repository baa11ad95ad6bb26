// internal/domain/order/splitter.go
package order

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// WindowResolver picks the carrier and delivery window for a store's shipment
type WindowResolver interface {
	ResolveServiceWindow(ctx context.Context, storeID uint, dest country.Destination) shipping.ServiceWindow
}

// GroupPlan is the not-yet-persisted shipment of one store
type GroupPlan struct {
	StoreID      uint                     `json:"store_id"`
	StoreName    string                   `json:"store_name"`
	Items        []cart.ValidatedLineItem `json:"items"`
	SubTotal     decimal.Decimal          `json:"sub_total"`
	ShippingFees decimal.Decimal          `json:"shipping_fees"`
	Total        decimal.Decimal          `json:"total"`
	Window       shipping.ServiceWindow   `json:"window"`
}

// Plan is a cart split into per-store groups with aggregate totals
type Plan struct {
	Destination  country.Destination `json:"destination"`
	Groups       []GroupPlan         `json:"groups"`
	SubTotal     decimal.Decimal     `json:"sub_total"`
	ShippingFees decimal.Decimal     `json:"shipping_fees"`
	Total        decimal.Decimal     `json:"total"`
}

// Verify checks that every group and the order reconcile exactly
func (p *Plan) Verify() error {
	orderTotal := decimal.Zero
	for _, g := range p.Groups {
		itemTotal := decimal.Zero
		for _, item := range g.Items {
			itemTotal = itemTotal.Add(item.TotalPrice)
		}
		if !g.Total.Equal(itemTotal) {
			return fmt.Errorf("store %d: group total %s does not match item totals %s", g.StoreID, g.Total, itemTotal)
		}
		if !g.SubTotal.Add(g.ShippingFees).Equal(g.Total) {
			return fmt.Errorf("store %d: subtotal %s + shipping %s != total %s", g.StoreID, g.SubTotal, g.ShippingFees, g.Total)
		}
		orderTotal = orderTotal.Add(g.Total)
	}
	if !p.Total.Equal(orderTotal) {
		return fmt.Errorf("order total %s does not match group totals %s", p.Total, orderTotal)
	}
	if !p.SubTotal.Add(p.ShippingFees).Equal(p.Total) {
		return fmt.Errorf("order subtotal %s + shipping %s != total %s", p.SubTotal, p.ShippingFees, p.Total)
	}
	return nil
}

// Splitter partitions validated items by owning store
type Splitter struct {
	windows WindowResolver
}

// NewSplitter creates a new order splitter
func NewSplitter(windows WindowResolver) *Splitter {
	return &Splitter{windows: windows}
}

// Split groups items by store in order of first appearance. Items with
// nothing left to fulfil are rejected rather than silently dropped: the
// error is a *cart.LineFailuresError indexed by position in items.
func (s *Splitter) Split(ctx context.Context, items []cart.ValidatedLineItem, dest country.Destination) (*Plan, error) {
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "cart has no items to order")
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTimeout, "order split cancelled", err)
	}

	var soldOut []cart.LineFailure
	for i, item := range items {
		if item.Quantity <= 0 {
			soldOut = append(soldOut, cart.NewLineFailure(i, item.Line(), apperrors.New(
				apperrors.KindInvalidCartLine, fmt.Sprintf("%s (%s) is out of stock", item.Name, item.Size))))
		}
	}
	if len(soldOut) > 0 {
		return nil, &cart.LineFailuresError{Failures: soldOut}
	}

	index := make(map[uint]int)
	var groups []GroupPlan
	for _, item := range items {
		i, ok := index[item.StoreID]
		if !ok {
			i = len(groups)
			index[item.StoreID] = i
			groups = append(groups, GroupPlan{
				StoreID:      item.StoreID,
				StoreName:    item.StoreName,
				SubTotal:     decimal.Zero,
				ShippingFees: decimal.Zero,
				Total:        decimal.Zero,
			})
		}

		g := &groups[i]
		g.Items = append(g.Items, item)
		g.Total = g.Total.Add(item.TotalPrice)
		g.ShippingFees = g.ShippingFees.Add(item.ShippingFee)
	}

	plan := &Plan{
		Destination:  dest,
		SubTotal:     decimal.Zero,
		ShippingFees: decimal.Zero,
		Total:        decimal.Zero,
	}
	for i := range groups {
		g := &groups[i]
		g.SubTotal = g.Total.Sub(g.ShippingFees)
		g.Window = s.windows.ResolveServiceWindow(ctx, g.StoreID, dest)

		plan.SubTotal = plan.SubTotal.Add(g.SubTotal)
		plan.ShippingFees = plan.ShippingFees.Add(g.ShippingFees)
		plan.Total = plan.Total.Add(g.Total)
	}
	plan.Groups = groups

	if err := plan.Verify(); err != nil {
		return nil, fmt.Errorf("order plan does not reconcile: %w", err)
	}
	return plan, nil
}
