// internal/domain/cart/validated.go
package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/money"
)

// ValidatedLineItem is a cart line priced against the catalog of record.
// It is computed fresh on every revalidation and never stored as-is.
type ValidatedLineItem struct {
	ProductID   uint   `json:"product_id"`
	VariantID   uint   `json:"variant_id"`
	SizeID      uint   `json:"size_id"`
	StoreID     uint   `json:"store_id"`
	StoreName   string `json:"store_name"`
	ProductSlug string `json:"product_slug"`
	VariantSlug string `json:"variant_slug"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	VariantName string `json:"variant_name"`
	Image       string `json:"image"`
	Size        string `json:"size"`

	// RequestedQuantity is what the buyer asked for, Quantity is what can be
	// fulfilled: min(requested, stock), never negative.
	RequestedQuantity int `json:"requested_quantity"`
	Quantity          int `json:"quantity"`
	Stock             int `json:"stock"`

	Weight      decimal.Decimal  `json:"weight"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	ShippingFee decimal.Decimal  `json:"shipping_fee"`
	TotalPrice  decimal.Decimal  `json:"total_price"`
	Shipping    shipping.Details `json:"shipping"`
}

// Line is the cart line the item was priced from
func (v ValidatedLineItem) Line() CartLine {
	return CartLine{ProductID: v.ProductID, VariantID: v.VariantID, SizeID: v.SizeID, Quantity: v.RequestedQuantity}
}

// Clamped reports whether stock reduced the requested quantity
func (v ValidatedLineItem) Clamped() bool {
	return v.Quantity < v.RequestedQuantity
}

// Subtotal is the goods amount without shipping
func (v ValidatedLineItem) Subtotal() decimal.Decimal {
	return money.Round(money.Times(v.UnitPrice, v.Quantity))
}

// LineResult is the outcome of revalidating one line: exactly one of Item
// and Err is set.
type LineResult struct {
	Index int
	Line  CartLine
	Item  *ValidatedLineItem
	Err   error
}

// LineFailure describes a line that could not be revalidated
type LineFailure struct {
	Index     int            `json:"index"`
	Line      CartLine       `json:"line"`
	Kind      apperrors.Kind `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
}

// NewLineFailure classifies err for the line at index
func NewLineFailure(index int, line CartLine, err error) LineFailure {
	kind := apperrors.KindOf(err)
	message := apperrors.PublicMessage(kind)

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && kind != apperrors.KindInternal {
		message = appErr.Message
	}

	return LineFailure{
		Index:     index,
		Line:      line,
		Kind:      kind,
		Message:   message,
		Retryable: apperrors.Retryable(kind),
	}
}

// LineFailuresError reports every cart line that blocked an order
type LineFailuresError struct {
	Failures []LineFailure
}

func (e *LineFailuresError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("line %d: %s", f.Index, f.Message)
	}
	return fmt.Sprintf("%d cart line(s) failed revalidation: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Kind is the kind reported to the buyer. A non-retryable failure wins over
// a transient one.
func (e *LineFailuresError) Kind() apperrors.Kind {
	if len(e.Failures) == 0 {
		return apperrors.KindInternal
	}
	for _, f := range e.Failures {
		if !f.Retryable {
			return f.Kind
		}
	}
	return e.Failures[0].Kind
}

// Partition splits results into validated items and failures, both in
// result order
func Partition(results []LineResult) ([]ValidatedLineItem, []LineFailure) {
	items := make([]ValidatedLineItem, 0, len(results))
	var failures []LineFailure
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, NewLineFailure(r.Index, r.Line, r.Err))
			continue
		}
		items = append(items, *r.Item)
	}
	return items, failures
}

// Totals sums validated items
func Totals(items []ValidatedLineItem) CartTotals {
	totals := CartTotals{
		ItemCount:    len(items),
		SubTotal:     decimal.Zero,
		ShippingFees: decimal.Zero,
		Total:        decimal.Zero,
	}
	for _, item := range items {
		totals.TotalQuantity += item.Quantity
		totals.SubTotal = totals.SubTotal.Add(item.Subtotal())
		totals.ShippingFees = totals.ShippingFees.Add(item.ShippingFee)
		totals.Total = totals.Total.Add(item.TotalPrice)
	}
	return totals
}
