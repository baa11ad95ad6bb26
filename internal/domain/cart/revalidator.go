// internal/domain/cart/revalidator.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/money"
	"golang.org/x/sync/errgroup"
)

// ShippingCalculator resolves shipping details for a product and destination
type ShippingCalculator interface {
	ComputeShippingDetails(
		ctx context.Context,
		method catalog.ShippingFeeMethod,
		dest country.Destination,
		store catalog.Store,
		freeShipping *catalog.FreeShipping,
	) (*shipping.Details, error)
}

// Revalidator prices untrusted cart lines against the catalog of record
type Revalidator struct {
	reader        catalog.Reader
	calculator    ShippingCalculator
	maxParallel   int
	lookupTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *logrus.Logger
}

// NewRevalidator creates a new cart revalidator
func NewRevalidator(reader catalog.Reader, calculator ShippingCalculator, cfg config.CheckoutConfig, m *metrics.Metrics, logger *logrus.Logger) *Revalidator {
	maxParallel := cfg.MaxParallelLookups
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Revalidator{
		reader:        reader,
		calculator:    calculator,
		maxParallel:   maxParallel,
		lookupTimeout: cfg.LookupTimeout,
		metrics:       m,
		logger:        logger,
	}
}

// Revalidate prices every line for dest. Lines with the same product,
// variant and size are merged first; the results follow the merged lines in
// order of first occurrence and carry that occurrence's input index. Lines
// are independent: one line failing never affects another.
func (r *Revalidator) Revalidate(ctx context.Context, lines []CartLine, dest country.Destination) []LineResult {
	started := time.Now()
	merged, firstIndex := Coalesce(lines)
	results := make([]LineResult, len(merged))

	var g errgroup.Group
	g.SetLimit(r.maxParallel)
	for i, line := range merged {
		i, line := i, line
		g.Go(func() error {
			item, err := r.revalidateLine(ctx, line, dest)
			results[i] = LineResult{Index: firstIndex[i], Line: line, Item: item, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		outcome := "ok"
		if res.Err != nil {
			outcome = string(apperrors.KindOf(res.Err))
			r.logger.WithFields(logrus.Fields{
				"product_id": res.Line.ProductID,
				"variant_id": res.Line.VariantID,
				"size_id":    res.Line.SizeID,
				"country":    dest.Code,
				"kind":       outcome,
			}).WithError(res.Err).Info("Cart line failed revalidation")
		}
		r.metrics.ObserveLine(outcome)
	}
	r.metrics.ObserveRevalidation(time.Since(started))

	return results
}

func (r *Revalidator) revalidateLine(ctx context.Context, line CartLine, dest country.Destination) (*ValidatedLineItem, error) {
	if line.Quantity <= 0 {
		return nil, apperrors.New(apperrors.KindInvalidCartLine, "quantity must be at least 1")
	}

	if r.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lookupTimeout)
		defer cancel()
	}

	snap, err := r.reader.GetProductWithVariantAndSize(ctx, line.ProductID, line.VariantID, line.SizeID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.KindInvalidCartLine, "product, variant or size no longer exists", err)
		}
		return nil, apperrors.FromContext(fmt.Errorf("failed to load product: %w", err), "catalog lookup timed out")
	}

	quantity := line.Quantity
	if snap.Size.Quantity < quantity {
		quantity = snap.Size.Quantity
	}
	if quantity < 0 {
		quantity = 0
	}

	unitPrice := money.ApplyDiscount(snap.Size.Price, snap.Size.Discount)

	details, err := r.calculator.ComputeShippingDetails(ctx, snap.Product.ShippingFeeMethod, dest, snap.Store, snap.FreeShipping)
	if err != nil {
		return nil, err
	}

	fee, err := details.LineFee(quantity, snap.Variant.Weight)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shipping fee: %w", err)
	}

	return &ValidatedLineItem{
		ProductID:         snap.Product.ID,
		VariantID:         snap.Variant.ID,
		SizeID:            snap.Size.ID,
		StoreID:           snap.Store.ID,
		StoreName:         snap.Store.Name,
		ProductSlug:       snap.Product.Slug,
		VariantSlug:       snap.Variant.Slug,
		SKU:               snap.Variant.SKU,
		Name:              snap.Product.Name,
		VariantName:       snap.Variant.Name,
		Image:             snap.Variant.Image,
		Size:              snap.Size.Size,
		RequestedQuantity: line.Quantity,
		Quantity:          quantity,
		Stock:             snap.Size.Quantity,
		Weight:            snap.Variant.Weight,
		UnitPrice:         unitPrice,
		ShippingFee:       fee,
		TotalPrice:        money.Round(money.Times(unitPrice, quantity).Add(fee)),
		Shipping:          *details,
	}, nil
}
