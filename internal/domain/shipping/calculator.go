// internal/domain/shipping/calculator.go
package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/money"
	"golang.org/x/sync/singleflight"
)

// Calculator resolves shipping details against the catalog's countries,
// store-by-country rates and store defaults
type Calculator struct {
	reader        catalog.Reader
	fallback      ServiceWindow
	lookupTimeout time.Duration
	logger        *logrus.Logger

	// concurrent lines for the same destination share lookups
	lookups singleflight.Group
}

// NewCalculator creates a new shipping calculator
func NewCalculator(reader catalog.Reader, cfg config.CheckoutConfig, logger *logrus.Logger) *Calculator {
	return &Calculator{
		reader: reader,
		fallback: ServiceWindow{
			ShippingService: cfg.FallbackShippingService,
			DeliveryMin:     cfg.FallbackDeliveryMin,
			DeliveryMax:     cfg.FallbackDeliveryMax,
		},
		lookupTimeout: cfg.LookupTimeout,
		logger:        logger,
	}
}

// shared runs fn once for all concurrent callers of key. The shared lookup
// is detached from any single caller's cancellation and bounded by
// lookupTimeout; each caller still stops waiting when its own ctx ends.
func (c *Calculator) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	timeout := c.lookupTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ch := c.lookups.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(lookupCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Calculator) findCountry(ctx context.Context, dest country.Destination) (*catalog.Country, error) {
	key := "country:" + dest.Name + "|" + dest.Code
	v, err := c.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.reader.FindCountry(ctx, dest.Name, dest.Code)
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Country), nil
}

func (c *Calculator) findRate(ctx context.Context, storeID, countryID uint) (*catalog.ShippingRate, error) {
	key := fmt.Sprintf("rate:%d:%d", storeID, countryID)
	v, err := c.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.reader.FindShippingRate(ctx, storeID, countryID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.ShippingRate), nil
}

// ComputeShippingDetails resolves what it costs to ship a product of the
// given method from store to dest. A destination the catalog does not know
// is reported as KindUnroutableShipping, never as a zero fee.
func (c *Calculator) ComputeShippingDetails(
	ctx context.Context,
	method catalog.ShippingFeeMethod,
	dest country.Destination,
	store catalog.Store,
	freeShipping *catalog.FreeShipping,
) (*Details, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownFeeMethod, string(method))
	}

	ctry, err := c.findCountry(ctx, dest)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.KindUnroutableShipping, "shipping not available to this destination", err)
		}
		return nil, apperrors.FromContext(fmt.Errorf("failed to resolve country: %w", err), "country lookup timed out")
	}

	rate, err := c.findRate(ctx, store.ID, ctry.ID)
	if err != nil {
		return nil, apperrors.FromContext(fmt.Errorf("failed to resolve shipping rate: %w", err), "shipping rate lookup timed out")
	}

	details := resolve(store.ShippingDefaults(), rate)
	details.Method = method
	details.CountryID = ctry.ID
	details.CountryCode = ctry.Code
	details.CountryName = ctry.Name
	details.City = dest.City

	fees := details.rates
	switch method {
	case catalog.ShippingFeeMethodItem:
		details.Fee = fees.perItem
		details.ExtraFee = fees.perAdditional
	case catalog.ShippingFeeMethodWeight:
		details.Fee = fees.perKg
	case catalog.ShippingFeeMethodFixed:
		details.Fee = fees.fixed
	default:
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownFeeMethod, string(method))
	}

	if freeShipping.IsEligible(ctry.ID) {
		details.IsFreeShipping = true
		details.Fee = decimal.Zero
		details.ExtraFee = decimal.Zero
	}

	return &details.Details, nil
}

type feeSet struct {
	perItem       decimal.Decimal
	perAdditional decimal.Decimal
	perKg         decimal.Decimal
	fixed         decimal.Decimal
}

type resolved struct {
	Details
	rates feeSet
}

// resolve merges a store-by-country rate over the store defaults. Each field
// falls back independently when the rate leaves it empty or zero.
func resolve(defaults catalog.StoreShippingDefaults, rate *catalog.ShippingRate) resolved {
	r := catalog.ShippingRate{}
	if rate != nil {
		r = *rate
	}

	return resolved{
		Details: Details{
			ShippingService: firstNonEmpty(r.ShippingService, defaults.ShippingService),
			DeliveryTimeMin: firstPositiveInt(r.DeliveryTimeMin, defaults.DeliveryTimeMin),
			DeliveryTimeMax: firstPositiveInt(r.DeliveryTimeMax, defaults.DeliveryTimeMax),
			ReturnPolicy:    firstNonEmpty(r.ReturnPolicy, defaults.ReturnPolicy),
		},
		rates: feeSet{
			perItem:       money.Round(money.FirstPositive(r.ShippingFeePerItem, defaults.FeePerItem)),
			perAdditional: money.Round(money.FirstPositive(r.ShippingFeeForAdditionalItem, defaults.FeeForAdditionalItem)),
			perKg:         money.Round(money.FirstPositive(r.ShippingFeePerKg, defaults.FeePerKg)),
			fixed:         money.Round(money.FirstPositive(r.ShippingFeeFixed, defaults.FeeFixed)),
		},
	}
}

// ResolveServiceWindow picks the carrier and delivery window for a store's
// shipment. It never fails: missing data falls back to the store defaults
// and then to the configured international service.
func (c *Calculator) ResolveServiceWindow(ctx context.Context, storeID uint, dest country.Destination) ServiceWindow {
	log := c.logger.WithFields(logrus.Fields{"store_id": storeID, "country": dest.Code})

	var rate *catalog.ShippingRate
	if ctry, err := c.findCountry(ctx, dest); err == nil {
		rate, err = c.findRate(ctx, storeID, ctry.ID)
		if err != nil {
			log.WithError(err).Warn("Failed to load shipping rate, using store defaults")
		}
	} else if !errors.Is(err, catalog.ErrNotFound) {
		log.WithError(err).Warn("Failed to resolve country, using store defaults")
	}

	var defaults catalog.StoreShippingDefaults
	if d, err := c.reader.FindStoreDefaults(ctx, storeID); err == nil {
		defaults = *d
	} else {
		log.WithError(err).Warn("Failed to load store defaults, using fallback service")
	}

	if rate == nil {
		rate = &catalog.ShippingRate{}
	}
	return ServiceWindow{
		ShippingService: firstNonEmpty(rate.ShippingService, defaults.ShippingService, c.fallback.ShippingService),
		DeliveryMin:     firstPositiveInt(rate.DeliveryTimeMin, defaults.DeliveryTimeMin, c.fallback.DeliveryMin),
		DeliveryMax:     firstPositiveInt(rate.DeliveryTimeMax, defaults.DeliveryTimeMax, c.fallback.DeliveryMax),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositiveInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
