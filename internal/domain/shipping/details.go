// Package shipping computes per-line shipping fees and per-store delivery
// windows for a destination country.
package shipping

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/pkg/money"
)

// Details is the resolved shipping configuration for one product shipped to
// one destination. Fee is the per-item, per-kg or fixed charge depending on
// Method. ExtraFee only applies to ITEM.
type Details struct {
	Method          catalog.ShippingFeeMethod `json:"shipping_fee_method"`
	ShippingService string                    `json:"shipping_service"`
	Fee             decimal.Decimal           `json:"shipping_fee"`
	ExtraFee        decimal.Decimal           `json:"extra_shipping_fee"`
	DeliveryTimeMin int                       `json:"delivery_time_min"`
	DeliveryTimeMax int                       `json:"delivery_time_max"`
	ReturnPolicy    string                    `json:"return_policy"`
	IsFreeShipping  bool                      `json:"is_free_shipping"`
	CountryID       uint                      `json:"country_id"`
	CountryCode     string                    `json:"country_code"`
	CountryName     string                    `json:"country_name"`
	City            string                    `json:"city,omitempty"`
}

// LineFee is the shipping charge for quantity units weighing weight kg each:
//
//	ITEM:   fee + (quantity-1) * extra
//	WEIGHT: fee * weight * quantity
//	FIXED:  fee
//
// A quantity of zero or less costs nothing.
func (d *Details) LineFee(quantity int, weight decimal.Decimal) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, nil
	}
	if d.IsFreeShipping {
		return decimal.Zero, nil
	}

	switch d.Method {
	case catalog.ShippingFeeMethodItem:
		return money.Round(d.Fee.Add(money.Times(d.ExtraFee, quantity-1))), nil
	case catalog.ShippingFeeMethodWeight:
		return money.Round(money.Times(d.Fee.Mul(weight), quantity)), nil
	case catalog.ShippingFeeMethodFixed:
		return money.Round(d.Fee), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", catalog.ErrUnknownFeeMethod, string(d.Method))
	}
}

// ServiceWindow is the carrier and delivery window for one store's shipment
type ServiceWindow struct {
	ShippingService string `json:"shipping_service"`
	DeliveryMin     int    `json:"delivery_min"`
	DeliveryMax     int    `json:"delivery_max"`
}

// DateRange is the earliest and latest expected delivery date
type DateRange struct {
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
}

// DeliveryDates turns a window in days into concrete dates counted from from
func DeliveryDates(from time.Time, minDays, maxDays int) DateRange {
	if maxDays < minDays {
		maxDays = minDays
	}
	return DateRange{
		MinDate: from.AddDate(0, 0, minDays),
		MaxDate: from.AddDate(0, 0, maxDays),
	}
}
