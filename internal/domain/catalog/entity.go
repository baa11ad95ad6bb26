// internal/domain/catalog/entity.go
package catalog

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ShippingFeeMethod is the pricing model a product uses for shipping.
// The set is closed: ITEM, WEIGHT and FIXED.
type ShippingFeeMethod string

const (
	ShippingFeeMethodItem   ShippingFeeMethod = "ITEM"
	ShippingFeeMethodWeight ShippingFeeMethod = "WEIGHT"
	ShippingFeeMethodFixed  ShippingFeeMethod = "FIXED"
)

// ErrUnknownFeeMethod is returned for a method outside the closed set
var ErrUnknownFeeMethod = errors.New("unknown shipping fee method")

// AllShippingFeeMethods lists every supported method
func AllShippingFeeMethods() []ShippingFeeMethod {
	return []ShippingFeeMethod{
		ShippingFeeMethodItem,
		ShippingFeeMethodWeight,
		ShippingFeeMethodFixed,
	}
}

// ParseShippingFeeMethod accepts a method name in any case
func ParseShippingFeeMethod(s string) (ShippingFeeMethod, error) {
	m := ShippingFeeMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeeMethod, s)
	}
	return m, nil
}

// Valid reports whether m is one of the supported methods
func (m ShippingFeeMethod) Valid() bool {
	switch m {
	case ShippingFeeMethodItem, ShippingFeeMethodWeight, ShippingFeeMethodFixed:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner and rejects values outside the closed set
func (m *ShippingFeeMethod) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ShippingFeeMethod", value)
	}

	parsed, err := ParseShippingFeeMethod(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer
func (m ShippingFeeMethod) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeeMethod, string(m))
	}
	return string(m), nil
}

// Store is a vendor with its default shipping configuration
type Store struct {
	ID                                  uint            `gorm:"primaryKey" json:"id"`
	Name                                string          `gorm:"not null;size:255" json:"name"`
	URL                                 string          `gorm:"uniqueIndex;not null;size:255" json:"url"`
	Email                               string          `gorm:"size:255" json:"email"`
	Logo                                string          `gorm:"size:500" json:"logo"`
	DefaultShippingService              string          `gorm:"size:100;default:'International Delivery'" json:"default_shipping_service"`
	DefaultShippingFeePerItem           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"default_shipping_fee_per_item"`
	DefaultShippingFeeForAdditionalItem decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"default_shipping_fee_for_additional_item"`
	DefaultShippingFeePerKg             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"default_shipping_fee_per_kg"`
	DefaultShippingFeeFixed             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"default_shipping_fee_fixed"`
	DefaultDeliveryTimeMin              int             `gorm:"default:7" json:"default_delivery_time_min"`
	DefaultDeliveryTimeMax              int             `gorm:"default:31" json:"default_delivery_time_max"`
	ReturnPolicy                        string          `gorm:"size:500" json:"return_policy"`
	CreatedAt                           time.Time       `json:"created_at"`
	UpdatedAt                           time.Time       `json:"updated_at"`
}

// StoreShippingDefaults is the store-level shipping configuration used when
// no country-specific rate exists
type StoreShippingDefaults struct {
	StoreID              uint            `json:"store_id"`
	ShippingService      string          `json:"shipping_service"`
	FeePerItem           decimal.Decimal `json:"fee_per_item"`
	FeeForAdditionalItem decimal.Decimal `json:"fee_for_additional_item"`
	FeePerKg             decimal.Decimal `json:"fee_per_kg"`
	FeeFixed             decimal.Decimal `json:"fee_fixed"`
	DeliveryTimeMin      int             `json:"delivery_time_min"`
	DeliveryTimeMax      int             `json:"delivery_time_max"`
	ReturnPolicy         string          `json:"return_policy"`
}

// ShippingDefaults extracts the store's default shipping configuration
func (s Store) ShippingDefaults() StoreShippingDefaults {
	return StoreShippingDefaults{
		StoreID:              s.ID,
		ShippingService:      s.DefaultShippingService,
		FeePerItem:           s.DefaultShippingFeePerItem,
		FeeForAdditionalItem: s.DefaultShippingFeeForAdditionalItem,
		FeePerKg:             s.DefaultShippingFeePerKg,
		FeeFixed:             s.DefaultShippingFeeFixed,
		DeliveryTimeMin:      s.DefaultDeliveryTimeMin,
		DeliveryTimeMax:      s.DefaultDeliveryTimeMax,
		ReturnPolicy:         s.ReturnPolicy,
	}
}

// Product is a catalog product owned by one store
type Product struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	StoreID           uint              `gorm:"not null;index" json:"store_id"`
	Name              string            `gorm:"not null;size:255" json:"name"`
	Slug              string            `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Brand             string            `gorm:"size:255" json:"brand"`
	ShippingFeeMethod ShippingFeeMethod `gorm:"type:varchar(10);not null;default:'ITEM'" json:"shipping_fee_method"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	// Relationships
	Store        Store         `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"store"`
	Variants     []Variant     `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
	FreeShipping *FreeShipping `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"free_shipping,omitempty"`
}

// Variant is a named presentation of a product, grouping sizes
type Variant struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Slug      string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	SKU       string          `gorm:"not null;size:100" json:"sku"`
	Image     string          `gorm:"size:500" json:"image"`
	Weight    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"weight"` // kg
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Sizes []Size `gorm:"foreignKey:VariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sizes,omitempty"`
}

// Size is the purchasable unit of a variant
type Size struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	VariantID uint            `gorm:"not null;index" json:"variant_id"`
	Size      string          `gorm:"not null;size:50" json:"size"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Discount  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount"` // percent
	Quantity  int             `gorm:"not null;default:0" json:"quantity"`                   // stock
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FreeShipping lists the countries where a product ships free
type FreeShipping struct {
	ID                uint                  `gorm:"primaryKey" json:"id"`
	ProductID         uint                  `gorm:"uniqueIndex;not null" json:"product_id"`
	EligibleCountries []FreeShippingCountry `gorm:"foreignKey:FreeShippingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"eligible_countries"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// IsEligible reports whether countryID is in the free-shipping set
func (f *FreeShipping) IsEligible(countryID uint) bool {
	if f == nil {
		return false
	}
	for _, c := range f.EligibleCountries {
		if c.CountryID == countryID {
			return true
		}
	}
	return false
}

// FreeShippingCountry links a free-shipping configuration to a country
type FreeShippingCountry struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	FreeShippingID uint `gorm:"not null;index" json:"free_shipping_id"`
	CountryID      uint `gorm:"not null;index" json:"country_id"`
}

// Country is a shipping destination
type Country struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;size:100;uniqueIndex:idx_countries_name_code" json:"name"`
	Code string `gorm:"not null;size:2;uniqueIndex:idx_countries_name_code" json:"code"`
}

// ShippingRate overrides a store's defaults for one destination country.
// Empty or zero fields fall back to the store default.
type ShippingRate struct {
	ID                           uint            `gorm:"primaryKey" json:"id"`
	StoreID                      uint            `gorm:"not null;uniqueIndex:idx_shipping_rates_store_country" json:"store_id"`
	CountryID                    uint            `gorm:"not null;uniqueIndex:idx_shipping_rates_store_country" json:"country_id"`
	ShippingService              string          `gorm:"size:100" json:"shipping_service"`
	ShippingFeePerItem           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fee_per_item"`
	ShippingFeeForAdditionalItem decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fee_for_additional_item"`
	ShippingFeePerKg             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fee_per_kg"`
	ShippingFeeFixed             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fee_fixed"`
	DeliveryTimeMin              int             `gorm:"default:0" json:"delivery_time_min"`
	DeliveryTimeMax              int             `gorm:"default:0" json:"delivery_time_max"`
	ReturnPolicy                 string          `gorm:"size:500" json:"return_policy"`
	CreatedAt                    time.Time       `json:"created_at"`
	UpdatedAt                    time.Time       `json:"updated_at"`
}

// StoreFollower records that a user follows a store
type StoreFollower struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	StoreID   uint      `gorm:"primaryKey" json:"store_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a product narrowed to exactly one variant and one size, with
// the owning store and free-shipping configuration
type Snapshot struct {
	Product      Product
	Variant      Variant
	Size         Size
	Store        Store
	FreeShipping *FreeShipping
}

// TableName overrides
func (Store) TableName() string               { return "stores" }
func (Product) TableName() string             { return "products" }
func (Variant) TableName() string             { return "product_variants" }
func (Size) TableName() string                { return "sizes" }
func (FreeShipping) TableName() string        { return "free_shippings" }
func (FreeShippingCountry) TableName() string { return "free_shipping_countries" }
func (Country) TableName() string             { return "countries" }
func (ShippingRate) TableName() string        { return "shipping_rates" }
func (StoreFollower) TableName() string       { return "store_followers" }
