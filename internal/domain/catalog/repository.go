// internal/domain/catalog/repository.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a product, variant, size, country or store
// does not exist
var ErrNotFound = errors.New("catalog record not found")

// Reader is the read-only view of the catalog of record
type Reader interface {
	GetProductWithVariantAndSize(ctx context.Context, productID, variantID, sizeID uint) (*Snapshot, error)
	FindCountry(ctx context.Context, name, code string) (*Country, error)
	FindShippingRate(ctx context.Context, storeID, countryID uint) (*ShippingRate, error)
	FindStoreDefaults(ctx context.Context, storeID uint) (*StoreShippingDefaults, error)
}

// Repository reads catalog data from the database
type Repository struct {
	db *gorm.DB
}

var _ Reader = (*Repository)(nil)

// NewRepository creates a new catalog repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProductWithVariantAndSize loads a product narrowed to one variant and
// one size. The variant must belong to the product and the size to the variant.
func (r *Repository) GetProductWithVariantAndSize(ctx context.Context, productID, variantID, sizeID uint) (*Snapshot, error) {
	var product Product
	err := r.db.WithContext(ctx).
		Preload("Store").
		Preload("FreeShipping.EligibleCountries").
		Preload("Variants", "id = ?", variantID).
		Preload("Variants.Sizes", "id = ?", sizeID).
		First(&product, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if len(product.Variants) == 0 {
		return nil, fmt.Errorf("variant %d of product %d: %w", variantID, productID, ErrNotFound)
	}
	variant := product.Variants[0]
	if len(variant.Sizes) == 0 {
		return nil, fmt.Errorf("size %d of variant %d: %w", sizeID, variantID, ErrNotFound)
	}
	size := variant.Sizes[0]

	return &Snapshot{
		Product:      product,
		Variant:      variant,
		Size:         size,
		Store:        product.Store,
		FreeShipping: product.FreeShipping,
	}, nil
}

// FindCountry looks a country up by exact name and code
func (r *Repository) FindCountry(ctx context.Context, name, code string) (*Country, error) {
	var country Country
	err := r.db.WithContext(ctx).
		Where("name = ? AND code = ?", name, code).
		First(&country).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("country %s (%s): %w", name, code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find country: %w", err)
	}
	return &country, nil
}

// FindShippingRate returns the store's rate for a country, or nil when the
// store has no country-specific rate
func (r *Repository) FindShippingRate(ctx context.Context, storeID, countryID uint) (*ShippingRate, error) {
	var rates []ShippingRate
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND country_id = ?", storeID, countryID).
		Limit(1).
		Find(&rates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find shipping rate: %w", err)
	}
	if len(rates) == 0 {
		return nil, nil
	}
	return &rates[0], nil
}

// FindStoreDefaults returns the store's default shipping configuration
func (r *Repository) FindStoreDefaults(ctx context.Context, storeID uint) (*StoreShippingDefaults, error) {
	var store Store
	if err := r.db.WithContext(ctx).First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store %d: %w", storeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	defaults := store.ShippingDefaults()
	return &defaults, nil
}
