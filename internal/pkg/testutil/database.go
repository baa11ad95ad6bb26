// Package testutil holds database and catalog fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CatalogModels lists the catalog tables in migration order
func CatalogModels() []interface{} {
	return []interface{}{
		&catalog.Country{},
		&catalog.Store{},
		&catalog.Product{},
		&catalog.Variant{},
		&catalog.Size{},
		&catalog.FreeShipping{},
		&catalog.FreeShippingCountry{},
		&catalog.ShippingRate{},
		&catalog.StoreFollower{},
	}
}

// NewSQLiteDB opens an in-memory database migrated with the catalog tables
// plus any extra models
func NewSQLiteDB(t testing.TB, extra ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	models := append(CatalogModels(), extra...)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

// Line identifies one purchasable size
type Line struct {
	ProductID uint
	VariantID uint
	SizeID    uint
}

// Marketplace is the seeded fixture: two stores shipping to the United States
type Marketplace struct {
	US     catalog.Country
	France catalog.Country

	// ItemStore charges 5 for the first item and 2 per additional item
	ItemStore catalog.Store
	// FixedStore charges a flat 10 per line
	FixedStore catalog.Store

	// Tee: ItemStore, ITEM method, price 20.00, stock 10
	Tee Line
	// Mug: FixedStore, FIXED method, price 15.00 with 10% off, stock 6
	Mug Line
	// Flour: ItemStore, WEIGHT method, 1.5 kg, price 8.00, stock 100
	Flour Line
	// Cap: ItemStore, ITEM method, free shipping to the United States, price 12.00, stock 4
	Cap Line
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedMarketplace inserts the two-store fixture
func SeedMarketplace(t testing.TB, db *gorm.DB) Marketplace {
	t.Helper()

	m := Marketplace{
		US:     catalog.Country{Name: "United States", Code: "US"},
		France: catalog.Country{Name: "France", Code: "FR"},
	}
	require.NoError(t, db.Create(&m.US).Error)
	require.NoError(t, db.Create(&m.France).Error)

	m.ItemStore = catalog.Store{
		Name:                                "Thread & Co",
		URL:                                 "thread-co",
		DefaultShippingService:              "Standard Post",
		DefaultShippingFeePerItem:           dec("5"),
		DefaultShippingFeeForAdditionalItem: dec("2"),
		DefaultShippingFeePerKg:             dec("4"),
		DefaultDeliveryTimeMin:              3,
		DefaultDeliveryTimeMax:              7,
		ReturnPolicy:                        "30 days",
	}
	m.FixedStore = catalog.Store{
		Name:                    "Kiln House",
		URL:                     "kiln-house",
		DefaultShippingService:  "Courier",
		DefaultShippingFeeFixed: dec("10"),
		DefaultDeliveryTimeMin:  2,
		DefaultDeliveryTimeMax:  5,
		ReturnPolicy:            "No returns",
	}
	require.NoError(t, db.Create(&m.ItemStore).Error)
	require.NoError(t, db.Create(&m.FixedStore).Error)

	m.Tee = createProduct(t, db, m.ItemStore.ID, "tee", catalog.ShippingFeeMethodItem, "0.2", "20.00", "0", 10)
	m.Mug = createProduct(t, db, m.FixedStore.ID, "mug", catalog.ShippingFeeMethodFixed, "0.4", "15.00", "10", 6)
	m.Flour = createProduct(t, db, m.ItemStore.ID, "flour", catalog.ShippingFeeMethodWeight, "1.5", "8.00", "0", 100)
	m.Cap = createProduct(t, db, m.ItemStore.ID, "cap", catalog.ShippingFeeMethodItem, "0.1", "12.00", "0", 4)

	free := catalog.FreeShipping{
		ProductID:         m.Cap.ProductID,
		EligibleCountries: []catalog.FreeShippingCountry{{CountryID: m.US.ID}},
	}
	require.NoError(t, db.Create(&free).Error)

	return m
}

func createProduct(t testing.TB, db *gorm.DB, storeID uint, slug string, method catalog.ShippingFeeMethod, weight, price, discount string, stock int) Line {
	t.Helper()

	product := catalog.Product{
		StoreID:           storeID,
		Name:              slug,
		Slug:              slug,
		Brand:             "Acme",
		ShippingFeeMethod: method,
		Variants: []catalog.Variant{{
			Name:   slug + " default",
			Slug:   slug + "-default",
			SKU:    "SKU-" + slug,
			Image:  "https://cdn.example.com/" + slug + ".jpg",
			Weight: dec(weight),
			Sizes: []catalog.Size{{
				Size:     "M",
				Price:    dec(price),
				Discount: dec(discount),
				Quantity: stock,
			}},
		}},
	}
	require.NoError(t, db.Create(&product).Error)

	return Line{
		ProductID: product.ID,
		VariantID: product.Variants[0].ID,
		SizeID:    product.Variants[0].Sizes[0].ID,
	}
}
