// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every table in dependency order
func Models() []interface{} {
	return []interface{}{
		// Catalog
		&catalog.Country{},
		&catalog.Store{},
		&catalog.Product{},
		&catalog.Variant{},
		&catalog.Size{},
		&catalog.FreeShipping{},
		&catalog.FreeShippingCountry{},
		&catalog.ShippingRate{},
		&catalog.StoreFollower{},

		// Cart
		&cart.Cart{},
		&cart.CartItem{},

		// Orders
		&order.Order{},
		&order.OrderGroup{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes the read paths rely on
func (m *Migration) CreateIndexes() error {
	m.logger.Info("Creating database indexes")

	indexes := []string{
		// Order history listing
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",

		// Store dashboards read groups by store and status
		"CREATE INDEX IF NOT EXISTS idx_order_groups_store_status ON order_groups(store_id, status)",

		// Catalog lookups during revalidation
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product ON product_variants(product_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_sizes_variant ON sizes(variant_id, id)",

		"CREATE INDEX IF NOT EXISTS idx_store_followers_store ON store_followers(store_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order_created ON order_status_history(order_id, created_at)",
	}

	for _, query := range indexes {
		if err := m.db.Exec(query).Error; err != nil {
			m.logger.WithError(err).Warnf("Failed to create index: %s", query)
			continue
		}
	}

	m.logger.Info("Database indexes created")
	return nil
}

// SeedInitialData inserts a small two-store catalog for development. It is
// safe to run repeatedly.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("Seeding initial data")

	if err := m.seedCountries(); err != nil {
		return fmt.Errorf("failed to seed countries: %w", err)
	}
	if err := m.seedStores(); err != nil {
		return fmt.Errorf("failed to seed stores: %w", err)
	}

	m.logger.Info("Initial data seeding completed")
	return nil
}

var defaultCountries = []catalog.Country{
	{Name: "United States", Code: "US"},
	{Name: "United Kingdom", Code: "GB"},
	{Name: "France", Code: "FR"},
	{Name: "Germany", Code: "DE"},
	{Name: "India", Code: "IN"},
}

func (m *Migration) seedCountries() error {
	for _, c := range defaultCountries {
		country := c
		if err := m.db.Where(catalog.Country{Code: country.Code, Name: country.Name}).FirstOrCreate(&country).Error; err != nil {
			return err
		}
	}
	return nil
}

type seedProduct struct {
	slug     string
	name     string
	method   catalog.ShippingFeeMethod
	weight   string
	price    string
	discount string
	stock    int
}

type seedStore struct {
	store    catalog.Store
	products []seedProduct
	// per-country overrides keyed by country code
	rates map[string]catalog.ShippingRate
}

func defaultStores() []seedStore {
	d := decimal.RequireFromString
	return []seedStore{
		{
			store: catalog.Store{
				Name:                                "Thread & Co",
				URL:                                 "thread-co",
				Email:                               "hello@thread.example.com",
				DefaultShippingService:              "Standard Post",
				DefaultShippingFeePerItem:           d("5"),
				DefaultShippingFeeForAdditionalItem: d("2"),
				DefaultShippingFeePerKg:             d("4"),
				DefaultDeliveryTimeMin:              5,
				DefaultDeliveryTimeMax:              14,
				ReturnPolicy:                        "Returns accepted within 30 days",
			},
			products: []seedProduct{
				{slug: "organic-tee", name: "Organic Tee", method: catalog.ShippingFeeMethodItem, weight: "0.2", price: "20.00", discount: "0", stock: 50},
				{slug: "rye-flour", name: "Stone-milled Rye Flour", method: catalog.ShippingFeeMethodWeight, weight: "1.5", price: "8.00", discount: "0", stock: 200},
			},
			rates: map[string]catalog.ShippingRate{
				"US": {ShippingService: "USPS Priority", ShippingFeePerItem: d("7"), ShippingFeeForAdditionalItem: d("3"), DeliveryTimeMin: 3, DeliveryTimeMax: 7},
			},
		},
		{
			store: catalog.Store{
				Name:                    "Kiln House",
				URL:                     "kiln-house",
				Email:                   "studio@kiln.example.com",
				DefaultShippingService:  "Courier",
				DefaultShippingFeeFixed: d("10"),
				DefaultDeliveryTimeMin:  2,
				DefaultDeliveryTimeMax:  5,
				ReturnPolicy:            "No returns on handmade items",
			},
			products: []seedProduct{
				{slug: "speckled-mug", name: "Speckled Mug", method: catalog.ShippingFeeMethodFixed, weight: "0.4", price: "15.00", discount: "10", stock: 30},
			},
		},
	}
}

func (m *Migration) seedStores() error {
	for _, s := range defaultStores() {
		store := s.store
		var existing catalog.Store
		err := m.db.Where("url = ?", store.URL).First(&existing).Error
		if err == nil {
			m.logger.WithField("store", store.URL).Debug("Store already exists")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = m.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&store).Error; err != nil {
				return err
			}
			for _, p := range s.products {
				if err := tx.Create(seedCatalogProduct(store.ID, p)).Error; err != nil {
					return fmt.Errorf("product %s: %w", p.slug, err)
				}
			}
			for code, rate := range s.rates {
				var country catalog.Country
				if err := tx.Where("code = ?", code).First(&country).Error; err != nil {
					return fmt.Errorf("country %s: %w", code, err)
				}
				rate.StoreID = store.ID
				rate.CountryID = country.ID
				if err := tx.Create(&rate).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("store %s: %w", store.URL, err)
		}
		m.logger.WithField("store", store.Name).Info("Created store")
	}
	return nil
}

func seedCatalogProduct(storeID uint, p seedProduct) *catalog.Product {
	return &catalog.Product{
		StoreID:           storeID,
		Name:              p.name,
		Slug:              p.slug,
		ShippingFeeMethod: p.method,
		Variants: []catalog.Variant{{
			Name:   p.name,
			Slug:   p.slug + "-default",
			SKU:    "SEED-" + p.slug,
			Weight: decimal.RequireFromString(p.weight),
			Sizes: []catalog.Size{{
				Size:     "One size",
				Price:    decimal.RequireFromString(p.price),
				Discount: decimal.RequireFromString(p.discount),
				Quantity: p.stock,
			}},
		}},
	}
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	m.logger.Warn("Dropping all database tables")

	models := Models()
	// reverse dependency order
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", models[i], err)
		}
	}

	m.logger.Info("All tables dropped")
	return nil
}

// TableInfo is the row count of one table
type TableInfo struct {
	Name    string `json:"name"`
	Records int64  `json:"records"`
}

// GetTableInfo returns the row count of every table
func (m *Migration) GetTableInfo() ([]TableInfo, error) {
	tables, err := m.db.Migrator().GetTables()
	if err != nil {
		return nil, err
	}

	info := make([]TableInfo, 0, len(tables))
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		info = append(info, TableInfo{Name: table, Records: count})
	}
	return info, nil
}
