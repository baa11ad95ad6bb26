package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestMigration(t *testing.T) (*Migration, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewMigration(db, logger.Discard()), db
}

func TestMigration_CreatesSchemaAndIndexes(t *testing.T) {
	m, db := newTestMigration(t)

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
	// both steps are repeatable
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())

	for _, table := range []string{"stores", "products", "sizes", "carts", "cart_items", "orders", "order_groups", "order_items", "order_status_history"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("orders", "idx_orders_user_created"))
	assert.True(t, db.Migrator().HasIndex("order_groups", "idx_order_groups_store"))
}

func TestMigration_SeedIsIdempotent(t *testing.T) {
	m, db := newTestMigration(t)
	require.NoError(t, m.RunAutoMigrations())

	require.NoError(t, m.SeedInitialData())
	require.NoError(t, m.SeedInitialData())

	var stores, products, countries, rates int64
	db.Model(&catalog.Store{}).Count(&stores)
	db.Model(&catalog.Product{}).Count(&products)
	db.Model(&catalog.Country{}).Count(&countries)
	db.Model(&catalog.ShippingRate{}).Count(&rates)

	assert.Equal(t, int64(2), stores)
	assert.Equal(t, int64(3), products)
	assert.Equal(t, int64(len(defaultCountries)), countries)
	assert.Equal(t, int64(1), rates)

	var mug catalog.Product
	require.NoError(t, db.Preload("Variants.Sizes").Where("slug = ?", "speckled-mug").First(&mug).Error)
	assert.Equal(t, catalog.ShippingFeeMethodFixed, mug.ShippingFeeMethod)
	require.Len(t, mug.Variants, 1)
	require.Len(t, mug.Variants[0].Sizes, 1)
	assert.True(t, mug.Variants[0].Sizes[0].Price.Equal(decimal.NewFromInt(15)))
}

func TestMigration_TableInfoAndDrop(t *testing.T) {
	m, db := newTestMigration(t)
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())

	info, err := m.GetTableInfo()
	require.NoError(t, err)
	counts := make(map[string]int64, len(info))
	for _, ti := range info {
		counts[ti.Name] = ti.Records
	}
	assert.Equal(t, int64(2), counts["stores"])
	assert.Equal(t, int64(0), counts["orders"])

	require.NoError(t, m.DropAllTables())
	assert.False(t, db.Migrator().HasTable("orders"))
	assert.False(t, db.Migrator().HasTable("countries"))
}
