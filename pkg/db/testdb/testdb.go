// Package testdb opens throwaway SQLite databases migrated from the models.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/types"
)

// Open returns a fresh in-memory database with every model migrated. The pool
// is capped at one connection so transactions serialize the way row locks
// would on Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:store_" + uuid.NewString() + "?mode=memory&cache=shared&_fk=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return conn
}

// SeedProduct inserts a product with the given name and price and no stock.
func SeedProduct(t testing.TB, conn *gorm.DB, name, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Category:    "dresses",
		Price:       decimal.RequireFromString(price),
		Images:      types.StringList{"https://cdn.example.com/" + uuid.NewString() + ".jpg"},
		Sizes:       types.SizeList{},
		Colors:      types.ColorList{},
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedEntry inserts a ledger entry without touching the product aggregate.
func SeedEntry(t testing.TB, conn *gorm.DB, productID uuid.UUID, size, color string, qty, threshold int) *models.InventoryEntry {
	t.Helper()
	entry := &models.InventoryEntry{
		ProductID:         productID,
		Size:              size,
		Color:             color,
		Quantity:          qty,
		LowStockThreshold: threshold,
		Location:          "Main Warehouse",
	}
	if err := conn.Create(entry).Error; err != nil {
		t.Fatalf("seed inventory entry: %v", err)
	}
	return entry
}

// ProductStock reads the aggregate stock column.
func ProductStock(t testing.TB, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

// LedgerSum sums the product's entry quantities.
func LedgerSum(t testing.TB, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var sum int64
	if err := conn.Model(&models.InventoryEntry{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error; err != nil {
		t.Fatalf("sum ledger: %v", err)
	}
	return int(sum)
}

// History returns the product's history, oldest first.
func History(t testing.TB, conn *gorm.DB, productID uuid.UUID) []models.InventoryHistory {
	t.Helper()
	var rows []models.InventoryHistory
	if err := conn.Where("product_id = ?", productID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	return rows
}
