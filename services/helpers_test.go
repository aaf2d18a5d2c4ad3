package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.SilenceLoggers()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	db       *gorm.DB
	rec      *events.Recorder
	tables   *TableService
	catalog  *CatalogService
	loyalty  *LoyaltyService
	orders   *OrderService
	category *models.MenuCategory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	rec := &events.Recorder{}
	loyalty := NewLoyaltyService(db, rec, 10000)
	f := &fixture{
		db:      db,
		rec:     rec,
		tables:  NewTableService(db, rec, "Table"),
		catalog: NewCatalogService(db, rec),
		loyalty: loyalty,
		orders:  NewOrderService(db, rec, loyalty, NewPricing(0)),
	}
	cat, err := f.catalog.CreateCategory(context.Background(), "Mains", 1)
	require.NoError(t, err)
	f.category = cat
	return f
}

func (f *fixture) table(t *testing.T, name string) *models.Table {
	t.Helper()
	table, err := f.tables.CreateTable(context.Background(), CreateTableInput{Name: name, Capacity: 4})
	require.NoError(t, err)
	return table
}

func (f *fixture) menu(t *testing.T, name string, price int64) *models.Menu {
	t.Helper()
	menu, err := f.catalog.CreateMenu(context.Background(), MenuInput{CategoryID: f.category.ID, Name: name, Price: price})
	require.NoError(t, err)
	return menu
}

func (f *fixture) reloadTable(t *testing.T, id uint) *models.Table {
	t.Helper()
	table, err := f.tables.GetTable(context.Background(), id)
	require.NoError(t, err)
	return table
}

func (f *fixture) countOrders(t *testing.T, tableID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("table_id = ?", tableID).Count(&n).Error)
	return n
}

func lines(menuID uint, qty int) []LineInput {
	return []LineInput{{MenuID: menuID, Quantity: qty}}
}

func ptr[T any](v T) *T { return &v }
