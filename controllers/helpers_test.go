package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type apiResponse struct {
	Status   bool              `json:"status"`
	Message  string            `json:"message"`
	Code     string            `json:"code"`
	Metadata map[string]string `json:"metadata"`
	Data     json.RawMessage   `json:"data"`
}

type testEnv struct {
	db      *gorm.DB
	router  *gin.Engine
	tables  *services.TableService
	catalog *services.CatalogService
	orders  *services.OrderService
	loyalty *services.LoyaltyService
	role    string
}

// newTestEnv wires controllers over an in-memory database. Requests run as
// the given role; routes are guarded the same way the production router
// guards them.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
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

	notifier := events.Nop{}
	loyalty := services.NewLoyaltyService(db, notifier, 10000)
	e := &testEnv{
		db:      db,
		tables:  services.NewTableService(db, notifier, "Table"),
		catalog: services.NewCatalogService(db, notifier),
		orders:  services.NewOrderService(db, notifier, loyalty, services.NewPricing(0)),
		loyalty: loyalty,
		role:    policy.RoleAdmin,
	}

	engine := policy.Default()
	can := func(c policy.Capability) gin.HandlerFunc { return middlewares.RequireCapability(engine, c) }

	r := gin.New()
	// An empty role stands for an unauthenticated caller.
	r.Use(func(c *gin.Context) {
		if e.role != "" {
			c.Set(middlewares.CtxRole, e.role)
			c.Set(middlewares.CtxUserID, uint(1))
		}
		c.Next()
	})

	tableCtrl := NewTableController(e.tables, e.orders)
	r.GET("/pos/tables", can(policy.TablesRead), tableCtrl.GetAllTables)
	r.GET("/pos/tables/stats", can(policy.TablesRead), tableCtrl.GetTableStats)
	r.GET("/pos/tables/:id", can(policy.TablesRead), tableCtrl.GetTable)
	r.GET("/pos/tables/:id/current-order", can(policy.OrdersRead), tableCtrl.GetCurrentOrder)
	r.POST("/pos/tables", can(policy.TablesWrite), tableCtrl.CreateTable)
	r.POST("/pos/tables/renumber", can(policy.TablesWrite), tableCtrl.RenumberTables)
	r.PATCH("/pos/tables/:id", can(policy.TablesWrite), tableCtrl.UpdateTable)
	r.DELETE("/pos/tables/:id", can(policy.TablesDelete), tableCtrl.DeleteTable)
	r.DELETE("/pos/tables/:id/force", can(policy.TablesDelete), tableCtrl.ForceDeleteTable)

	menuCtrl := NewMenuController(e.catalog)
	categoryCtrl := NewMenuCategoryController(e.catalog)
	r.GET("/pos/categories", can(policy.MenuRead), categoryCtrl.GetAllCategories)
	r.POST("/pos/categories", can(policy.MenuWrite), categoryCtrl.CreateCategory)
	r.GET("/pos/menu", can(policy.MenuRead), menuCtrl.GetAllMenus)
	r.POST("/pos/menu", can(policy.MenuWrite), menuCtrl.CreateMenu)
	r.PATCH("/pos/menu/:id", can(policy.MenuWrite), menuCtrl.UpdateMenu)
	r.DELETE("/pos/menu/:id", can(policy.MenuWrite), menuCtrl.DeleteMenu)
	r.DELETE("/pos/menu/:id/force", can(policy.MenuWrite), menuCtrl.ForceDeleteMenu)

	orderCtrl := NewOrderController(e.orders)
	r.GET("/pos/orders", can(policy.OrdersRead), orderCtrl.GetAllOrders)
	r.GET("/pos/orders/:id", can(policy.OrdersRead), orderCtrl.GetOrderByID)
	r.POST("/pos/orders", can(policy.OrdersWrite), orderCtrl.CreateOrder)
	r.POST("/pos/orders/:id/items", can(policy.OrdersWrite), orderCtrl.AddOrderItems)
	r.PATCH("/pos/orders/:id", can(policy.OrdersTransfer), orderCtrl.TransferOrder)
	r.PATCH("/pos/orders/:id/status", can(policy.OrdersComplete), orderCtrl.UpdateOrderStatus)
	r.DELETE("/pos/orders/:id", can(policy.OrdersDelete), orderCtrl.DeleteOrder)

	cartCtrl := NewCartController(e.catalog, e.orders)
	r.POST("/pos/cart/preview", can(policy.MenuRead), cartCtrl.Preview)
	r.POST("/pos/cart/submit", can(policy.OrdersWrite), cartCtrl.Submit)

	customerCtrl := NewCustomerController(e.loyalty)
	r.GET("/pos/customers", can(policy.CustomersRead), customerCtrl.GetAllCustomers)
	r.POST("/pos/customers", can(policy.CustomersWrite), customerCtrl.CreateCustomer)
	r.GET("/pos/customers/:id/points", can(policy.CustomersRead), customerCtrl.GetPoints)
	r.POST("/pos/customers/:id/points", can(policy.LoyaltyAdjust), customerCtrl.AddPoints)

	r.GET("/pos/capabilities", NewCapabilityController(engine).GetCapabilities)
	r.GET("/pos/dashboard", can(policy.OrdersRead), NewAdminController(e.orders, e.tables).GetDashboardStats)

	userCtrl := NewUserController(db, engine)
	r.POST("/register", userCtrl.Register)
	r.POST("/login", userCtrl.Login)
	r.GET("/pos/profile", userCtrl.GetProfile)
	r.POST("/pos/users", can(policy.UsersWrite), userCtrl.Register)

	e.router = r
	return e
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decode(t *testing.T, resp apiResponse, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst), string(resp.Data))
}

func (e *testEnv) seedTable(t *testing.T, name string) *models.Table {
	t.Helper()
	table, err := e.tables.CreateTable(context.Background(), services.CreateTableInput{Name: name, Capacity: 4})
	require.NoError(t, err)
	return table
}

func (e *testEnv) seedMenu(t *testing.T, name string, price int64) *models.Menu {
	t.Helper()
	ctx := context.Background()
	cats, err := e.catalog.ListCategories(ctx)
	require.NoError(t, err)
	var catID uint
	if len(cats) == 0 {
		cat, err := e.catalog.CreateCategory(ctx, "Mains", 1)
		require.NoError(t, err)
		catID = cat.ID
	} else {
		catID = cats[0].ID
	}
	menu, err := e.catalog.CreateMenu(ctx, services.MenuInput{CategoryID: catID, Name: name, Price: price})
	require.NoError(t, err)
	return menu
}

func (e *testEnv) tableStatus(t *testing.T, id uint) string {
	t.Helper()
	table, err := e.tables.GetTable(context.Background(), id)
	require.NoError(t, err)
	return table.Status
}

func urlf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
