package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/services"
)

// Deps is everything the HTTP layer needs from main.
type Deps struct {
	DB      *gorm.DB
	Policy  *policy.Engine
	Hub     *kds.Hub
	Tables  *services.TableService
	Catalog *services.CatalogService
	Orders  *services.OrderService
	Loyalty *services.LoyaltyService

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigins))
	if d.RateLimitRPS > 0 {
		r.Use(middlewares.NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst).RateLimit())
	}

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(d.DB, d.Policy)
	tableCtrl := controllers.NewTableController(d.Tables, d.Orders)
	categoryCtrl := controllers.NewMenuCategoryController(d.Catalog)
	menuCtrl := controllers.NewMenuController(d.Catalog)
	orderCtrl := controllers.NewOrderController(d.Orders)
	cartCtrl := controllers.NewCartController(d.Catalog, d.Orders)
	customerCtrl := controllers.NewCustomerController(d.Loyalty)
	capabilityCtrl := controllers.NewCapabilityController(d.Policy)
	adminCtrl := controllers.NewAdminController(d.Orders, d.Tables)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.Policy, d.CORSOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Rate limiter untuk login/register. /register tanpa token hanya untuk
	// akun admin pertama; akun berikutnya dibuat lewat POST /pos/users.
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Event realtime untuk terminal kasir dan dapur
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), kdsCtrl.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	pos := r.Group("/pos")
	pos.Use(middlewares.AuthMiddleware())

	can := func(capability policy.Capability) gin.HandlerFunc {
		return middlewares.RequireCapability(d.Policy, capability)
	}

	pos.GET("/profile", userCtrl.GetProfile)
	pos.POST("/users", can(policy.UsersWrite), userCtrl.Register)
	pos.GET("/capabilities", capabilityCtrl.GetCapabilities)
	pos.GET("/dashboard", can(policy.OrdersRead), adminCtrl.GetDashboardStats)

	// TABLES
	pos.GET("/tables", can(policy.TablesRead), tableCtrl.GetAllTables)
	pos.GET("/tables/stats", can(policy.TablesRead), tableCtrl.GetTableStats)
	pos.GET("/tables/:id", can(policy.TablesRead), tableCtrl.GetTable)
	pos.GET("/tables/:id/current-order", can(policy.OrdersRead), tableCtrl.GetCurrentOrder)
	pos.POST("/tables", can(policy.TablesWrite), tableCtrl.CreateTable)
	pos.POST("/tables/renumber", can(policy.TablesWrite), tableCtrl.RenumberTables)
	pos.PATCH("/tables/:id", can(policy.TablesWrite), tableCtrl.UpdateTable)
	pos.DELETE("/tables/:id", can(policy.TablesDelete), tableCtrl.DeleteTable)
	pos.DELETE("/tables/:id/force", can(policy.TablesDelete), tableCtrl.ForceDeleteTable)

	// MENU CATEGORIES
	pos.GET("/categories", can(policy.MenuRead), categoryCtrl.GetAllCategories)
	pos.POST("/categories", can(policy.MenuWrite), categoryCtrl.CreateCategory)
	pos.PATCH("/categories/:id", can(policy.MenuWrite), categoryCtrl.UpdateCategory)
	pos.DELETE("/categories/:id", can(policy.MenuWrite), categoryCtrl.DeleteCategory)

	// MENUS
	pos.GET("/menu", can(policy.MenuRead), menuCtrl.GetAllMenus)
	pos.GET("/menu/:id", can(policy.MenuRead), menuCtrl.GetMenuByID)
	pos.POST("/menu", can(policy.MenuWrite), menuCtrl.CreateMenu)
	pos.PATCH("/menu/:id", can(policy.MenuWrite), menuCtrl.UpdateMenu)
	pos.DELETE("/menu/:id", can(policy.MenuWrite), menuCtrl.DeleteMenu)
	pos.DELETE("/menu/:id/force", can(policy.MenuWrite), menuCtrl.ForceDeleteMenu)

	// ORDERS
	pos.GET("/orders", can(policy.OrdersRead), orderCtrl.GetAllOrders)
	pos.GET("/orders/:id", can(policy.OrdersRead), orderCtrl.GetOrderByID)
	pos.POST("/orders", can(policy.OrdersWrite), orderCtrl.CreateOrder)
	pos.POST("/orders/:id/items", can(policy.OrdersWrite), orderCtrl.AddOrderItems)
	pos.PATCH("/orders/:id", can(policy.OrdersTransfer), orderCtrl.TransferOrder)
	pos.PATCH("/orders/:id/status", can(policy.OrdersComplete), orderCtrl.UpdateOrderStatus)
	pos.DELETE("/orders/:id", can(policy.OrdersDelete), orderCtrl.DeleteOrder)

	// CART
	pos.POST("/cart/preview", can(policy.MenuRead), cartCtrl.Preview)
	pos.POST("/cart/submit", can(policy.OrdersWrite), cartCtrl.Submit)

	// CUSTOMERS & LOYALTY
	pos.GET("/customers", can(policy.CustomersRead), customerCtrl.GetAllCustomers)
	pos.GET("/customers/:id", can(policy.CustomersRead), customerCtrl.GetCustomerByID)
	pos.POST("/customers", can(policy.CustomersWrite), customerCtrl.CreateCustomer)
	pos.PATCH("/customers/:id", can(policy.CustomersWrite), customerCtrl.UpdateCustomer)
	pos.DELETE("/customers/:id", can(policy.CustomersWrite), customerCtrl.DeleteCustomer)
	pos.GET("/customers/:id/points", can(policy.CustomersRead), customerCtrl.GetPoints)
	pos.POST("/customers/:id/points", can(policy.LoyaltyAdjust), customerCtrl.AddPoints)

	return r
}
