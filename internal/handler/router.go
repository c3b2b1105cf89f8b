package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/middleware"
	"github.com/shopfront/order-service/internal/service"
)

type Deps struct {
	ServiceName string
	CORSOrigins []string
	DB          HealthChecker
	Auth        *middleware.Authenticator
	Orders      service.OrderService
	Carts       service.CartService
	Wallet      service.WalletService
	Products    service.ProductService
	Logger      *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// otelgin goes first so later middleware sees the request span.
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middleware.LoggerMiddleware(d.Logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", Health(d.DB))
	r.GET("/metrics", middleware.PrometheusHandler())

	orders := NewOrderHandler(d.Orders, d.Logger)
	carts := NewCartHandler(d.Carts, d.Logger)
	wallet := NewWalletHandler(d.Wallet, d.Logger)
	products := NewProductHandler(d.Products, d.Logger)
	admin := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api")
	api.GET("/Products", products.List)
	api.GET("/Products/:id", products.Get)

	authed := api.Group("", d.Auth.Require())
	authed.POST("/Products", admin, products.Create)

	o := authed.Group("/Order")
	o.POST("/create", orders.Create)
	o.GET("/my-orders", orders.MyOrders)
	o.GET("/all", admin, orders.All)
	o.GET("/admin/:id", admin, orders.GetAny)
	o.GET("/:id", orders.Get)
	o.POST("/:id/cancel", orders.Cancel)
	o.PUT("/:id/status", admin, orders.UpdateStatus)

	ct := authed.Group("/Cart")
	ct.GET("", carts.Get)
	ct.POST("/add", carts.Add)
	ct.PUT("/items/:cartItemId", carts.UpdateItem)
	ct.DELETE("/items/:cartItemId", carts.RemoveItem)
	ct.DELETE("/clear", carts.Clear)

	w := authed.Group("/Wallet")
	w.GET("/balance", wallet.Balance)
	w.GET("/transactions", wallet.Transactions)
	w.GET("/balance/:userId", admin, wallet.BalanceForUser)
	w.PUT("/update-balance", admin, wallet.UpdateBalance)
	w.POST("/add-balance", admin, wallet.AddBalance)
	w.POST("/deduct-balance", admin, wallet.DeductBalance)

	return r
}
