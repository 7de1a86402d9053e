package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/handlers"
	"github.com/marketconnect/marketconnect/internal/handlers/cart"
	"github.com/marketconnect/marketconnect/internal/handlers/order"
	"github.com/marketconnect/marketconnect/internal/middleware/auth"
	"github.com/marketconnect/marketconnect/internal/models"
)

type Deps struct {
	DB              *gorm.DB
	JWTSecret       []byte
	VendorHandler   *handlers.VendorHandler
	CustomerHandler *handlers.CustomerHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	CartHandler     *cart.CartHandler
	OrderHandler    *order.OrderHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	authed := auth.Middleware(d.JWTSecret)
	vendorOnly := []echo.MiddlewareFunc{authed, auth.RequireRole(models.RoleVendor)}
	customerOnly := []echo.MiddlewareFunc{authed, auth.RequireRole(models.RoleCustomer)}

	vendors := api.Group("/vendors")
	vendors.POST("/signup", d.VendorHandler.Signup)
	vendors.POST("/login", d.VendorHandler.Login)
	vendors.GET("/profile", d.VendorHandler.GetProfile, vendorOnly...)
	vendors.PUT("/profile", d.VendorHandler.UpdateProfile, vendorOnly...)
	vendors.GET("/id-card", d.VendorHandler.IDCard, vendorOnly...)

	customers := api.Group("/customers")
	customers.POST("/register", d.CustomerHandler.Register)
	customers.POST("/login", d.CustomerHandler.Login)
	customers.POST("/social-auth", d.CustomerHandler.SocialAuth)
	customers.POST("/forgot-password", d.CustomerHandler.ForgotPassword)
	customers.POST("/reset-password", d.CustomerHandler.ResetPassword)
	customers.GET("/profile", d.CustomerHandler.GetProfile, customerOnly...)
	customers.PUT("/profile", d.CustomerHandler.UpdateProfile, customerOnly...)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/trending", d.ProductHandler.Trending)
	products.GET("/flash-deals", d.ProductHandler.FlashDeals)
	if d.SearchHandler != nil {
		products.GET("/search", d.SearchHandler.Search)
	}
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, vendorOnly...)
	products.PUT("/:id", d.ProductHandler.UpdateProduct, vendorOnly...)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, vendorOnly...)

	cartGroup := api.Group("/cart", customerOnly...)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PUT("/:id", d.CartHandler.UpdateItem)
	cartGroup.DELETE("/:id", d.CartHandler.DeleteItem)
	cartGroup.DELETE("", d.CartHandler.ClearCart)

	orders := api.Group("/orders")
	orders.POST("", d.OrderHandler.Create, customerOnly...)
	orders.POST("/in-store", d.OrderHandler.CreateInStore, customerOnly...)
	orders.GET("/customer", d.OrderHandler.ListCustomerOrders, customerOnly...)
	orders.GET("/customer/:orderId", d.OrderHandler.GetCustomerOrder, customerOnly...)
	orders.GET("/vendor", d.OrderHandler.ListVendorOrders, vendorOnly...)
	orders.PUT("/:orderId/status", d.OrderHandler.UpdateStatus, vendorOnly...)
}
