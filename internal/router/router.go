// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/cache"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/handlers"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/services"
)

const version = "1.0.0"

// Dependencies are the pieces chosen at startup; tests swap in the memory
// store and a fake processor.
type Dependencies struct {
	Store       repository.Store
	Processor   services.PaymentProcessor
	Idempotency cache.IdempotencyStore
	Storage     *services.StorageService
}

// Services holds everything the router wires together.
type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Products      *services.ProductService
	Carts         *services.CartService
	Orders        *services.OrderService
	Payments      *services.PaymentService
	Admin         *services.AdminService
	Engagement    *services.EngagementService
	Notifications *services.NotificationService
	Storage       *services.StorageService
	Events        *services.OrderEventHub
	Limiters      *middleware.RateLimiters

	store repository.Store
}

func NewServices(cfg *config.Config, deps Dependencies) *Services {
	events := services.NewOrderEventHub(cfg.Frontend.AllowedOrigins)
	notifications := services.NewNotificationService(deps.Store, cfg)

	return &Services{
		Auth:          services.NewAuthService(deps.Store, cfg),
		Users:         services.NewUserService(deps.Store),
		Products:      services.NewProductService(deps.Store),
		Carts:         services.NewCartService(deps.Store),
		Orders:        services.NewOrderService(deps.Store, events),
		Payments:      services.NewPaymentService(deps.Store, deps.Processor, deps.Idempotency, notifications, events, cfg.Payment),
		Admin:         services.NewAdminService(deps.Store, notifications, events),
		Engagement:    services.NewEngagementService(deps.Store, notifications),
		Notifications: notifications,
		Storage:       deps.Storage,
		Events:        events,
		Limiters:      middleware.NewRateLimiters(cfg.Security),
		store:         deps.Store,
	}
}

func Initialize(cfg *config.Config, svc *Services) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Users, cfg.Session)
	userHandler := handlers.NewUserHandler(svc.Users)
	productHandler := handlers.NewProductHandler(svc.Products, svc.Storage, svc.Engagement)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	orderHandler := handlers.NewOrderHandler(svc.Orders, svc.Payments)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	engagementHandler := handlers.NewEngagementHandler(svc.Engagement)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Payments, svc.Events)

	auth := middleware.NewAuthenticator(svc.Auth, cfg.Session.CookieName)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(svc.Limiters.General.Middleware())
	r.Use(middleware.AuditLogMiddleware(svc.store))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version})
		})

		// Authentication and account
		authGroup := v1.Group("/auth")
		authGroup.Use(svc.Limiters.Auth.Middleware())
		{
			authGroup.GET("/captcha", authHandler.Captcha)
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.RefreshToken)
			authGroup.POST("/logout", auth.AuthRequired(), authHandler.Logout)
			authGroup.GET("/me", auth.AuthRequired(), authHandler.GetProfile)
			authGroup.PUT("/profile", auth.AuthRequired(), authHandler.UpdateProfile)
			authGroup.PUT("/password", auth.AuthRequired(), authHandler.ChangePassword)
		}

		addresses := v1.Group("/addresses")
		addresses.Use(auth.AuthRequired())
		{
			addresses.GET("", userHandler.ListAddresses)
			addresses.POST("", userHandler.CreateAddress)
			addresses.PUT("/:id", userHandler.UpdateAddress)
			addresses.DELETE("/:id", userHandler.DeleteAddress)
		}

		wishlist := v1.Group("/wishlist")
		wishlist.Use(auth.AuthRequired())
		{
			wishlist.GET("", engagementHandler.GetWishlist)
			wishlist.POST("", engagementHandler.AddToWishlist)
			wishlist.DELETE("/:productId", engagementHandler.RemoveFromWishlist)
		}

		// Catalog
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/featured", productHandler.GetFeaturedProducts)
			products.GET("/search", productHandler.SearchProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/reviews", productHandler.GetReviews)
			products.POST("/:id/reviews", auth.AuthRequired(), productHandler.CreateReview)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", productHandler.GetCategories)
			categories.GET("/:id/products", productHandler.GetCategoryProducts)
		}

		v1.GET("/lifestyle", productHandler.GetLifestyleItems)

		// Cart, orders and payments
		cart := v1.Group("/cart")
		cart.Use(auth.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:id", cartHandler.UpdateItem)
			cart.DELETE("/items/:id", cartHandler.RemoveItem)
			cart.DELETE("", cartHandler.Clear)
		}

		orders := v1.Group("/orders")
		orders.Use(auth.AuthRequired())
		{
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("", orderHandler.CreateOrder)
			orders.POST("/:id/confirm-payment", orderHandler.ConfirmPayment)
		}

		v1.POST("/create-payment-intent", auth.AuthRequired(), paymentHandler.CreatePaymentIntent)
		v1.POST("/webhook", paymentHandler.Webhook)

		// Enquiries and newsletter
		v1.POST("/enquiries", auth.OptionalAuth(), engagementHandler.CreateEnquiry)
		v1.GET("/enquiries", auth.AuthRequired(), engagementHandler.ListMyEnquiries)
		v1.POST("/newsletter", engagementHandler.Subscribe)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(auth.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/notifications", adminHandler.GetNotifications)
			admin.GET("/users", adminHandler.GetUsers)

			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", adminHandler.GetOrders)
				adminOrders.GET("/export", adminHandler.ExportOrders)
				adminOrders.GET("/live", adminHandler.LiveOrders)
				adminOrders.PUT("/:id/status", adminHandler.UpdateOrderStatus)
				adminOrders.POST("/:id/refund", adminHandler.RefundOrder)
			}

			adminProducts := admin.Group("/products")
			{
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.PUT("/:id", productHandler.UpdateProduct)
				adminProducts.DELETE("/:id", productHandler.DeleteProduct)
				adminProducts.POST("/:id/image", svc.Limiters.Upload.Middleware(), productHandler.UploadProductImage)
			}

			admin.POST("/categories", productHandler.CreateCategory)

			adminEnquiries := admin.Group("/enquiries")
			{
				adminEnquiries.GET("", engagementHandler.ListEnquiries)
				adminEnquiries.PUT("/:id/resolve", engagementHandler.ResolveEnquiry)
			}
		}
	}

	// Local uploads when S3 is not configured
	if !cfg.IsProduction() {
		r.Static("/uploads", "./uploads")
	}

	return r
}
