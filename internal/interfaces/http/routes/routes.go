// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
	"github.com/your-org/marketplace-backend/internal/pkg/email"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Dependencies are the shared resources the routes are built from
type Dependencies struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Config      *config.Config
	Logger      *logrus.Logger
	Metrics     *metrics.Metrics
	JWT         *auth.JWTManager
}

// Handlers holds every handler of the API
type Handlers struct {
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
	Country  *handlers.CountryHandler
	Store    *handlers.StoreHandler

	resolver *country.Resolver
}

// NewHandlers wires the domain services into handlers
func NewHandlers(deps Dependencies) *Handlers {
	cfg := deps.Config

	reader := catalog.NewRepository(deps.DB)
	calculator := shipping.NewCalculator(reader, cfg.Checkout, deps.Logger)
	revalidator := cart.NewRevalidator(reader, calculator, cfg.Checkout, deps.Metrics, deps.Logger)
	syncer := cart.NewSyncer(revalidator)
	cartService := cart.NewService(deps.DB, deps.RedisClient, reader, syncer, cfg.Checkout, deps.Logger)

	checkoutService := checkout.NewService(
		cartService,
		revalidator,
		order.NewSplitter(calculator),
		order.NewPersister(deps.DB, deps.Logger),
		cfg.Checkout,
		deps.Metrics,
		deps.Logger,
	)
	if cfg.Email.Enabled {
		checkoutService.SetNotifier(email.NewService(cfg.Email, deps.Logger), cfg.Email.SendTimeout)
	}

	resolver := country.NewResolver(deps.RedisClient, cfg.Checkout, deps.Logger)

	return &Handlers{
		Cart:     handlers.NewCartHandler(cartService, syncer, int(cfg.Checkout.GuestCartTTL.Seconds())),
		Checkout: handlers.NewCheckoutHandler(checkoutService),
		Order:    handlers.NewOrderHandler(order.NewService(deps.DB), pdf.NewService(cfg.Company), deps.Logger),
		Country:  handlers.NewCountryHandler(resolver),
		Store:    handlers.NewStoreHandler(catalog.NewFollowService(deps.DB)),
		resolver: resolver,
	}
}

// SetupRoutes registers every API route on rg
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	h := NewHandlers(deps)

	requireAuth := middleware.AuthMiddleware(deps.JWT)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.JWT)
	withCountry := middleware.Country(h.resolver)

	SetupCartRoutes(rg, h, optionalAuth, requireAuth, withCountry)
	SetupCheckoutRoutes(rg, h, requireAuth, withCountry)
	SetupOrderRoutes(rg, h, requireAuth)
	SetupCountryRoutes(rg, h, optionalAuth, withCountry)
	SetupStoreRoutes(rg, h, optionalAuth, requireAuth)
}

// SetupCartRoutes sets up cart routes. Guests and signed-in buyers share the
// basic cart; saving and merging need a buyer.
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers, optionalAuth, requireAuth, withCountry gin.HandlerFunc) {
	carts := rg.Group("/cart")
	carts.Use(optionalAuth, withCountry)
	{
		carts.POST("/refresh", h.Cart.RefreshCart)
		carts.GET("", h.Cart.GetCart)
		carts.POST("/items", h.Cart.AddToCart)
		carts.PUT("/items", h.Cart.UpdateCartItem)
		carts.DELETE("/items", h.Cart.RemoveFromCart)
		carts.DELETE("", h.Cart.ClearCart)
	}

	buyer := rg.Group("/cart")
	buyer.Use(requireAuth, withCountry)
	{
		buyer.POST("/save", h.Cart.SaveCart)
		buyer.POST("/merge", h.Cart.MergeCart)
	}
}

// SetupCheckoutRoutes sets up checkout routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth, withCountry gin.HandlerFunc) {
	checkouts := rg.Group("/checkout")
	checkouts.Use(requireAuth, withCountry)
	{
		checkouts.POST("/orders", h.Checkout.PlaceOrder)
		checkouts.GET("/summary", h.Checkout.GetCheckoutSummary)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, requireAuth gin.HandlerFunc) {
	orders := rg.Group("/orders")
	orders.Use(requireAuth)
	{
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("/:id/cancel", h.Order.CancelOrder)
		orders.GET("/:id/groups/:groupId/packing-slip", h.Order.GetPackingSlip)
	}
}

// SetupCountryRoutes sets up the country preference routes
func SetupCountryRoutes(rg *gin.RouterGroup, h *Handlers, optionalAuth, withCountry gin.HandlerFunc) {
	countries := rg.Group("/country")
	countries.Use(optionalAuth, withCountry)
	{
		countries.GET("", h.Country.GetCountry)
		countries.PUT("", h.Country.SetCountry)
	}
}

// SetupStoreRoutes sets up store follow routes
func SetupStoreRoutes(rg *gin.RouterGroup, h *Handlers, optionalAuth, requireAuth gin.HandlerFunc) {
	stores := rg.Group("/stores")
	{
		stores.GET("/:id/following", optionalAuth, h.Store.GetFollowing)
		stores.POST("/:id/follow", requireAuth, h.Store.ToggleFollow)
	}
}
