package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/promo"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const sessionCookie = "session_id"

// Store is the persistence surface the handlers use directly. The MySQL
// repository satisfies it; tests substitute in-memory fakes.
type Store interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, category *models.Category) error
	SetOrderPaymentID(ctx context.Context, id, paymentID string) error
	ListPromoCodes(ctx context.Context) ([]models.PromoCode, error)
	SavePromoCode(ctx context.Context, code *models.PromoCode) error
	DeletePromoCode(ctx context.Context, code string) error
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Cache is the redis surface the handlers use: the order status cache plus
// key invalidation for the promo code list.
type Cache interface {
	GetOrderStatusCache(ctx context.Context, orderID string) (*repository.OrderStatusCache, error)
	CacheOrderStatus(ctx context.Context, order *repository.OrderStatusCache) error
	Del(ctx context.Context, keys ...string) error
}

// Auditor records order events in the audit log.
type Auditor interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

type Gateway struct {
	config    *config.Config
	logger    *zap.Logger
	router    *gin.Engine
	store     Store
	redis     Cache
	audit     Auditor
	carts     *cart.Store
	orders    *orders.Service
	promos    *promo.Resolver
	quickpay  *payment.Quickpay
	cards     *payment.CardClient
	bank      *payment.BankTransfer
	confirmer *payment.Confirmer
}

type Deps struct {
	Store     Store
	Redis     Cache
	Audit     Auditor
	Carts     *cart.Store
	Orders    *orders.Service
	Promos    *promo.Resolver
	Quickpay  *payment.Quickpay
	Cards     *payment.CardClient
	Bank      *payment.BankTransfer
	Confirmer *payment.Confirmer
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:    cfg,
		logger:    logger,
		router:    router,
		store:     deps.Store,
		redis:     deps.Redis,
		audit:     deps.Audit,
		carts:     deps.Carts,
		orders:    deps.Orders,
		promos:    deps.Promos,
		quickpay:  deps.Quickpay,
		cards:     deps.Cards,
		bank:      deps.Bank,
		confirmer: deps.Confirmer,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		// Catalog
		v1.GET("/products", g.listProducts)
		v1.GET("/products/:id", g.getProduct)
		v1.GET("/categories", g.listCategories)

		// Cart
		carts := v1.Group("/cart")
		{
			carts.GET("", g.getCart)
			carts.POST("/items", g.addCartItem)
			carts.PUT("/items/:productID", g.updateCartItem)
			carts.DELETE("/items/:productID", g.removeCartItem)
			carts.DELETE("", g.clearCart)
		}

		// Promo
		v1.POST("/promo/apply", g.applyPromo)

		// Checkout and orders
		v1.POST("/checkout", g.checkout)
		v1.GET("/orders/:id", g.getOrder)
		v1.GET("/orders/:id/status", g.getOrderStatus)
		v1.POST("/orders/:id/receipt", g.submitReceipt)

		// Payments
		payments := v1.Group("/payments")
		{
			payments.POST("/card", g.createCardPayment)
			payments.GET("/quickpay/:orderID", g.quickpayRedirect)
			payments.POST("/confirm", g.confirmPayment)
		}

		// Provider callback; always answers 200
		v1.POST("/webhooks/payment", g.providerWebhook)

		// Public store settings (bank requisites, contacts)
		v1.GET("/settings", g.getSettings)

		// Admin
		admin := v1.Group("/admin", g.adminAuth())
		{
			admin.GET("/orders", g.listOrders)
			admin.POST("/orders/:id/cancel", g.cancelOrder)
			admin.PUT("/settings", g.putSettings)
			admin.GET("/promo-codes", g.listPromoCodes)
			admin.PUT("/promo-codes/:code", g.savePromoCode)
			admin.DELETE("/promo-codes/:code", g.deletePromoCode)
			admin.POST("/products", g.saveProduct)
			admin.PUT("/products/:id", g.saveProduct)
			admin.POST("/categories", g.saveCategory)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Storefront API starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router exposes the configured engine for tests.
func (g *Gateway) Router() http.Handler {
	return g.router
}

// sessionID reads the cart session from the X-Session-ID header or the
// session cookie, minting a new one when the client has neither.
func (g *Gateway) sessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(sessionCookie, id, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return id
}

func (g *Gateway) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := g.config.Server.AdminToken
		if token != "" && c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
