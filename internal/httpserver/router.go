package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
)

type identityService interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

type orderService interface {
	Create(ctx context.Context, userID string, in ordersvc.CreateInput) (*ordersvc.CreateResult, error)
	Get(ctx context.Context, userID, id string) (*domain.Order, error)
	List(ctx context.Context, userID, status string, page, limit int) ([]domain.Order, int, error)
	Cancel(ctx context.Context, userID, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id, status, trackingNumber string) (*domain.Order, error)
}

type cartService interface {
	Get(ctx context.Context, userID string) ([]domain.CartItem, error)
	Add(ctx context.Context, userID string, in cartsvc.AddInput) ([]domain.CartItem, error)
	Update(ctx context.Context, userID, productID string, qty int) ([]domain.CartItem, error)
	Remove(ctx context.Context, userID, productID string) ([]domain.CartItem, error)
	Clear(ctx context.Context, userID string) error
	Summary(ctx context.Context, userID string) (domain.CartSummary, error)
}

type productService interface {
	List(ctx context.Context, q productsvc.ListQuery) (*productsvc.Page, error)
	ByCategory(ctx context.Context, category string, page, limit int) (*productsvc.Page, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Deactivate(ctx context.Context, id string) error
	AddReview(ctx context.Context, userID, productID string, rating int, comment string) (*domain.Product, error)
}

// Deps carries the services the router exposes.
type Deps struct {
	IdentitySvc identityService
	OrderSvc    orderService
	CartSvc     cartService
	ProductSvc  productService
}

// Options tunes cross-cutting HTTP behaviour.
type Options struct {
	CORSOrigins     []string
	RequestTimeout  time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

func (d Deps) validate() error {
	switch {
	case d.IdentitySvc == nil:
		return errors.New("identity service required")
	case d.OrderSvc == nil:
		return errors.New("order service required")
	case d.CartSvc == nil:
		return errors.New("cart service required")
	case d.ProductSvc == nil:
		return errors.New("product service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(requestID(), corsMiddleware(opts.CORSOrigins), requestTimeout(opts.RequestTimeout))

	health := healthHandler(time.Now().UTC())
	router.GET("/healthz", health)
	router.GET("/readyz", readyHandler(db))

	pages := pageDefaults{limit: opts.DefaultPageSize, max: opts.MaxPageSize}
	if pages.limit < 1 {
		pages.limit = 10
	}
	auth := authRequired(deps.IdentitySvc, logger)
	admin := requireAdmin()

	api := router.Group("/api")
	api.GET("/health", health)

	products := api.Group("/products")
	products.GET("", listProductsHandler(deps.ProductSvc, logger))
	products.GET("/category/:category", productsByCategoryHandler(deps.ProductSvc, logger))
	products.GET("/:id", getProductHandler(deps.ProductSvc, logger))
	products.DELETE("/:id", auth, admin, deactivateProductHandler(deps.ProductSvc, logger))
	products.POST("/:id/reviews", auth, addReviewHandler(deps.ProductSvc, logger))

	cart := api.Group("/users/cart", auth)
	cart.GET("", getCartHandler(deps.CartSvc, logger))
	cart.POST("", addToCartHandler(deps.CartSvc, logger))
	cart.DELETE("", clearCartHandler(deps.CartSvc, logger))
	cart.GET("/summary", cartSummaryHandler(deps.CartSvc, logger))
	cart.PUT("/:productId", updateCartItemHandler(deps.CartSvc, logger))
	cart.DELETE("/:productId", removeFromCartHandler(deps.CartSvc, logger))

	orders := api.Group("/orders", auth)
	orders.POST("", createOrderHandler(deps.OrderSvc, logger))
	orders.GET("", listOrdersHandler(deps.OrderSvc, logger, pages))
	orders.GET("/:id", getOrderHandler(deps.OrderSvc, logger))
	orders.PUT("/:id/cancel", cancelOrderHandler(deps.OrderSvc, logger))
	orders.PUT("/:id/status", admin, updateOrderStatusHandler(deps.OrderSvc, logger))

	router.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Route not found")
	})

	return router, nil
}
