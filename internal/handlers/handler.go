package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/auth"
	"github.com/DaniDevGS/triven-shop/internal/cart"
	"github.com/DaniDevGS/triven-shop/internal/catalog"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/middleware"
	"github.com/DaniDevGS/triven-shop/internal/notifier"
	"github.com/DaniDevGS/triven-shop/internal/orders"
	"github.com/DaniDevGS/triven-shop/internal/session"
	"github.com/DaniDevGS/triven-shop/internal/uploads"
)

// Deps is everything the HTTP layer needs. RateLimiter and CORSOrigins are
// optional.
type Deps struct {
	Auth     *auth.Service
	Catalog  *catalog.Service
	Cart     *cart.Service
	Orders   *orders.Service
	Sessions session.Store
	Notifier *notifier.Dispatcher
	Uploads  *uploads.Store

	SessionSecret  string
	WhatsAppNumber string
	CORSOrigins    []string
	RateLimiter    *middleware.RateLimiter
}

type handler struct {
	Deps
}

func API(d Deps) *gin.Engine {
	h := handler{Deps: d}

	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", middleware.TraceIDHeader},
			ExposeHeaders:    []string{middleware.TraceIDHeader, "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Limit())
	}

	// ── session store ──
	r.Use(sessions.Sessions(auth.SessionName, cookie.NewStore([]byte(d.SessionSecret))))

	// ── public endpoints ──
	r.GET("/health", healthCheck)
	r.Static(d.Uploads.URLPrefix, d.Uploads.Root)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", d.Auth.HandleSignup)
		authGroup.POST("/signin", d.Auth.HandleSignin)
		authGroup.POST("/signout", d.Auth.HandleSignout)
		authGroup.GET("/login", d.Auth.HandleLogin)
		authGroup.GET("/callback", d.Auth.HandleCallback)
	}

	store := r.Group("/api/store")
	{
		store.GET("/categories", h.ListCategories)
		store.GET("/products", h.ListStoreProducts)
		store.GET("/products/:id", h.GetStoreProduct)
		store.GET("/featured", h.FeaturedProducts)
	}

	// ── protected API ──
	api := r.Group("/api")
	api.Use(d.Auth.RequireAuth())
	{
		api.GET("/cart", h.GetCart)
		api.POST("/cart/items", h.AddToCart)
		api.PUT("/cart/items/:id", h.UpdateCartItem)
		api.DELETE("/cart/items/:id", h.RemoveCartItem)
		api.POST("/cart/clear", h.ClearCart)

		api.GET("/checkout", h.GetCheckout)
		api.POST("/checkout", h.Checkout)

		api.GET("/account/orders", h.AccountOrders)
		api.GET("/orders/:id/receipt", h.OrderReceipt)
	}

	// ── back-office ──
	admin := api.Group("/admin")
	admin.Use(d.Auth.RequireManager())
	{
		admin.GET("/products", h.ListAdminProducts)
		admin.POST("/products", h.CreateProduct)
		admin.GET("/products/:id", h.GetAdminProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.POST("/products/:id/publish", h.PublishProduct)

		admin.GET("/orders", h.ListOrders)
		admin.POST("/orders/:id/approve", h.ApproveOrder)
		admin.POST("/orders/:id/reject", h.RejectOrder)
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		verr      *apperrors.ValidationError
		notFound  *apperrors.NotFoundError
		shortage  *apperrors.StockShortageError
		conflict  *apperrors.StateConflictError
		integrity *apperrors.IntegrityError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &shortage):
		c.JSON(http.StatusConflict, gin.H{
			"error":      shortage.Error(),
			"product_id": shortage.ProductID,
			"remaining":  shortage.Remaining,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "status": conflict.Status})
	case errors.As(err, &integrity):
		c.JSON(http.StatusConflict, gin.H{"error": integrity.Error(), "retryable": true})
	default:
		slog.Error("request failed",
			slog.String(logkey.TraceID, middleware.TraceID(c)),
			slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
