// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/handlers"
	"github.com/javajoker/trackstore-backend/internal/middleware"
	"github.com/javajoker/trackstore-backend/internal/services"
	"github.com/javajoker/trackstore-backend/internal/storage"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

// Dependencies are the long-lived resources the HTTP layer is built on.
// Redis is optional; without it rate limits are kept in process memory.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Blobs     storage.BlobStore
	Publisher events.Publisher
	Redis     *redis.Client
}

// Initialize builds the engine. The returned func releases the rate
// limiters and must be called on shutdown.
func Initialize(deps Dependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	db := deps.DB

	// Initialize services
	authService := services.NewAuthService(db, cfg)
	catalogService := services.NewCatalogService(db, deps.Blobs, deps.Publisher, cfg.Storage.MaxUploadMB)
	codeService := services.NewPaymentCodeService(db, deps.Publisher, cfg.Entitlement)
	redemptionService := services.NewRedemptionService(db, deps.Publisher, cfg.Entitlement)
	accessService := services.NewAccessService(db, deps.Blobs, deps.Publisher)
	adminService := services.NewAdminService(db)
	favoriteService := services.NewFavoriteService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	itemHandler := handlers.NewItemHandler(catalogService)
	codeHandler := handlers.NewPaymentCodeHandler(codeService)
	purchaseHandler := handlers.NewPurchaseHandler(redemptionService)
	accessHandler := handlers.NewAccessHandler(accessService)
	adminHandler := handlers.NewAdminHandler(adminService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limits := newLimiters(cfg.RateLimit, deps.Redis)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS([]string{cfg.Frontend.BaseURL}))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.RateLimit(limits.general, middleware.KeyByIP))
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimit(limits.auth, middleware.KeyByIP), authHandler.Register)
			auth.POST("/login", middleware.RateLimit(limits.auth, middleware.KeyByIP), authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(authService), authHandler.Me)
			auth.PUT("/me", middleware.AuthRequired(authService), authHandler.UpdateProfile)
			auth.POST("/logout", middleware.AuthRequired(authService), authHandler.Logout)
		}

		authenticated := v1.Group("")
		authenticated.Use(middleware.AuthRequired(authService))

		// Published catalog
		catalog := authenticated.Group("/catalog")
		catalog.Use(middleware.Require(middleware.CapCatalogRead))
		{
			catalog.GET("/items", itemHandler.ListCatalog)
			catalog.GET("/items/:id", itemHandler.GetCatalogItem)
		}

		// Artist workspace
		artist := authenticated.Group("/artist")
		{
			items := artist.Group("/items")
			items.Use(middleware.Require(middleware.CapCatalogManage))
			{
				items.POST("", itemHandler.CreateItem)
				items.GET("", itemHandler.ListArtistItems)
				items.GET("/:id", itemHandler.GetArtistItem)
				items.PUT("/:id", itemHandler.UpdateItem)
				items.POST("/:id/publish", itemHandler.PublishItem)
				items.POST("/:id/archive", itemHandler.ArchiveItem)
			}

			artist.POST("/items/:id/codes", middleware.Require(middleware.CapCodesIssue), codeHandler.IssueCode)
			artist.GET("/codes", middleware.Require(middleware.CapCodesIssue), codeHandler.ListCodes)
		}

		// Purchases
		purchases := authenticated.Group("/purchases")
		purchases.Use(middleware.Require(middleware.CapPurchaseRedeem))
		{
			purchases.POST("", middleware.RateLimit(limits.redeem, middleware.KeyByUser), purchaseHandler.Redeem)
			purchases.GET("", purchaseHandler.ListPurchases)
		}

		// Content delivery
		content := authenticated.Group("/items")
		{
			content.GET("/:id/download", middleware.Require(middleware.CapContentDownload), accessHandler.Download)
			content.GET("/:id/stream", middleware.Require(middleware.CapContentStream), accessHandler.Stream)
			content.POST("/:id/plays", middleware.Require(middleware.CapContentStream), accessHandler.RecordPlay)
		}

		// Listening history and favorites
		authenticated.GET("/plays", middleware.Require(middleware.CapContentStream), accessHandler.ListPlays)
		favorites := authenticated.Group("/favorites")
		favorites.Use(middleware.Require(middleware.CapContentStream))
		{
			favorites.POST("", favoriteHandler.AddFavorite)
			favorites.GET("", favoriteHandler.ListFavorites)
			favorites.DELETE("/:id", favoriteHandler.RemoveFavorite)
		}

		// Admin routes
		admin := authenticated.Group("/admin")
		admin.Use(middleware.Require(middleware.CapUsersManage))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
		}
	}

	return r, limits.close
}

type limiters struct {
	general middleware.Limiter
	auth    middleware.Limiter
	redeem  middleware.Limiter
	memory  []*middleware.MemoryLimiter
}

// newLimiters uses Redis fixed windows when a client is configured so that
// limits hold across instances.
func newLimiters(cfg config.RateLimitConfig, client *redis.Client) *limiters {
	l := &limiters{}

	if client != nil {
		l.general = middleware.NewRedisLimiter(client, "general", cfg.GeneralBurst, time.Second)
		l.auth = middleware.NewRedisLimiter(client, "auth", cfg.AuthPerMinute, time.Minute)
		l.redeem = middleware.NewRedisLimiter(client, "redeem", cfg.RedeemPerMinute, time.Minute)
		return l
	}

	l.general = l.memoryLimiter(rate.Limit(cfg.GeneralPerSecond), cfg.GeneralBurst)
	l.auth = l.memoryLimiter(perMinute(cfg.AuthPerMinute), cfg.AuthPerMinute)
	l.redeem = l.memoryLimiter(perMinute(cfg.RedeemPerMinute), cfg.RedeemPerMinute)
	return l
}

func (l *limiters) memoryLimiter(r rate.Limit, burst int) middleware.Limiter {
	m := middleware.NewMemoryLimiter(r, burst)
	l.memory = append(l.memory, m)
	return m
}

func (l *limiters) close() {
	for _, m := range l.memory {
		m.Close()
	}
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}
