package router

import (
	"repricer/internal/config"
	"repricer/internal/handler"
	"repricer/internal/middleware"
	"repricer/internal/observability"
	"repricer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators built by the composition root in cmd/server.
// Redis, Sweeps and Circuit may be nil.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Auth      service.AuthService
	Products  service.ProductService
	Optimizer service.OptimizerService
	Sweeps    handler.SweepTrigger
	Circuit   handler.CircuitReporter
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(deps.Auth)
	productsH := handler.NewProductsHandler(deps.Products, deps.Optimizer, deps.Sweeps)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Operational
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.Circuit))
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")

	// Auth (public)
	loginLimit := middleware.LoginRateLimiter(cfg.LoginRateLimit, deps.Redis)
	api.POST("/register", loginLimit, authH.Register)
	api.POST("/login", loginLimit, authH.Login)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	{
		protected.GET("/user", authH.Me)

		products := protected.Group("/products")
		{
			products.GET("", productsH.List)
			products.POST("", productsH.Create)
			products.GET("/:id", productsH.Detail)
			products.GET("/:id/history", productsH.History)
			products.GET("/:id/history/report", productsH.HistoryReport)
			products.PATCH("/:id/price", productsH.UpdatePrice)
			products.POST("/:id/optimize", productsH.Optimize)
			products.POST("/:id/auto-adjust", productsH.UpdateAutoAdjust)
		}
	}

	return r
}
