// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/handlers"
	"github.com/alhadicyber42/Affiliate-AI/internal/middleware"
	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
)

// Dependencies are the long-lived components main wires before serving.
type Dependencies struct {
	DB         *gorm.DB
	Queue      queue.Queue
	Credits    *services.CreditService
	Extraction *services.ExtractionService
	Products   *services.ProductService
	Scripts    *services.ScriptService
	Videos     *services.VideoService
	Payments   *services.PaymentService
	Analytics  *services.AnalyticsService
}

func Initialize(cfg *config.Config, deps *Dependencies) *gin.Engine {
	// Initialize handlers
	productHandler := handlers.NewProductHandler(deps.Extraction, deps.Products)
	scriptHandler := handlers.NewScriptHandler(deps.Scripts)
	videoHandler := handlers.NewVideoHandler(deps.Videos)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments, deps.Credits)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Analytics)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Queue)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))

	// Health check
	r.GET("/health", healthHandler.Health)

	// Routes that spend credits get the stricter limit
	billable := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if !cfg.Server.RateLimit {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.BillableRateLimit(), h}
	}

	api := r.Group("/api")
	api.Use(middleware.IdentityRequired())
	if cfg.Server.RateLimit {
		api.Use(middleware.GeneralRateLimit())
	}
	{
		// Products
		api.POST("/extract-product", billable(productHandler.ExtractProduct)...)
		api.GET("/products/:userId", productHandler.GetProducts)
		api.DELETE("/products/:id", productHandler.DeleteProduct)

		// Scripts
		api.POST("/generate-script", billable(scriptHandler.GenerateScript)...)
		api.GET("/scripts/:userId", scriptHandler.GetScripts)
		api.DELETE("/scripts/:id", scriptHandler.DeleteScript)
		api.POST("/regenerate-module", billable(scriptHandler.RegenerateModule)...)

		// Videos
		api.POST("/generate-video", billable(videoHandler.GenerateVideo)...)
		api.GET("/videos/:userId", videoHandler.GetVideos)
		api.GET("/videos/:userId/:id", videoHandler.GetVideo)
		api.DELETE("/videos/:id", videoHandler.DeleteVideo)

		// Credits and top-ups
		api.GET("/credit-packages", paymentHandler.GetPackages)
		api.GET("/credits/:userId", paymentHandler.GetCredits)
		api.GET("/credits/:userId/history", paymentHandler.GetCreditHistory)
		api.POST("/credits/topup", paymentHandler.CreateTopUp)
		api.POST("/credits/confirm", paymentHandler.ConfirmTopUp)

		// Analytics
		api.GET("/analytics/:userId", analyticsHandler.GetUserAnalytics)
	}

	// Render artifacts are served from disk when S3 is not configured
	if cfg.AWS.AccessKeyID == "" && cfg.Storage.LocalDir != "" {
		r.Static("/media", cfg.Storage.LocalDir)
	}

	return r
}
