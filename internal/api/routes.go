package api

import (
	"alcyxob/nutrition-app/internal/config"
	"alcyxob/nutrition-app/internal/service"
	"alcyxob/nutrition-app/internal/session"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter creates the gin engine with logging, recovery and CORS.
func NewRouter(cfg config.ServerConfig) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	// Multipart parts above this size spill to temp files
	router.MaxMultipartMemory = service.MaxUploadBytes + multipartOverhead

	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
		corsConfig.MaxAge = 12 * time.Hour
		if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			// Cookies only travel to explicitly listed origins
			corsConfig.AllowOrigins = cfg.AllowedOrigins
			corsConfig.AllowCredentials = true
		}
		router.Use(cors.New(corsConfig))
	}
	return router
}

func SetupRoutes(
	router *gin.Engine,
	sessions *session.Manager,
	authService service.AuthService,
	uploadService service.UploadService,
	analysisService service.AnalysisService,
	profileService service.ProfileService,
	metricsHandler http.Handler, // nil disables /metrics
) {
	authHandler := NewAuthHandler(authService, sessions)
	uploadHandler := NewUploadHandler(uploadService)
	analysisHandler := NewAnalysisHandler(analysisService)
	profileHandler := NewProfileHandler(profileService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
		}
	}

	// Each pipeline answers auth failures in its own response shape
	apiV1.POST("/upload", SessionMiddleware(sessions, abortUploadError), uploadHandler.Upload)
	apiV1.POST("/analyze", SessionMiddleware(sessions, abortAnalysisError), analysisHandler.Analyze)

	protected := apiV1.Group("")
	protected.Use(SessionMiddleware(sessions, abortWithError))
	{
		protected.GET("/me", authHandler.Me)

		protected.GET("/analyses", analysisHandler.ListAnalyses)
		protected.DELETE("/analyses/:id", analysisHandler.DeleteAnalysis)

		protected.GET("/profile", profileHandler.GetProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
	}
}
