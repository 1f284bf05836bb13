package main

import (
	"alcyxob/nutrition-app/internal/api" // Import API package
	"alcyxob/nutrition-app/internal/config"
	"alcyxob/nutrition-app/internal/metrics"
	"alcyxob/nutrition-app/internal/repository"
	"alcyxob/nutrition-app/internal/repository/mongo"
	"alcyxob/nutrition-app/internal/repository/sqlite"
	"alcyxob/nutrition-app/internal/service"
	"alcyxob/nutrition-app/internal/session"
	"alcyxob/nutrition-app/internal/storage"
	"alcyxob/nutrition-app/internal/vision"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title Nutrition Analysis API
// @version 1.0
// @description API for uploading food photos and getting AI nutrition breakdowns.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	log.Println("Starting Nutrition App Server...")

	// --- Configuration ---
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	ctx := context.Background()

	// --- Database Connection ---
	analysisRepo, profileRepo, closeDB := openRepositories(ctx, cfg.Database)
	defer closeDB()

	// --- Initialize Storage ---
	log.Printf("Initializing %s object storage...", cfg.Storage.Provider)
	objectStore, closeStore := openObjectStore(ctx, cfg.Storage)
	defer closeStore()

	// --- Vision Model ---
	visionClient := vision.NewClient(ctx, cfg.Vision)
	defer func() {
		if err := visionClient.Close(); err != nil {
			log.Printf("ERROR: Failed to close vision client: %v", err)
		}
	}()
	if visionClient.Available() {
		log.Printf("INFO: Vision model %s ready.", visionClient.Model())
	} else {
		log.Printf("WARN: Vision model unavailable (%s); /analyze will answer 503.", visionClient.UnavailableReason())
	}

	// --- Metrics ---
	var metricsHandler http.Handler
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m, err = metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			log.Fatalf("FATAL: Could not register metrics: %v", err)
		}
		metricsHandler = promhttp.Handler()
	}

	// --- Sessions ---
	sessions, err := session.NewManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieName, cfg.Session.SecureCookie)
	if err != nil {
		log.Fatalf("FATAL: Could not create session manager: %v", err)
	}

	// --- Initialize Services ---
	log.Println("Initializing services...")
	persister := service.NewAnalysisPersister(
		analysisRepo,
		cfg.Analysis.PersistWorkers,
		cfg.Analysis.PersistQueueSize,
		cfg.Analysis.PersistTimeout,
		m,
	)
	fetcher := service.NewHTTPImageFetcher(&http.Client{}, cfg.Analysis.FetchTimeout, cfg.Analysis.MaxImageBytes)

	authService := service.NewAuthService(profileRepo, sessions)
	uploadService := service.NewUploadService(objectStore, cfg.Storage.SignedURLTTL, m)
	analysisService := service.NewAnalysisService(visionClient, fetcher, persister, analysisRepo, objectStore, cfg.Storage.SignedURLTTL, m)
	profileService := service.NewProfileService(profileRepo)

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	router := api.NewRouter(cfg.Server)
	api.SetupRoutes(router, sessions, authService, uploadService, analysisService, profileService, metricsHandler)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Queued analyses are written before the database closes
	if err := persister.Shutdown(ctxShutdown); err != nil {
		log.Printf("WARN: Analysis queue not drained: %v", err)
	}

	log.Println("Server exiting.")
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (repository.AnalysisRepository, repository.UserProfileRepository, func()) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("FATAL: Could not open SQLite database: %v", err)
		}
		log.Printf("SQLite database %s ready.", cfg.SQLitePath)
		return sqlite.NewSQLiteAnalysisRepository(db), sqlite.NewSQLiteUserProfileRepository(db), func() {
			if err := db.Close(); err != nil {
				log.Printf("ERROR: Failed to close SQLite database: %v", err)
			}
		}
	default:
		dbClient, err := mongo.ConnectDB(ctx, cfg.URI)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
		}
		appDB := dbClient.Database(cfg.Name)
		log.Println("Database connection established.")

		log.Println("Ensuring database indexes...")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			mongo.EnsureIndexes(ctx, appDB)
			log.Println("Index creation process completed.")
		}()

		return mongo.NewMongoAnalysisRepository(appDB), mongo.NewMongoUserProfileRepository(appDB), func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		}
	}
}

func openObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, func()) {
	switch cfg.Provider {
	case "gcs":
		store, err := storage.NewGCSStore(ctx, cfg.GCS)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize GCS storage: %v", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("ERROR: Failed to close GCS client: %v", err)
			}
		}
	default:
		store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
		return store, func() {}
	}
}
