package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleancity-backend/internal/config"
	"cleancity-backend/internal/handlers"
	"cleancity-backend/internal/middleware"
	"cleancity-backend/internal/repository"
	"cleancity-backend/internal/repository/migrations"
	"cleancity-backend/internal/services"
	"cleancity-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Run schema migrations before opening the pool
	if err := migrations.Up(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// File store
	fileStore, err := newFileStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create file store")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	shareRepo := repository.NewShareRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpiryDays)
	occurrenceService := services.NewOccurrenceService(occurrenceRepo, photoRepo, shareRepo, fileStore)
	shareService := services.NewShareService(shareRepo, occurrenceRepo, userRepo)
	photoService := services.NewPhotoService(photoRepo, occurrenceRepo, fileStore)
	wsHub := services.NewWSHub()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	occurrenceHandler := handlers.NewOccurrenceHandler(occurrenceService, wsHub)
	shareHandler := handlers.NewShareHandler(shareService, wsHub)
	photoHandler := handlers.NewPhotoHandler(photoService, wsHub, cfg.Storage.MaxFileSize)
	wsHandler := handlers.NewWebSocketHandler(wsHub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// The optional gate runs globally so public reads still see identity
	// when a token is present; mutating groups add the mandatory gate.
	r.Use(middleware.OptionalAuth(authService))

	r.NotFound(handlers.NotFoundHandler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService))
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	r.Route("/api/occurrences", func(r chi.Router) {
		r.Get("/stats", occurrenceHandler.Stats)
		r.Get("/bounds", occurrenceHandler.ListByBounds)
		r.Get("/", occurrenceHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService))
			r.Post("/", occurrenceHandler.Create)
			r.Get("/my-occurrences", occurrenceHandler.ListMine)
			r.Get("/{id}", occurrenceHandler.GetByID)
			r.Put("/{id}", occurrenceHandler.Update)
			r.Patch("/{id}/status", occurrenceHandler.UpdateStatus)
			r.Delete("/{id}", occurrenceHandler.Delete)
		})
	})

	r.Route("/api/shares", func(r chi.Router) {
		r.Use(middleware.Auth(authService))
		r.Post("/", shareHandler.Share)
		r.Get("/shared-with-me", shareHandler.SharedWithMe)
		r.Get("/shared-by-me", shareHandler.SharedByMe)
		r.Delete("/{shareId}", shareHandler.Revoke)
	})

	r.Route("/api/photos", func(r chi.Router) {
		r.Use(middleware.Auth(authService))
		r.Post("/{occurrenceId}", photoHandler.Upload)
		r.Get("/download/{photoId}", photoHandler.Download)
		r.Get("/{occurrenceId}", photoHandler.List)
		r.Delete("/{photoId}", photoHandler.Delete)
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newFileStore selects the photo file store backend from config.
func newFileStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Store(context.Background(), cfg.Storage.S3)
	case "disk", "":
		return storage.NewDiskStore(cfg.Storage.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
