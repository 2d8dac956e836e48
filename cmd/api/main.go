//	@title			Expenses API
//	@version		1.0
//	@description	Expense tracking with receipt uploads via presigned object storage URLs.
//
//	@host		localhost:8080
//	@BasePath	/api

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/expensely/service/internal/config"
	"github.com/expensely/service/internal/db"
	"github.com/expensely/service/internal/expense"
	"github.com/expensely/service/internal/logging"
	appMiddleware "github.com/expensely/service/internal/middleware"
	"github.com/expensely/service/internal/response"
	"github.com/expensely/service/internal/storage"
	"github.com/expensely/service/internal/upload"
	"github.com/expensely/service/internal/web"

	_ "github.com/expensely/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.AppEnv)
	for _, n := range cfg.Notices {
		log.Info().Msg(n)
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	signer, err := newSigner(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("object storage init failed")
	}

	// Wire dependencies: repository → service → handler
	expenseRepo := expense.NewRepository(pool)
	expenseSvc := expense.NewService(expenseRepo, signer, cfg.SignTTL, log)
	expenseHandler := expense.NewHandler(expenseSvc)

	uploadSvc := upload.NewService(signer, cfg.SignTTL, log)
	uploadHandler := upload.NewHandler(uploadSvc)

	views, err := web.New(expenseSvc)
	if err != nil {
		log.Fatal().Err(err).Msg("template parsing failed")
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/expenses", expenseHandler.Routes)
		r.Route("/upload", uploadHandler.Routes)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			response.NotFound(w, "Not found")
		})
	})

	views.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("server listening")
		log.Info().Msgf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

func newSigner(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Signer, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMinio:
		return storage.NewMinioStorage(ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageRegion,
			cfg.StorageUseSSL,
			log,
		)
	case config.StorageDriverS3:
		return storage.NewS3Storage(ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageRegion,
			cfg.StorageUseSSL,
		)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
