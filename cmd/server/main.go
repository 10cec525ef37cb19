package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EgehanKilicarslan/mbs-auth/internal/api"
	"github.com/EgehanKilicarslan/mbs-auth/internal/config"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	internalgrpc "github.com/EgehanKilicarslan/mbs-auth/internal/grpc"
	"github.com/EgehanKilicarslan/mbs-auth/internal/handler"
	"github.com/EgehanKilicarslan/mbs-auth/internal/logger"
	"github.com/EgehanKilicarslan/mbs-auth/internal/middleware"
	"github.com/EgehanKilicarslan/mbs-auth/internal/token"
	"github.com/EgehanKilicarslan/mbs-auth/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	appLogger := logger.New(cfg)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("❌ Server stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("👋 [Go] Token service stopped")
}

// run owns every resource so deferred closes happen before the process exits.
func run(cfg *config.Config, appLogger *slog.Logger) error {
	appLogger.Info("🚀 [Go] Starting token service...",
		"environment", cfg.AppEnv,
		"http_port", cfg.ApiServicePort,
		"grpc_port", cfg.ApiGrpcPort,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to Database
	db, err := database.ConnectDatabase(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	defer sqlDB.Close()

	// 4. Initialize Redis Client. The denylist and the rate limiter share
	// one client, closed once here.
	var revoked database.RevocationCache = database.NoOpRevocationCache{}
	rateLimiter := middleware.NewNoOpRateLimiter(appLogger)

	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis", "error", err)
		appLogger.Info("💡 Revocation checks will only use Postgres and rate limiting is disabled")
	} else {
		defer redisClient.Close()
		revoked = redisClient
		rateLimiter = middleware.NewRateLimiter(redisClient.GetClient(), cfg.RateLimit.AuthPerMinute, time.Minute, appLogger)
	}

	// 5. Token codec
	key, err := cfg.JWT.SigningKey()
	if err != nil {
		return fmt.Errorf("invalid signing key: %w", err)
	}
	codec, err := token.NewCodec(key, cfg.JWT.Leeway(), time.Now)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	// 6. Initialize Repositories & Services
	userRepo := repository.NewUserRepository(db)
	tokenStore := repository.NewTokenStore(db, time.Now)
	principals := service.NewPrincipalResolver(userRepo)
	issuer := service.NewTokenIssuer(codec, tokenStore, cfg.JWT, time.Now, appLogger)
	validator := service.NewTokenValidator(codec, tokenStore, principals, revoked, appLogger)
	refresher := service.NewRefreshCoordinator(codec, tokenStore, issuer, principals, revoked, appLogger)
	authService := service.NewAuthService(userRepo, tokenStore, issuer, validator, refresher, revoked, appLogger)

	// 7. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, appLogger)
	adminHandler := handler.NewAdminHandler(authService, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	r := api.SetupRouter(authHandler, adminHandler, authMiddleware, rateLimiter, appLogger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := internalgrpc.NewServer(authService, fmt.Sprintf(":%s", cfg.ApiGrpcPort), appLogger)

	// 8. Run servers until a signal or a failure
	pool := worker.NewPool(ctx, appLogger)

	pool.Go("http", func(context.Context) error {
		appLogger.Info("🌍 [Go] HTTP Server running...", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	pool.Go("grpc", func(context.Context) error {
		return grpcServer.Start()
	})
	pool.Go("shutdown", func(ctx context.Context) error {
		<-ctx.Done()
		appLogger.Info("🛑 [Go] Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			httpServer.Shutdown(shutdownCtx),
			grpcServer.Stop(shutdownCtx),
		)
	})

	<-pool.Done()
	if !pool.Shutdown(shutdownTimeout + time.Second) {
		return errors.New("shutdown timed out")
	}
	return pool.Err()
}
