// @title        Student Marketplace Auth API
// @version      1.0
// @description  Authentication and role-based authorization for the student marketplace.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Session token as "Bearer <token>".
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/api"
	"github.com/studenthub/marketplace/internal/api/handler"
	"github.com/studenthub/marketplace/internal/core/ports"
	"github.com/studenthub/marketplace/internal/core/service"
	"github.com/studenthub/marketplace/internal/core/validation"
	"github.com/studenthub/marketplace/internal/infrastructure/config"
	mongostore "github.com/studenthub/marketplace/internal/infrastructure/db/mongo"
	redisstore "github.com/studenthub/marketplace/internal/infrastructure/db/redis"
	"github.com/studenthub/marketplace/internal/infrastructure/queue"
	"github.com/studenthub/marketplace/internal/infrastructure/security"
	"github.com/studenthub/marketplace/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "marketplace-auth: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A local .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "marketplace-auth",
	})

	// --- Principal store ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	repo := mongostore.NewAuthRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	readiness := map[string]handler.Pinger{
		"mongodb": handler.PingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }),
	}

	// --- Registration guard (optional) ---
	var guard ports.RegistrationGuard
	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, registrations rely on the store's unique index only")
	} else {
		defer closeRedis(rdb, log)
		guard = redisstore.NewRegistrationGuard(rdb)
		readiness["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	// --- Security ---
	pool := queue.NewPool("bcrypt", cfg.Auth.HashWorkers, logger.For("hash_pool"))
	defer pool.Stop()

	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost, pool)
	codec, err := security.NewTokenCodec(security.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.TokenTTL(),
	})
	if err != nil {
		return err
	}

	authService := service.NewAuthService(service.AuthDeps{
		Repo:         repo,
		Hasher:       hasher,
		Tokens:       codec,
		Validator:    validation.New(validation.Policy{StudentEmailSuffix: cfg.Auth.StudentEmailSuffix}),
		Guard:        guard,
		StoreTimeout: cfg.Auth.StoreTimeout,
	}, logger.For("auth_service"))

	if _, err := service.SeedAdmin(ctx, repo, hasher, cfg.Admin.Username, cfg.Admin.Password, logger.For("seed")); err != nil {
		return err
	}

	e := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		TokenVerifier:  codec,
		Principals:     repo,
		Dependencies:   readiness,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Log:            logger.For("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
}
