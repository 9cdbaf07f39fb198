package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"presence/internal/attendance"
	"presence/internal/auth"
	"presence/internal/config"
	"presence/internal/httpapi"
	"presence/internal/httpmiddleware"
	"presence/internal/obs"
	"presence/internal/store"
	"presence/internal/users"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, dbErr := store.NewDB(startCtx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if db == nil {
		return dbErr
	}
	defer db.Close()
	if dbErr != nil {
		log.Printf("warning: db not reachable: %v", dbErr)
	}

	if cfg.AutoMigrate && dbErr == nil {
		if err := store.Migrate(startCtx, db.Client); err != nil {
			return err
		}
		log.Println("schema up to date")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSigningKey, cfg.JWTIssuer)
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(db.Client, cfg.DBQueryTimeout)
	var profileCache users.Cache
	if cfg.ProfileCacheTTL > 0 {
		profileCache = users.NewRedisCache(redisClient.Client, cfg.ProfileCacheTTL)
	} else {
		log.Println("profile cache disabled (PROFILE_CACHE_TTL=0)")
	}

	authSvc := auth.NewService(userRepo, tokens)
	userSvc := users.NewService(userRepo, profileCache, cfg.BcryptCost)
	attSvc := attendance.NewService(attendance.NewRepository(db.Client, cfg.DBQueryTimeout))

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	stopSweep := make(chan struct{})
	defer close(stopSweep)
	go limiter.RunSweeper(time.Minute, stopSweep)

	obs.Init()

	api := httpapi.New(authSvc, attSvc, userSvc, httpapi.Options{
		ProfileReadRequiresAuth: cfg.ProfileReadRequiresAuth,
		CORSAllowedOrigins:      cfg.CORSAllowedOrigins,
		RateLimiter:             limiter,
		HealthChecks: map[string]httpapi.Pinger{
			"db":    db,
			"redis": redisClient,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}
