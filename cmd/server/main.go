package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"trustforge/internal/audit"
	"trustforge/internal/jwttoken"
	"trustforge/internal/platform/config"
	"trustforge/internal/platform/httpserver"
	"trustforge/internal/platform/logger"
	"trustforge/internal/platform/metrics"
	"trustforge/internal/platform/redis"
	rlservice "trustforge/internal/ratelimit/service"
	rlstate "trustforge/internal/ratelimit/store/state"
	"trustforge/internal/registry"
	regstore "trustforge/internal/registry/store"
	"trustforge/internal/submit"
	httptransport "trustforge/internal/transport/http"
	"trustforge/internal/trust"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	m := metrics.New()
	auditPublisher := audit.NewPublisher(audit.NewMemoryStore())

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var limiterStore rlservice.StateStore = rlstate.NewMemoryStore()
	if redisClient != nil {
		limiterStore = rlstate.NewRedisStore(redisClient.Client)
		log.Info("rate limit state backed by redis")
	}

	var db *sql.DB
	var registryStore registry.Store = regstore.NewMemory()
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}
		registryStore = regstore.NewPostgres(db)
		log.Info("credential registry backed by postgres")
	}

	limiter, err := rlservice.New(limiterStore,
		rlservice.WithLogger(log),
		rlservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("failed to build rate limiter", "error", err)
		os.Exit(1)
	}

	reg, err := registry.New(registryStore, registry.WithLogger(log))
	if err != nil {
		log.Error("failed to build registry", "error", err)
		os.Exit(1)
	}

	submitter, err := submit.New(limiter, reg,
		submit.WithLogger(log),
		submit.WithMetrics(m),
		submit.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("failed to build submission pipeline", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "trustforge", "trustforge-api")

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      m,
		JWTValidator: jwtService,
		Submitter:    submitter,
		Registry:     reg,
		RateLimiter:  limiter,
		Scorer:       trust.New(trust.WithLogger(log)),
		Health: func(ctx context.Context) error {
			if redisClient != nil {
				if err := redisClient.Health(ctx); err != nil {
					return err
				}
			}
			if db != nil {
				return db.PingContext(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting trustforge", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Info("trustforge stopped")
}
