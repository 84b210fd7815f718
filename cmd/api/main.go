package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/api/internal/config"
	"github.com/taskhub/api/internal/db"
	httpx "github.com/taskhub/api/internal/http"
	"github.com/taskhub/api/internal/observability"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if err := cfg.ValidateSecrets(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "taskhub-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// database
	pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)

	if err != nil {
		log.Error("could not connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// redis is optional; without it rate limiting falls back to in-process
	var redisClient *redis.Client

	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancel()

		if pingErr != nil {
			log.Warn("redis unreachable, using in-process rate limiting", "err", pingErr)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := httpx.NewRouter(httpx.RouterDeps{
		Cfg:      cfg,
		Log:      log,
		Pool:     pool,
		Redis:    redisClient,
		Registry: registry,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
