package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taskhub/api/internal/auth"
	"github.com/taskhub/api/internal/config"
	"github.com/taskhub/api/internal/http/handlers"
	"github.com/taskhub/api/internal/http/middlewares"
	"github.com/taskhub/api/internal/observability"
	"github.com/taskhub/api/internal/repo/postgres"
	"github.com/taskhub/api/internal/security"
)

const serviceVersion = "1.0.0"

type RouterDeps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client // nil -> in-process rate-limit counters
	Registry *prometheus.Registry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.RegisterCustomValidators()

	r := gin.New()

	prom := observability.NewProm(deps.Registry)

	// shared middleware chain, outermost first
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskhub-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(deps.Cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.SanitizeInput())

	var counters middlewares.CounterStore

	if deps.Redis != nil {
		counters = middlewares.NewRedisCounterStore(deps.Redis)
	} else {
		counters = middlewares.NewMemoryCounterStore()
	}

	onDrop := func(name string) { prom.RateLimited.WithLabelValues(name).Inc() }

	generalLimiter := middlewares.NewRateLimiter("general", counters, deps.Cfg.RateLimitMax, deps.Cfg.RateLimitWindow, onDrop)
	authLimiter := middlewares.NewRateLimiter("auth", counters, deps.Cfg.AuthRateMax, deps.Cfg.AuthRateWindow, onDrop)

	// the general limiter runs before any auth gate, so it keys by client
	// address for every request
	r.Use(generalLimiter.Middleware(middlewares.KeyByIP))

	// health endpoints
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping, deps.Cfg.Env, serviceVersion)
	r.GET("/health", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	// wire up stores and handlers
	usersRepo := postgres.NewUsersRepo(deps.Pool, prom)
	tasksRepo := postgres.NewTasksRepo(deps.Pool, prom)

	jwtManager := auth.NewManager(deps.Cfg.JWTSecret, deps.Cfg.JWTExpiry)
	hasher := security.NewHasher(deps.Cfg.BcryptCost)

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, hasher)
	tasksHandler := handlers.NewTasksHandler(tasksRepo)

	authGate := middlewares.NewAuthMiddleware(jwtManager, deps.Log)

	api := r.Group("/api")
	api.GET("", health.Index)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authLimiter.Middleware(middlewares.KeyByIP), authHandler.Register)
		authRoutes.POST("/login", authLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)
		authRoutes.GET("/profile", authGate.RequireAuth(), authHandler.GetProfile)
		authRoutes.PUT("/profile", authGate.RequireAuth(), authHandler.UpdateProfile)
		authRoutes.POST("/logout", authGate.RequireAuth(), authHandler.Logout)
		authRoutes.GET("/verify", authGate.RequireAuth(), authHandler.Verify)
	}

	taskRoutes := api.Group("/tasks", authGate.RequireAuth())
	{
		taskRoutes.POST("", tasksHandler.Create)
		taskRoutes.GET("", tasksHandler.List)
		taskRoutes.GET("/stats", tasksHandler.Statistics)
		taskRoutes.GET("/:id", tasksHandler.GetByID)
		taskRoutes.PUT("/:id", tasksHandler.Update)
		taskRoutes.DELETE("/:id", tasksHandler.Delete)
	}

	return r
}
