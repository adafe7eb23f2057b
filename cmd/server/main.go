package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/kapehi/insights/internal/config"
	"github.com/kapehi/insights/internal/contextstore"
	"github.com/kapehi/insights/internal/database"
	"github.com/kapehi/insights/internal/handler"
	"github.com/kapehi/insights/internal/middleware"
	"github.com/kapehi/insights/internal/mode"
	"github.com/kapehi/insights/internal/queue"
	"github.com/kapehi/insights/internal/repository"
	"github.com/kapehi/insights/internal/resolver"
	"github.com/kapehi/insights/internal/router"
	queue_publisher "github.com/kapehi/insights/internal/service"
	"github.com/kapehi/insights/internal/viewas"
)

func main() {
	// Load .env if present; in production the variables come from the
	// environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis backs the rate limiter, the response cache and the context
	// store. Each of those degrades gracefully if the client is nil or
	// the server is unreachable.
	rdb := config.NewRedisClient()

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	memberships := repository.NewMembershipRepo(db)
	tenants := repository.NewTenantRepo(db)
	subscriptions := repository.NewSubscriptionRepo(db)

	// Context resolution and mode computation
	res := resolver.New(memberships, tenants)
	computer := mode.NewComputer(res, subscriptions)

	// Context store + View-As overlay
	storeCfg := config.LoadContextStoreConfig()
	store := contextstore.New(rdb, storeCfg.Prefix, storeCfg.TTL)
	viewAs := viewas.NewManager(cfg.FeatureViewAs, store, queue_publisher.Publisher{})

	// Background consumer writing View-As session telemetry to disk.
	go func() {
		if err := queue.StartViewAsConsumer(); err != nil {
			log.Printf("viewas-consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// Global token-bucket rate limiting.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Response cache for the routes that opt in. Keys include the user
	// id because everything under /v1/context is per-user.
	cacheCfg := config.LoadCacheConfig()
	cacheCfg.KeyStrategy = "user_route_query"
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	router.RegisterRoutes(e) // Health check
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, memberships, res, viewAs), cfg.JWTSecret)
	router.RegisterMode(e, handler.NewModeHandler(cfg.JWTSecret, computer, res, viewAs))
	router.RegisterContext(e, handler.NewContextHandler(res, store), cfg.JWTSecret, cache)
	router.RegisterViewAs(e, handler.NewViewAsHandler(viewAs, res, users), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
