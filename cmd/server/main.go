package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/natalplan/auth-service/internal/audit"
	"github.com/natalplan/auth-service/internal/config"
	"github.com/natalplan/auth-service/internal/database"
	"github.com/natalplan/auth-service/internal/handler"
	"github.com/natalplan/auth-service/internal/queue"
	"github.com/natalplan/auth-service/internal/ratelimit"
	"github.com/natalplan/auth-service/internal/repository"
	"github.com/natalplan/auth-service/internal/router"
	notifier "github.com/natalplan/auth-service/internal/service"
)

// securityEventCapacity bounds the in-memory security log; oldest entries
// are evicted first.
const securityEventCapacity = 1000

func main() {
	// Load .env when present (env vars override); harmless in production.
	_ = godotenv.Load(".env")

	cfg := config.Load()
	secCfg := config.LoadSecurityConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is preferred for rate-limit counters; nil means the limiter runs
	// on in-process counters until the store becomes reachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting degrades to in-process counters")
	}
	limiter := ratelimit.New(rlCfg, rdb)
	events := audit.NewLog(securityEventCapacity)

	authH := handler.NewAuthHandler(
		cfg, secCfg,
		repository.NewAccountRepo(db),
		repository.NewTwoFactorRepo(db),
		repository.NewAttemptRepo(db),
		repository.NewLinkTokenRepo(db),
		notifier.New(),
		events,
	)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, router.Deps{
		Cfg:          cfg,
		RateLimits:   rlCfg,
		Auth:         authH,
		TwoFA:        handler.NewTwoFactorHandler(authH),
		Limiter:      limiter,
		Events:       events,
		Entitlements: repository.NewEntitlementRepo(db),
	})

	// Drain the outbound-mail queue in the background; the consumer keeps
	// its own reconnect loop.
	go func() {
		if err := queue.StartMailConsumer(); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
