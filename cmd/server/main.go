package main // Entry point package

import (
	"context" // bounded startup contexts
	"log"     // Logging library
	"time"    // startup timeout

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/revanthm1902/task-token-tracker/internal/config"
	"github.com/revanthm1902/task-token-tracker/internal/database"
	"github.com/revanthm1902/task-token-tracker/internal/handler"
	"github.com/revanthm1902/task-token-tracker/internal/queue"
	"github.com/revanthm1902/task-token-tracker/internal/repository"
	"github.com/revanthm1902/task-token-tracker/internal/router"
	"github.com/revanthm1902/task-token-tracker/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// Open MySQL and bootstrap the schema. A database we cannot reach
	// or migrate is fatal; nothing works without it.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	migCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migCtx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	// Redis is optional: without it the task cache always misses and the
	// rate limiter passes everything through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; running without cache and rate limiting")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tasks := repository.NewTaskRepo(db)
	ledger := repository.NewLedgerRepo(db)
	activity := repository.NewActivityRepo(db)
	resets := repository.NewResetRepo(db)

	// Services. The notifier publishes table-changed events; the
	// consumer below turns events from any instance into cache
	// invalidation on this one.
	cache := service.NewTaskCache(rdb, cfg.TaskCacheTTL)
	notifier := service.NewAMQPNotifier()
	taskSvc := service.NewTaskService(tasks, ledger, users, activity, notifier, cache, cfg.MaxTaskTokens)
	acctSvc := service.NewAccountService(users, resets, activity, notifier, cache, cfg.BcryptCost, cfg.CodePrefix)

	go queue.StartChangeConsumer(func(table string) {
		if table == "tasks" || table == "users" {
			cache.Invalidate(context.Background())
		}
	})

	// HTTP surface.
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, acctSvc), cfg.JWTSecret)
	router.RegisterTasks(e, handler.NewTaskHandler(taskSvc), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUserHandler(acctSvc, ledger), cfg.JWTSecret)
	router.RegisterActivity(e, handler.NewActivityHandler(activity), cfg.JWTSecret)
	router.RegisterResets(e, handler.NewResetHandler(acctSvc), cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
