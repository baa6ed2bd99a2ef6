package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-account-service/internal/auth"
	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/database"
	"github.com/iliyamo/user-account-service/internal/handler"
	"github.com/iliyamo/user-account-service/internal/queue"
	"github.com/iliyamo/user-account-service/internal/repository"
	"github.com/iliyamo/user-account-service/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is absent.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := repository.NewUserRepo(db)
	tokens := auth.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret,
		cfg.AccessTTLMin, cfg.RefreshTTLDays, users)
	h := handler.NewUserHandler(cfg, users, tokens)

	// Redis backs the response cache on the admin listing endpoints; a
	// nil client simply disables caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, response cache disabled")
	}

	// Consume user.registered events in the background.
	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("registration consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterUserAPI(e, h, config.LoadCacheConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
