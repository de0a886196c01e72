package bootstrap

import (
	"insurledger-backend/internal/config"
	"insurledger-backend/internal/interfaces/router"
	"insurledger-backend/internal/platform/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App is a configured API with the connections it opened.
type App struct {
	Config *config.Config
	Fiber  *fiber.App
	DB     *gorm.DB
	Rdb    *redis.Client
}

// New loads config, sets up logging and builds the app. Shared by cmd/api
// and the serverless handler under api/, which cannot import internal/.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.Env != "production")
	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Fiber: app, DB: db, Rdb: rdb}, nil
}
