package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"insurledger-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	// Verify connections before accepting traffic
	sqlDB, err := app.DB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres: get DB")
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	log.Info().Msg("postgres connected")
	if app.Rdb != nil {
		if err := app.Rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set; locks, health counters and error log disabled")
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("shutting down")
		_ = app.Fiber.Shutdown()
	}()

	port := app.Config.Port
	log.Info().Str("port", port).Str("env", app.Config.Env).
		Str("health", "http://localhost:"+port+"/health/json").
		Msg("server running")
	if err := app.Fiber.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
	_ = sqlDB.Close()
	if app.Rdb != nil {
		_ = app.Rdb.Close()
	}
}
