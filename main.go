package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"promptshare/internal/config"
	"promptshare/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	cfg, err := config.Load(viper.New())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer func() {
		if err := app.close(); err != nil {
			log.WithError(err).Error("Error releasing resources")
		}
	}()

	if err := app.run(ctx); err != nil {
		log.WithError(err).Error("Server stopped with error")
		return
	}
	log.Info("Server gracefully stopped")
}
