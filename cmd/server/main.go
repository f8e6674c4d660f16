package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/collectmyitem/booking/internal/checkout"
	"github.com/collectmyitem/booking/internal/config"
	"github.com/collectmyitem/booking/internal/events"
	"github.com/collectmyitem/booking/internal/logger"
	"github.com/collectmyitem/booking/internal/payments"
	"github.com/collectmyitem/booking/internal/server"
	"github.com/collectmyitem/booking/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	store, err := storage.NewFileStorage(cfg.BookingsFile)
	if err != nil {
		log.Fatal("Booking store init failed", zap.Error(err))
	}

	var producer events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		producer = events.NewConsoleProducer()
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Warn("Failed to close events producer", zap.Error(err))
		}
	}()

	stripeClient := payments.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.BaseURL)
	checkoutSvc := checkout.NewService(store, stripeClient, producer, log)

	srv := server.New(store, checkoutSvc, stripeClient, producer, log, server.Config{
		PublicDir:         cfg.PublicDir,
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
	})

	go func() {
		if err := srv.Run(ctx, cfg.Port); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port), zap.String("baseURL", cfg.BaseURL))

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server shutdown failed", zap.Error(err))
	}

	log.Info("Server gracefully stopped")
}
