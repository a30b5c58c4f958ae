package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"payment-reconciliation/internal/client"
	"payment-reconciliation/internal/config"
	"payment-reconciliation/internal/event"
	"payment-reconciliation/internal/lock"
	"payment-reconciliation/internal/logger"
	"payment-reconciliation/internal/repository"
	"payment-reconciliation/internal/server"
	"payment-reconciliation/internal/service"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	l, err := logger.NewFromConfig(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	if err := run(cfg, l); err != nil {
		l.Error("service stopped", logger.Error(err))
		l.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, l *logger.ZapLogger) error {
	ctx := context.Background()

	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		return err
	}

	gateway, err := client.NewGatewayClient(cfg)
	if err != nil {
		return err
	}

	var locker lock.Locker = lock.NopLocker{}
	if cfg.Redis.Addr != "" {
		rdb, err := client.InitRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedsyncLocker(client.NewRedsync(rdb), l)
	} else {
		l.Warn("REDIS_ADDR not set, relying on database row locks only")
	}

	var sink event.Sink = event.NewLogSink(l)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := client.InitKafkaProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()
		sink = event.NewKafkaSink(producer, cfg.Kafka.PaymentTopic, cfg.Kafka.RefundTopic)
	}

	orderRepo := repository.NewOrderRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	reconciliationService := service.NewReconciliationService(
		db, gateway, locker,
		orderRepo,
		installmentRepo,
		webhookEventRepo,
		sink, l,
	)
	paymentService := service.NewPaymentService(gateway, orderRepo, installmentRepo, l)
	refundService := service.NewRefundService(db, gateway, locker, orderRepo, sink, cfg.Gateway.Currency, l)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(reconciliationService, paymentService, refundService, cfg.Auth.JWTSecret, l)

	errCh := make(chan error, 1)
	l.Info("starting HTTP server",
		logger.String("addr", serverAddr),
		logger.String("gateway", gateway.Name()))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
	}
	l.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
