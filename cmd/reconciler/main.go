package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/storely/checkout/internal/catalog"
	"github.com/storely/checkout/internal/config"
	"github.com/storely/checkout/internal/expiry"
	"github.com/storely/checkout/internal/messaging"
	"github.com/storely/checkout/internal/orders"
	"github.com/storely/checkout/internal/payments"
	"github.com/storely/checkout/internal/reservation"
	"github.com/storely/checkout/internal/stock"
	"github.com/storely/checkout/internal/telemetry"
)

// The reconciler is the durable half of the expiry scheduler: it scans
// for orders whose payment window lapsed and resolves each one, so a
// restart of the api process never leaves an order stuck pending.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.ProviderKeySecret == "" {
		logger.Error("PAYMENT_PROVIDER_KEY_SECRET environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "checkout-reconciler", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = messaging.NewProducer(cfg.KafkaBrokers)
		defer func() { _ = producer.Close() }()
	}

	ledger := stock.NewPostgresLedger(db)
	priceLookup := catalog.NewPostgresRepository(db)
	reservations := reservation.NewManager(ledger, priceLookup, logger)
	store := orders.NewPostgresStore(db)
	signer := payments.NewSigner(cfg.ProviderKeySecret)

	var publisher orders.EventPublisher
	if producer != nil {
		publisher = producer
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	provider := payments.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderKeyID, cfg.ProviderKeySecret, httpClient)
	service := orders.NewService(store, reservations, provider, signer, publisher, nil, cfg.PaymentWindow, logger)

	sweeper := expiry.NewSweeper(store, service.Reconcile, cfg.SweepInterval, cfg.SweepBatch, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting reconciler", "interval", cfg.SweepInterval.String(), "batch", cfg.SweepBatch)

	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sweeper error", "error", err)
		os.Exit(1)
	}
	logger.Info("reconciler stopped")
}
