package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

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

func main() {
	ctx := context.Background()
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

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "checkout-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("checkout-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

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

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = messaging.NewProducer(cfg.KafkaBrokers)
		defer func() { _ = producer.Close() }()
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	ledger := stock.NewPostgresLedger(db)
	priceLookup := catalog.NewCachingRepository(
		catalog.NewPostgresRepository(db), 1024, time.Minute)
	reservations := reservation.NewManager(ledger, priceLookup, logger)

	signer := payments.NewSigner(cfg.ProviderKeySecret)
	provider := payments.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderKeyID, cfg.ProviderKeySecret, httpClient)

	store := orders.NewPostgresStore(db)

	var publisher orders.EventPublisher
	if producer != nil {
		publisher = producer
	}
	service := orders.NewService(store, reservations, provider, signer, publisher, metrics, cfg.PaymentWindow, logger)
	scheduler := expiry.NewScheduler(service.Reconcile, 30*time.Second, logger)
	defer scheduler.Stop()
	service.SetScheduler(scheduler)

	orderHandler := orders.NewHandler(service, logger)
	stockHandler := stock.NewHandler(ledger, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("POST /orders/verify-payment", telemetry.WithHTTPRoute(orderHandler.HandleVerifyPayment))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("GET /stock", telemetry.WithHTTPRoute(stockHandler.HandleList))
	mux.HandleFunc("GET /stock/{productId}", telemetry.WithHTTPRoute(stockHandler.HandleGet))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", orders.CustomerIDHeader, orders.RoleHeader},
	}).Handler(mux)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(handler, "checkout-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting checkout api", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
