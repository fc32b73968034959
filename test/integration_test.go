//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/storely/checkout/internal/catalog"
	"github.com/storely/checkout/internal/domain"
	"github.com/storely/checkout/internal/orders"
	"github.com/storely/checkout/internal/payments"
	"github.com/storely/checkout/internal/reservation"
	"github.com/storely/checkout/internal/stock"
)

type checkoutEnv struct {
	db      *sql.DB
	ledger  *stock.PostgresLedger
	store   *orders.PostgresStore
	service *orders.Service
	signer  *payments.Signer
}

// newCheckoutEnv wires the full stack against a migrated Postgres plus an
// httptest payment provider.
func newCheckoutEnv(ctx context.Context, t *testing.T, connStr string) *checkoutEnv {
	t.Helper()

	db, err := OpenDB(connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SeedCatalog(ctx, db); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"order_test_ref_1"}`)
	}))
	t.Cleanup(providerServer.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledger := stock.NewPostgresLedger(db)
	repo := catalog.NewCachingRepository(catalog.NewPostgresRepository(db), 128, time.Minute)
	manager := reservation.NewManager(ledger, repo, logger)
	store := orders.NewPostgresStore(db)
	signer := payments.NewSigner("integration-secret")
	provider := payments.NewHTTPProvider(providerServer.URL, "key", "secret", providerServer.Client())

	service := orders.NewService(store, manager, provider, signer, nil, nil, 10*time.Minute, logger)

	return &checkoutEnv{db: db, ledger: ledger, store: store, service: service, signer: signer}
}

func (e *checkoutEnv) available(ctx context.Context, t *testing.T, productID, variantID string) int {
	t.Helper()
	level, err := e.ledger.Get(ctx, domain.StockUnit{ProductID: productID, VariantID: variantID})
	if err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	if level == nil {
		t.Fatalf("stock unit %s/%s not found", productID, variantID)
	}
	return level.Available
}

func TestPlaceAndVerifyFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	env := newCheckoutEnv(ctx, t, pg.ConnStr)

	order, err := env.service.Place(ctx, orders.PlaceOrderRequest{
		CustomerID: "cust-1",
		Items: []reservation.ItemRequest{
			{ProductID: "prod-shirt", VariantID: "var-blue", Quantity: 2},
			{ProductID: "prod-mug", Quantity: 1},
		},
		PaymentMethod: domain.PaymentMethodProvider,
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	// var-blue has its own price 2199; the mug falls back to base 800.
	if order.TotalAmount != 2*2199+800 {
		t.Fatalf("expected total %d, got %d", 2*2199+800, order.TotalAmount)
	}
	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusCreated {
		t.Fatalf("expected PENDING/CREATED, got %s/%s", order.Status, order.PaymentStatus)
	}
	if got := env.available(ctx, t, "prod-shirt", "var-blue"); got != 18 {
		t.Fatalf("expected blue shirt stock 18, got %d", got)
	}
	if got := env.available(ctx, t, "prod-mug", ""); got != 99 {
		t.Fatalf("expected mug stock 99, got %d", got)
	}

	sig := env.signer.Sign(order.ProviderOrderRef, "pay_int_1")
	verified, err := env.service.VerifyPayment(ctx, order.ProviderOrderRef, "pay_int_1", sig)
	if err != nil {
		t.Fatalf("failed to verify payment: %v", err)
	}
	if verified.Status != domain.OrderStatusConfirmed || verified.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected CONFIRMED/PAID, got %s/%s", verified.Status, verified.PaymentStatus)
	}

	// Duplicate callback is a no-op.
	again, err := env.service.VerifyPayment(ctx, order.ProviderOrderRef, "pay_int_1", sig)
	if err != nil {
		t.Fatalf("duplicate verify failed: %v", err)
	}
	if again.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected PAID after duplicate, got %s", again.PaymentStatus)
	}

	fetched, err := env.store.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched == nil || len(fetched.Items) != 2 {
		t.Fatalf("expected persisted order with 2 items, got %+v", fetched)
	}
}

func TestNoOversellUnderConcurrentOrders(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	env := newCheckoutEnv(ctx, t, pg.ConnStr)

	// var-white has 5 units; 20 customers want one each.
	const workers = 20
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.Place(ctx, orders.PlaceOrderRequest{
				CustomerID: "cust-race",
				Items: []reservation.ItemRequest{
					{ProductID: "prod-shirt", VariantID: "var-white", Quantity: 1},
				},
				PaymentMethod: domain.PaymentMethodCashOnDelivery,
			})
			if err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	won := 0
	for range successes {
		won++
	}
	if won != 5 {
		t.Fatalf("expected exactly 5 successful orders, got %d", won)
	}
	if got := env.available(ctx, t, "prod-shirt", "var-white"); got != 0 {
		t.Fatalf("expected white shirt stock 0, got %d", got)
	}
}

func TestExpiredOrderIsSweptAndStockRestored(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	env := newCheckoutEnv(ctx, t, pg.ConnStr)

	order, err := env.service.Place(ctx, orders.PlaceOrderRequest{
		CustomerID: "cust-expired",
		Items: []reservation.ItemRequest{
			{ProductID: "prod-mug", Quantity: 3},
		},
		PaymentMethod: domain.PaymentMethodProvider,
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	if got := env.available(ctx, t, "prod-mug", ""); got != 97 {
		t.Fatalf("expected mug stock 97, got %d", got)
	}

	// Backdate the window so the sweep picks the order up.
	if _, err := env.db.ExecContext(ctx,
		`UPDATE orders SET expires_at = NOW() - INTERVAL '1 minute' WHERE id = $1`, order.ID); err != nil {
		t.Fatalf("failed to backdate order: %v", err)
	}

	due, err := env.store.FindDue(ctx, 10)
	if err != nil {
		t.Fatalf("failed to find due orders: %v", err)
	}
	if len(due) != 1 || due[0] != order.ID {
		t.Fatalf("expected the expired order to be due, got %v", due)
	}

	if err := env.service.Reconcile(ctx, order.ID); err != nil {
		t.Fatalf("failed to reconcile: %v", err)
	}

	cancelled, err := env.store.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled || cancelled.PaymentStatus != domain.PaymentStatusFailed {
		t.Fatalf("expected CANCELLED/FAILED, got %s/%s", cancelled.Status, cancelled.PaymentStatus)
	}
	if !cancelled.StockReleased {
		t.Fatal("expected stock_released to be set")
	}
	if got := env.available(ctx, t, "prod-mug", ""); got != 100 {
		t.Fatalf("expected mug stock restored to 100, got %d", got)
	}

	// A second sweep finds nothing.
	due, err = env.store.FindDue(ctx, 10)
	if err != nil {
		t.Fatalf("failed to find due orders: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no due orders after reconcile, got %v", due)
	}

	// The late provider callback must not resurrect the order.
	sig := env.signer.Sign(order.ProviderOrderRef, "pay_late")
	if _, err := env.service.VerifyPayment(ctx, order.ProviderOrderRef, "pay_late", sig); err == nil {
		t.Fatal("expected late verification to fail")
	}
}

func TestKafkaConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	if len(brokers) == 0 {
		t.Fatal("expected at least one broker")
	}

	t.Logf("kafka brokers: %v", brokers)
}

func TestStockEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	env := newCheckoutEnv(ctx, t, pg.ConnStr)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := stock.NewHandler(env.ledger, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stock/{productId}", handler.HandleGet)

	req := httptest.NewRequest(http.MethodGet, "/stock/prod-shirt?variant=var-blue", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var level domain.StockLevel
	if err := json.NewDecoder(rec.Body).Decode(&level); err != nil {
		t.Fatalf("failed to decode stock level: %v", err)
	}
	if level.Available != 20 {
		t.Fatalf("expected 20 available, got %d", level.Available)
	}
}
