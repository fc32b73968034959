package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storely/checkout/internal/domain"
)

type recordingMailer struct {
	sent []sendRequest
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sendRequest{To: to, Subject: subject, Body: body})
	return nil
}

func testHandler(mailer Mailer) *Handler {
	return NewHandler(mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleConfirmed(t *testing.T) {
	t.Run("sends a confirmation email", func(t *testing.T) {
		mailer := &recordingMailer{}
		h := testHandler(mailer)

		payload := mustMarshal(t, domain.OrderConfirmedEvent{
			OrderID:            "order-1",
			CustomerID:         "cust-1",
			ProviderPaymentRef: "pay_1",
			Timestamp:          time.Now().UTC(),
		})
		if err := h.HandleConfirmed(context.Background(), payload); err != nil {
			t.Fatalf("handle confirmed: %v", err)
		}

		if len(mailer.sent) != 1 {
			t.Fatalf("expected 1 email, got %d", len(mailer.sent))
		}
		if mailer.sent[0].To != "cust-1" {
			t.Fatalf("expected recipient cust-1, got %q", mailer.sent[0].To)
		}
		if mailer.sent[0].Subject != "Order confirmed: order-1" {
			t.Fatalf("unexpected subject %q", mailer.sent[0].Subject)
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		h := testHandler(&recordingMailer{})
		if err := h.HandleConfirmed(context.Background(), []byte("{")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("propagates mailer failures", func(t *testing.T) {
		h := testHandler(&recordingMailer{err: errors.New("relay down")})
		payload := mustMarshal(t, domain.OrderConfirmedEvent{OrderID: "order-1", CustomerID: "cust-1"})
		if err := h.HandleConfirmed(context.Background(), payload); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestHandleCancelled(t *testing.T) {
	mailer := &recordingMailer{}
	h := testHandler(mailer)

	payload := mustMarshal(t, domain.OrderCancelledEvent{
		OrderID:    "order-2",
		CustomerID: "cust-2",
		Reason:     "payment window expired",
		Timestamp:  time.Now().UTC(),
	})
	if err := h.HandleCancelled(context.Background(), payload); err != nil {
		t.Fatalf("handle cancelled: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}
	if mailer.sent[0].Subject != "Order cancelled: order-2" {
		t.Fatalf("unexpected subject %q", mailer.sent[0].Subject)
	}
}

func TestRelayMailer(t *testing.T) {
	t.Run("posts to the relay", func(t *testing.T) {
		var got sendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/send" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode relay request: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		mailer := NewRelayMailer(server.URL, server.Client())
		if err := mailer.Send(context.Background(), "cust-1", "hello", "world"); err != nil {
			t.Fatalf("send: %v", err)
		}

		if got.To != "cust-1" || got.Subject != "hello" || got.Body != "world" {
			t.Fatalf("unexpected relay payload %+v", got)
		}
	})

	t.Run("non-200 relay response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		mailer := NewRelayMailer(server.URL, server.Client())
		if err := mailer.Send(context.Background(), "cust-1", "hello", "world"); err == nil {
			t.Fatal("expected error")
		}
	})
}
