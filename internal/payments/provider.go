package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Provider creates orders with the external payment provider ahead of
// checkout; the returned reference keys the asynchronous callback.
type Provider interface {
	CreateOrder(ctx context.Context, amountMinor int64, receipt string) (string, error)
}

// HTTPProvider talks to the provider's order API with key-id/key-secret
// basic auth.
type HTTPProvider struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewHTTPProvider(baseURL, keyID, keySecret string, client *http.Client) *HTTPProvider {
	return &HTTPProvider{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    client,
	}
}

type providerOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type providerOrderResponse struct {
	ID string `json:"id"`
}

func (p *HTTPProvider) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (string, error) {
	body := providerOrderRequest{
		Amount:   amountMinor,
		Currency: "INR",
		Receipt:  receipt,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/orders", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.keyID, p.keySecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create provider order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var created providerOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode provider order response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("payment provider returned empty order id")
	}

	return created.ID, nil
}
