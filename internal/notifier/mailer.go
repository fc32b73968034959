package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Mailer delivers a customer notification.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RelayMailer posts messages to an HTTP mail relay, which owns address
// resolution and actual SMTP delivery.
type RelayMailer struct {
	baseURL string
	client  *http.Client
}

func NewRelayMailer(baseURL string, client *http.Client) *RelayMailer {
	return &RelayMailer{baseURL: baseURL, client: client}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (m *RelayMailer) Send(ctx context.Context, to, subject, body string) error {
	data, err := json.Marshal(sendRequest{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}

	return nil
}
