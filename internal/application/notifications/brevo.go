package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"insurledger-backend/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

var defaultClient = &http.Client{Timeout: 15 * time.Second}

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoContact   `json:"sender"`
	To          []BrevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoSink emails alerts to a fixed inbox (the insurance office) through Brevo.
// An empty APIKey makes it a no-op.
type BrevoSink struct {
	APIKey   string
	MailFrom string
	To       string
	Endpoint string // defaults to the Brevo API; tests point it at httptest
	Client   *http.Client
}

// NewBrevoSink returns a sink with its own HTTP client. The sink is shared
// by concurrent emits and is not mutated after construction.
func NewBrevoSink(apiKey, mailFrom, to string) *BrevoSink {
	return &BrevoSink{
		APIKey:   apiKey,
		MailFrom: mailFrom,
		To:       to,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *BrevoSink) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return defaultClient
}

func (b *BrevoSink) from() string {
	if b.MailFrom != "" {
		return b.MailFrom
	}
	return "noreply@insurledger.local"
}

func (b *BrevoSink) endpoint() string {
	if b.Endpoint != "" {
		return b.Endpoint
	}
	return brevoAPI
}

func (b *BrevoSink) Notify(ctx context.Context, n domain.Notification) error {
	if b.APIKey == "" || b.To == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoContact{Email: b.from(), Name: "Insurance Office"},
		To:          []BrevoContact{{Email: b.To}},
		Subject:     subject(n.Category),
		HTMLContent: renderAlert(n),
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := b.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

func subject(c domain.NotificationCategory) string {
	words := strings.Split(strings.ToLower(string(c)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return "[Claims] " + strings.Join(words, " ")
}

func renderAlert(n domain.Notification) string {
	ref := "-"
	if n.ReferenceID != nil {
		ref = *n.ReferenceID
	}
	return fmt.Sprintf(`<html><body>
    <h2>%s</h2>
    <p>%s</p>
    <p style="font-size:12px;color:#666;">Reference: %s · Raised by: %s</p>
</body></html>`,
		html.EscapeString(subject(n.Category)),
		html.EscapeString(n.Message),
		html.EscapeString(ref),
		html.EscapeString(n.Target.String()))
}
