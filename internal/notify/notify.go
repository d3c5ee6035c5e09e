// Package notify delivers sync notifications to an external webhook, for
// visitor emails and agent digests handled out of process.
package notify

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nestfolio/nestfolio-server/internal/domain"
)

// Notifier publishes sync events. Delivery is best effort everywhere it
// is called; implementations must not block syncs on slow consumers.
type Notifier interface {
	// NewMatches fires when a sync adds properties to a collection with
	// a reachable visitor.
	NewMatches(ctx context.Context, collection *domain.Collection, outcome domain.SyncOutcome) error
	// RunSummary fires after each scheduler pass.
	RunSummary(ctx context.Context, report *domain.SyncRunReport) error
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) NewMatches(context.Context, *domain.Collection, domain.SyncOutcome) error { return nil }
func (Noop) RunSummary(context.Context, *domain.SyncRunReport) error                  { return nil }

// Webhook posts notification events as JSON to a single endpoint. Each
// delivery carries a unique ID so the consumer can deduplicate retries.
type Webhook struct {
	endpoint  string
	publicURL string
	http      *http.Client
	logger    *slog.Logger
}

// NewWebhook creates a webhook notifier. publicURL is the server's public
// base address, used to build visitor share links; empty leaves the link
// out of the payload.
func NewWebhook(endpoint, publicURL string, logger *slog.Logger) *Webhook {
	return &Webhook{
		endpoint:  endpoint,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type event struct {
	DeliveryID string    `json:"delivery_id"`
	Type       string    `json:"type"`
	SentAt     time.Time `json:"sent_at"`
	Payload    any       `json:"payload"`
}

type newMatchesPayload struct {
	CollectionID   string `json:"collection_id"`
	CollectionName string `json:"collection_name"`
	VisitorName    string `json:"visitor_name,omitempty"`
	VisitorEmail   string `json:"visitor_email,omitempty"`
	ShareLink      string `json:"share_link,omitempty"`
	NewProperties  int    `json:"new_properties_count"`
	Total          int    `json:"total_properties"`
}

// NewMatches implements Notifier.
func (w *Webhook) NewMatches(ctx context.Context, collection *domain.Collection, outcome domain.SyncOutcome) error {
	return w.send(ctx, "collection.new_matches", newMatchesPayload{
		CollectionID:   collection.ID,
		CollectionName: collection.Name,
		VisitorName:    collection.VisitorName,
		VisitorEmail:   collection.VisitorEmail,
		ShareLink:      w.shareLink(collection),
		NewProperties:  outcome.NewProperties,
		Total:          outcome.TotalProperties,
	})
}

// shareLink builds the public URL a visitor opens the collection with.
func (w *Webhook) shareLink(collection *domain.Collection) string {
	if w.publicURL == "" || collection.ShareToken == "" {
		return ""
	}
	return w.publicURL + "/shared/" + collection.ShareToken
}

// RunSummary implements Notifier.
func (w *Webhook) RunSummary(ctx context.Context, report *domain.SyncRunReport) error {
	return w.send(ctx, "sync.run_summary", report)
}

func (w *Webhook) send(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(event{
		DeliveryID: uuid.NewString(),
		Type:       eventType,
		SentAt:     time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", eventType, err)
	}
	defer resp.Body.Close()

	// Non-2xx is logged, never escalated: notifications are advisory.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Warn("notification rejected",
			"type", eventType,
			"status", resp.StatusCode,
		)
	}
	return nil
}
