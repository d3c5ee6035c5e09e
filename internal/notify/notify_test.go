package notify

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nestfolio/nestfolio-server/internal/domain"
)

func TestWebhook_NewMatches(t *testing.T) {
	var got event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
	}))
	defer server.Close()

	w := NewWebhook(server.URL, "https://nestfolio.example/", slog.New(slog.DiscardHandler))
	collection := &domain.Collection{ID: "col_1", Name: "Smith", VisitorEmail: "v@example.com", ShareToken: "share-abc123"}
	outcome := domain.SyncOutcome{Success: true, CollectionID: "col_1", NewProperties: 2, TotalProperties: 5}

	if err := w.NewMatches(context.Background(), collection, outcome); err != nil {
		t.Fatalf("NewMatches: %v", err)
	}
	if got.Type != "collection.new_matches" {
		t.Errorf("type = %q", got.Type)
	}
	if got.DeliveryID == "" {
		t.Error("delivery ID missing")
	}

	var payload newMatchesPayload
	raw, _ := json.Marshal(got.Payload)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.ShareLink != "https://nestfolio.example/shared/share-abc123" {
		t.Errorf("share_link = %q", payload.ShareLink)
	}
}

func TestWebhook_RejectionNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	w := NewWebhook(server.URL, "", slog.New(slog.DiscardHandler))
	report := &domain.SyncRunReport{Success: true}
	if err := w.RunSummary(context.Background(), report); err != nil {
		t.Fatalf("rejection should not be an error: %v", err)
	}
}
