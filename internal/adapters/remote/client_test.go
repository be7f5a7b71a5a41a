package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

func testItem() *domainSync.Item {
	return &domainSync.Item{
		ID:        "item-1",
		Type:      domainSync.ItemReport,
		Action:    "create",
		Priority:  5,
		CreatedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Payload: domainSync.Payload{
			Kind:     domainSync.PayloadReport,
			EntityID: "rep-1",
		},
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with defaults", func(t *testing.T) {
		client := NewClient()
		if client.baseURL != DefaultBaseURL {
			t.Errorf("expected base URL '%s', got '%s'", DefaultBaseURL, client.baseURL)
		}
	})

	t.Run("applies functional options", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		client := NewClient(
			WithBaseURL("https://remote.example"),
			WithAPIKey("test-api-key"),
			WithHTTPClient(custom),
		)
		if client.baseURL != "https://remote.example" {
			t.Errorf("unexpected base URL '%s'", client.baseURL)
		}
		if client.apiKey != "test-api-key" {
			t.Errorf("unexpected API key '%s'", client.apiKey)
		}
		if client.httpClient != custom {
			t.Error("expected custom HTTP client to be set")
		}
	})
}

func TestClient_Deliver(t *testing.T) {
	t.Run("successful delivery", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.URL.Path != EndpointSyncItems {
				t.Errorf("expected path %s, got %s", EndpointSyncItems, r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer test-api-key" {
				t.Errorf("unexpected Authorization header '%s'", r.Header.Get("Authorization"))
			}

			var req DeliverRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decoding request: %v", err)
			}
			if req.ItemID != "item-1" || req.ItemType != "report" {
				t.Errorf("unexpected request %+v", req)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(DeliverResponse{ItemID: req.ItemID, AcceptedAt: time.Now()})
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL), WithAPIKey("test-api-key"))
		if err := client.Deliver(context.Background(), testItem()); err != nil {
			t.Fatalf("deliver: %v", err)
		}
	})

	t.Run("server error is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "maintenance window"})
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		err := client.Deliver(context.Background(), testItem())

		var deliveryErr *domainErrors.DeliveryError
		if !errors.As(err, &deliveryErr) {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
		if deliveryErr.Permanent {
			t.Error("5xx failures must stay retryable")
		}
	})

	t.Run("rejection is permanent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "unknown item type"})
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		err := client.Deliver(context.Background(), testItem())

		var deliveryErr *domainErrors.DeliveryError
		if !errors.As(err, &deliveryErr) {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
		if !deliveryErr.Permanent {
			t.Error("a 422 rejection should be flagged permanent")
		}
	})

	t.Run("rate limiting stays transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		err := client.Deliver(context.Background(), testItem())

		var deliveryErr *domainErrors.DeliveryError
		if !errors.As(err, &deliveryErr) {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
		if deliveryErr.Permanent {
			t.Error("429 must stay retryable")
		}
	})

	t.Run("unreachable remote", func(t *testing.T) {
		client := NewClient(WithBaseURL("http://127.0.0.1:1"), WithTimeout(time.Second))
		err := client.Deliver(context.Background(), testItem())

		var deliveryErr *domainErrors.DeliveryError
		if !errors.As(err, &deliveryErr) {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("returns the remote payload", func(t *testing.T) {
		modified := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != EndpointSnapshots+"/rep-1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(SnapshotResponse{
				EntityID: "rep-1",
				Payload: domainSync.Payload{
					Kind:       domainSync.PayloadReport,
					EntityID:   "rep-1",
					ModifiedAt: &modified,
					Report:     &domainSync.ReportContent{Status: "final"},
				},
			})
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		payload, err := client.Fetch(context.Background(), "rep-1")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if payload == nil || payload.Report == nil {
			t.Fatal("expected a report payload")
		}
		if payload.Report.Status != "final" {
			t.Errorf("status = %s, want final", payload.Report.Status)
		}
		if payload.ModifiedAt == nil || !payload.ModifiedAt.Equal(modified) {
			t.Errorf("modified at = %v, want %s", payload.ModifiedAt, modified)
		}
	})

	t.Run("missing entity is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		payload, err := client.Fetch(context.Background(), "rep-404")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if payload != nil {
			t.Errorf("expected no payload, got %+v", payload)
		}
	})

	t.Run("server error surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "snapshot store offline"})
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		if _, err := client.Fetch(context.Background(), "rep-1"); err == nil {
			t.Fatal("expected an error")
		}
	})
}
