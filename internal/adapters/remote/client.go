// Package remote is the HTTP client for the remote reporting authority.
// It implements both the delivery transport and the snapshot provider.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/medsync/internal/domain/errors"
	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// Client is an HTTP client for the remote authority API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var (
	_ ports.TransportPort        = (*Client)(nil)
	_ ports.SnapshotProviderPort = (*Client)(nil)
)

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the client
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAPIKey sets the bearer token sent with every request
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new remote authority client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Deliver posts a sync item to the remote authority. Failures come back
// as *errors.DeliveryError; 4xx responses are flagged permanent since the
// remote rejected the item itself.
func (c *Client) Deliver(ctx context.Context, item *domainSync.Item) error {
	body, err := json.Marshal(DeliverRequest{
		ItemID:     item.ID,
		ItemType:   string(item.Type),
		Action:     item.Action,
		Payload:    item.Payload,
		Priority:   item.Priority,
		RetryCount: item.RetryCount,
		CreatedAt:  item.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointSyncItems, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domainErrors.DeliveryError{Reason: "remote unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.deliveryError(resp)
	}
	return nil
}

// Fetch retrieves the remote copy of an entity for conflict detection.
// A 404 means the remote has no copy yet; that is not an error.
func (c *Client) Fetch(ctx context.Context, entityID string) (*domainSync.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+EndpointSnapshots+"/"+entityID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var snapResp SnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &snapResp.Payload, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// deliveryError maps a failed delivery response onto a DeliveryError.
// Permanence is advisory; the queue still retries up to max_retries.
func (c *Client) deliveryError(resp *http.Response) error {
	permanent := resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout &&
		resp.StatusCode != http.StatusTooManyRequests

	return &domainErrors.DeliveryError{
		Reason:    c.parseError(resp).Error(),
		Permanent: permanent,
	}
}

// parseError extracts error information from a failed response
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status %d: failed to read error body", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("status %d: %s", resp.StatusCode, errResp.Error)
}
