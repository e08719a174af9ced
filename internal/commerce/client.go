// Package commerce publishes finished charms to the storefront API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures the commerce client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the commerce API. A nil client is valid and reports itself
// as not configured.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// CreateProductRequest carries everything the storefront needs to list a charm.
type CreateProductRequest struct {
	GoldURL   string `json:"gold_url"`
	SilverURL string `json:"silver_url"`
	Label     string `json:"label"`
	Summary   string `json:"summary"`
	Email     string `json:"email"`
	Public    bool   `json:"public"`
}

// Product is the storefront's view of a published charm.
type Product struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewClient constructs a commerce client. Returns nil when no base URL is
// configured so callers can treat publishing as optional.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, apiKey: strings.TrimSpace(opts.APIKey), httpClient: client}
}

// CreateProduct publishes the charm and returns the storefront product.
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if c == nil {
		return nil, errors.New("commerce: not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("commerce: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/products", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("commerce: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("commerce: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("commerce: http %d", resp.StatusCode)
	}
	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("commerce: decode response: %w", err)
	}
	if product.ID == "" {
		return nil, errors.New("commerce: response missing product id")
	}
	return &product, nil
}
