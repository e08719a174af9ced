// Package transform talks to the remote image transformation endpoint. URLs
// follow the fetch-style convention of a comma-separated parameter list
// inserted between the base path and the source URL.
package transform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Params describes one templated transformation.
type Params struct {
	Saturation int
	Width      int
	Height     int
	Fit        string
	Background string
	Format     string
}

// Options configures the transformation client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client fetches transformed image bytes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a transformation client. The zero Timeout defaults to
// thirty seconds.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, httpClient: client}
}

// URL builds the templated transformation URL for the given source.
func (c *Client) URL(p Params, sourceURL string) string {
	parts := []string{
		"e_saturation:" + strconv.Itoa(p.Saturation),
		"w_" + strconv.Itoa(p.Width),
		"h_" + strconv.Itoa(p.Height),
	}
	if p.Fit != "" {
		parts = append(parts, "c_"+p.Fit)
	}
	if p.Background != "" {
		parts = append(parts, "b_"+p.Background)
	}
	if p.Format != "" {
		parts = append(parts, "f_"+p.Format)
	}
	return c.baseURL + "/" + strings.Join(parts, ",") + "/" + sourceURL
}

// Fetch requests the templated transformation and returns the resulting bytes.
func (c *Client) Fetch(ctx context.Context, p Params, sourceURL string) ([]byte, error) {
	return c.get(ctx, c.URL(p, sourceURL))
}

// FetchWithOptions requests the source URL directly, passing saturation and
// format as fetch-time query options rather than a URL template.
func (c *Client) FetchWithOptions(ctx context.Context, sourceURL string, saturation int, format string) ([]byte, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("transform: parse source url: %w", err)
	}
	q := u.Query()
	q.Set("saturation", strconv.Itoa(saturation))
	if format != "" {
		q.Set("format", format)
	}
	u.RawQuery = q.Encode()
	return c.get(ctx, u.String())
}

// FetchRaw requests the source URL unmodified.
func (c *Client) FetchRaw(ctx context.Context, sourceURL string) ([]byte, error) {
	return c.get(ctx, sourceURL)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("transform: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transform: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("transform: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transform: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("transform: empty response")
	}
	return data, nil
}
