// Package synth calls the generative image-edit service that produces the
// gold charm rendering. This is the one pipeline stage whose exhausted failure
// aborts the whole run.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"charmforge/internal/domain"
	"charmforge/internal/infra"
)

// DefaultInstruction is used when the caller supplies no instruction.
const DefaultInstruction = "Transform the main subject into a polished 18k gold jewelry charm with smooth metallic surfaces, on a clean white background, soft studio lighting."

const (
	inferenceSteps = 30
	guidanceScale  = 7.5
	numImages      = 1
	styleAdapter   = "ip-adapter-plus_sdxl_vit-h"
	outputFormat   = "jpeg"
)

const defaultAttemptTimeout = 90 * time.Second

// Options configures the synthesizer client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	// Per-attempt timeout. Defaults to ninety seconds.
	AttemptTimeout time.Duration
	// Extra attempts beyond the first. Defaults to one.
	MaxRetries int
	// Base backoff delay; attempt n waits base * 2^n. Defaults to one second.
	RetryDelay time.Duration
	Logger     *infra.Logger
}

// Client issues image-edit requests under bounded retry.
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	attemptTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
	logger         *infra.Logger
}

// StatusError carries the HTTP status and response body of a failed call.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("synth: http %d: %s", e.Status, e.Body)
}

// NewClient constructs a synthesizer client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.segmind.com/v1"
	}
	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	if opts.MaxRetries == 0 {
		retries = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        base,
		httpClient:     client,
		attemptTimeout: timeout,
		maxRetries:     retries,
		retryDelay:     delay,
		logger:         opts.Logger,
	}
}

type editRequest struct {
	Image         string  `json:"image"`
	Prompt        string  `json:"prompt"`
	Steps         int     `json:"num_inference_steps"`
	GuidanceScale float64 `json:"guidance_scale"`
	NumImages     int     `json:"num_images"`
	Adapter       string  `json:"ip_adapter"`
	OutputFormat  string  `json:"output_format"`
}

type editResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Message string `json:"message"`
}

// Edit produces the gold rendering URL for the working image. An empty
// instruction resolves to DefaultInstruction. Each attempt runs under its own
// timeout; at most maxRetries extra attempts are made, with exponential
// backoff between them.
func (c *Client) Edit(ctx context.Context, img domain.WorkingImage, instruction string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("synth: api key is missing")
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}

	var lastErr error
	attempts := c.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * (1 << (attempt - 1))
			if c.logger != nil {
				c.logger.Warn().Err(lastErr).Dur("delay", delay).Int("attempt", attempt+1).Msg("retrying image synthesis")
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		url, err := c.editOnce(ctx, img, instruction)
		if err == nil {
			return url, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) editOnce(ctx context.Context, img domain.WorkingImage, instruction string) (string, error) {
	payload := editRequest{
		Image:         img.Encoded(),
		Prompt:        instruction,
		Steps:         inferenceSteps,
		GuidanceScale: guidanceScale,
		NumImages:     numImages,
		Adapter:       styleAdapter,
		OutputFormat:  outputFormat,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("synth: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image-edit", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("synth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("synth: call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("synth: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out editResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("synth: decode response: %w", err)
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0].URL) == "" {
		if out.Message != "" {
			return "", fmt.Errorf("synth: %s", out.Message)
		}
		return "", fmt.Errorf("synth: empty response")
	}
	return out.Images[0].URL, nil
}
