// Package vision derives a charm description from the working image via a
// vision-capable chat model. The stage is total: any failure yields the fixed
// default triplet instead of an error.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"charmforge/internal/domain"
	"charmforge/internal/infra"
)

const (
	DefaultLabel       = "Custom Charm"
	DefaultSummary     = "A one-of-a-kind keepsake charm crafted from your photo."
	DefaultInstruction = "Render the main subject as a polished solid gold jewelry charm on a clean white background with soft studio lighting and high detail."
)

const describeInstruction = `Look at this product photo. Respond with exactly one JSON object with three fields: "label" (a short name for the subject, four words maximum), "summary" (one short marketing sentence describing the subject as a keepsake charm), and "instruction" (a concise directive telling an image model how to render this exact subject as a polished gold jewelry charm). Respond with raw JSON only, no markdown fences.`

const defaultTimeout = 15 * time.Second

// Options configures the vision describer.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// Describer calls an OpenAI-style chat completions endpoint with the working
// image embedded as a data URL.
type Describer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *infra.Logger
}

// NewDescriber constructs a describer. The zero Timeout defaults to fifteen
// seconds.
func NewDescriber(opts Options) *Describer {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Describer{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    base,
		httpClient: client,
		timeout:    timeout,
		logger:     opts.Logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Describe derives the label/summary/instruction triplet from the working
// image. It never returns an error: call failures, timeouts, and unparseable
// output all degrade to the fixed defaults.
func (d *Describer) Describe(ctx context.Context, img domain.WorkingImage) domain.Description {
	content, err := d.call(ctx, img)
	if err != nil {
		d.warn("describe_call", err)
		return DefaultDescription()
	}
	desc, err := ParseDescription(content)
	if err != nil {
		d.warn("describe_parse", err)
		return DefaultDescription()
	}
	return normalize(desc)
}

func (d *Describer) call(ctx context.Context, img domain.WorkingImage) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("vision: api key is missing")
	}
	mime := img.ContentType
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := "data:" + mime + ";base64," + img.Encoded()

	payload := chatRequest{
		Model: d.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: describeInstruction},
				{Type: "image_url", ImageURL: &imageURLPart{URL: dataURL}},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vision: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("vision: http %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("vision: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("vision: no choices")
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("vision: empty content")
	}
	return content, nil
}

func (d *Describer) warn(reason string, err error) {
	if d.logger != nil {
		d.logger.Warn().Err(err).Str("reason", reason).Msg("vision describer fell back to defaults")
	}
}

// DefaultDescription returns the fixed literal triplet used whenever the
// remote call fails or its output cannot be parsed.
func DefaultDescription() domain.Description {
	return domain.Description{
		Label:       DefaultLabel,
		Summary:     DefaultSummary,
		Instruction: DefaultInstruction,
	}
}

// normalize backfills empty fields with their defaults and title-cases the
// label so storefront copy stays consistent.
func normalize(desc domain.Description) domain.Description {
	c := cases.Title(language.English)
	if label := strings.TrimSpace(desc.Label); label != "" {
		desc.Label = c.String(label)
	} else {
		desc.Label = DefaultLabel
	}
	if strings.TrimSpace(desc.Summary) == "" {
		desc.Summary = DefaultSummary
	}
	if strings.TrimSpace(desc.Instruction) == "" {
		desc.Instruction = DefaultInstruction
	}
	return desc
}
