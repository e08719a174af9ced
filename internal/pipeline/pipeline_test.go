package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"charmforge/internal/domain"
	"charmforge/internal/transform"
)

type fakeDescriber struct {
	desc domain.Description
}

func (f fakeDescriber) Describe(ctx context.Context, img domain.WorkingImage) domain.Description {
	return f.desc
}

type fakeSynth struct {
	url        string
	err        error
	gotImg     domain.WorkingImage
	gotInstr   string
	callCount  int
	failOnCall int
}

func (f *fakeSynth) Edit(ctx context.Context, img domain.WorkingImage, instruction string) (string, error) {
	f.callCount++
	f.gotImg = img
	f.gotInstr = instruction
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeRenderer struct {
	url string
}

func (f fakeRenderer) Derive(ctx context.Context, goldURL string) string {
	if f.url != "" {
		return f.url
	}
	return goldURL + "?silver"
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 60, B: 20, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func deadTransform(t *testing.T) (*transform.Client, func()) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	return transform.NewClient(transform.Options{BaseURL: ts.URL}), ts.Close
}

func testOrchestrator(t *testing.T, synth *fakeSynth, store *memStore) *Orchestrator {
	t.Helper()
	tc, cleanup := deadTransform(t)
	t.Cleanup(cleanup)
	opts := Options{
		Preprocessor: NewPreprocessor(tc, 16, nil),
		Describer: fakeDescriber{desc: domain.Description{
			Label:       "Fox Figurine",
			Summary:     "A fox for your bracelet.",
			Instruction: "gold fox charm",
		}},
		Synthesizer:    synth,
		Renderer:       fakeRenderer{},
		StorageBaseURL: "http://assets.test",
	}
	if store != nil {
		opts.Store = store
	}
	return NewOrchestrator(opts)
}

func validRequest(t *testing.T) domain.CharmRequest {
	return domain.CharmRequest{
		ImageData:   tinyPNG(t),
		ContentType: "image/png",
		Email:       "a@b.test",
	}
}

func TestRunValidation(t *testing.T) {
	o := testOrchestrator(t, &fakeSynth{url: "http://g/gold.jpg"}, nil)
	if _, err := o.Run(context.Background(), domain.CharmRequest{Email: "a@b.test"}); !errors.Is(err, domain.ErrMissingImage) {
		t.Fatalf("expected ErrMissingImage, got %v", err)
	}
	if _, err := o.Run(context.Background(), domain.CharmRequest{ImageData: []byte{1}}); !errors.Is(err, domain.ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestRunHappyPath(t *testing.T) {
	synth := &fakeSynth{url: "http://g/gold.jpg"}
	store := &memStore{}
	o := testOrchestrator(t, synth, store)

	result, err := o.Run(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Gold.URL != "http://g/gold.jpg" || result.Gold.Role != domain.RoleGold {
		t.Fatalf("unexpected gold asset: %+v", result.Gold)
	}
	if result.Silver.URL != "http://g/gold.jpg?silver" || result.Silver.Role != domain.RoleSilver {
		t.Fatalf("unexpected silver asset: %+v", result.Silver)
	}
	if result.Original.Role != domain.RoleOriginal || result.Original.URL == "" {
		t.Fatalf("unexpected original asset: %+v", result.Original)
	}
	if synth.gotInstr != "gold fox charm" {
		t.Fatalf("synthesizer got instruction %q", synth.gotInstr)
	}
	// Remote transform is down, so the working image comes from the local
	// raster path at the configured square size.
	if synth.gotImg.Dim != 16 || synth.gotImg.ContentType != "image/jpeg" {
		t.Fatalf("working image not normalized: %+v", synth.gotImg.Dim)
	}
	if len(store.puts) != 1 || store.puts[0].Metadata["role"] != "original" {
		t.Fatalf("original upload not stored: %+v", store.puts)
	}

	stages := map[string]bool{}
	for _, tm := range result.Timings {
		stages[tm.Stage] = true
	}
	for _, want := range []string{StageValidated, StagePreprocessed, StageDescribed, StageSynthesized, StageDerived, StageCompleted} {
		if !stages[want] {
			t.Fatalf("missing timing for stage %s", want)
		}
	}
}

func TestRunSummaryOverride(t *testing.T) {
	synth := &fakeSynth{url: "http://g/gold.jpg"}
	o := testOrchestrator(t, synth, nil)
	req := validRequest(t)
	req.SummaryOverride = "My grandmother's locket"

	result, err := o.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Description.Summary != "My grandmother's locket" {
		t.Fatalf("override not applied: %s", result.Description.Summary)
	}
	if result.Description.Label != "Fox Figurine" || result.Description.Instruction != "gold fox charm" {
		t.Fatalf("override leaked past summary: %+v", result.Description)
	}
}

func TestRunSynthesisFailureIsTerminal(t *testing.T) {
	synth := &fakeSynth{err: errors.New("synth: http 500: boom")}
	o := testOrchestrator(t, synth, nil)

	_, err := o.Run(context.Background(), validRequest(t))
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error lost status/body detail: %v", err)
	}
}

func TestRunUsesPlaceholderURLWithoutStore(t *testing.T) {
	synth := &fakeSynth{url: "http://g/gold.jpg"}
	o := testOrchestrator(t, synth, nil)

	result, err := o.Run(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(result.Original.URL, "http://assets.test/placeholder/") {
		t.Fatalf("expected placeholder original url, got %s", result.Original.URL)
	}
}
