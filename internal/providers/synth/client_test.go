package synth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"charmforge/internal/domain"
)

func testImage() domain.WorkingImage {
	return domain.WorkingImage{Data: []byte{0x89, 0x50}, ContentType: "image/jpeg", Dim: 64}
}

func okBody() string {
	body, _ := json.Marshal(map[string]any{
		"images": []map[string]string{{"url": "https://cdn.example.com/gold.jpg"}},
	})
	return string(body)
}

func TestEditSendsInstructionVerbatim(t *testing.T) {
	var captured editRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(okBody()))
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	url, err := client.Edit(context.Background(), testImage(), "make it a tiny gold fox")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if url != "https://cdn.example.com/gold.jpg" {
		t.Fatalf("unexpected url: %s", url)
	}
	if captured.Prompt != "make it a tiny gold fox" {
		t.Fatalf("instruction not passed verbatim: %q", captured.Prompt)
	}
	if captured.Steps != inferenceSteps || captured.GuidanceScale != guidanceScale {
		t.Fatalf("hyperparameters not fixed: %+v", captured)
	}
	if captured.NumImages != 1 || captured.Adapter != styleAdapter || captured.OutputFormat != outputFormat {
		t.Fatalf("hyperparameters not fixed: %+v", captured)
	}
	if captured.Image == "" {
		t.Fatalf("image payload missing")
	}
}

func TestEditDefaultsEmptyInstruction(t *testing.T) {
	var captured editRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(okBody()))
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Edit(context.Background(), testImage(), "   "); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if captured.Prompt != DefaultInstruction {
		t.Fatalf("expected default instruction, got %q", captured.Prompt)
	}
}

func TestEditRetriesOnceWithBackoff(t *testing.T) {
	var mu sync.Mutex
	var attempts []time.Time
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts = append(attempts, time.Now())
		mu.Unlock()
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	base := 60 * time.Millisecond
	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL, MaxRetries: 1, RetryDelay: base})
	_, err := client.Edit(context.Background(), testImage(), "instr")
	if err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("error missing status or body: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(attempts))
	}
	if gap := attempts[1].Sub(attempts[0]); gap < base {
		t.Fatalf("second attempt issued too early: %s", gap)
	}
}

func TestEditRecoversOnRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			http.Error(w, "transient", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(okBody()))
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL, MaxRetries: 1, RetryDelay: time.Millisecond})
	url, err := client.Edit(context.Background(), testImage(), "instr")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if url == "" {
		t.Fatalf("expected url after recovery")
	}
}

func TestEditMissingKey(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.Edit(context.Background(), testImage(), "instr"); err == nil {
		t.Fatalf("expected error when api key missing")
	}
}
