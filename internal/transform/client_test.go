package transform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestURLTemplate(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://img.example.com/fetch/"})
	got := c.URL(Params{
		Saturation: -100,
		Width:      1024,
		Height:     1024,
		Fit:        "pad",
		Background: "white",
		Format:     "jpg",
	}, "https://cdn.example.com/a.jpg")
	want := "https://img.example.com/fetch/e_saturation:-100,w_1024,h_1024,c_pad,b_white,f_jpg/https://cdn.example.com/a.jpg"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestURLOmitsEmptyParams(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://img.example.com/fetch"})
	got := c.URL(Params{Saturation: -100, Width: 256, Height: 256, Format: "jpg"}, "https://x/y.jpg")
	want := "https://img.example.com/fetch/e_saturation:-100,w_256,h_256,f_jpg/https://x/y.jpg"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestFetchWithOptionsUsesQueryParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("saturation") != "0" || r.URL.Query().Get("format") != "jpg" {
			t.Fatalf("missing processing options: %s", r.URL.RawQuery)
		}
		w.Write([]byte("bytes"))
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL})
	data, err := c.FetchWithOptions(context.Background(), ts.URL+"/gold.jpg", 0, "jpg")
	if err != nil {
		t.Fatalf("FetchWithOptions: %v", err)
	}
	if string(data) != "bytes" {
		t.Fatalf("unexpected body: %s", data)
	}
}

func TestFetchErrorsOnBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL})
	if _, err := c.FetchRaw(context.Background(), ts.URL+"/x.jpg"); err == nil {
		t.Fatalf("expected error on bad status")
	}
}

func TestFetchErrorsOnEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	c := NewClient(Options{BaseURL: ts.URL})
	if _, err := c.FetchRaw(context.Background(), ts.URL+"/x.jpg"); err == nil {
		t.Fatalf("expected error on empty body")
	}
}
