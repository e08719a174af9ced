package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestFirstReturnsFirstSuccess(t *testing.T) {
	got, err := First(context.Background(), "fallback",
		func(ctx context.Context) (string, error) { return "", errors.New("nope") },
		func(ctx context.Context) (string, error) { return "second", nil },
		func(ctx context.Context) (string, error) {
			t.Fatalf("third producer should not run")
			return "", nil
		},
	)
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if got != "second" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstFallsBackWhenAllFail(t *testing.T) {
	got, err := First(context.Background(), 42,
		func(ctx context.Context) (int, error) { return 0, errors.New("a") },
		func(ctx context.Context) (int, error) { return 0, errors.New("b") },
	)
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if got != 42 {
		t.Fatalf("got %d, want fallback", got)
	}
}

func TestFirstStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := First(ctx, "fallback",
		func(ctx context.Context) (string, error) {
			t.Fatalf("producer should not run after cancellation")
			return "", nil
		},
	)
	if err == nil {
		t.Fatalf("expected context error")
	}
	if got != "fallback" {
		t.Fatalf("got %q", got)
	}
}
