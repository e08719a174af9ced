package pipeline

import (
	"context"
	"errors"
)

// Producer yields one candidate result for a fallback chain.
type Producer[T any] func(ctx context.Context) (T, error)

// First runs producers in order and returns the first successful result. When
// every producer fails (or none are given), it returns the fallback value and
// the joined errors so callers can log what was skipped.
func First[T any](ctx context.Context, fallback T, producers ...Producer[T]) (T, error) {
	var errs []error
	for _, produce := range producers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := produce(ctx)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no producers"))
	}
	return fallback, errors.Join(errs...)
}
