package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"charmforge/internal/infra"
	"charmforge/internal/storage"
	"charmforge/internal/transform"
)

// DerivedRenderer produces the silver rendering by desaturating the gold
// rendering. It is total: every failure path degrades until, at worst, the
// gold URL itself is returned.
type DerivedRenderer struct {
	transform *transform.Client
	store     storage.Store
	size      int
	logger    *infra.Logger
}

// NewDerivedRenderer wires the renderer against the transformation client and
// the storage collaborator. store may be nil.
func NewDerivedRenderer(tc *transform.Client, store storage.Store, size int, logger *infra.Logger) *DerivedRenderer {
	return &DerivedRenderer{transform: tc, store: store, size: size, logger: logger}
}

// Derive desaturates the gold rendering and stores it as the silver asset.
// The fetch chain is: templated transform, fetch-time processing options,
// raw gold bytes. When even the raw fetch or the storage write fails, the
// gold URL is returned unchanged so the caller always has a silver asset.
func (r *DerivedRenderer) Derive(ctx context.Context, goldURL string) string {
	data, err := First(ctx, nil,
		func(ctx context.Context) ([]byte, error) {
			return r.transform.Fetch(ctx, transform.Params{
				Saturation: templateSaturation,
				Width:      r.size,
				Height:     r.size,
				Format:     "jpg",
			}, goldURL)
		},
		func(ctx context.Context) ([]byte, error) {
			return r.transform.FetchWithOptions(ctx, goldURL, 0, "jpg")
		},
		func(ctx context.Context) ([]byte, error) {
			return r.transform.FetchRaw(ctx, goldURL)
		},
	)
	if err != nil || len(data) == 0 {
		if r.logger != nil {
			r.logger.Warn().Err(err).Msg("silver derivation could not fetch gold bytes; reusing gold url")
		}
		return goldURL
	}

	id := uuid.NewString()
	url, err := r.put(ctx, id, data)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn().Err(err).Msg("silver asset write failed; reusing gold url")
		}
		return goldURL
	}
	return url
}

func (r *DerivedRenderer) put(ctx context.Context, id string, data []byte) (string, error) {
	if r.store == nil {
		return "", storage.ErrUnavailable
	}
	return r.store.Put(ctx, storage.PutRequest{
		Key:         "charms/" + id + "-silver.jpg",
		Data:        data,
		ContentType: "image/jpeg",
		Metadata: map[string]string{
			"id":         id,
			"created_at": time.Now().UTC().Format(time.RFC3339),
			"role":       "silver",
		},
	})
}
