// Package storage persists rendered assets and hands back public URLs.
package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no storage collaborator is configured.
var ErrUnavailable = errors.New("storage: unavailable")

// PutRequest carries one asset write.
type PutRequest struct {
	Key         string
	Data        []byte
	ContentType string
	// Small metadata map recorded alongside the asset (id, timestamp, role).
	Metadata map[string]string
}

// Store is the object-storage collaborator. Put returns the public URL of the
// stored asset.
type Store interface {
	Put(ctx context.Context, req PutRequest) (string, error)
}

// PlaceholderURL is the deterministic URL substituted when no store is
// available. Callers still get a resolvable-looking asset location.
func PlaceholderURL(baseURL, id string) string {
	return baseURL + "/placeholder/" + id + ".jpg"
}
