// Package repo persists charm metadata in PostgreSQL. Persistence is a
// best-effort collaborator: the pipeline completes whether or not a repository
// is configured.
package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"charmforge/internal/domain"
)

// CharmRepository records completed charm runs.
type CharmRepository interface {
	Save(ctx context.Context, rec domain.CharmRecord) error
	ListByEmail(ctx context.Context, email string, limit int) ([]domain.CharmRecord, error)
}

// CharmRepositoryPG implements CharmRepository using PostgreSQL.
type CharmRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCharmRepository constructs a new charm repository instance.
func NewCharmRepository(pool *pgxpool.Pool) *CharmRepositoryPG {
	return &CharmRepositoryPG{pool: pool}
}

// Save persists one completed run.
func (r *CharmRepositoryPG) Save(ctx context.Context, rec domain.CharmRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO charms (id, email, label, summary, gold_url, silver_url, public, country, elapsed_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`, rec.ID, rec.Email, rec.Label, rec.Summary, rec.GoldURL, rec.SilverURL, rec.Public, rec.Country, rec.ElapsedMS, createdAt)
	return err
}

// ListByEmail returns the most recent charms for one customer.
func (r *CharmRepositoryPG) ListByEmail(ctx context.Context, email string, limit int) ([]domain.CharmRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, email, label, summary, gold_url, silver_url, public, country, elapsed_ms, created_at
FROM charms
WHERE email = $1
ORDER BY created_at DESC
LIMIT $2;
`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CharmRecord
	for rows.Next() {
		var rec domain.CharmRecord
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Label, &rec.Summary, &rec.GoldURL, &rec.SilverURL, &rec.Public, &rec.Country, &rec.ElapsedMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

var _ CharmRepository = (*CharmRepositoryPG)(nil)
