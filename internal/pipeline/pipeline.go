// Package pipeline sequences the charm-generation stages: preprocess the
// upload, describe it, synthesize the gold rendering, derive the silver one.
// Only synthesis failure aborts a run; every other stage degrades in place.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"charmforge/internal/domain"
	"charmforge/internal/infra"
	"charmforge/internal/storage"
)

// Stage names, in execution order.
const (
	StageValidated    = "validated"
	StagePreprocessed = "preprocessed"
	StageDescribed    = "described"
	StageSynthesized  = "synthesized"
	StageDerived      = "derived"
	StageCompleted    = "completed"
)

// Describer derives the charm description from the working image.
type Describer interface {
	Describe(ctx context.Context, img domain.WorkingImage) domain.Description
}

// Synthesizer produces the gold rendering URL.
type Synthesizer interface {
	Edit(ctx context.Context, img domain.WorkingImage, instruction string) (string, error)
}

// SilverRenderer derives the silver rendering URL from the gold one.
type SilverRenderer interface {
	Derive(ctx context.Context, goldURL string) string
}

// Options wires an Orchestrator.
type Options struct {
	Preprocessor   *Preprocessor
	Describer      Describer
	Synthesizer    Synthesizer
	Renderer       SilverRenderer
	Store          storage.Store
	StorageBaseURL string
	Logger         *infra.Logger
}

// Orchestrator owns stage sequencing, timing capture, and the error boundary.
type Orchestrator struct {
	pre            *Preprocessor
	describer      Describer
	synth          Synthesizer
	renderer       SilverRenderer
	store          storage.Store
	storageBaseURL string
	logger         *infra.Logger
}

// NewOrchestrator constructs the pipeline orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		pre:            opts.Preprocessor,
		describer:      opts.Describer,
		synth:          opts.Synthesizer,
		renderer:       opts.Renderer,
		store:          opts.Store,
		storageBaseURL: strings.TrimRight(opts.StorageBaseURL, "/"),
		logger:         opts.Logger,
	}
}

// Validate checks the request before it enters the pipeline. Failures here
// are client errors, not pipeline failures.
func Validate(req domain.CharmRequest) error {
	if len(req.ImageData) == 0 {
		return domain.ErrMissingImage
	}
	if strings.TrimSpace(req.Email) == "" {
		return domain.ErrMissingEmail
	}
	return nil
}

// Run executes the pipeline. The only error it can return after validation is
// an exhausted synthesis failure.
func (o *Orchestrator) Run(ctx context.Context, req domain.CharmRequest) (*domain.PipelineResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	started := time.Now()
	var timings []domain.StageTiming
	mark := func(stage string, from time.Time) time.Time {
		now := time.Now()
		timings = append(timings, domain.StageTiming{Stage: stage, Elapsed: now.Sub(from)})
		return now
	}

	id := uuid.NewString()
	originalURL := o.storeOriginal(ctx, id, req)
	at := mark(StageValidated, started)

	working := o.pre.Prepare(ctx, req.ImageData, req.ContentType, originalURL)
	at = mark(StagePreprocessed, at)

	desc := o.describer.Describe(ctx, working)
	if override := strings.TrimSpace(req.SummaryOverride); override != "" {
		desc.Summary = override
	}
	at = mark(StageDescribed, at)

	goldURL, err := o.synth.Edit(ctx, working, desc.Instruction)
	if err != nil {
		if o.logger != nil {
			o.logger.Error().Err(err).Str("charm_id", id).Msg("gold synthesis exhausted retries")
		}
		return nil, fmt.Errorf("synthesize gold rendering: %w", err)
	}
	at = mark(StageSynthesized, at)

	silverURL := o.renderer.Derive(ctx, goldURL)
	mark(StageDerived, at)
	mark(StageCompleted, started)

	if o.logger != nil {
		o.logger.Info().
			Str("charm_id", id).
			Str("label", desc.Label).
			Dur("elapsed", time.Since(started)).
			Msg("charm pipeline completed")
	}

	return &domain.PipelineResult{
		Description: desc,
		Original:    domain.RenderedAsset{URL: originalURL, Role: domain.RoleOriginal},
		Gold:        domain.RenderedAsset{URL: goldURL, Role: domain.RoleGold},
		Silver:      domain.RenderedAsset{URL: silverURL, Role: domain.RoleSilver},
		Timings:     timings,
	}, nil
}

// storeOriginal persists the raw upload so the remote transform has a public
// location to work from. When storage is unavailable a deterministic
// placeholder URL is substituted; preprocessing then relies on its local path.
func (o *Orchestrator) storeOriginal(ctx context.Context, id string, req domain.CharmRequest) string {
	if o.store == nil {
		return storage.PlaceholderURL(o.storageBaseURL, id)
	}
	ext := "jpg"
	if strings.EqualFold(req.ContentType, "image/png") {
		ext = "png"
	}
	url, err := o.store.Put(ctx, storage.PutRequest{
		Key:         "charms/" + id + "-original." + ext,
		Data:        req.ImageData,
		ContentType: req.ContentType,
		Metadata: map[string]string{
			"id":         id,
			"created_at": time.Now().UTC().Format(time.RFC3339),
			"role":       string(domain.RoleOriginal),
		},
	})
	if err != nil {
		if o.logger != nil {
			o.logger.Warn().Err(err).Str("charm_id", id).Msg("original upload not stored; using placeholder url")
		}
		return storage.PlaceholderURL(o.storageBaseURL, id)
	}
	return url
}
