package domain

import (
	"encoding/base64"
	"time"
)

// AssetRole distinguishes the renderings a single charm run produces.
type AssetRole string

const (
	RoleOriginal AssetRole = "original"
	RoleGold     AssetRole = "gold"
	RoleSilver   AssetRole = "silver"
)

// WorkingImage is the normalized image handed to the describe and synthesize
// stages. It is produced once per request and never mutated afterwards.
type WorkingImage struct {
	Data        []byte
	ContentType string
	// Transmissible encoding of Data, computed once during preprocessing.
	Base64 string
	// Edge length of the square canvas. Zero when preprocessing fell all the
	// way back to the untouched upload.
	Dim int
}

// Encoded returns the base64 transmissible form of the image, reusing the
// encoding computed during preprocessing when available.
func (w WorkingImage) Encoded() string {
	if w.Base64 != "" {
		return w.Base64
	}
	return base64.StdEncoding.EncodeToString(w.Data)
}

// Description is the label/summary/instruction triplet derived from the
// working image. Every field is always populated; the vision stage substitutes
// fixed defaults when the remote call fails or its output cannot be parsed.
type Description struct {
	Label       string `json:"label"`
	Summary     string `json:"summary"`
	Instruction string `json:"instruction"`
}

// RenderedAsset points at one stored rendering.
type RenderedAsset struct {
	URL  string    `json:"url"`
	Role AssetRole `json:"role"`
}

// StageTiming records the wall-clock duration of one pipeline stage.
type StageTiming struct {
	Stage   string        `json:"stage"`
	Elapsed time.Duration `json:"elapsed_ms"`
}

// PipelineResult aggregates everything a successful charm run produced. It
// lives only for the request/response cycle; persistence is a collaborator.
type PipelineResult struct {
	Description Description
	Original    RenderedAsset
	Gold        RenderedAsset
	Silver      RenderedAsset
	Timings     []StageTiming
}

// CharmRequest is the validated input to the pipeline.
type CharmRequest struct {
	ImageData   []byte
	ContentType string
	Email       string
	Public      bool
	// Optional free-text override. Replaces only the description summary.
	SummaryOverride string
}

// CharmRecord is the persisted metadata of a completed run.
type CharmRecord struct {
	ID        string
	Email     string
	Label     string
	Summary   string
	GoldURL   string
	SilverURL string
	Public    bool
	Country   string
	ElapsedMS int64
	CreatedAt time.Time
}
