package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"charmforge/internal/commerce"
	"charmforge/internal/domain"
	"charmforge/internal/middleware"
	"charmforge/internal/pipeline"
)

// 15 MiB upload cap; phone photos comfortably fit.
const maxUploadBytes = 15 << 20

type charmTiming struct {
	Stage     string `json:"stage"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type charmResponse struct {
	Label       string        `json:"label"`
	Summary     string        `json:"summary"`
	OriginalURL string        `json:"original_url"`
	GoldURL     string        `json:"gold_url"`
	SilverURL   string        `json:"silver_url"`
	Timings     []charmTiming `json:"timings"`
	ProductID   string        `json:"product_id,omitempty"`
	ProductURL  string        `json:"product_url,omitempty"`
}

// CharmCreate accepts a multipart photo upload and runs the full charm
// pipeline. Missing required fields reject with 400 before the pipeline
// starts; only an exhausted synthesis failure surfaces as 500.
func (a *App) CharmCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	req, err := parseCharmForm(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := a.Pipeline.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrMissingImage) || errors.Is(err, domain.ErrMissingEmail) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("charm pipeline failed")
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	resp := charmResponse{
		Label:       result.Description.Label,
		Summary:     result.Description.Summary,
		OriginalURL: result.Original.URL,
		GoldURL:     result.Gold.URL,
		SilverURL:   result.Silver.URL,
	}
	for _, t := range result.Timings {
		resp.Timings = append(resp.Timings, charmTiming{Stage: t.Stage, ElapsedMS: t.Elapsed.Milliseconds()})
	}

	if product := a.publish(r, req, result); product != nil {
		resp.ProductID = product.ID
		resp.ProductURL = product.URL
	}
	a.persist(r, req, result)

	a.data(w, http.StatusOK, resp)
}

// CharmList returns recent charms for a customer email.
func (a *App) CharmList(w http.ResponseWriter, r *http.Request) {
	if a.Charms == nil {
		a.error(w, http.StatusNotFound, "not_found", "charm history is not enabled")
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		a.error(w, http.StatusBadRequest, "bad_request", domain.ErrMissingEmail.Error())
		return
	}
	records, err := a.Charms.ListByEmail(r.Context(), email, 20)
	if err != nil {
		a.Logger.Error().Err(err).Msg("charm list query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load charms")
		return
	}
	a.data(w, http.StatusOK, records)
}

func parseCharmForm(r *http.Request) (domain.CharmRequest, error) {
	var req domain.CharmRequest

	file, header, err := r.FormFile("image")
	if err != nil {
		return req, domain.ErrMissingImage
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil || len(data) == 0 {
		return req, domain.ErrMissingImage
	}
	if len(data) > maxUploadBytes {
		return req, errors.New("image exceeds upload limit")
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		return req, domain.ErrMissingEmail
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	req.ImageData = data
	req.ContentType = contentType
	req.Email = email
	req.Public = strings.EqualFold(strings.TrimSpace(r.FormValue("public")), "true")
	req.SummaryOverride = strings.TrimSpace(r.FormValue("description"))
	return req, nil
}

// publish lists the charm on the storefront. Failures are logged, never fatal.
func (a *App) publish(r *http.Request, req domain.CharmRequest, result *domain.PipelineResult) *commerce.Product {
	if a.Commerce == nil {
		return nil
	}
	product, err := a.Commerce.CreateProduct(r.Context(), commerce.CreateProductRequest{
		GoldURL:   result.Gold.URL,
		SilverURL: result.Silver.URL,
		Label:     result.Description.Label,
		Summary:   result.Description.Summary,
		Email:     req.Email,
		Public:    req.Public,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("storefront publish failed")
		return nil
	}
	return product
}

// persist records run metadata. Failures are logged, never fatal.
func (a *App) persist(r *http.Request, req domain.CharmRequest, result *domain.PipelineResult) {
	if a.Charms == nil {
		return
	}
	var totalMS int64
	for _, t := range result.Timings {
		if t.Stage == pipeline.StageCompleted {
			totalMS = t.Elapsed.Milliseconds()
		}
	}
	rec := domain.CharmRecord{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Label:     result.Description.Label,
		Summary:   result.Description.Summary,
		GoldURL:   result.Gold.URL,
		SilverURL: result.Silver.URL,
		Public:    req.Public,
		Country:   middleware.CountryFromContext(r.Context()),
		ElapsedMS: totalMS,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Charms.Save(r.Context(), rec); err != nil {
		a.Logger.Warn().Err(err).Msg("charm metadata not persisted")
	}
}
