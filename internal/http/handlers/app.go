package handlers

import (
	"encoding/json"
	"net/http"

	"charmforge/internal/adapter/repo"
	"charmforge/internal/commerce"
	"charmforge/internal/infra"
	"charmforge/internal/pipeline"
)

// App bundles the collaborators the HTTP handlers need.
type App struct {
	Pipeline *pipeline.Orchestrator
	Commerce *commerce.Client
	Charms   repo.CharmRepository
	Logger   infra.Logger
}

// NewApp constructs the handler container. Commerce and Charms may be nil.
func NewApp(p *pipeline.Orchestrator, c *commerce.Client, charms repo.CharmRepository, logger infra.Logger) *App {
	return &App{Pipeline: p, Commerce: c, Charms: charms, Logger: logger}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

type successBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) data(w http.ResponseWriter, code int, v any) {
	a.json(w, code, successBody{Success: true, Data: v})
}

func (a *App) error(w http.ResponseWriter, code int, message, detail string) {
	a.json(w, code, errorBody{Success: false, Error: message, Detail: detail})
}
