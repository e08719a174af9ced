package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"charmforge/internal/http/handlers"
	"charmforge/internal/infra"
	"charmforge/internal/middleware"
)

// Options wires the router.
type Options struct {
	App            *handlers.App
	Logger         infra.Logger
	AllowedOrigins []string
	CountryLookup  middleware.CountryLookup
	// When non-empty, stored assets are served from this directory under /static.
	StaticDir string
}

// NewRouter builds the service router.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.Country(opts.CountryLookup),
		middleware.Logger(opts.Logger),
	)

	r.Get("/v1/healthz", opts.App.Health)
	r.Route("/v1/charms", func(r chi.Router) {
		r.Post("/", opts.App.CharmCreate)
		r.Get("/", opts.App.CharmList)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
