package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/whisperapi/internal/api/handlers"
	"github.com/nikhilbhutani/whisperapi/internal/api/middleware"
	"github.com/nikhilbhutani/whisperapi/internal/cache"
	"github.com/nikhilbhutani/whisperapi/internal/config"
	"github.com/nikhilbhutani/whisperapi/internal/media"
	"github.com/nikhilbhutani/whisperapi/internal/transcribe"
)

type Router struct {
	mux    *chi.Mux
	cfg    *config.Config
	models *transcribe.Manager
	cache  *cache.Cache
	prober media.Prober
}

// NewRouter wires the HTTP surface. rc may be nil when no cache is configured.
func NewRouter(cfg *config.Config, models *transcribe.Manager, rc *cache.Cache) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		cfg:    cfg,
		models: models,
		cache:  rc,
		prober: media.NewFFProbe(""),
	}
}

// corsPolicy restricts origins when configured. Methods and headers stay open.
func (rt *Router) corsPolicy() middleware.CORSPolicy {
	p := middleware.AllowAll
	if len(rt.cfg.Server.CORSOrigins) > 0 {
		p.Origins = rt.cfg.Server.CORSOrigins
	}
	return p
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS(rt.corsPolicy()))

	opts := handlers.TranscribeOptions{
		TmpDir:   rt.cfg.Server.TmpDir,
		Language: rt.cfg.Whisper.Language,
	}
	var health *handlers.HealthHandler
	if rt.cache != nil {
		opts.Cache = rt.cache
		opts.CacheNamespace = CacheNamespace(rt.cfg)
		health = handlers.NewHealthHandler(rt.models, rt.cache)
	} else {
		health = handlers.NewHealthHandler(rt.models, nil)
	}

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	transcribeH := handlers.NewTranscribeHandler(rt.models, rt.prober, opts)
	r.Post("/transcribe", transcribeH.Transcribe)

	return r
}
