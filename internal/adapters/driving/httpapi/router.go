// Package httpapi exposes retrieval, index administration and deck
// generation over HTTP for the serve command.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// OwnerHeader carries the deck owner. Requests without it use Config.DefaultOwner.
const OwnerHeader = "X-Kairoscope-Owner"

// Config wires the handlers to the application services.
type Config struct {
	Retriever driving.Retriever
	Decks     driving.DeckService

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// Defaults supplies k values a retrieve request leaves out.
	Defaults domain.RetrievalSettings

	// DefaultOwner is used when a request has no OwnerHeader.
	DefaultOwner string

	// AllowedOrigins enables CORS for browser clients. Empty disables it.
	AllowedOrigins []string

	// RequestTimeout bounds each request. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// DefaultRequestTimeout bounds a request. Deck generation waits on the
// LLM, so this is generous.
const DefaultRequestTimeout = 5 * time.Minute

type api struct {
	cfg Config
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	if cfg.Defaults == (domain.RetrievalSettings{}) {
		cfg.Defaults = domain.DefaultAppSettings().Retrieval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	a := &api{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", OwnerHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", a.health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Get("/index", a.indexStatus)
		r.Post("/retrieve", a.retrieve)
		r.Post("/rebuild", a.rebuild)

		r.Route("/decks", func(r chi.Router) {
			r.Post("/", a.generateDeck)
			r.Get("/", a.listDecks)
			r.Get("/{id}", a.getDeck)
			r.Delete("/{id}", a.deleteDeck)
		})
	})

	return r
}

// requestLogger logs each request at debug level through the application logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}
