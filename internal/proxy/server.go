// Package proxy serves the bibliography: the fragment endpoint the page
// loader fetches, the publication pages redirects land on, and a
// server-side citation redirect.
package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/matsen/bibproxy/internal/bibtex"
	"github.com/matsen/bibproxy/internal/citation"
	"github.com/matsen/bibproxy/internal/page"
	"github.com/matsen/bibproxy/internal/reference"
	"github.com/matsen/bibproxy/internal/render"
	"github.com/matsen/bibproxy/internal/storage"
)

// BibTeXPath serves the bibliography as a BibTeX file, optionally filtered
// by the same author identifier as the fragment endpoint.
const BibTeXPath = citation.PublicationsPath + ".bib"

// Store is the read side of the bibliography the server needs.
type Store interface {
	Select(ctx context.Context, identifier string) ([]reference.Reference, error)
	GetBySlug(ctx context.Context, slug string) (*reference.Reference, error)
	All(ctx context.Context) ([]reference.Reference, error)
}

// Server answers bibliography HTTP requests.
type Server struct {
	store          Store
	logger         *slog.Logger
	metrics        *Metrics
	limits         *clientLimiter
	trustedProxies []netip.Prefix
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and failures. A nil logger
// keeps the default, which discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit limits each client to rps requests per second with the
// given burst. A zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limits = nil
			return
		}
		s.limits = newClientLimiter(rate.Limit(rps), burst)
	}
}

// WithTrustedProxies honors X-Forwarded-For and X-Real-IP only on requests
// whose peer address falls in one of prefixes. Without it the headers are
// ignored and every client is identified by its peer address.
func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(s *Server) {
		s.trustedProxies = prefixes
	}
}

// New creates a Server reading from store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Router builds the HTTP handler with every route and middleware mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.realIP)
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.limits != nil {
			r.Use(s.limits.middleware)
		}
		r.Get(page.ProxyPath, s.handleFragment)
		r.Get(citation.PublicationsPath, s.handlePublication)
		r.Get(BibTeXPath, s.handleBibTeX)
		r.Get("/cite/{key}", s.handleCite)
	})
	return r
}

// handleFragment handles GET /bibtex/bibtex_proxy.php?a=<identifier>.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identifier := r.URL.Query().Get(page.AuthorParam)

	refs, err := s.store.Select(ctx, identifier)
	if err != nil {
		s.serverError(w, r, "selecting references", err, "author", identifier)
		return
	}

	out, err := render.Fragment(refs)
	if err != nil {
		s.serverError(w, r, "rendering fragment", err, "author", identifier)
		return
	}

	s.metrics.FragmentEntries.Observe(float64(len(refs)))
	writeHTML(w, http.StatusOK, out)
}

// handlePublication handles GET /research/publications[?key=<slug>].
func (s *Server) handlePublication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !r.URL.Query().Has(citation.KeyParam) {
		refs, err := s.store.All(ctx)
		if err != nil {
			s.serverError(w, r, "listing references", err)
			return
		}
		out, err := render.Index(refs)
		if err != nil {
			s.serverError(w, r, "rendering index", err)
			return
		}
		writeHTML(w, http.StatusOK, out)
		return
	}

	slug := r.URL.Query().Get(citation.KeyParam)
	ref, err := s.store.GetBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		out, rerr := render.NotFound(slug)
		if rerr != nil {
			s.serverError(w, r, "rendering not found page", rerr)
			return
		}
		writeHTML(w, http.StatusNotFound, out)
		return
	}
	if err != nil {
		s.serverError(w, r, "looking up publication", err, "key", slug)
		return
	}

	out, err := render.Page(*ref)
	if err != nil {
		s.serverError(w, r, "rendering publication", err, "key", ref.Key)
		return
	}
	writeHTML(w, http.StatusOK, out)
}

// handleBibTeX handles GET /research/publications.bib[?a=<identifier>].
func (s *Server) handleBibTeX(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get(page.AuthorParam)

	refs, err := s.store.Select(r.Context(), identifier)
	if err != nil {
		s.serverError(w, r, "selecting references", err, "author", identifier)
		return
	}

	w.Header().Set("Content-Type", "text/x-bibtex; charset=utf-8")
	io.WriteString(w, bibtex.ToBibTeXList(refs))
}

// handleCite handles GET /cite/{key} by redirecting to the publication page.
func (s *Server) handleCite(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s.metrics.Redirects.Inc()
	http.Redirect(w, r, citation.PublicationURL(key), http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", RequestID(r.Context()), "error", err)
	s.logger.ErrorContext(r.Context(), msg, attrs...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
