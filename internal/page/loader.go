package page

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// ProxyPath is the bibliography proxy endpoint, relative to the origin.
	ProxyPath = "/bibtex/bibtex_proxy.php"

	// AuthorParam is the query parameter carrying the author identifier.
	AuthorParam = "a"

	// DefaultAuthor is the identifier used by FetchAndRenderDefault.
	DefaultAuthor = "tod"

	// DefaultElementID is the page region replaced by FetchAndRender.
	DefaultElementID = "bibtex"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Loader fetches bibliography fragments and renders them into a Surface.
type Loader struct {
	httpClient *http.Client
	origin     string
	elementID  string
	surface    Surface
	logger     *slog.Logger
	inflight   sync.WaitGroup
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) LoaderOption {
	return func(l *Loader) {
		l.httpClient = hc
	}
}

// WithElementID sets the identifier of the region to replace.
func WithElementID(id string) LoaderOption {
	return func(l *Loader) {
		l.elementID = id
	}
}

// WithLogger sets the logger used for failed requests. A nil logger keeps
// the default, which discards everything.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader issuing requests against origin
// (scheme and host, e.g. "http://pleiad.dcc.uchile.cl") and rendering into surface.
func NewLoader(origin string, surface Surface, opts ...LoaderOption) *Loader {
	l := &Loader{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		origin:     origin,
		elementID:  DefaultElementID,
		surface:    surface,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RequestURL returns the proxy URL for an author identifier.
// The identifier is concatenated verbatim, without query escaping, so an
// identifier containing a space or '&' produces a request the proxy rejects
// or misreads. Such a load fails like any other and the page is unchanged.
func (l *Loader) RequestURL(author string) string {
	return l.origin + ProxyPath + "?" + AuthorParam + "=" + author
}

// FetchAndRender starts an asynchronous GET for the author's bibliography
// and replaces the configured region with the response body when it
// arrives. It returns immediately.
//
// Failures never reach the caller: a network error, a non-2xx status or a
// missing region leaves the page as it was. Overlapping calls are not
// ordered; whichever response completes last is what the region shows.
func (l *Loader) FetchAndRender(ctx context.Context, author string) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		l.fetchAndRender(ctx, author)
	}()
}

// FetchAndRenderDefault is FetchAndRender for DefaultAuthor.
func (l *Loader) FetchAndRenderDefault(ctx context.Context) {
	l.FetchAndRender(ctx, DefaultAuthor)
}

// Wait blocks until every request started so far has completed.
func (l *Loader) Wait() {
	l.inflight.Wait()
}

func (l *Loader) fetchAndRender(ctx context.Context, author string) {
	target := l.RequestURL(author)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		l.logger.Warn("building bibliography request", "url", target, "error", err)
		return
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Warn("fetching bibliography", "url", target, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.logger.Warn("bibliography request failed", "url", target, "status", resp.StatusCode)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		l.logger.Warn("reading bibliography response", "url", target, "error", err)
		return
	}

	if err := l.surface.Replace(l.elementID, string(body)); err != nil {
		l.logger.Warn("rendering bibliography", "element", l.elementID, "error", err)
		return
	}
	l.logger.Debug("bibliography rendered", "url", target, "element", l.elementID, "bytes", len(body))
}
