package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/matsen/bibproxy/internal/dom"
	"github.com/matsen/bibproxy/internal/page"
	"github.com/matsen/bibproxy/internal/reference"
	"github.com/matsen/bibproxy/internal/storage"
)

func testRefs() []reference.Reference {
	return []reference.Reference{
		{
			Key:      "pleiad:tod2007",
			Type:     "inproceedings",
			Title:    "Scalable Omniscient Debugging",
			Authors:  []reference.Author{{First: "Guillaume", Last: "Pothier"}, {First: "Eric", Last: "Tanter"}},
			Venue:    "OOPSLA",
			Year:     2007,
			Keywords: []string{"tod"},
		},
		{
			Key:     "pleiad:aspects:2009",
			Type:    "article",
			Title:   "AOP in Java",
			Authors: []reference.Author{{First: "Eric", Last: "Tanter"}},
			Year:    2009,
		},
	}
}

func newTestStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.ReplaceAll(context.Background(), testRefs())
	require.NoError(t, err)
	return db
}

func newTestRouter(t *testing.T, opts ...Option) (http.Handler, *Server) {
	t.Helper()
	s := New(newTestStore(t), opts...)
	return s.Router(), s
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestFragmentEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(router, "/bibtex/bibtex_proxy.php?a=tod")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Scalable Omniscient Debugging")
	assert.NotContains(t, body, "AOP in Java")
	assert.NotContains(t, body, "<html")
}

func TestFragmentEndpoint_AuthorAndEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	body := get(router, "/bibtex/bibtex_proxy.php?a=tanter").Body.String()
	assert.Contains(t, body, "AOP in Java")
	assert.Contains(t, body, "Scalable Omniscient Debugging")
	assert.Less(t, strings.Index(body, "AOP in Java"), strings.Index(body, "Scalable Omniscient Debugging"), "newest first")

	rec := get(router, "/bibtex/bibtex_proxy.php?a=nobody")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No publications.")
}

func TestPublicationEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(router, "/research/publications?key=pleiad-aspects:2009")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>AOP in Java</h1>")
	assert.Contains(t, rec.Body.String(), "@article{pleiad:aspects:2009,")

	rec = get(router, "/research/publications?key=missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Publication not found")

	rec = get(router, "/research/publications")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Publications</h1>")
	assert.Contains(t, rec.Body.String(), "AOP in Java")
}

func TestBibTeXExport(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(router, "/research/publications.bib")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/x-bibtex; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "@inproceedings{pleiad:tod2007,")
	assert.Contains(t, rec.Body.String(), "@article{pleiad:aspects:2009,")

	body := get(router, "/research/publications.bib?a=tod").Body.String()
	assert.Contains(t, body, "@inproceedings{pleiad:tod2007,")
	assert.NotContains(t, body, "pleiad:aspects:2009")
}

func TestCiteRedirect(t *testing.T) {
	router, s := newTestRouter(t)

	tests := []struct {
		path     string
		location string
	}{
		{"/cite/a:b:c", "http://pleiad.dcc.uchile.cl/research/publications?key=a-b:c"},
		{"/cite/noColon", "http://pleiad.dcc.uchile.cl/research/publications?key=noColon"},
	}
	for _, tt := range tests {
		rec := get(router, tt.path)
		assert.Equal(t, http.StatusFound, rec.Code, tt.path)
		assert.Equal(t, tt.location, rec.Header().Get("Location"), tt.path)
	}

	metrics := get(router, "/metrics").Body.String()
	assert.Contains(t, metrics, "bibproxy_citation_redirects_total 2")
	assert.NotNil(t, s.Metrics())
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(router, "/healthz")
	assert.Equal(t, "ok\n", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, WithRateLimit(0.001, 2))

	for i := 0; i < 2; i++ {
		rec := get(router, "/bibtex/bibtex_proxy.php?a=tod")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := get(router, "/bibtex/bibtex_proxy.php?a=tod")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks are not limited
	assert.Equal(t, http.StatusOK, get(router, "/healthz").Code)
}

func TestRateLimit_IgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	router, _ := newTestRouter(t, WithRateLimit(0.001, 2))

	var codes []int
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/bibtex/bibtex_proxy.php?a=tod", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 200}, codes[:2])
	for i, code := range codes[2:] {
		assert.Equal(t, http.StatusTooManyRequests, code, "request %d", i+2)
	}
}

func TestRateLimit_TrustedProxyForwardsClientAddress(t *testing.T) {
	trusted := netip.MustParsePrefix("192.0.2.0/24") // httptest.NewRequest peer
	router, _ := newTestRouter(t, WithRateLimit(0.001, 1), WithTrustedProxies(trusted))

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/bibtex/bibtex_proxy.php?a=tod", nil)
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
}

func TestClientLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newClientLimiter(rate.Limit(1), 1)
	c.now = func() time.Time { return now }
	c.lastSweep = now

	for i := 0; i < 100; i++ {
		c.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	require.Equal(t, 100, c.size())

	now = now.Add(limiterIdleTTL / 2)
	assert.True(t, c.allow("10.0.1.1"))

	now = now.Add(limiterIdleTTL / 2)
	assert.True(t, c.allow("10.0.1.1"))
	assert.Equal(t, 1, c.size(), "only the recently seen client survives")
}

func TestRateLimit_Disabled(t *testing.T) {
	router, _ := newTestRouter(t, WithRateLimit(0, 0))
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, get(router, "/bibtex/bibtex_proxy.php?a=tod").Code)
	}
}

// failingStore fails every lookup.
type failingStore struct{}

func (failingStore) Select(context.Context, string) ([]reference.Reference, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) GetBySlug(context.Context, string) (*reference.Reference, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) All(context.Context) ([]reference.Reference, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreErrors(t *testing.T) {
	router := New(failingStore{}).Router()

	for _, path := range []string{
		"/bibtex/bibtex_proxy.php?a=tod",
		"/research/publications?key=x",
		"/research/publications",
	} {
		rec := get(router, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "disk on fire", path)
	}
}

func TestNilLoggerKeepsDiscardLogger(t *testing.T) {
	router := New(failingStore{}, WithLogger(nil)).Router()

	rec := get(router, "/bibtex/bibtex_proxy.php?a=tod")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// TestLoaderAgainstServer runs the page loader against the real proxy and
// renders into a parsed document.
func TestLoaderAgainstServer(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	doc, err := dom.Parse(strings.NewReader(`<html><body><div id="bibtex">Loading...</div></body></html>`))
	require.NoError(t, err)

	l := page.NewLoader(srv.URL, doc)
	l.FetchAndRenderDefault(context.Background())
	l.Wait()

	inner, err := doc.InnerHTML("bibtex")
	require.NoError(t, err)
	assert.Contains(t, inner, `<ul class="bibliography">`)
	assert.Contains(t, inner, "Scalable Omniscient Debugging")
	assert.NotContains(t, inner, "Loading...")
}
