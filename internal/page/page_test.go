package page

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recordingNavigator remembers the URLs it was asked to visit.
type recordingNavigator struct {
	urls []string
	err  error
}

func (n *recordingNavigator) Navigate(url string) error {
	n.urls = append(n.urls, url)
	return n.err
}

func TestRedirect(t *testing.T) {
	tests := []struct {
		key     string
		wantKey string
	}{
		{"a:b:c", "key=a-b:c"},
		{"noColon", "key=noColon"},
		{"", "key="},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			nav := &recordingNavigator{}
			got, err := NewRedirector(nav).Redirect(tt.key)
			if err != nil {
				t.Fatalf("Redirect(%q) error = %v", tt.key, err)
			}
			if len(nav.urls) != 1 || nav.urls[0] != got {
				t.Fatalf("navigator saw %v, want [%s]", nav.urls, got)
			}
			if !strings.Contains(got, tt.wantKey) {
				t.Errorf("Redirect(%q) = %q, want it to contain %q", tt.key, got, tt.wantKey)
			}
			if !strings.HasPrefix(got, "http://pleiad.dcc.uchile.cl/research/publications?") {
				t.Errorf("Redirect(%q) = %q, wrong host or path", tt.key, got)
			}
		})
	}
}

func TestRedirect_NavigatorError(t *testing.T) {
	nav := &recordingNavigator{err: errors.New("no browser")}
	got, err := NewRedirector(nav).Redirect("x:y")
	if err == nil {
		t.Fatal("expected error from navigator")
	}
	if got != "http://pleiad.dcc.uchile.cl/research/publications?key=x-y" {
		t.Errorf("URL = %q, still expected the target", got)
	}
}

func TestWriterSurface(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSurface(&buf)
	if err := s.Replace("bibtex", "<p>one</p>"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<p>one</p>" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriterNavigator(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriterNavigator(&buf).Navigate("http://x/y"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "http://x/y\n" {
		t.Errorf("got %q", buf.String())
	}
}
