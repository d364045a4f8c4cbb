package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/matsen/bibproxy/internal/dom"
	"github.com/matsen/bibproxy/internal/page"
	"github.com/spf13/cobra"
)

var (
	fetchPage    string
	fetchElement string
	fetchOrigin  string
)

func init() {
	fetchCmd.Flags().StringVar(&fetchPage, "page", "", "HTML file whose element is replaced in place")
	fetchCmd.Flags().StringVar(&fetchElement, "element", "", "Element ID to replace (default from config)")
	fetchCmd.Flags().StringVar(&fetchOrigin, "origin", "", "Proxy origin (default from config)")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [author]",
	Short: "Load an author's bibliography fragment into a page",
	Long: `Load an author's bibliography fragment into a page element.

Requests /bibtex/bibtex_proxy.php?a=<author> from the proxy origin and
replaces the element's content with the response. Without an author the
configured default is used. Without --page the fragment is printed.

A failed request leaves the page unchanged and is only logged.

Examples:
  bibp fetch
  bibp fetch tanter --page index.html
  bibp fetch tod --origin http://localhost:8080 --element pubs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

// recordingSurface notes whether any replacement reached the page.
type recordingSurface struct {
	page.Surface
	mu       sync.Mutex
	rendered bool
}

func (s *recordingSurface) Replace(elementID, content string) error {
	if err := s.Surface.Replace(elementID, content); err != nil {
		return err
	}
	s.mu.Lock()
	s.rendered = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSurface) Rendered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	origin := cfg.Origin
	if fetchOrigin != "" {
		origin = fetchOrigin
	}
	elementID := cfg.ElementID
	if fetchElement != "" {
		elementID = fetchElement
	}

	var (
		doc *dom.Document
		buf bytes.Buffer
		out page.Surface
	)
	if fetchPage != "" {
		var err error
		doc, err = dom.ParseFile(fetchPage)
		if err != nil {
			exitWithError(ExitDataError, "reading page: %v", err)
		}
		if _, err := doc.InnerHTML(elementID); err != nil {
			exitWithError(ExitDataError, "page %s: %v", fetchPage, err)
		}
		out = doc
	} else {
		out = page.NewWriterSurface(&buf)
	}
	surface := &recordingSurface{Surface: out}

	loader := page.NewLoader(origin, surface,
		page.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		page.WithElementID(elementID),
		page.WithLogger(logger),
	)

	author := cfg.DefaultAuthor
	if len(args) > 0 {
		author = args[0]
	}

	ctx := context.Background()
	if len(args) == 0 && author == page.DefaultAuthor {
		loader.FetchAndRenderDefault(ctx)
	} else {
		loader.FetchAndRender(ctx, author)
	}
	loader.Wait()

	result := FetchResult{
		URL:      loader.RequestURL(author),
		Element:  elementID,
		Rendered: surface.Rendered(),
	}

	if doc != nil && result.Rendered {
		if err := doc.WriteFile(fetchPage); err != nil {
			exitWithError(ExitError, "writing page: %v", err)
		}
		result.Page = fetchPage
	} else if doc == nil {
		result.Content = buf.String()
	}

	if humanOutput {
		switch {
		case !result.Rendered:
			fmt.Fprintf(os.Stderr, "No fragment loaded from %s\n", result.URL)
		case doc != nil:
			fmt.Fprintf(stdout, "Updated #%s in %s\n", elementID, fetchPage)
		default:
			fmt.Fprint(stdout, result.Content)
		}
	} else {
		outputJSON(result)
	}

	if !result.Rendered {
		os.Exit(ExitError)
	}
	return nil
}
