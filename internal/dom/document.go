// Package dom provides an HTML document whose elements can be rewritten by id.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// ErrElementNotFound is returned when no element carries the requested id.
var ErrElementNotFound = errors.New("element not found")

// Document is a parsed HTML document. It is safe for concurrent use.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFile reads an HTML document from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Replace sets the inner content of the element with the given id to the
// markup in content. The markup is parsed in the element's context, the
// same way a browser assigns innerHTML.
func (d *Document) Replace(elementID, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := findByID(d.root, elementID)
	if el == nil {
		return fmt.Errorf("%w: #%s", ErrElementNotFound, elementID)
	}

	nodes, err := html.ParseFragment(strings.NewReader(content), el)
	if err != nil {
		return fmt.Errorf("parsing fragment for #%s: %w", elementID, err)
	}

	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return nil
}

// InnerHTML returns the rendered children of the element with the given id.
func (d *Document) InnerHTML(elementID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := findByID(d.root, elementID)
	if el == nil {
		return "", fmt.Errorf("%w: #%s", ErrElementNotFound, elementID)
	}

	var buf bytes.Buffer
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Render writes the whole document.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// WriteFile renders the document to path.
func (d *Document) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Namespace == "" && attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
