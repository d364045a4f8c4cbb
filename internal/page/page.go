// Package page implements the two page-side operations: loading a
// bibliography fragment into a page region and redirecting to a
// publication page.
//
// The page itself is never global. A Surface stands in for the document
// and a Navigator for the location, so both operations can run against a
// parsed HTML file, a terminal, or a test double.
package page

import (
	"fmt"
	"io"
	"sync"
)

// Surface is a page whose regions can be rewritten by element identifier.
type Surface interface {
	Replace(elementID, content string) error
}

// Navigator moves the page to a new URL.
type Navigator interface {
	Navigate(url string) error
}

// WriterSurface writes replaced content to an io.Writer.
// Every replacement is written in full; earlier writes are not retracted.
type WriterSurface struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSurface returns a Surface writing to w.
func NewWriterSurface(w io.Writer) *WriterSurface {
	return &WriterSurface{w: w}
}

// Replace writes content to the underlying writer.
func (s *WriterSurface) Replace(elementID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, content)
	return err
}

// WriterNavigator prints the target URL instead of navigating.
type WriterNavigator struct {
	w io.Writer
}

// NewWriterNavigator returns a Navigator printing to w.
func NewWriterNavigator(w io.Writer) *WriterNavigator {
	return &WriterNavigator{w: w}
}

// Navigate prints url followed by a newline.
func (n *WriterNavigator) Navigate(url string) error {
	_, err := fmt.Fprintln(n.w, url)
	return err
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(url string) error

// Navigate calls f(url).
func (f NavigatorFunc) Navigate(url string) error {
	return f(url)
}
