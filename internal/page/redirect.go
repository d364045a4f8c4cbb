package page

import (
	"fmt"

	"github.com/matsen/bibproxy/internal/citation"
)

// Redirector navigates to publication pages.
type Redirector struct {
	nav Navigator
}

// NewRedirector returns a Redirector using nav.
func NewRedirector(nav Navigator) *Redirector {
	return &Redirector{nav: nav}
}

// Redirect navigates to the publication page of key and returns the URL
// it navigated to. URL construction cannot fail; the error is the
// navigator's.
func (r *Redirector) Redirect(key string) (string, error) {
	target := citation.PublicationURL(key)
	if err := r.nav.Navigate(target); err != nil {
		return target, fmt.Errorf("navigating to %s: %w", target, err)
	}
	return target, nil
}
