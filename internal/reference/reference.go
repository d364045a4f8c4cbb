// Package reference defines the core domain types for bibliography entries.
package reference

import (
	"strings"

	"github.com/matsen/bibproxy/internal/citation"
)

// Reference is one BibTeX entry as served by the publication pages.
type Reference struct {
	// Identity
	Key  string `json:"key"`  // Citation key, e.g. "pleiad:tod2007"
	Type string `json:"type"` // Lowercased entry type: article, inproceedings, ...

	// Metadata
	Title    string   `json:"title"`
	Authors  []Author `json:"authors"`
	Venue    string   `json:"venue,omitempty"` // journal or booktitle
	Year     int      `json:"year,omitempty"`
	Month    string   `json:"month,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	URL      string   `json:"url,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Note     string   `json:"note,omitempty"` // Markdown, rendered on the publication page
	Keywords []string `json:"keywords,omitempty"`

	// Fields holds every remaining field, lowercased name to raw value.
	Fields map[string]string `json:"fields,omitempty"`
}

// Author is a single entry author.
type Author struct {
	First string `json:"first"` // Given name(s)
	Last  string `json:"last"`  // Family name, including particles ("van der Berg")
}

// Slug returns the key form used in publication page URLs.
func (r Reference) Slug() string {
	return citation.Slug(r.Key)
}

// HasKeyword reports whether the entry is tagged with kw (case-insensitive).
func (r Reference) HasKeyword(kw string) bool {
	for _, k := range r.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

// String formats the author as "First Last".
func (a Author) String() string {
	if a.First == "" {
		return a.Last
	}
	return a.First + " " + a.Last
}
