package bibtex

import (
	"strconv"
	"strings"

	"github.com/matsen/bibproxy/internal/author"
	"github.com/matsen/bibproxy/internal/reference"
)

// knownFields are mapped onto Reference fields; everything else stays in Fields.
var knownFields = map[string]bool{
	"author": true, "title": true, "journal": true, "booktitle": true,
	"year": true, "month": true, "doi": true, "url": true,
	"abstract": true, "note": true, "keywords": true,
}

// ToReference converts a parsed entry into a Reference.
func ToReference(e Entry) reference.Reference {
	ref := reference.Reference{
		Key:      e.Key,
		Type:     e.Type,
		Title:    Clean(e.Fields["title"]),
		Authors:  author.ParseNames(collapseSpace(e.Fields["author"])),
		Venue:    Clean(firstNonEmpty(e.Fields["journal"], e.Fields["booktitle"])),
		Year:     parseYear(e.Fields["year"]),
		Month:    Clean(e.Fields["month"]),
		DOI:      Clean(e.Fields["doi"]),
		URL:      strings.TrimSpace(e.Fields["url"]),
		Abstract: Clean(e.Fields["abstract"]),
		Note:     strings.TrimSpace(e.Fields["note"]),
		Keywords: splitKeywords(e.Fields["keywords"]),
	}

	for name, value := range e.Fields {
		if knownFields[name] {
			continue
		}
		if ref.Fields == nil {
			ref.Fields = make(map[string]string)
		}
		ref.Fields[name] = collapseSpace(value)
	}
	return ref
}

// ToReferences converts entries, keeping their order.
func ToReferences(entries []Entry) []reference.Reference {
	refs := make([]reference.Reference, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, ToReference(e))
	}
	return refs
}

// Clean strips grouping braces and collapses whitespace for display.
func Clean(s string) string {
	return collapseSpace(strings.NewReplacer("{", "", "}", "").Replace(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseYear reads the leading four-digit year, returning 0 if there is none.
func parseYear(s string) int {
	s = Clean(s)
	if len(s) < 4 {
		return 0
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return year
}

func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if kw = Clean(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
