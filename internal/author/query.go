// Package author parses BibTeX author lists and decides which entries an
// author identifier selects.
package author

import (
	"strings"

	"github.com/matsen/bibproxy/internal/reference"
)

// Query represents a parsed author identifier.
type Query struct {
	First string // First name (may be empty for last-name-only queries)
	Last  string // Last name (required)
}

// ParseQuery parses an author identifier into a structured Query.
//
// Supported formats:
//   - "tanter"        → last="tanter"
//   - "Eric Tanter"   → first="Eric", last="Tanter"
//   - "Tanter, Eric"  → first="Eric", last="Tanter"
//
// Names are trimmed but case is preserved (matching is case-insensitive).
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}

	if idx := strings.Index(input, ","); idx > 0 {
		last := strings.TrimSpace(input[:idx])
		first := strings.TrimSpace(input[idx+1:])
		return Query{First: first, Last: last}
	}

	parts := strings.Fields(input)
	if len(parts) == 1 {
		return Query{Last: parts[0]}
	}

	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return Query{First: first, Last: last}
}

// Matches checks if the query matches a given author.
//
// Last name: case-insensitive exact match. First name, when present:
// case-insensitive prefix match, so "G Pothier" matches "Guillaume Pothier".
func (q Query) Matches(a reference.Author) bool {
	if !strings.EqualFold(q.Last, a.Last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(
		strings.ToLower(a.First),
		strings.ToLower(q.First),
	)
}

// MatchesAny checks if the query matches any author in the list.
func (q Query) MatchesAny(authors []reference.Author) bool {
	for _, a := range authors {
		if q.Matches(a) {
			return true
		}
	}
	return false
}

// Selects reports whether the bibliography listing for identifier includes
// ref. An empty identifier selects everything. Otherwise the identifier
// selects entries with a matching author or a keyword equal to it, so
// project tags such as "tod" work the same way as author names.
func Selects(identifier string, ref reference.Reference) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return true
	}
	if ref.HasKeyword(identifier) {
		return true
	}
	return ParseQuery(identifier).MatchesAny(ref.Authors)
}
