package bibtex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/bibproxy/internal/reference"
)

// ToBibTeX converts a reference back to a BibTeX entry.
func ToBibTeX(ref reference.Reference) string {
	entryType := ref.Type
	if entryType == "" {
		entryType = "misc"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, ref.Key))

	if len(ref.Authors) > 0 {
		writeField(&b, "author", formatAuthors(ref.Authors))
	}
	writeField(&b, "title", ref.Title)
	if ref.Venue != "" {
		writeField(&b, venueField(entryType), ref.Venue)
	}
	if ref.Year > 0 {
		writeField(&b, "year", fmt.Sprintf("%d", ref.Year))
	}
	writeField(&b, "month", ref.Month)
	writeField(&b, "doi", ref.DOI)
	writeField(&b, "url", ref.URL)
	if len(ref.Keywords) > 0 {
		writeField(&b, "keywords", strings.Join(ref.Keywords, ", "))
	}
	writeField(&b, "note", ref.Note)
	writeField(&b, "abstract", ref.Abstract)

	names := make([]string, 0, len(ref.Fields))
	for name := range ref.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeField(&b, name, ref.Fields[name])
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple references to BibTeX format.
func ToBibTeXList(refs []reference.Reference) string {
	var entries []string
	for _, ref := range refs {
		entries = append(entries, ToBibTeX(ref))
	}
	return strings.Join(entries, "\n")
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, value))
}

// venueField returns the field that holds the venue for an entry type.
func venueField(entryType string) string {
	switch entryType {
	case "inproceedings", "incollection", "conference":
		return "booktitle"
	default:
		return "journal"
	}
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []reference.Author) string {
	var formatted []string
	for _, a := range authors {
		if a.First != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", a.Last, a.First))
		} else {
			formatted = append(formatted, "{"+a.Last+"}")
		}
	}
	return strings.Join(formatted, " and ")
}
