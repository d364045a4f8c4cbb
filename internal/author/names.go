package author

import (
	"strings"

	"github.com/matsen/bibproxy/internal/reference"
)

// ParseNames splits a BibTeX author field ("A and B and C") into authors.
// Each name may be "Last, First", "Last, Jr, First" or "First von Last".
func ParseNames(field string) []reference.Author {
	var authors []reference.Author
	for _, name := range splitAnd(field) {
		if a, ok := parseName(name); ok {
			authors = append(authors, a)
		}
	}
	return authors
}

// splitAnd splits on the word "and" at brace depth zero.
func splitAnd(field string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	words := strings.Fields(field)
	for _, w := range words {
		if depth == 0 && strings.EqualFold(w, "and") {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
		depth += strings.Count(w, "{") - strings.Count(w, "}")
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func parseName(name string) (reference.Author, bool) {
	name = strings.TrimSpace(name)
	// A fully braced name is a corporate author: "{PLEIAD Lab}".
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") && strings.Count(name, "{") == 1 {
		return reference.Author{Last: strings.TrimSpace(name[1 : len(name)-1])}, name != "{}"
	}
	name = strings.TrimSpace(stripBraces(name))
	if name == "" {
		return reference.Author{}, false
	}

	if strings.Contains(name, ",") {
		parts := strings.Split(name, ",")
		last := strings.TrimSpace(parts[0])
		first := strings.TrimSpace(parts[len(parts)-1])
		if len(parts) == 1 {
			first = ""
		}
		return reference.Author{First: first, Last: last}, true
	}

	words := strings.Fields(name)
	if len(words) == 1 {
		return reference.Author{Last: words[0]}, true
	}

	// "First von Last": the last name starts at the first lowercase particle.
	split := len(words) - 1
	for i := 1; i < len(words)-1; i++ {
		if isParticle(words[i]) {
			split = i
			break
		}
	}
	return reference.Author{
		First: strings.Join(words[:split], " "),
		Last:  strings.Join(words[split:], " "),
	}, true
}

func isParticle(w string) bool {
	return w != "" && w[0] >= 'a' && w[0] <= 'z'
}

func stripBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}
