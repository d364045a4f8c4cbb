// Package bibtex reads and writes BibTeX bibliographies.
package bibtex

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Entry is a raw BibTeX entry with macros expanded and concatenations joined.
type Entry struct {
	Type   string            // Lowercased entry type
	Key    string            // Citation key as written
	Fields map[string]string // Lowercased field name to value, outer delimiters removed
	Line   int               // Line where the entry starts
}

// ParseError reports a syntax error in a BibTeX source.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bibtex: line %d: %s", e.Line, e.Msg)
}

// defaultMacros are the month abbreviations every BibTeX style defines.
var defaultMacros = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// ParseFile parses the BibTeX file at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads every entry from r. @string macros are expanded;
// @comment and @preamble blocks are skipped. Text outside entries is ignored.
func Parse(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	p := &parser{src: []rune(string(data)), line: 1, macros: make(map[string]string)}
	for k, v := range defaultMacros {
		p.macros[k] = v
	}

	var entries []Entry
	for {
		if !p.skipTo('@') {
			return entries, nil
		}
		e, ok, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, e)
		}
	}
}

type parser struct {
	src    []rune
	pos    int
	line   int
	macros map[string]string
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
	}
	return r
}

// skipTo advances past the next occurrence of r. It reports false at EOF.
func (p *parser) skipTo(r rune) bool {
	for !p.eof() {
		if p.next() == r {
			return true
		}
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.next()
	}
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) || strings.ContainsRune(`{}(),="#%'`, r) {
			break
		}
		p.next()
	}
	return string(p.src[start:p.pos])
}

// parseBlock parses one @type{...} block; the '@' is already consumed.
func (p *parser) parseBlock() (Entry, bool, error) {
	startLine := p.line
	p.skipSpace()
	typ := strings.ToLower(p.ident())
	p.skipSpace()
	// A stray '@' outside an entry (an email address in a comment) is text.
	if typ == "" || p.eof() || (p.peek() != '{' && p.peek() != '(') {
		return Entry{}, false, nil
	}
	open := p.next()
	closeRune := '}'
	if open == '(' {
		closeRune = ')'
	}

	switch typ {
	case "comment", "preamble":
		if err := p.skipBalanced(open, closeRune); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	case "string":
		name, value, err := p.parseField()
		if err != nil {
			return Entry{}, false, err
		}
		p.macros[strings.ToLower(name)] = value
		p.skipSpace()
		if p.eof() || p.next() != closeRune {
			return Entry{}, false, p.errorf("unterminated @string")
		}
		return Entry{}, false, nil
	}

	p.skipSpace()
	key := p.keyToken(closeRune)
	e := Entry{Type: typ, Key: key, Fields: make(map[string]string), Line: startLine}

	for {
		p.skipSpace()
		if p.eof() {
			return Entry{}, false, p.errorf("unterminated entry %q", key)
		}
		switch p.peek() {
		case closeRune:
			p.next()
			return e, true, nil
		case ',':
			p.next()
			continue
		}
		name, value, err := p.parseField()
		if err != nil {
			return Entry{}, false, err
		}
		e.Fields[strings.ToLower(name)] = value
	}
}

// keyToken reads the citation key, which may contain colons and slashes.
func (p *parser) keyToken(closeRune rune) string {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if r == ',' || r == closeRune || unicode.IsSpace(r) {
			break
		}
		p.next()
	}
	return string(p.src[start:p.pos])
}

func (p *parser) parseField() (string, string, error) {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return "", "", p.errorf("expected field name, got %q", p.peek())
	}
	p.skipSpace()
	if p.eof() || p.next() != '=' {
		return "", "", p.errorf("expected = after field %q", name)
	}

	var value strings.Builder
	for {
		p.skipSpace()
		part, err := p.parseValuePart()
		if err != nil {
			return "", "", err
		}
		value.WriteString(part)
		p.skipSpace()
		if p.peek() != '#' {
			break
		}
		p.next()
	}
	return name, value.String(), nil
}

func (p *parser) parseValuePart() (string, error) {
	if p.eof() {
		return "", p.errorf("unexpected end of input in field value")
	}
	switch p.peek() {
	case '{':
		p.next()
		return p.readBalanced('{', '}')
	case '"':
		p.next()
		return p.readQuoted()
	default:
		tok := p.ident()
		if tok == "" {
			return "", p.errorf("unexpected %q in field value", p.peek())
		}
		if isDigits(tok) {
			return tok, nil
		}
		if v, ok := p.macros[strings.ToLower(tok)]; ok {
			return v, nil
		}
		return tok, nil
	}
}

// readBalanced reads up to the close matching an already-consumed open.
func (p *parser) readBalanced(open, closing rune) (string, error) {
	start, startLine := p.pos, p.line
	depth := 1
	for !p.eof() {
		r := p.next()
		switch r {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return string(p.src[start : p.pos-1]), nil
			}
		}
	}
	return "", &ParseError{Line: startLine, Msg: "unbalanced braces"}
}

func (p *parser) skipBalanced(open, closing rune) error {
	_, err := p.readBalanced(open, closing)
	return err
}

// readQuoted reads a "..." value; quotes inside braces do not terminate it.
func (p *parser) readQuoted() (string, error) {
	start, startLine := p.pos, p.line
	depth := 0
	for !p.eof() {
		r := p.next()
		switch {
		case r == '{':
			depth++
		case r == '}':
			depth--
		case r == '"' && depth == 0:
			return string(p.src[start : p.pos-1]), nil
		}
	}
	return "", &ParseError{Line: startLine, Msg: "unterminated quoted value"}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
