package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// stdout receives command output; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FetchResult is the JSON output for bibp fetch.
type FetchResult struct {
	URL      string `json:"url"`
	Element  string `json:"element"`
	Page     string `json:"page,omitempty"`    // Page file that was updated, if any
	Content  string `json:"content,omitempty"` // Rendered content when no page file is given
	Rendered bool   `json:"rendered"`
}

// RedirectResult is the JSON output for bibp redirect.
type RedirectResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Opened bool   `json:"opened"`
	Copied bool   `json:"copied"`
}

// ImportResult is the JSON output for bibp import.
type ImportResult struct {
	Path  string `json:"path"`
	DB    string `json:"db"`
	Count int    `json:"count"`
}
