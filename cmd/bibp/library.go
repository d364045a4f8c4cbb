package main

import (
	"context"
	"fmt"

	"github.com/matsen/bibproxy/internal/bibtex"
	"github.com/matsen/bibproxy/internal/storage"
)

// loadLibrary parses the BibTeX file at path and replaces the store's
// contents with it. The store is left untouched if parsing fails.
func loadLibrary(ctx context.Context, db *storage.DB, path string) (int, error) {
	entries, err := bibtex.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	refs := bibtex.ToReferences(entries)
	n, err := db.ReplaceAll(ctx, refs)
	if err != nil {
		return 0, fmt.Errorf("storing references: %w", err)
	}
	return n, nil
}
