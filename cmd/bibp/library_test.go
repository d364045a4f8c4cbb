package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/bibproxy/internal/storage"
)

const sampleBib = `@inproceedings{pleiad:tod2007,
  author = {Pothier, Guillaume and Tanter, Eric},
  title = {Scalable Omniscient Debugging},
  booktitle = {OOPSLA},
  year = 2007,
  keywords = {tod}
}
`

func writeBib(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refs.bib")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadLibrary(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	n, err := loadLibrary(ctx, db, writeBib(t, sampleBib))
	if err != nil {
		t.Fatalf("loadLibrary() error = %v", err)
	}
	if n != 1 {
		t.Errorf("loadLibrary() = %d, want 1", n)
	}

	ref, err := db.GetBySlug(ctx, "pleiad-tod2007")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if ref.Title != "Scalable Omniscient Debugging" {
		t.Errorf("Title = %q", ref.Title)
	}
}

func TestLoadLibrary_ParseErrorKeepsContents(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := loadLibrary(ctx, db, writeBib(t, sampleBib)); err != nil {
		t.Fatalf("loadLibrary() error = %v", err)
	}
	if _, err := loadLibrary(ctx, db, writeBib(t, "@article{broken, title = {unterminated")); err == nil {
		t.Fatal("loadLibrary() expected error for malformed file")
	}

	count, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d after failed reload, want 1", count)
	}
}

func TestLoadLibrary_MissingFile(t *testing.T) {
	db := openTestDB(t)
	if _, err := loadLibrary(context.Background(), db, filepath.Join(t.TempDir(), "nope.bib")); err == nil {
		t.Error("loadLibrary() expected error for missing file")
	}
}
