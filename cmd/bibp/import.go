package main

import (
	"context"
	"fmt"

	"github.com/matsen/bibproxy/internal/storage"
	"github.com/spf13/cobra"
)

var importDB string

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path (default from config)")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [file.bib]",
	Short: "Load a BibTeX file into the SQLite store",
	Long: `Load a BibTeX file into the SQLite store, replacing its contents.

The import is all or nothing: a parse error or a duplicate citation key
leaves the database as it was.

Examples:
  bibp import publications.bib --db ~/.local/share/bibp/refs.db
  BIBP_DB_PATH=refs.db bibp import`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	path := cfg.BibPath
	if len(args) > 0 {
		path = args[0]
	}
	dbPath := cfg.DBPath
	if importDB != "" {
		dbPath = importDB
	}
	if dbPath == ":memory:" {
		exitWithError(ExitConfigError, "import needs a database file\n  Hint: pass --db or set db_path in the config")
	}

	db, err := storage.OpenDB(dbPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	defer db.Close()

	n, err := loadLibrary(context.Background(), db, path)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	result := ImportResult{Path: path, DB: dbPath, Count: n}
	if humanOutput {
		fmt.Fprintf(stdout, "Imported %d references from %s into %s\n", n, path, dbPath)
		return nil
	}
	return outputJSON(result)
}
