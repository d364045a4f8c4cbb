package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matsen/bibproxy/internal/proxy"
	"github.com/matsen/bibproxy/internal/storage"
	"github.com/spf13/cobra"
)

var (
	serveListen string
	serveNoLoad bool
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 10 * time.Second

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoLoad, "no-load", false, "Serve the database as is without loading bib_path")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve bibliography fragments and publication pages",
	Long: `Serve bibliography fragments and publication pages.

Routes:
  GET /bibtex/bibtex_proxy.php?a=<author>   HTML fragment for the author
  GET /research/publications?key=<slug>     publication page (index without key)
  GET /cite/<key>                           302 to the publication page
  GET /healthz                              liveness
  GET /metrics                              Prometheus metrics

On start the configured BibTeX file is loaded into the database. SIGHUP
reloads it; a failed reload keeps the previous contents.

Examples:
  bibp serve
  bibp serve --listen 127.0.0.1:9000
  BIBP_BIB_PATH=pubs.bib bibp serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	addr := cfg.Listen
	if serveListen != "" {
		addr = serveListen
	}

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !serveNoLoad {
		n, err := loadLibrary(ctx, db, cfg.BibPath)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		logger.Info("library loaded", "path", cfg.BibPath, "references", n)
		go reloadOnHangup(ctx, db, cfg.BibPath, logger)
	}

	trusted, err := cfg.TrustedPrefixes()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	srv := proxy.New(db,
		proxy.WithLogger(logger),
		proxy.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		proxy.WithTrustedProxies(trusted...),
	)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitWithError(ExitError, "server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// reloadOnHangup reloads the library from path on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, db *storage.DB, path string, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			n, err := loadLibrary(ctx, db, path)
			if err != nil {
				logger.Warn("reload failed, keeping previous library", "path", path, "error", err)
				continue
			}
			logger.Info("library reloaded", "path", path, "references", n)
		}
	}
}
