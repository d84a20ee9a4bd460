package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr    string
	serveOrigins []string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts the HTTP API for retrieval, index rebuilds and deck generation.

The knowledge base is watched while serving; changes mark the index stale
until POST /v1/rebuild is called.

Routes:
  GET    /healthz
  GET    /v1/index
  POST   /v1/retrieve
  POST   /v1/rebuild
  POST   /v1/decks
  GET    /v1/decks
  GET    /v1/decks/{id}
  DELETE /v1/decks/{id}
  GET    /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the knowledge base for changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(cmd); err != nil {
		return err
	}

	handler := httpapi.NewRouter(httpapi.Config{
		Retriever:      retriever,
		Decks:          deckService,
		Metrics:        metricsHandler,
		Defaults:       defaults,
		DefaultOwner:   owner,
		AllowedOrigins: serveOrigins,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if watchSources != nil && !serveNoWatch {
		go func() {
			if err := watchSources(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("knowledge base watcher stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	cmd.Printf("Listening on http://%s\n", serveAddr)
	return listenAndShutdown(ctx, srv)
}

// listenAndShutdown serves until ctx is done, then shuts srv down gracefully.
func listenAndShutdown(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
