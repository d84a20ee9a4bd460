// Package cli implements the kairoscope command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// OwnerEnvVar overrides the default deck owner.
const OwnerEnvVar = "KAIROSCOPE_OWNER"

const defaultOwner = "local"

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Services holds everything the commands drive. Fields left nil make the
// commands that need them fail with a "not configured" error.
type Services struct {
	Retriever driving.Retriever
	Decks     driving.DeckService
	Settings  driving.SettingsService

	// Metrics serves Prometheus metrics for the serve command.
	Metrics http.Handler

	// OpenIndex loads the persisted index without building it.
	OpenIndex func(ctx context.Context) error

	// LoadIndex loads the persisted index, building it when missing or
	// corrupt. The report is nil when nothing was built.
	LoadIndex func(ctx context.Context) (*domain.BuildReport, error)

	// WatchSources marks the index stale on knowledge base changes until ctx ends.
	WatchSources func(ctx context.Context) error

	// Defaults supplies the k values retrieval flags start from.
	Defaults domain.RetrievalSettings
}

var (
	retriever       driving.Retriever
	deckService     driving.DeckService
	settingsService driving.SettingsService
	metricsHandler  http.Handler
	openIndex       func(ctx context.Context) error
	loadIndex       func(ctx context.Context) (*domain.BuildReport, error)
	watchSources    func(ctx context.Context) error
	defaults        = domain.DefaultAppSettings().Retrieval
)

// Global flags.
var (
	verbose   bool
	owner     string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kairoscope",
	Short: "Oblique strategy decks from your own knowledge base",
	Long: `Kairoscope indexes a knowledge base of creative strategies and essays,
retrieves inspiration with similarity, divergence and random search, and
asks an LLM to turn it into a deck of oblique strategy cards.

The knowledge base lives in two folders:
  structured/    JSONL strategy records, one object with a "text" field per line
  unstructured/  text, Markdown and HTML files that are split into chunks`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if err := logger.SetFormat(logger.Format(logFormat)); err != nil {
			return err
		}
		owner = strings.TrimSpace(owner)
		if owner == "" {
			return errors.New("--owner must not be empty")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", ownerFromEnv(), "deck owner")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatConsole), "log format: console or json")
}

// SetServices configures the services the commands drive.
func SetServices(s Services) {
	retriever = s.Retriever
	deckService = s.Decks
	settingsService = s.Settings
	metricsHandler = s.Metrics
	openIndex = s.OpenIndex
	loadIndex = s.LoadIndex
	watchSources = s.WatchSources
	if s.Defaults != (domain.RetrievalSettings{}) {
		defaults = s.Defaults
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func ownerFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(OwnerEnvVar)); v != "" {
		return v
	}
	return defaultOwner
}

// requireIndex loads the index for commands that retrieve from it.
func requireIndex(cmd *cobra.Command) error {
	if retriever == nil {
		return errors.New("retrieval service not configured")
	}
	if retriever.Status(cmd.Context()).Loaded || loadIndex == nil {
		return nil
	}
	report, err := loadIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	if report != nil {
		cmd.PrintErrf("Built index: %d documents (%d skipped)\n", report.Indexed, len(report.Skipped))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
