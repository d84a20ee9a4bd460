package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/adapters/driving/tui"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Launch the interactive explorer",
	Long: `Launch the interactive terminal explorer for the knowledge base.

Type a creative block to retrieve inspiration, switch strategies, rebuild
the index and browse your decks without leaving the terminal.

Controls:
  Enter    - Retrieve / Select
  Tab      - Cycle strategy
  Ctrl+R   - Rebuild index
  ↑/k, ↓/j - Navigate
  Esc      - Back
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

// explorePorts builds the TUI ports from the configured services.
func explorePorts() *tui.Ports {
	return &tui.Ports{
		Retriever: retriever,
		Decks:     deckService,
		Defaults:  defaults,
		Owner:     owner,
	}
}

func runExplore(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in explorer: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(explorePorts())
	if err != nil {
		return fmt.Errorf("failed to create explorer: %w", err)
	}
	if err := requireIndex(cmd); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Rebuilds stay manual; the watcher only flags the index stale.
	if watchSources != nil {
		go func() {
			if err := watchSources(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("knowledge base watcher stopped: %v", err)
			}
		}()
	}

	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("explorer error: %w", err)
	}

	return nil
}
