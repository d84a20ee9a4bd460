package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

var (
	retrieveKSim     int
	retrieveKDiv     int
	retrieveKRandom  int
	retrieveStrategy string
	retrieveTags     []string
	retrieveJSON     bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve inspiration from the knowledge base",
	Long: `Runs mixed retrieval for a query: the most similar documents, documents
from the far side of the corpus, and a random sample. Results are merged
without repeated text.

Use --strategy to run a single strategy instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVar(&retrieveKSim, "k-sim", -1, "similar documents to return (default from settings)")
	retrieveCmd.Flags().IntVar(&retrieveKDiv, "k-div", -1, "divergent documents to return (default from settings)")
	retrieveCmd.Flags().IntVar(&retrieveKRandom, "k-random", -1, "random documents to return (default from settings)")
	retrieveCmd.Flags().StringVar(&retrieveStrategy, "strategy", "", "run one strategy: similarity, divergence or random")
	retrieveCmd.Flags().StringSliceVar(&retrieveTags, "tag", nil, "only return documents with one of these tags")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if err := requireIndex(cmd); err != nil {
		return err
	}

	query := defaults.Query(strings.TrimSpace(args[0]))
	if cmd.Flags().Changed("k-sim") {
		query.KSimilarity = retrieveKSim
	}
	if cmd.Flags().Changed("k-div") {
		query.KDivergence = retrieveKDiv
	}
	if cmd.Flags().Changed("k-random") {
		query.KRandom = retrieveKRandom
	}
	query.Tags = retrieveTags

	var (
		docs []domain.Document
		err  error
	)
	if retrieveStrategy == "" {
		docs, err = retriever.MixedRetrieve(cmd.Context(), query)
	} else {
		kind := domain.StrategyKind(retrieveStrategy)
		if !kind.IsValid() {
			return fmt.Errorf("unknown strategy %q", retrieveStrategy)
		}
		docs, err = retriever.Retrieve(cmd.Context(), kind, query)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return err
		}
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		return outputRetrieveJSON(cmd, docs)
	}
	return outputRetrieveList(cmd, docs)
}

type documentJSON struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func outputRetrieveJSON(cmd *cobra.Command, docs []domain.Document) error {
	out := make([]documentJSON, len(docs))
	for i, d := range docs {
		out[i] = documentJSON{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}
	return printJSON(cmd, out)
}

func outputRetrieveList(cmd *cobra.Command, docs []domain.Document) error {
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for i, d := range docs {
		cmd.Printf("  [%d] %s\n", i+1, oneLine(d.Content, 100))
		source := d.MetaString(domain.MetaSourceFile)
		if source == "" {
			source = d.SourceType()
		}
		if tags := d.Tags(); len(tags) > 0 {
			cmd.Printf("      %s  #%s\n", source, strings.Join(tags, " #"))
		} else if source != "" {
			cmd.Printf("      %s\n", source)
		}
	}
	cmd.Printf("\n%d documents\n", len(docs))
	return nil
}

// oneLine collapses whitespace and truncates s to at most n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
