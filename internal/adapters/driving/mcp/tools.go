package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// errNoDeckService is returned by deck tools when no deck service is wired.
var errNoDeckService = errors.New("deck generation is not configured")

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query       string   `json:"query" jsonschema:"text describing the creative context to find inspiration for"`
	Strategy    string   `json:"strategy,omitempty" jsonschema:"mixed (default), similarity, divergence or random"`
	KSimilarity *int     `json:"k_similarity,omitempty" jsonschema:"number of nearest documents"`
	KDivergence *int     `json:"k_divergence,omitempty" jsonschema:"number of far-but-related documents"`
	KRandom     *int     `json:"k_random,omitempty" jsonschema:"number of random documents"`
	Tags        []string `json:"tags,omitempty" jsonschema:"only consider documents with any of these tags for similarity"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one retrieved document.
type DocumentOutput struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	SourceType string   `json:"source_type,omitempty"`
	SourceFile string   `json:"source_file,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// RebuildInput is the (empty) input schema for the rebuild tool.
type RebuildInput struct{}

// RebuildOutput summarises a build.
type RebuildOutput struct {
	State      string `json:"state"`
	Indexed    int    `json:"indexed"`
	Chunks     int    `json:"chunks"`
	Skipped    int    `json:"skipped"`
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model"`
	DurationMS int64  `json:"duration_ms"`
}

// StatusInput is the (empty) input schema for the index_status tool.
type StatusInput struct{}

// StatusOutput describes the served index.
type StatusOutput struct {
	Loaded     bool   `json:"loaded"`
	Documents  int    `json:"documents"`
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model,omitempty"`
	BuiltAt    string `json:"built_at,omitempty"`
	Path       string `json:"path"`
	Stale      bool   `json:"stale"`
	Building   bool   `json:"building"`
}

// GenerateDeckInput is the input schema for the generate_deck tool.
type GenerateDeckInput struct {
	Discipline       string `json:"discipline" jsonschema:"creative discipline, e.g. ilustración"`
	BlockDescription string `json:"block_description" jsonschema:"description of the creative block"`
	Color            string `json:"color,omitempty" jsonschema:"#RRGGBB colour (default #000000)"`
	NumCards         int    `json:"num_cards,omitempty" jsonschema:"maximum number of cards (default from settings)"`
}

// DeckOutput is a generated deck.
type DeckOutput struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Discipline string   `json:"discipline"`
	Color      string   `json:"color"`
	Cards      []string `json:"cards"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve inspiration documents from the knowledge base by similarity, divergence and chance",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild",
		Description: "Rebuild the knowledge base index from its source files",
	}, s.handleRebuild)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether the index is loaded, its size and whether sources changed since it was built",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_deck",
		Description: "Generate a named deck of oblique strategies for a creative block",
	}, s.handleGenerateDeck)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	defaults := s.ports.defaults()
	query := domain.RetrievalQuery{
		Text:        input.Query,
		KSimilarity: valueOr(input.KSimilarity, defaults.KSimilarity),
		KDivergence: valueOr(input.KDivergence, defaults.KDivergence),
		KRandom:     valueOr(input.KRandom, defaults.KRandom),
		Tags:        input.Tags,
	}

	var (
		docs []domain.Document
		err  error
	)
	switch kind := domain.StrategyKind(input.Strategy); {
	case input.Strategy == "" || input.Strategy == "mixed":
		docs, err = s.ports.Retriever.MixedRetrieve(ctx, query)
	case kind.IsValid():
		docs, err = s.ports.Retriever.Retrieve(ctx, kind, query)
	default:
		return nil, RetrieveOutput{}, domain.ErrInvalidRequest
	}
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentOutput{
			ID:         docs[i].ID,
			Content:    docs[i].Content,
			SourceType: docs[i].SourceType(),
			SourceFile: docs[i].MetaString(domain.MetaSourceFile),
			Tags:       docs[i].Tags(),
		}
	}
	return nil, output, nil
}

func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	report, err := s.ports.Retriever.Rebuild(ctx)
	if err != nil {
		return nil, RebuildOutput{}, err
	}
	return nil, RebuildOutput{
		State:      report.State.String(),
		Indexed:    report.Indexed,
		Chunks:     report.Chunks,
		Skipped:    len(report.Skipped),
		Dimensions: report.Dimensions,
		Model:      report.Model,
		DurationMS: report.Duration.Milliseconds(),
	}, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return nil, statusOutput(s.ports.Retriever.Status(ctx)), nil
}

func (s *Server) handleGenerateDeck(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateDeckInput,
) (*mcp.CallToolResult, DeckOutput, error) {
	if s.ports.Decks == nil {
		return nil, DeckOutput{}, errNoDeckService
	}
	deck, err := s.ports.Decks.Generate(ctx, domain.DeckRequest{
		Owner:            s.ports.Owner,
		Discipline:       input.Discipline,
		BlockDescription: input.BlockDescription,
		Color:            input.Color,
		NumCards:         input.NumCards,
	})
	if err != nil {
		return nil, DeckOutput{}, err
	}
	return nil, deckOutput(deck), nil
}

func statusOutput(st domain.IndexStatus) StatusOutput {
	out := StatusOutput{
		Loaded:     st.Loaded,
		Documents:  st.Documents,
		Dimensions: st.Dimensions,
		Model:      st.Model,
		Path:       st.Path,
		Stale:      st.Stale,
		Building:   st.Building,
	}
	if !st.BuiltAt.IsZero() {
		out.BuiltAt = st.BuiltAt.Format(time.RFC3339)
	}
	return out
}

func deckOutput(deck *domain.Deck) DeckOutput {
	cards := make([]string, len(deck.Cards))
	for i, c := range deck.Cards {
		cards[i] = c.Text
	}
	return DeckOutput{
		ID:         deck.ID,
		Name:       deck.Name,
		Discipline: deck.Discipline,
		Color:      deck.Color,
		Cards:      cards,
	}
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
