package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Kairoscope resources.
	uriScheme = "kairoscope://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "Status of the knowledge base index",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "decks",
		Name:        "decks",
		Description: "Decks generated through this server",
		MIMEType:    "application/json",
	}, s.handleDecksResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "decks/{deckId}",
		Name:        "deck",
		Description: "A deck with its cards",
		MIMEType:    "application/json",
	}, s.handleDeckResource)
}

func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, statusOutput(s.ports.Retriever.Status(ctx)))
}

func (s *Server) handleDecksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Decks == nil {
		return jsonResource(req.Params.URI, []any{})
	}

	decks, err := s.ports.Decks.List(ctx, s.ports.Owner)
	if err != nil {
		return nil, fmt.Errorf("listing decks: %w", err)
	}

	type deckInfo struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Discipline string `json:"discipline"`
		Color      string `json:"color"`
		CreatedAt  string `json:"created_at"`
	}
	infos := make([]deckInfo, len(decks))
	for i := range decks {
		infos[i] = deckInfo{
			ID:         decks[i].ID,
			Name:       decks[i].Name,
			Discipline: decks[i].Discipline,
			Color:      decks[i].Color,
			CreatedAt:  decks[i].CreatedAt.Format(time.RFC3339),
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDeckResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Decks == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract deckId from URI: kairoscope://decks/{deckId}
	deckID := extractDeckID(req.Params.URI)
	if deckID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	deck, err := s.ports.Decks.Get(ctx, deckID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting deck: %w", err)
	}
	return jsonResource(req.Params.URI, deckOutput(deck))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDeckID extracts the deck ID from a URI like kairoscope://decks/{deckId}.
func extractDeckID(uri string) string {
	const prefix = uriScheme + "decks/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
