package mcp

import (
	"context"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	docs      []domain.Document
	report    *domain.BuildReport
	status    domain.IndexStatus
	err       error
	lastKind  domain.StrategyKind
	lastQuery domain.RetrievalQuery
}

func (m *mockRetriever) MixedRetrieve(_ context.Context, q domain.RetrievalQuery) ([]domain.Document, error) {
	m.lastKind = ""
	m.lastQuery = q
	return m.docs, m.err
}

func (m *mockRetriever) Retrieve(_ context.Context, kind domain.StrategyKind, q domain.RetrievalQuery) ([]domain.Document, error) {
	m.lastKind = kind
	m.lastQuery = q
	return m.docs, m.err
}

func (m *mockRetriever) Rebuild(_ context.Context) (*domain.BuildReport, error) {
	return m.report, m.err
}

func (m *mockRetriever) Status(_ context.Context) domain.IndexStatus {
	return m.status
}

// mockDeckService is a mock implementation of driving.DeckService.
type mockDeckService struct {
	deck    *domain.Deck
	decks   []domain.Deck
	err     error
	lastReq domain.DeckRequest
}

func (m *mockDeckService) Generate(_ context.Context, req domain.DeckRequest) (*domain.Deck, error) {
	m.lastReq = req
	return m.deck, m.err
}

func (m *mockDeckService) Get(_ context.Context, _ string) (*domain.Deck, error) {
	return m.deck, m.err
}

func (m *mockDeckService) List(_ context.Context, _ string) ([]domain.Deck, error) {
	return m.decks, m.err
}

func (m *mockDeckService) Delete(_ context.Context, _ string) error {
	return m.err
}
