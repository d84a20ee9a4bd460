package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

// MockRetriever implements driving.Retriever for testing.
type MockRetriever struct {
	MixedRetrieveFunc func(ctx context.Context, query domain.RetrievalQuery) ([]domain.Document, error)
	RetrieveFunc      func(ctx context.Context, kind domain.StrategyKind, query domain.RetrievalQuery) ([]domain.Document, error)
	RebuildFunc       func(ctx context.Context) (*domain.BuildReport, error)
	StatusFunc        func(ctx context.Context) domain.IndexStatus
}

func (m *MockRetriever) MixedRetrieve(ctx context.Context, query domain.RetrievalQuery) ([]domain.Document, error) {
	if m.MixedRetrieveFunc != nil {
		return m.MixedRetrieveFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockRetriever) Retrieve(ctx context.Context, kind domain.StrategyKind, query domain.RetrievalQuery) ([]domain.Document, error) {
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, kind, query)
	}
	return nil, nil
}

func (m *MockRetriever) Rebuild(ctx context.Context) (*domain.BuildReport, error) {
	if m.RebuildFunc != nil {
		return m.RebuildFunc(ctx)
	}
	return &domain.BuildReport{State: domain.BuildStateSaved}, nil
}

func (m *MockRetriever) Status(ctx context.Context) domain.IndexStatus {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return domain.IndexStatus{Loaded: true}
}

// MockDeckService implements driving.DeckService for testing.
type MockDeckService struct {
	GenerateFunc func(ctx context.Context, req domain.DeckRequest) (*domain.Deck, error)
	GetFunc      func(ctx context.Context, id string) (*domain.Deck, error)
	ListFunc     func(ctx context.Context, owner string) ([]domain.Deck, error)
	DeleteFunc   func(ctx context.Context, id string) error
}

func (m *MockDeckService) Generate(ctx context.Context, req domain.DeckRequest) (*domain.Deck, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return nil, domain.ErrLLMUnavailable
}

func (m *MockDeckService) Get(ctx context.Context, id string) (*domain.Deck, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockDeckService) List(ctx context.Context, owner string) ([]domain.Deck, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, owner)
	}
	return nil, nil
}

func (m *MockDeckService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct {
	Settings     *domain.AppSettings
	SetValueFunc func(key, value string) error
	ValidateErr  error
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	if m.Settings == nil {
		s := domain.DefaultAppSettings()
		m.Settings = &s
	}
	return m.Settings, nil
}

func (m *MockSettingsService) Save(s *domain.AppSettings) error {
	m.Settings = s
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	s, _ := m.Get()
	s.Embedding.Provider, s.Embedding.Model, s.Embedding.APIKey = provider, model, apiKey
	return nil
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	s, _ := m.Get()
	s.LLM.Provider, s.LLM.Model, s.LLM.APIKey = provider, model, apiKey
	return nil
}

func (m *MockSettingsService) SetRetrievalCounts(kSim, kDiv, kRandom int) error {
	s, _ := m.Get()
	s.Retrieval = domain.RetrievalSettings{KSimilarity: kSim, KDivergence: kDiv, KRandom: kRandom}
	return nil
}

func (m *MockSettingsService) SetValue(key, value string) error {
	if m.SetValueFunc != nil {
		return m.SetValueFunc(key, value)
	}
	return nil
}

func (m *MockSettingsService) Keys() []string {
	return []string{"embedding.provider", "retrieval.k_similarity"}
}

func (m *MockSettingsService) Validate() error {
	return m.ValidateErr
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *MockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *MockSettingsService) ValidateLLMConfig() error { return nil }

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s Services) {
	t.Helper()
	prevDefaults := defaults
	SetServices(s)
	t.Cleanup(func() {
		SetServices(Services{})
		defaults = prevDefaults
	})
}

// runCmd executes the root command with args and returns its combined output.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs don't leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
