package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hbollon/go-edlib"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// Ensure DeckService implements the interface.
var _ driving.DeckService = (*DeckService)(nil)

const (
	// NearDuplicateThreshold is the Jaro-Winkler similarity at or above
	// which two strategies count as the same card.
	NearDuplicateThreshold = 0.95

	maxDeckNameWords  = 4
	minStrategyLength = 3
	deckNameMaxTokens = 50

	// maxNameSuffix bounds the search for a free "<name> N" on clashes.
	maxNameSuffix = 100
)

var (
	fallbackNamePrefixes = []string{"Estrategias", "Caminos", "Rutas", "Exploraciones", "Momentos", "Visiones"}
	fallbackNameMiddles  = []string{"de", "para", "hacia", "en"}
	fallbackNameSuffixes = []string{"Oblicuas", "Creativas", "Experimentales", "Esenciales", "Divergentes"}
)

// DeckConfig carries the settings deck generation needs.
type DeckConfig struct {
	Retrieval        domain.RetrievalSettings
	CardsPerDeck     int
	MaxDecksPerOwner int
	Temperature      float64
}

// DeckConfigFrom extracts the deck configuration from application settings.
func DeckConfigFrom(s domain.AppSettings) DeckConfig {
	return DeckConfig{
		Retrieval:        s.Retrieval,
		CardsPerDeck:     s.Deck.CardsPerDeck,
		MaxDecksPerOwner: s.Deck.MaxDecksPerOwner,
		Temperature:      s.LLM.Temperature,
	}
}

// DeckService turns a creative block into a named, persisted deck of
// oblique strategies.
type DeckService struct {
	retriever driving.Retriever
	llm       driven.LLMService
	store     driven.DeckStore
	prompts   driven.PromptStore
	metrics   driven.Metrics
	cfg       DeckConfig

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewDeckService creates a deck service. llm may be nil, in which case
// Generate returns domain.ErrLLMUnavailable while stored decks stay readable.
func NewDeckService(
	retriever driving.Retriever,
	llm driven.LLMService,
	store driven.DeckStore,
	prompts driven.PromptStore,
	metrics driven.Metrics,
	cfg DeckConfig,
) *DeckService {
	defaults := domain.DefaultAppSettings().Deck
	if cfg.CardsPerDeck <= 0 {
		cfg.CardsPerDeck = defaults.CardsPerDeck
	}
	if cfg.MaxDecksPerOwner <= 0 {
		cfg.MaxDecksPerOwner = defaults.MaxDecksPerOwner
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	now := time.Now()
	return &DeckService{
		retriever: retriever,
		llm:       llm,
		store:     store,
		prompts:   prompts,
		metrics:   metrics,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(uint64(now.UnixNano()), 0)),
		now:       time.Now,
	}
}

// Generate implements driving.DeckService.
func (s *DeckService) Generate(ctx context.Context, req domain.DeckRequest) (*domain.Deck, error) {
	req = req.Normalise()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no LLM configured", domain.ErrLLMUnavailable)
	}
	if req.NumCards == 0 {
		req.NumCards = s.cfg.CardsPerDeck
	}

	count, err := s.store.Count(ctx, req.Owner)
	if err != nil {
		return nil, fmt.Errorf("count decks: %w", err)
	}
	if count >= s.cfg.MaxDecksPerOwner {
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrDeckLimit, count, s.cfg.MaxDecksPerOwner)
	}

	logger.Section("Generating deck")
	logger.Debug("Discipline %q, %d cards", req.Discipline, req.NumCards)

	query := s.cfg.Retrieval.Query(fmt.Sprintf("Estrategias oblicuas para %s: %s", req.Discipline, req.BlockDescription))
	docs, err := s.retriever.MixedRetrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve inspiration: %w", err)
	}
	logger.Debug("Retrieved %d inspiration documents", len(docs))

	strategies, err := s.generateStrategies(ctx, req, docs)
	if err != nil {
		return nil, err
	}

	name, err := s.uniqueName(ctx, req.Owner, s.generateName(ctx, req))
	if err != nil {
		return nil, err
	}

	deck := &domain.Deck{
		ID:               uuid.New().String(),
		Owner:            req.Owner,
		Name:             name,
		Discipline:       req.Discipline,
		BlockDescription: req.BlockDescription,
		Color:            req.Color,
		Cards:            make([]domain.Card, len(strategies)),
		CreatedAt:        s.now().UTC(),
	}
	for i, text := range strategies {
		deck.Cards[i] = domain.Card{ID: uuid.New().String(), Position: i, Text: text}
	}

	if err := s.store.Save(ctx, deck); err != nil {
		return nil, fmt.Errorf("save deck: %w", err)
	}
	s.metrics.DeckGenerated(len(deck.Cards))
	logger.Info("Generated deck %q with %d cards", deck.Name, len(deck.Cards))

	return deck, nil
}

// Get implements driving.DeckService.
func (s *DeckService) Get(ctx context.Context, id string) (*domain.Deck, error) {
	return s.store.Get(ctx, id)
}

// List implements driving.DeckService.
func (s *DeckService) List(ctx context.Context, owner string) ([]domain.Deck, error) {
	return s.store.List(ctx, strings.TrimSpace(owner))
}

// Delete implements driving.DeckService.
func (s *DeckService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

type strategiesPromptData struct {
	Discipline       string
	BlockDescription string
	Color            string
	NumCards         int
	Documents        []string
}

func (s *DeckService) generateStrategies(ctx context.Context, req domain.DeckRequest, docs []domain.Document) ([]string, error) {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}

	prompt, err := s.render(driven.PromptDeckStrategies, strategiesPromptData{
		Discipline:       req.Discipline,
		BlockDescription: req.BlockDescription,
		Color:            req.Color,
		NumCards:         req.NumCards,
		Documents:        contents,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: s.cfg.Temperature})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	strategies, err := ParseStrategies(raw)
	if err != nil {
		return nil, err
	}
	strategies = DedupStrategies(strategies)
	if len(strategies) > req.NumCards {
		strategies = strategies[:req.NumCards]
	}
	if len(strategies) < req.NumCards {
		logger.Warn("LLM returned %d distinct strategies, %d requested", len(strategies), req.NumCards)
	}
	return strategies, nil
}

func (s *DeckService) generateName(ctx context.Context, req domain.DeckRequest) string {
	prompt, err := s.render(driven.PromptDeckName, struct {
		Discipline string
		Color      string
	}{req.Discipline, req.Color})
	if err != nil {
		logger.Warn("Deck name prompt: %v", err)
		return s.fallbackName(req.Discipline)
	}

	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   deckNameMaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		logger.Warn("Deck name generation failed, using fallback: %v", err)
		return s.fallbackName(req.Discipline)
	}
	if name := CleanDeckName(raw); name != "" {
		return name
	}
	return s.fallbackName(req.Discipline)
}

func (s *DeckService) fallbackName(discipline string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := fallbackNamePrefixes[s.rng.IntN(len(fallbackNamePrefixes))]
	if s.rng.IntN(2) == 0 {
		return prefix + " " + fallbackNameMiddles[s.rng.IntN(len(fallbackNameMiddles))] + " " + discipline
	}
	return prefix + " " + fallbackNameSuffixes[s.rng.IntN(len(fallbackNameSuffixes))]
}

// uniqueName appends " 2", " 3", ... until the owner has no deck by that name.
func (s *DeckService) uniqueName(ctx context.Context, owner, name string) (string, error) {
	candidate := name
	for n := 2; n <= maxNameSuffix; n++ {
		exists, err := s.store.NameExists(ctx, owner, candidate)
		if err != nil {
			return "", fmt.Errorf("check deck name: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = name + " " + strconv.Itoa(n)
	}
	return "", fmt.Errorf("%w: %q", domain.ErrDuplicateDeck, name)
}

func (s *DeckService) render(name string, data any) (string, error) {
	if s.prompts == nil {
		return "", fmt.Errorf("%w: no prompt store", domain.ErrConfiguration)
	}
	src, err := s.prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: prompt %s: %w", domain.ErrConfiguration, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: prompt %s: %w", domain.ErrConfiguration, name, err)
	}
	return buf.String(), nil
}

// ParseStrategies extracts strategy texts from an LLM response. It accepts
// {"estrategias": [...]}, {"strategies": [...]} or a bare JSON array,
// optionally inside a Markdown code fence, and otherwise treats each
// non-trivial line as a strategy.
func ParseStrategies(raw string) ([]string, error) {
	body := stripCodeFence(raw)

	if list, ok := decodeStrategies(body); ok {
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}

	var out []string
	for line := range strings.Lines(body) {
		if s := cleanStrategyLine(line); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no strategies in response", domain.ErrLLMResponse)
	}
	return out, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeStrategies(body string) ([]string, bool) {
	var obj struct {
		Estrategias []string `json:"estrategias"`
		Strategies  []string `json:"strategies"`
	}
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		if len(obj.Estrategias) > 0 {
			return obj.Estrategias, true
		}
		if len(obj.Strategies) > 0 {
			return obj.Strategies, true
		}
	}
	var list []string
	if err := json.Unmarshal([]byte(body), &list); err == nil {
		return list, true
	}
	return nil, false
}

func cleanStrategyLine(line string) string {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "```") {
		return ""
	}
	switch s {
	case "{", "}", "[", "]", "},", "],":
		return ""
	}
	if strings.HasPrefix(s, `"estrategias"`) || strings.HasPrefix(s, `"strategies"`) {
		return ""
	}

	s = strings.TrimLeft(s, "-*•·")
	s = strings.TrimLeftFunc(s, unicode.IsDigit)
	s = strings.TrimLeft(s, ".)")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	s = strings.Trim(s, "\"'“”«» ")

	if utf8.RuneCountInString(s) < minStrategyLength {
		return ""
	}
	return s
}

// DedupStrategies removes exact repeats and near duplicates, keeping the
// first occurrence of each.
func DedupStrategies(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	lowered := make([]string, 0, len(in))

	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if _, dup := seen[key]; dup {
			continue
		}
		if isNearDuplicate(key, lowered) {
			continue
		}
		seen[key] = struct{}{}
		lowered = append(lowered, key)
		out = append(out, s)
	}
	return out
}

func isNearDuplicate(key string, kept []string) bool {
	for _, k := range kept {
		if edlib.JaroWinklerSimilarity(key, k) >= NearDuplicateThreshold {
			return true
		}
	}
	return false
}

// CleanDeckName normalises an LLM-suggested deck name: first line only,
// quotes and trailing punctuation removed, at most four words.
func CleanDeckName(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'“”«»*` ")
	s = strings.TrimRight(s, ".!")

	words := strings.Fields(s)
	if len(words) > maxDeckNameWords {
		words = words[:maxDeckNameWords]
	}
	return strings.Join(words, " ")
}
