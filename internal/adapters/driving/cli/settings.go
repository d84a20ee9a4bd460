package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, retrieval counts, the knowledge base
location and deck limits.

Settings are stored in $KAIROSCOPE_HOME/config.toml. API keys left empty are
read from the provider's environment variables.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting by its key, for example:

  kairoscope settings set retrieval.k_divergence 20
  kairoscope settings set llm.temperature 0.7

Run 'kairoscope settings keys' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively configure the embedding provider used to index and query the knowledge base.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Interactively configure the LLM provider used to write strategies and name decks.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	printEndpoint(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Cache: %s\n", onOff(settings.Embedding.CacheEnabled))
	cmd.Printf("  Concurrency: %d (%.0f requests/s)\n", settings.Embedding.Concurrency, settings.Embedding.RequestsPerSecond)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	printEndpoint(cmd, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Similarity: %d\n", settings.Retrieval.KSimilarity)
	cmd.Printf("  Divergence: %d\n", settings.Retrieval.KDivergence)
	cmd.Printf("  Random: %d\n", settings.Retrieval.KRandom)
	cmd.Println()

	cmd.Println("[Knowledge Base]")
	cmd.Printf("  Path: %s\n", settings.KnowledgeBase.Path)
	if settings.KnowledgeBase.IndexPath != "" {
		cmd.Printf("  Index: %s\n", settings.KnowledgeBase.IndexPath)
	}
	cmd.Printf("  Chunks: %d chars, %d overlap, %d minimum\n",
		settings.KnowledgeBase.ChunkSize, settings.KnowledgeBase.ChunkOverlap, settings.KnowledgeBase.MinChunkLength)
	cmd.Println()

	cmd.Println("[Decks]")
	cmd.Printf("  Cards per deck: %d\n", settings.Deck.CardsPerDeck)
	cmd.Printf("  Max decks per owner: %d\n", settings.Deck.MaxDecksPerOwner)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'kairoscope settings embedding' or 'kairoscope settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printEndpoint(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if provider.IsLocal() || baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	value, ok := settingValues(settings)[args[0]]
	if !ok {
		return fmt.Errorf("unknown setting %q", args[0])
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if strings.HasSuffix(key, ".api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

// settingValues renders settings by config key. API keys are masked.
func settingValues(s *domain.AppSettings) map[string]string {
	maskIfSet := func(key string) string {
		if key == "" {
			return ""
		}
		return maskAPIKey(key)
	}
	return map[string]string{
		"embedding.provider":              s.Embedding.Provider.String(),
		"embedding.model":                 s.Embedding.Model,
		"embedding.base_url":              s.Embedding.BaseURL,
		"embedding.api_key":               maskIfSet(s.Embedding.APIKey),
		"embedding.cache":                 strconv.FormatBool(s.Embedding.CacheEnabled),
		"embedding.concurrency":           strconv.Itoa(s.Embedding.Concurrency),
		"embedding.requests_per_second":   strconv.FormatFloat(s.Embedding.RequestsPerSecond, 'g', -1, 64),
		"llm.provider":                    s.LLM.Provider.String(),
		"llm.model":                       s.LLM.Model,
		"llm.base_url":                    s.LLM.BaseURL,
		"llm.api_key":                     maskIfSet(s.LLM.APIKey),
		"llm.temperature":                 strconv.FormatFloat(s.LLM.Temperature, 'g', -1, 64),
		"retrieval.k_similarity":          strconv.Itoa(s.Retrieval.KSimilarity),
		"retrieval.k_divergence":          strconv.Itoa(s.Retrieval.KDivergence),
		"retrieval.k_random":              strconv.Itoa(s.Retrieval.KRandom),
		"knowledge_base.path":             s.KnowledgeBase.Path,
		"knowledge_base.index_path":       s.KnowledgeBase.IndexPath,
		"knowledge_base.chunk_size":       strconv.Itoa(s.KnowledgeBase.ChunkSize),
		"knowledge_base.chunk_overlap":    strconv.Itoa(s.KnowledgeBase.ChunkOverlap),
		"knowledge_base.min_chunk_length": strconv.Itoa(s.KnowledgeBase.MinChunkLength),
		"deck.cards_per_deck":             strconv.Itoa(s.Deck.CardsPerDeck),
		"deck.max_decks_per_owner":        strconv.Itoa(s.Deck.MaxDecksPerOwner),
	}
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, newStdinReader(cmd), embeddingProviderSetup)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, newStdinReader(cmd), llmProviderSetup)
}

// providerSetup describes one interactive provider configuration flow.
type providerSetup struct {
	label     string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	set       func(provider domain.AIProvider, model, apiKey string) error
	validate  func() error
}

func embeddingProviderSetup() providerSetup {
	return providerSetup{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
}

func llmProviderSetup() providerSetup {
	return providerSetup{
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		set:       settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, setup func() providerSetup) error {
	s := setup()

	cmd.Printf("Select %s Provider\n", s.label)
	for i, p := range s.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(s.providers), 1)
	selected := s.providers[idx-1]

	defaultModel := s.models[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		envVars := selected.APIKeyEnvVars()
		fromEnv := slices.ContainsFunc(envVars, func(v string) bool { return os.Getenv(v) != "" })
		if fromEnv {
			cmd.Printf("Enter API key (blank to use $%s): ", strings.Join(envVars, " or $"))
		} else {
			cmd.Print("Enter API key: ")
		}
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" && !fromEnv {
			return errors.New("API key is required for this provider")
		}
	}

	if err := s.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", s.label, err)
	}

	cmd.Print("Validating configuration... ")
	if err := s.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", s.label, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", s.label, selected.Description(), model)
	return nil
}

// Helper functions.

func newStdinReader(cmd *cobra.Command) *bufio.Reader {
	return bufio.NewReader(cmd.InOrStdin())
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal, falling
// back to reader otherwise.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
