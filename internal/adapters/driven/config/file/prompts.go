package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

const promptExt = ".tmpl"

// PromptStore loads deck generation prompts from user-editable files on disk.
// Prompts are text/template sources loaded from a configurable directory with
// fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptDeckStrategies: `Eres un generador de estrategias oblicuas, diseñadas para romper bloqueos creativos mediante el pensamiento lateral y las ideas tangenciales, no soluciones directas. Te inspiras en el estilo de Brian Eno y Peter Schmidt.

Contexto creativo:
- Disciplina: {{.Discipline}}
- Descripción del bloqueo: {{.BlockDescription}}
- Color del bloqueo: {{.Color}}

Información de referencia para inspiración (NO COPIES NUNCA DIRECTAMENTE):
{{range $i, $doc := .Documents}}{{inc $i}}. {{$doc}}
{{end}}
ESTRUCTURA OBLIGATORIA:
- De 1 a 15 palabras por estrategia, con longitudes variadas
- Sin explicaciones adicionales
- Una acción clara e inmediata

Varía la función (destructiva, transformativa, perceptual, limitante, liberadora), la sintaxis (comando, pregunta, paradoja, metáfora, opciones, un solo sustantivo) y el tono.
Casi todas deben servir a cualquier disciplina: no menciones "{{.Discipline}}" directamente.
No repitas conceptos ni copies ejemplos de este mensaje.

Devuelve tu respuesta como un objeto JSON válido con esta estructura exacta:
{"estrategias": ["primera estrategia", "segunda estrategia", ...]}

Genera exactamente {{.NumCards}} estrategias en el array.`,

	driven.PromptDeckName: `Genera un nombre corto en español (máximo 4 palabras) evocativo para una baraja de estrategias creativas oblicuas inspirada por:
- Disciplina: {{.Discipline}}
- Color: {{.Color}}
No puedes nombrar directamente la disciplina (ni sinónimos) ni el color.

Solo responde con el nombre, nada más. No incluyas explicaciones ni comillas.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.kairoscope/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".kairoscope", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+promptExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+promptExt)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Kairoscope Prompts

Deck generation prompts. Edit a file to change what the LLM is asked; the
next deck generated picks up the change.

## Files

- ` + "`deck_strategies.tmpl`" + ` - asks for the strategies as {"estrategias": [...]}
- ` + "`deck_name.tmpl`" + ` - asks for a deck name of at most four words

## Template fields

Prompts are Go text/template sources.

deck_strategies: {{.Discipline}}, {{.BlockDescription}}, {{.Color}},
{{.NumCards}} and {{.Documents}} (retrieved inspiration, a list of strings;
{{inc $i}} gives a 1-based number inside range).

deck_name: {{.Discipline}}, {{.Color}}.

Delete a file to restore its default.
`
	return os.WriteFile(path, []byte(content), 0600)
}
