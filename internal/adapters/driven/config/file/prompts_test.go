package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kairoscope", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptDeckStrategies)
	require.NoError(t, err)

	for _, f := range []string{"deck_strategies.tmpl", "deck_name.tmpl", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_DefaultsAreValidTemplates(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}

	strategies, err := store.Load(driven.PromptDeckStrategies)
	require.NoError(t, err)
	tmpl, err := template.New("s").Funcs(funcs).Parse(strategies)
	require.NoError(t, err)

	var out strings.Builder
	err = tmpl.Execute(&out, map[string]any{
		"Discipline":       "danza",
		"BlockDescription": "todo se repite",
		"Color":            "#112233",
		"NumCards":         5,
		"Documents":        []string{"Usa el suelo.", "Cambia de ritmo."},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1. Usa el suelo.")
	assert.Contains(t, out.String(), "2. Cambia de ritmo.")
	assert.Contains(t, out.String(), `{"estrategias"`)
	assert.Contains(t, out.String(), "Genera exactamente 5 estrategias")

	name, err := store.Load(driven.PromptDeckName)
	require.NoError(t, err)
	tmpl, err = template.New("n").Parse(name)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, tmpl.Execute(&out, map[string]any{"Discipline": "danza", "Color": "#112233"}))
	assert.Contains(t, out.String(), "máximo 4 palabras")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()

	customContent := "Nombre para {{.Discipline}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck_name.tmpl"), []byte(customContent), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptDeckName)

	require.NoError(t, err)
	assert.Equal(t, customContent, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptDeckName) // Trigger init
	require.NoError(t, os.Remove(filepath.Join(dir, "deck_name.tmpl")))
	store.Reload()

	prompt, err := store.Load(driven.PromptDeckName)

	require.NoError(t, err)
	assert.Contains(t, prompt, "máximo 4 palabras")
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptDeckName)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck_name.tmpl"), []byte("modified"), 0600))

	cached, err := store.Load(driven.PromptDeckName)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptDeckName)
	require.NoError(t, err)
	assert.Equal(t, "modified", fresh)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Load(driven.PromptDeckStrategies)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	customContent := "pre-existing custom prompt"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck_strategies.tmpl"), []byte(customContent), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, _ = store.Load(driven.PromptDeckName)

	data, err := os.ReadFile(filepath.Join(dir, "deck_strategies.tmpl"))
	require.NoError(t, err)
	assert.Equal(t, customContent, string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck_name.tmpl"), []byte("\n\n  prompt content  \n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptDeckName)
	require.NoError(t, err)
	assert.Equal(t, "prompt content", prompt)
}
