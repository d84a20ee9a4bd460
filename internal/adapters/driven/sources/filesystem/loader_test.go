package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/normalisers"
	"github.com/custodia-labs/kairoscope/internal/normalisers/markdown"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fixedLoader(root string) *Loader {
	l := New(root)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestLoader_ImplementsInterface(t *testing.T) {
	var _ driven.SourceLoader = New("/tmp")
}

func TestLoader_Structured(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "structured/cards.jsonl",
		`{"text":"Abandon the plan.","author":"eno","etiquetas":["plan"]}`+"\n"+
			"\n"+
			`{"text":"  Invert the order.  "}`+"\n"+
			`{"text":"   "}`+"\n"+
			`{"author":"nobody"}`+"\n"+
			`{not json`+"\n"+
			`["an","array"]`+"\n"+
			`{"text":"Silence."}`+"\n")

	set, err := fixedLoader(root).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, set.Structured, 3)
	assert.Empty(t, set.Unstructured)

	first := set.Structured[0]
	assert.Equal(t, "Abandon the plan.", first.Content)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "eno", first.Metadata["author"])
	assert.NotContains(t, first.Metadata, "text")
	assert.Equal(t, domain.SourceTypeStructured, first.SourceType())
	assert.Equal(t, "cards.jsonl", first.Metadata[domain.MetaSourceFile])
	assert.Equal(t, 1, first.Metadata[domain.MetaLineNumber])
	assert.Equal(t, 17, first.Metadata[domain.MetaCharLength])
	assert.Equal(t, "2026-03-01T12:00:00Z", first.Metadata[domain.MetaProcessingDate])
	assert.Equal(t, []string{"plan"}, first.Tags())

	assert.Equal(t, "Invert the order.", set.Structured[1].Content)
	assert.Equal(t, 3, set.Structured[1].Metadata[domain.MetaLineNumber], "blank lines still count")
	assert.Equal(t, 8, set.Structured[2].Metadata[domain.MetaLineNumber])

	require.Len(t, set.Skipped, 4)
	assert.Equal(t, domain.SkipRecord{File: "cards.jsonl", Line: 4, Reason: domain.SkipReasonEmptyText, Detail: errEmptyText.Error()}, set.Skipped[0])
	assert.Equal(t, domain.SkipReasonEmptyText, set.Skipped[1].Reason)
	assert.Equal(t, 5, set.Skipped[1].Line)
	assert.Equal(t, domain.SkipReasonParseError, set.Skipped[2].Reason)
	assert.Equal(t, 6, set.Skipped[2].Line)
	assert.Equal(t, domain.SkipReasonParseError, set.Skipped[3].Reason)
}

func TestParseRecord_WrapsSourceParse(t *testing.T) {
	_, err := parseRecord("{oops")
	assert.ErrorIs(t, err, domain.ErrSourceParse)

	_, err = parseRecord("null")
	assert.ErrorIs(t, err, domain.ErrSourceParse)

	_, err = parseRecord(`{"text":42}`)
	assert.ErrorIs(t, err, errEmptyText)
}

func TestLoader_Unstructured(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "unstructured/b_essay.txt", "\n  Segundo ensayo sobre la creación.  \n")
	writeFile(t, root, "unstructured/a_notes.txt", "Notas con ñ y acentos: canción.")
	writeFile(t, root, "unstructured/empty.txt", "   \n\n")
	writeFile(t, root, "unstructured/ignored.pdf", "not a text source")
	writeFile(t, root, "unstructured/.hidden.txt", "hidden file content")

	set, err := fixedLoader(root).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, set.Unstructured, 2)
	assert.Equal(t, "Notas con ñ y acentos: canción.", set.Unstructured[0].Content, "files are read in name order")
	assert.Equal(t, "a_notes.txt", set.Unstructured[0].Metadata[domain.MetaSourceFile])
	assert.Equal(t, 31, set.Unstructured[0].Metadata[domain.MetaOriginalLength], "length counts runes")
	assert.Equal(t, domain.SourceTypeUnstructured, set.Unstructured[0].SourceType())
	assert.Equal(t, "text", set.Unstructured[0].Metadata[domain.MetaFormat])
	assert.NotContains(t, set.Unstructured[0].Metadata, domain.MetaTitle)
	assert.Equal(t, "Segundo ensayo sobre la creación.", set.Unstructured[1].Content)

	require.Len(t, set.Skipped, 1)
	assert.Equal(t, domain.SkipRecord{File: "empty.txt", Reason: domain.SkipReasonEmptyText}, set.Skipped[0])
}

func TestLoader_UnstructuredFormats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "unstructured/essay.md", "# Azar\n\nUsa **el error** como [guía](https://example.com).")
	writeFile(t, root, "unstructured/page.html", "<html><head><title>Página</title></head><body><p>Cambia de escala.</p></body></html>")

	set, err := fixedLoader(root).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Unstructured, 2)

	md := set.Unstructured[0]
	assert.Equal(t, "Azar\n\nUsa el error como guía.", md.Content)
	assert.Equal(t, "markdown", md.Metadata[domain.MetaFormat])
	assert.Equal(t, "Azar", md.Metadata[domain.MetaTitle])

	page := set.Unstructured[1]
	assert.Equal(t, "Cambia de escala.", page.Content)
	assert.Equal(t, "html", page.Metadata[domain.MetaFormat])
	assert.Equal(t, "Página", page.Metadata[domain.MetaTitle])
}

func TestLoader_WithNormalisers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "unstructured/notes.txt", "plain notes")
	writeFile(t, root, "unstructured/essay.md", "# Only markdown")

	r := normalisers.NewRegistry()
	r.Register(markdown.New())

	set, err := New(root, WithNormalisers(r)).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, set.Unstructured, 1)
	assert.Equal(t, "essay.md", set.Unstructured[0].Metadata[domain.MetaSourceFile])
}

func TestLoader_InvalidUTF8(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "unstructured/bad.txt", string([]byte{0xff, 0xfe, 0x00}))

	set, err := New(root).Load(context.Background())
	require.NoError(t, err)

	assert.Empty(t, set.Unstructured)
	require.Len(t, set.Skipped, 1)
	assert.Equal(t, domain.SkipReasonParseError, set.Skipped[0].Reason)
}

func TestLoader_MissingDirectories(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		set, err := New(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
		require.NoError(t, err)
		assert.True(t, set.IsEmpty())
	})

	t.Run("only structured", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "structured/a.jsonl", `{"text":"Silence."}`)

		set, err := New(root).Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, set.Structured, 1)
		assert.Empty(t, set.Unstructured)
		assert.False(t, set.IsEmpty())
	})

	t.Run("root is a file", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "kb")
		require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

		_, err := New(root).Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestLoader_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "structured/a.jsonl", `{"text":"Silence."}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(root).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_Root(t *testing.T) {
	assert.Equal(t, "/kb", New("/kb").Root())
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/kb/structured/cards.jsonl", true},
		{"/kb/structured/CARDS.JSONL", true},
		{"/kb/unstructured/essay.txt", true},
		{"/kb/unstructured/essay.md", true},
		{"/kb/unstructured/page.HTML", true},
		{"/kb/unstructured/scan.pdf", false},
		{"/kb/structured/essay.txt", false},
		{"/kb/unstructured/cards.jsonl", false},
		{"/kb/unstructured/.essay.txt", false},
		{"/kb/other/essay.txt", false},
		{"/kb/unstructured/essay.txt.swp", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSourceFile(tt.path))
		})
	}
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".hidden"))
	assert.True(t, isHidden("/a/.b/c"))
	assert.False(t, isHidden("visible.txt"))
	assert.False(t, isHidden("../up/file.txt"))
	assert.False(t, isHidden("./file.txt"))
}
