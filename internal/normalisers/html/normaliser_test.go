package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".html", ".htm", ".xhtml"}, New().Extensions())
}

func TestNormalise(t *testing.T) {
	page := `<html><head><title>Notas &amp; ideas</title></head>
<body><h1>Estrategias</h1><p>Trabaja a otra velocidad.</p></body></html>`

	result, err := New().Normalise("page.html", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Notas & ideas", result.Title)
	assert.Equal(t, "Estrategias\nTrabaja a otra velocidad.", result.Content)
	assert.Equal(t, Format, result.Format)
}

func TestNormalise_NoTitle(t *testing.T) {
	result, err := New().Normalise("page.html", []byte("<p>Body only</p>"))
	require.NoError(t, err)

	assert.Empty(t, result.Title)
	assert.Equal(t, "Body only", result.Content)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple paragraph", "<p>Honour the error</p>", "Honour the error"},
		{"nested tags", "<div><p><strong>Bold</strong> move</p></div>", "Bold move"},
		{"script removed", "<p>Before</p><script>alert('x');</script><p>After</p>", "Before\nAfter"},
		{"style removed", "<style>.foo { color: red; }</style><p>Content</p>", "Content"},
		{"noscript removed", "<p>Content</p><noscript>fallback</noscript>", "Content"},
		{"head removed", "<head><meta charset='utf-8'><title>T</title></head><body>Content</body>", "Content"},
		{"svg removed", `<p>Before</p><svg width="100"><circle cx="50"/></svg><p>After</p>`, "Before\nAfter"},
		{"comments removed", "<p>Before</p><!-- note --><p>After</p>", "Before\nAfter"},
		{"br to newline", "Line 1<br>Line 2<br/>Line 3", "Line 1\nLine 2\nLine 3"},
		{"list items", "<ul><li>Uno</li><li>Dos</li></ul>", "Uno\nDos"},
		{"headings", "<h1>Title</h1><h2>Subtitle</h2><p>Content</p>", "Title\nSubtitle\nContent"},
		{"entities decoded", "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>", "<tag> & \"quotes\""},
		{"link text kept", `<a href="https://example.com">Click here</a>`, "Click here"},
		{"images removed", `<p>See <img src="image.png" alt="Image"> here</p>`, "See here"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripHTML(tc.input))
		})
	}
}
