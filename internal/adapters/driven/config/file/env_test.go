package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("KAIROSCOPE_TEST_KEY=from-file\nKAIROSCOPE_TEST_SET=from-file\n"), 0600))

	t.Setenv("KAIROSCOPE_TEST_SET", "from-env")
	t.Setenv("KAIROSCOPE_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("KAIROSCOPE_TEST_KEY"))

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)

	assert.Equal(t, []string{path}, loaded)
	assert.Equal(t, "from-file", os.Getenv("KAIROSCOPE_TEST_KEY"))
	assert.Equal(t, "from-env", os.Getenv("KAIROSCOPE_TEST_SET"), "existing variables win")
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KAIROSCOPE_TEST_BAD='unterminated\n"), 0600))

	_, err := LoadDotEnv(path)
	assert.Error(t, err)
}
