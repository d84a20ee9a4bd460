package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExploreCmd_HelpOutput(t *testing.T) {
	out, err := runCmd(t, "", "explore", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "interactive terminal explorer")
	assert.Contains(t, out, "Controls:")
}

func TestExplorePorts(t *testing.T) {
	retrieverMock := &MockRetriever{}
	decksMock := &MockDeckService{}
	withServices(t, Services{Retriever: retrieverMock, Decks: decksMock})

	ports := explorePorts()

	assert.Equal(t, retrieverMock, ports.Retriever)
	assert.Equal(t, decksMock, ports.Decks)
	assert.Equal(t, defaults, ports.Defaults)
	require.NoError(t, ports.Validate())
}

func TestExplore_RequiresRetriever(t *testing.T) {
	withServices(t, Services{})

	_, err := runCmd(t, "", "explore")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create explorer")
}
