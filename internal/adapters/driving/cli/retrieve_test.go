package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

func retrievedDocs() []domain.Document {
	return []domain.Document{
		{
			ID:      "s-1",
			Content: "Haz\nlo   contrario",
			Metadata: map[string]any{
				domain.MetaSourceFile: "estrategias.jsonl",
				domain.MetaTags:       "inversion, juego",
			},
		},
		{
			ID:       "u-1",
			Content:  "Un párrafo sobre el aburrimiento",
			Metadata: map[string]any{domain.MetaSourceType: domain.SourceTypeUnstructured},
		},
	}
}

func TestRetrieve_MixedUsesDefaults(t *testing.T) {
	var got domain.RetrievalQuery
	withServices(t, Services{Retriever: &MockRetriever{
		MixedRetrieveFunc: func(_ context.Context, q domain.RetrievalQuery) ([]domain.Document, error) {
			got = q
			return retrievedDocs(), nil
		},
	}})

	out, err := runCmd(t, "", "retrieve", "  me siento atascado ")

	require.NoError(t, err)
	assert.Equal(t, "me siento atascado", got.Text)
	assert.Equal(t, 10, got.KSimilarity)
	assert.Equal(t, 15, got.KDivergence)
	assert.Equal(t, 10, got.KRandom)
	assert.Empty(t, got.Tags)
	assert.Contains(t, out, "[1] Haz lo contrario")
	assert.Contains(t, out, "estrategias.jsonl  #inversion #juego")
	assert.Contains(t, out, "      unstructured")
	assert.Contains(t, out, "2 documents")
}

func TestRetrieve_FlagsOverrideDefaults(t *testing.T) {
	var got domain.RetrievalQuery
	withServices(t, Services{Retriever: &MockRetriever{
		MixedRetrieveFunc: func(_ context.Context, q domain.RetrievalQuery) ([]domain.Document, error) {
			got = q
			return nil, nil
		},
	}})

	out, err := runCmd(t, "", "retrieve", "q", "--k-sim", "3", "--k-random", "0", "--tag", "juego,azar")

	require.NoError(t, err)
	assert.Equal(t, 3, got.KSimilarity)
	assert.Equal(t, 15, got.KDivergence)
	assert.Equal(t, 0, got.KRandom)
	assert.Equal(t, []string{"juego", "azar"}, got.Tags)
	assert.Contains(t, out, "No documents found.")
}

func TestRetrieve_FlagsDoNotLeakBetweenRuns(t *testing.T) {
	var got domain.RetrievalQuery
	withServices(t, Services{Retriever: &MockRetriever{
		MixedRetrieveFunc: func(_ context.Context, q domain.RetrievalQuery) ([]domain.Document, error) {
			got = q
			return nil, nil
		},
	}})

	_, err := runCmd(t, "", "retrieve", "q", "--k-div", "1")
	require.NoError(t, err)
	_, err = runCmd(t, "", "retrieve", "q")
	require.NoError(t, err)

	assert.Equal(t, 15, got.KDivergence)
}

func TestRetrieve_SingleStrategy(t *testing.T) {
	var kind domain.StrategyKind
	withServices(t, Services{Retriever: &MockRetriever{
		RetrieveFunc: func(_ context.Context, k domain.StrategyKind, _ domain.RetrievalQuery) ([]domain.Document, error) {
			kind = k
			return retrievedDocs()[:1], nil
		},
	}})

	_, err := runCmd(t, "", "retrieve", "q", "--strategy", "divergence")

	require.NoError(t, err)
	assert.Equal(t, domain.StrategyDivergence, kind)
}

func TestRetrieve_UnknownStrategy(t *testing.T) {
	withServices(t, Services{Retriever: &MockRetriever{}})

	_, err := runCmd(t, "", "retrieve", "q", "--strategy", "serendipity")

	assert.EqualError(t, err, `unknown strategy "serendipity"`)
}

func TestRetrieve_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantWrap  bool
		wantIsErr error
	}{
		{"invalid request passes through", domain.ErrInvalidRequest, false, domain.ErrInvalidRequest},
		{"other errors are wrapped", domain.ErrEmbeddingUnavailable, true, domain.ErrEmbeddingUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withServices(t, Services{Retriever: &MockRetriever{
				MixedRetrieveFunc: func(context.Context, domain.RetrievalQuery) ([]domain.Document, error) {
					return nil, tt.err
				},
			}})

			_, err := runCmd(t, "", "retrieve", "q")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIsErr)
			assert.Equal(t, tt.wantWrap, strings.HasPrefix(err.Error(), "retrieval failed"))
		})
	}
}

func TestRetrieve_JSON(t *testing.T) {
	withServices(t, Services{Retriever: &MockRetriever{
		MixedRetrieveFunc: func(context.Context, domain.RetrievalQuery) ([]domain.Document, error) {
			return retrievedDocs(), nil
		},
	}})

	out, err := runCmd(t, "", "retrieve", "q", "--json")
	require.NoError(t, err)

	var got []documentJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "s-1", got[0].ID)
	assert.Equal(t, "estrategias.jsonl", got[0].Metadata[domain.MetaSourceFile])
}

func TestRetrieve_RequiresQuery(t *testing.T) {
	withServices(t, Services{Retriever: &MockRetriever{}})

	_, err := runCmd(t, "", "retrieve")

	assert.Error(t, err)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine(" a\n b\t c ", 10))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
	assert.Equal(t, "ñññ", oneLine("ñññ", 3))
}
