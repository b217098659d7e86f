package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/symrule-go/internal/types"
)

func TestNewEnsemble(t *testing.T) {
	configs := []types.LLMModelConfig{
		{Name: "gpt-4o", Weight: 3.0, APIKey: "k"},
		{Name: "gpt-4o-mini", Weight: 1.0, APIKey: "k"},
	}

	ensemble, err := NewEnsemble(configs)
	require.NoError(t, err)
	require.Len(t, ensemble.clients, 2)
	assert.InDelta(t, 0.75, ensemble.weights[0], 1e-9)
	assert.InDelta(t, 0.25, ensemble.weights[1], 1e-9)
}

func TestNewEnsembleWithZeroWeights(t *testing.T) {
	configs := []types.LLMModelConfig{
		{Name: "a", APIKey: "k"},
		{Name: "b", APIKey: "k"},
	}

	ensemble, err := NewEnsemble(configs)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ensemble.weights[0], 1e-9)
	assert.InDelta(t, 0.5, ensemble.weights[1], 1e-9)
}

func TestNewEnsembleWithNoConfigs(t *testing.T) {
	_, err := NewEnsemble(nil)
	assert.Error(t, err)
}

func TestEnsembleSelectClient(t *testing.T) {
	configs := []types.LLMModelConfig{
		{Name: "only", Weight: 1.0, APIKey: "k", RandomSeed: 7},
	}

	ensemble, err := NewEnsemble(configs)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		client, err := ensemble.selectClient()
		require.NoError(t, err)
		assert.NotNil(t, client)
	}
}

func TestEnsembleStats(t *testing.T) {
	ensemble, err := NewEnsemble([]types.LLMModelConfig{
		{Name: "a", Weight: 2.0, APIKey: "k"},
	})
	require.NoError(t, err)

	stats := ensemble.Stats()
	assert.Equal(t, 1, stats["num_clients"])
	assert.Equal(t, 2.0, stats["total_weight"])
}

// fakeGenClient lets ensemble-level plumbing be exercised without HTTP.
type fakeGenClient struct{ calls int }

func (f *fakeGenClient) Generate(ctx context.Context, prompt string) (*types.LLMResponse, error) {
	f.calls++
	return &types.LLMResponse{Content: "ok", Model: "fake"}, nil
}

func (f *fakeGenClient) GenerateWithSystemMessage(ctx context.Context, systemMessage string, messages []types.LLMMessage) (*types.LLMResponse, error) {
	f.calls++
	return &types.LLMResponse{Content: "ok", Model: "fake"}, nil
}

func TestEnsembleGenerateAddsMetadata(t *testing.T) {
	ensemble, err := NewEnsemble([]types.LLMModelConfig{{Name: "a", Weight: 1.0, APIKey: "k"}})
	require.NoError(t, err)

	fake := &fakeGenClient{}
	ensemble.clients[0] = fake

	resp, err := ensemble.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ensemble[fake]", resp.Model)
	assert.Equal(t, 1, fake.calls)

	resp, err = ensemble.GenerateWithSystemMessage(context.Background(), "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, "ensemble[fake]", resp.Model)
}
