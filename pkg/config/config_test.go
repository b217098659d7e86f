package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
data:
  labels: [cat, dog, person]
  train_test_ratio: 0.2
gp:
  population_size: 100
  num_generations: 200
`

func TestNewManagerCarriesDefaults(t *testing.T) {
	m := NewManager()
	cfg := m.GetConfig()

	assert.Equal(t, constants.DefaultPopulationSize, cfg.GP.PopulationSize)
	assert.Equal(t, constants.DefaultMaxTreeHeight, cfg.GP.MaxTreeHeight)
	assert.Equal(t, constants.DefaultInteractionInterval, cfg.Advisor.InteractionInterval)
	assert.Equal(t, constants.DefaultQueueCapacity, cfg.Advisor.QueueCapacity)
	assert.Equal(t, constants.DefaultOpenAIBase, cfg.LLM.APIBase)
	assert.False(t, cfg.Advisor.Enabled)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	m := NewManager()
	path := writeConfig(t, validConfig)

	require.NoError(t, m.Load(path))
	cfg := m.GetConfig()

	assert.Equal(t, 100, cfg.GP.PopulationSize)
	assert.Equal(t, 200, cfg.GP.NumGenerations)
	assert.Equal(t, []string{"cat", "dog", "person"}, cfg.Data.Labels)
	// Untouched fields keep their defaults.
	assert.Equal(t, constants.DefaultMaxTreeHeight, cfg.GP.MaxTreeHeight)
	assert.Equal(t, constants.DefaultCrossoverProb, cfg.GP.CrossoverProb)
	assert.Equal(t, path, m.GetPath())
}

func TestLoadMissingFile(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.Load(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoadMalformedYAML(t *testing.T) {
	m := NewManager()
	path := writeConfig(t, "data: [unclosed")
	assert.Error(t, m.Load(path))
}

func TestValidationFailures(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"no labels", "data:\n  train_test_ratio: 0.2\n"},
		{"duplicate labels", "data:\n  labels: [cat, Cat]\n  train_test_ratio: 0.2\n"},
		{"bad ratio", "data:\n  labels: [cat]\n  train_test_ratio: 1.5\n"},
		{"bad population", validConfig + "  select_tour_size: -1\n"},
		{"bad crossover", validConfig + "  crossover_prob: 1.5\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager()
			err := m.Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Equal(t, errors.ConfigInvalid, errors.CodeOf(err))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SR_API_KEY", "secret-key")
	t.Setenv("OPENAI_API_BASE", "https://proxy.example.com/v1")
	t.Setenv("POPULATION_SIZE", "42")
	t.Setenv("ADVISOR_ENABLED", "false")

	m := NewManager()
	require.NoError(t, m.Load(writeConfig(t, validConfig)))
	cfg := m.GetConfig()

	assert.Equal(t, "secret-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.LLM.APIBase)
	assert.Equal(t, 42, cfg.GP.PopulationSize)
	assert.False(t, cfg.Advisor.Enabled)
}

func TestSRKeyTakesPrecedence(t *testing.T) {
	t.Setenv("SR_API_KEY", "primary")
	t.Setenv("OPENAI_API_KEY", "fallback")

	m := NewManager()
	require.NoError(t, m.Load(writeConfig(t, validConfig)))
	assert.Equal(t, "primary", m.GetConfig().LLM.APIKey)
}

func TestAdvisorValidationOnlyWhenEnabled(t *testing.T) {
	content := validConfig + `
advisor:
  enabled: true
  interaction_interval: 0
`
	m := NewManager()
	err := m.Load(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interaction interval")
}

func TestSaveRoundtrip(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(writeConfig(t, validConfig)))

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, m.Save(out))

	reloaded := NewManager()
	require.NoError(t, reloaded.Load(out))
	assert.Equal(t, m.GetConfig().GP.PopulationSize, reloaded.GetConfig().GP.PopulationSize)
	assert.Equal(t, m.GetConfig().Data.Labels, reloaded.GetConfig().Data.Labels)
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, CreateDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "population_size")
}
