package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

// Manager handles configuration loading and validation
type Manager struct {
	config *types.Config
	path   string
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: getDefaultConfig(),
	}
}

// Load loads configuration from a file
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := getDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	if err := m.applyEnvOverrides(config); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Validate configuration
	if err := m.validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	m.path = path
	return nil
}

// Save saves configuration to a file
func (m *Manager) Save(path string) error {
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *types.Config {
	return m.config
}

// SetConfig updates the configuration
func (m *Manager) SetConfig(config *types.Config) {
	m.config = config
}

// GetPath returns the configuration file path
func (m *Manager) GetPath() string {
	return m.path
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (m *Manager) applyEnvOverrides(config *types.Config) error {
	// LLM configuration overrides
	if apiBase := os.Getenv("OPENAI_API_BASE"); apiBase != "" {
		config.LLM.APIBase = apiBase
	}
	if apiKey := os.Getenv("SR_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = apiKey
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		if len(config.LLM.Models) == 0 {
			config.LLM.Models = append(config.LLM.Models, types.LLMModelConfig{
				Name:   model,
				Weight: 1.0,
			})
		} else {
			config.LLM.Models[0].Name = model
		}
	}

	// Search configuration overrides
	if popSize := os.Getenv("POPULATION_SIZE"); popSize != "" {
		var n int
		if _, err := fmt.Sscanf(popSize, "%d", &n); err == nil {
			config.GP.PopulationSize = n
		}
	}
	if numGen := os.Getenv("NUM_GENERATIONS"); numGen != "" {
		var n int
		if _, err := fmt.Sscanf(numGen, "%d", &n); err == nil {
			config.GP.NumGenerations = n
		}
	}
	if seed := os.Getenv("SEED"); seed != "" {
		var n int64
		if _, err := fmt.Sscanf(seed, "%d", &n); err == nil {
			config.GP.Seed = n
		}
	}
	if checkpointDir := os.Getenv("CHECKPOINT_DIR"); checkpointDir != "" {
		config.GP.CheckpointDir = checkpointDir
	}

	// Advisor configuration overrides
	if enabled := os.Getenv("ADVISOR_ENABLED"); enabled != "" {
		config.Advisor.Enabled = strings.ToLower(enabled) == "true"
	}

	return nil
}

// validate validates the configuration
func (m *Manager) validate(config *types.Config) error {
	// Validate data configuration
	if len(config.Data.Labels) == 0 {
		return errors.New(errors.ConfigInvalid, "at least one label is required")
	}
	seen := make(map[string]struct{}, len(config.Data.Labels))
	for _, label := range config.Data.Labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			return errors.New(errors.ConfigInvalid, "labels must be non-empty")
		}
		if _, dup := seen[key]; dup {
			return errors.Newf(errors.ConfigInvalid, "duplicate label: %s", label)
		}
		seen[key] = struct{}{}
	}
	if config.Data.TrainTestRatio <= 0 || config.Data.TrainTestRatio >= 1 {
		return errors.New(errors.ConfigInvalid, "train/test ratio must be in (0, 1)")
	}

	// Validate search configuration
	if config.GP.PopulationSize <= 0 {
		return errors.New(errors.ConfigInvalid, "population size must be positive")
	}
	if config.GP.MaxTreeHeight <= 0 {
		return errors.New(errors.ConfigInvalid, "max tree height must be positive")
	}
	if config.GP.SelectTourSize <= 0 {
		return errors.New(errors.ConfigInvalid, "tournament size must be positive")
	}
	if config.GP.CrossoverProb < 0 || config.GP.CrossoverProb > 1 {
		return errors.New(errors.ConfigInvalid, "crossover probability must be in [0, 1]")
	}
	if config.GP.MutationProb < 0 || config.GP.MutationProb > 1 {
		return errors.New(errors.ConfigInvalid, "mutation probability must be in [0, 1]")
	}
	if config.GP.GenerationStep <= 0 {
		return errors.New(errors.ConfigInvalid, "generation step must be positive")
	}
	if config.GP.NumGenerations <= 0 {
		return errors.New(errors.ConfigInvalid, "number of generations must be positive")
	}
	if config.GP.EphemeralMax < config.GP.EphemeralMin {
		return errors.New(errors.ConfigInvalid, "ephemeral constant range is inverted")
	}

	// Validate advisor configuration
	if config.Advisor.Enabled {
		if config.Advisor.InteractionInterval <= 0 {
			return errors.New(errors.ConfigInvalid, "interaction interval must be positive")
		}
		if config.Advisor.MaxRetries <= 0 {
			return errors.New(errors.ConfigInvalid, "max retries must be positive")
		}
		if config.Advisor.QueueCapacity <= 0 {
			return errors.New(errors.ConfigInvalid, "queue capacity must be positive")
		}

		if config.LLM.APIBase == "" {
			return errors.New(errors.ConfigInvalid, "LLM API base is required")
		}
		if len(config.LLM.Models) == 0 && config.LLM.APIKey == "" {
			return errors.New(errors.ConfigInvalid, "at least one LLM model or API key is required")
		}
		var totalWeight float64
		for _, model := range config.LLM.Models {
			totalWeight += model.Weight
		}
		if len(config.LLM.Models) > 0 && totalWeight <= 0 {
			return errors.New(errors.ConfigInvalid, "sum of model weights must be positive")
		}
	}

	// Validate paths
	if config.GP.CheckpointDir == "" {
		config.GP.CheckpointDir = filepath.Join(constants.OutputDir, constants.CheckpointDir)
	}

	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *types.Config {
	return &types.Config{
		GP: types.GPConfig{
			PopulationSize: constants.DefaultPopulationSize,
			MaxTreeHeight:  constants.DefaultMaxTreeHeight,
			SelectTourSize: constants.DefaultSelectTourSize,
			CrossoverProb:  constants.DefaultCrossoverProb,
			MutationProb:   constants.DefaultMutationProb,
			GenerationStep: constants.DefaultGenerationStep,
			NumGenerations: constants.DefaultNumGenerations,
			EphemeralMin:   constants.DefaultEphemeralMin,
			EphemeralMax:   constants.DefaultEphemeralMax,
			CheckpointDir:  filepath.Join(constants.OutputDir, constants.CheckpointDir),
		},
		Advisor: types.AdvisorConfig{
			Enabled:             false,
			InteractionInterval: constants.DefaultInteractionInterval,
			MaxRetries:          constants.DefaultMaxRetries,
			RetryDelay:          constants.DefaultRetryDelay,
			TopKIndividuals:     constants.DefaultTopKIndividuals,
			QueueCapacity:       constants.DefaultQueueCapacity,
		},
		LLM: types.LLMConfig{
			APIBase: constants.DefaultOpenAIBase,
			Models: []types.LLMModelConfig{
				{
					Name:       constants.GPT4o,
					Weight:     1.0,
					Timeout:    constants.DefaultTimeout,
					Retries:    constants.DefaultLLMRetries,
					RetryDelay: constants.DefaultLLMDelay,
				},
			},
			SystemMessage: constants.DefaultSystemMessage,
		},
		Data: types.DataConfig{
			Labels:         []string{},
			Thresholds:     []float64{0.3},
			TrainTestRatio: constants.DefaultTrainTestRatio,
			SearchScale:    0,
			IoUFilter:      false,
			IoUThreshold:   constants.DefaultIoUThreshold,
		},
	}
}

// CreateDefaultConfig creates a default configuration file
func CreateDefaultConfig(path string) error {
	manager := NewManager()
	return manager.Save(path)
}
