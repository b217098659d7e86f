package llm

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
)

// Client is the common interface for advisor model clients.
type Client interface {
	Generate(ctx context.Context, prompt string) (*types.LLMResponse, error)
	GenerateWithSystemMessage(ctx context.Context, systemMessage string, messages []types.LLMMessage) (*types.LLMResponse, error)
}

// Ensemble selects among several model clients with weighted random choice.
type Ensemble struct {
	clients     []Client
	weights     []float64
	totalWeight float64
	rand        *rand.Rand
	mu          sync.RWMutex
}

// NewEnsemble creates an ensemble from the given model configurations.
func NewEnsemble(configs []types.LLMModelConfig) (*Ensemble, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one model configuration is required")
	}

	ensemble := &Ensemble{
		clients: make([]Client, 0, len(configs)),
		weights: make([]float64, len(configs)),
	}

	var totalWeight float64
	for i, cfg := range configs {
		ensemble.clients = append(ensemble.clients, newClient(cfg))
		ensemble.weights[i] = cfg.Weight
		totalWeight += cfg.Weight
	}

	// Normalize weights; equal weights when none are set
	if totalWeight > 0 {
		for i := range ensemble.weights {
			ensemble.weights[i] /= totalWeight
		}
		ensemble.totalWeight = totalWeight
	} else {
		equalWeight := 1.0 / float64(len(configs))
		for i := range ensemble.weights {
			ensemble.weights[i] = equalWeight
		}
		ensemble.totalWeight = 1.0
	}

	seed := time.Now().UnixNano()
	if configs[0].RandomSeed > 0 {
		seed = int64(configs[0].RandomSeed)
	}
	ensemble.rand = rand.New(rand.NewSource(seed))

	logrus.WithFields(logrus.Fields{
		"models": len(ensemble.clients),
	}).Info("Initialized advisor model ensemble")
	for i, cfg := range configs {
		logrus.WithFields(logrus.Fields{
			"model":  cfg.Name,
			"weight": ensemble.weights[i],
		}).Debug("Registered ensemble model")
	}

	return ensemble, nil
}

// Generate generates text using a randomly selected model based on weights.
func (e *Ensemble) Generate(ctx context.Context, prompt string) (*types.LLMResponse, error) {
	client, err := e.selectClient()
	if err != nil {
		return nil, err
	}

	response, err := client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	response.Model = fmt.Sprintf("ensemble[%s]", response.Model)
	return response, nil
}

// GenerateWithSystemMessage generates text using a system message and conversational context.
func (e *Ensemble) GenerateWithSystemMessage(ctx context.Context, systemMessage string, messages []types.LLMMessage) (*types.LLMResponse, error) {
	client, err := e.selectClient()
	if err != nil {
		return nil, err
	}

	response, err := client.GenerateWithSystemMessage(ctx, systemMessage, messages)
	if err != nil {
		return nil, fmt.Errorf("generation with context failed: %w", err)
	}

	response.Model = fmt.Sprintf("ensemble[%s]", response.Model)
	return response, nil
}

// selectClient selects a client with weighted random selection.
func (e *Ensemble) selectClient() (Client, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.clients) == 0 {
		return nil, fmt.Errorf("no clients available in ensemble")
	}

	r := e.rand.Float64()
	cumulative := 0.0

	for i, weight := range e.weights {
		cumulative += weight
		if r <= cumulative {
			return e.clients[i], nil
		}
	}

	return e.clients[len(e.clients)-1], nil
}

// newClient creates a model client, filling in config defaults.
func newClient(cfg types.LLMModelConfig) Client {
	if cfg.Name == "" {
		cfg.Name = constants.GPT4o
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = constants.DefaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = constants.DefaultLLMRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = constants.DefaultLLMDelay
	}

	return NewOpenAIClient(cfg)
}

// Stats returns statistics about the ensemble.
func (e *Ensemble) Stats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return map[string]interface{}{
		"num_clients":  len(e.clients),
		"total_weight": e.totalWeight,
		"weights":      e.weights,
	}
}
