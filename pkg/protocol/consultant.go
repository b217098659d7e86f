package protocol

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/engine"
)

// Consultant runs the search side of the advisor protocol: it assembles
// EVOLUTION_UPDATE messages, waits for suggestion replies with a bounded
// retry discipline, and merges validated suggestions into the engine.
// Exhausting the retries abandons the consultation without touching the
// search state; evolution resumes at the next block.
type Consultant struct {
	cfg      types.AdvisorConfig
	endpoint *Endpoint
	engine   *engine.Engine
	logger   *logrus.Logger

	lastOutcomes *types.OutcomeBatch
}

// NewConsultant creates a consultant over the search endpoint.
func NewConsultant(cfg types.AdvisorConfig, endpoint *Endpoint, eng *engine.Engine) *Consultant {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Consultant{
		cfg:      cfg,
		endpoint: endpoint,
		engine:   eng,
		logger:   logger,
	}
}

// SetLogger replaces the consultant logger.
func (c *Consultant) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// LastOutcomes returns the outcome batch of the previous consultation,
// or nil before the first one.
func (c *Consultant) LastOutcomes() *types.OutcomeBatch {
	return c.lastOutcomes
}

func (c *Consultant) buildUpdate(generation int) (*Message, error) {
	return NewMessage(types.MessageEvolutionUpdate, types.EvolutionUpdatePayload{
		Generation:       generation,
		TopIndividuals:   c.engine.Top(c.cfg.TopKIndividuals),
		PreviousOutcomes: c.lastOutcomes,
		Labels:           c.engine.Labels(),
		Operators:        c.engine.OperatorNames(),
	})
}

// Consult performs one consultation round. Implements engine.Consultant.
func (c *Consultant) Consult(ctx context.Context, generation int) {
	update, err := c.buildUpdate(generation)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to build evolution update, skipping consultation")
		return
	}

	retryDelay := time.Duration(c.cfg.RetryDelay) * time.Second

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		suggestions, err := c.exchange(ctx, update)
		if err == nil {
			c.integrate(suggestions)
			return
		}

		c.logger.WithFields(logrus.Fields{
			"generation": generation,
			"attempt":    attempt,
			"retries":    c.cfg.MaxRetries,
			"error":      err.Error(),
		}).Warn("Advisor consultation attempt failed")

		if ctx.Err() != nil {
			return
		}
		if attempt < c.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}

	c.logger.WithField("generation", generation).
		Warn("Advisor consultation abandoned after exhausting retries")
}

// exchange sends the update and blocks for one suggestion reply.
func (c *Consultant) exchange(ctx context.Context, update *Message) ([]types.Suggestion, error) {
	if err := c.endpoint.SendMessage(ctx, update); err != nil {
		return nil, err
	}

	reply, err := c.endpoint.RecvMessage(ctx)
	if err != nil {
		return nil, err
	}

	return reply.Suggestions()
}

// integrate applies each suggestion through the engine and records the
// timestamped outcome batch fed into the next consultation.
func (c *Consultant) integrate(suggestions []types.Suggestion) {
	outcomes := make([]types.SuggestionOutcome, 0, len(suggestions))
	for _, s := range suggestions {
		outcomes = append(outcomes, c.engine.IntegrateSuggestion(s))
	}

	c.lastOutcomes = &types.OutcomeBatch{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Outcomes:  outcomes,
	}
}

// SendInit announces the label and operator vocabulary to the advisor.
func (c *Consultant) SendInit(ctx context.Context) error {
	m, err := NewMessage(types.MessageInit, types.InitPayload{
		Labels:    c.engine.Labels(),
		Operators: c.engine.OperatorNames(),
	})
	if err != nil {
		return err
	}
	return c.endpoint.SendMessage(ctx, m)
}

// SendThresholdStart announces a new threshold experiment.
func (c *Consultant) SendThresholdStart(ctx context.Context, threshold float64, trainSize, testSize int) error {
	m, err := NewMessage(types.MessageThresholdStart, types.ThresholdStartPayload{
		Threshold: threshold,
		TrainSize: trainSize,
		TestSize:  testSize,
	})
	if err != nil {
		return err
	}
	return c.endpoint.SendMessage(ctx, m)
}
