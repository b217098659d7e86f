package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
	"github.com/ishanwen-byte/symrule-go/pkg/llm"
	"github.com/ishanwen-byte/symrule-go/pkg/protocol"
)

var jsonBlockPattern = regexp.MustCompile("```(?:json)?\n?([^`]*)```")

// Server is the advisor side of the consultation protocol. It receives
// evolution updates, asks a model ensemble for candidate expressions,
// and replies with suggestions.
type Server struct {
	cfg      types.LLMConfig
	endpoint *protocol.Endpoint
	client   llm.Client
	logger   *logrus.Logger

	labels    []string
	operators []string
}

// NewServer creates an advisor server bound to the given endpoint.
func NewServer(cfg types.LLMConfig, endpoint *protocol.Endpoint, client llm.Client) *Server {
	return &Server{
		cfg:      cfg,
		endpoint: endpoint,
		client:   client,
		logger:   logrus.StandardLogger(),
	}
}

// SetLogger replaces the server's logger.
func (s *Server) SetLogger(logger *logrus.Logger) {
	s.logger = logger
}

// Run processes messages until an exit command arrives, the transport
// closes, or the context is done.
func (s *Server) Run(ctx context.Context) error {
	for {
		msg, err := s.endpoint.RecvMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.CodeOf(err) == errors.Process {
				// Transport closed under us; treat as shutdown.
				s.logger.Debug("Advisor transport closed")
				return nil
			}
			return err
		}

		switch msg.Type {
		case types.MessageInit:
			payload, err := msg.InitPayload()
			if err != nil {
				s.logger.WithError(err).Warn("Malformed init message")
				continue
			}
			s.labels = payload.Labels
			s.operators = payload.Operators
			s.logger.WithFields(logrus.Fields{
				"labels":    len(s.labels),
				"operators": len(s.operators),
			}).Info("Advisor initialized")

		case types.MessageThresholdStart:
			payload, err := msg.ThresholdStartPayload()
			if err != nil {
				s.logger.WithError(err).Warn("Malformed threshold start message")
				continue
			}
			s.logger.WithFields(logrus.Fields{
				"threshold":  payload.Threshold,
				"train_size": payload.TrainSize,
				"test_size":  payload.TestSize,
			}).Info("Threshold search started")

		case types.MessageEvolutionUpdate:
			payload, err := msg.EvolutionUpdatePayload()
			if err != nil {
				s.logger.WithError(err).Warn("Malformed evolution update")
				continue
			}
			if err := s.handleUpdate(ctx, payload); err != nil {
				return err
			}

		case types.MessageCommand:
			payload, err := msg.CommandPayload()
			if err != nil {
				s.logger.WithError(err).Warn("Malformed command message")
				continue
			}
			if payload.Command == constants.CommandExit {
				s.logger.Info("Advisor received exit command")
				return nil
			}
			s.logger.WithField("command", payload.Command).Warn("Unknown command")

		default:
			s.logger.WithField("type", msg.Type).Warn("Unexpected message type")
		}
	}
}

// handleUpdate consults the model and replies with a suggestion message.
// A model failure or unparsable reply degrades to an empty suggestion
// list so the search side never stalls waiting for a response.
func (s *Server) handleUpdate(ctx context.Context, update *types.EvolutionUpdatePayload) error {
	suggestions := s.suggest(ctx, update)

	reply, err := protocol.NewMessage(types.MessageSuggestion, types.SuggestionPayload{Suggestions: suggestions})
	if err != nil {
		return err
	}
	return s.endpoint.SendMessage(ctx, reply)
}

func (s *Server) suggest(ctx context.Context, update *types.EvolutionUpdatePayload) []types.Suggestion {
	prompt := s.buildPrompt(update)

	systemMessage := s.cfg.SystemMessage
	if systemMessage == "" {
		systemMessage = constants.DefaultSystemMessage
	}

	response, err := s.client.GenerateWithSystemMessage(ctx, systemMessage, []types.LLMMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		s.logger.WithError(err).Warn("Advisor model call failed")
		return nil
	}

	suggestions := ParseSuggestions(response.Content)
	s.logger.WithFields(logrus.Fields{
		"generation":  update.Generation,
		"model":       response.Model,
		"suggestions": len(suggestions),
		"tokens":      response.Usage.TotalTokens,
	}).Info("Advisor produced suggestions")

	return suggestions
}

// buildPrompt constructs the consultation prompt.
func (s *Server) buildPrompt(update *types.EvolutionUpdatePayload) string {
	labels := update.Labels
	if len(labels) == 0 {
		labels = s.labels
	}
	operators := update.Operators
	if len(operators) == 0 {
		operators = s.operators
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("The evolutionary search is at generation %d.\n\n", update.Generation))

	b.WriteString("Current best expressions (higher fitness is better):\n")
	for i, entry := range update.TopIndividuals {
		b.WriteString(fmt.Sprintf("%d. %s (fitness: %.4f)\n", i+1, entry.Expression, entry.Fitness))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Available variables (detection counts per image): %s\n", strings.Join(labels, ", ")))
	b.WriteString(fmt.Sprintf("Available operators: %s\n\n", strings.Join(operators, ", ")))

	if update.PreviousOutcomes != nil && len(update.PreviousOutcomes.Outcomes) > 0 {
		b.WriteString("Outcomes of your previous suggestions:\n")
		for _, outcome := range update.PreviousOutcomes.Outcomes {
			if outcome.Status == constants.StatusSuccess {
				b.WriteString(fmt.Sprintf("- %s: accepted, fitness %.4f\n", outcome.Expression, outcome.Fitness))
			} else {
				b.WriteString(fmt.Sprintf("- %s: rejected (%s)\n", outcome.Expression, outcome.Error))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Propose up to 3 new boolean expressions likely to improve on the current best. ")
	b.WriteString("Use Python-style syntax, e.g. \"cat and dog > 2\" or \"not person or gt(car, 1)\". ")
	b.WriteString("A variable is true when its count is at least 1.\n\n")
	b.WriteString("Reply with a JSON array inside a fenced code block:\n")
	b.WriteString("```json\n[{\"expression\": \"...\", \"reason\": \"...\"}]\n```\n")

	return b.String()
}

// ParseSuggestions extracts suggestions from a model reply. It accepts
// a JSON array inside a fenced code block, a bare JSON array, or a
// SuggestionPayload object. Malformed replies yield nil.
func ParseSuggestions(text string) []types.Suggestion {
	candidates := make([]string, 0, 2)
	for _, match := range jsonBlockPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, match[1])
	}
	candidates = append(candidates, text)

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		var suggestions []types.Suggestion
		if err := json.Unmarshal([]byte(candidate), &suggestions); err == nil {
			return filterSuggestions(suggestions)
		}

		var payload types.SuggestionPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && len(payload.Suggestions) > 0 {
			return filterSuggestions(payload.Suggestions)
		}
	}

	return nil
}

func filterSuggestions(suggestions []types.Suggestion) []types.Suggestion {
	filtered := suggestions[:0]
	for _, s := range suggestions {
		if strings.TrimSpace(s.Expression) != "" {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
