package advisor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/protocol"
)

// stubClient returns canned content and records the prompts it saw.
type stubClient struct {
	content string
	err     error
	prompts []string
}

func (s *stubClient) Generate(ctx context.Context, prompt string) (*types.LLMResponse, error) {
	return s.GenerateWithSystemMessage(ctx, "", []types.LLMMessage{{Role: "user", Content: prompt}})
}

func (s *stubClient) GenerateWithSystemMessage(ctx context.Context, systemMessage string, messages []types.LLMMessage) (*types.LLMResponse, error) {
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &types.LLMResponse{Content: s.content, Model: "stub"}, nil
}

func newServerFixture(t *testing.T, client *stubClient) (*Server, *protocol.Transport) {
	t.Helper()

	tr := protocol.NewTransport(constants.DefaultQueueCapacity)
	s := NewServer(types.LLMConfig{}, tr.AdvisorEndpoint(), client)

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	s.SetLogger(quiet)
	return s, tr
}

func TestParseSuggestions(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected int
	}{
		{
			"fenced json block",
			"Here are my ideas:\n```json\n[{\"expression\": \"cat or dog\", \"reason\": \"coverage\"}]\n```\nGood luck!",
			1,
		},
		{
			"plain fenced block",
			"```\n[{\"expression\": \"cat and dog\"}]\n```",
			1,
		},
		{
			"bare json array",
			"[{\"expression\": \"not person\"}, {\"expression\": \"gt(cat, 2)\"}]",
			2,
		},
		{
			"payload object",
			"{\"suggestions\": [{\"expression\": \"cat\"}]}",
			1,
		},
		{"prose only", "I cannot help with that.", 0},
		{"empty", "", 0},
		{"empty expressions dropped", "[{\"expression\": \"  \"}]", 0},
		{"malformed json", "```json\n[{\"expression\": \n```", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, ParseSuggestions(tc.input), tc.expected)
		})
	}
}

func TestServerRepliesToUpdate(t *testing.T) {
	client := &stubClient{
		content: "```json\n[{\"expression\": \"cat or dog\", \"reason\": \"broad coverage\"}]\n```",
	}
	s, tr := newServerFixture(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	search := tr.SearchEndpoint()

	init, err := protocol.NewMessage(types.MessageInit, types.InitPayload{
		Labels:    []string{"cat", "dog"},
		Operators: []string{"and_", "or_", "not_", "gt", "lt", "eq"},
	})
	require.NoError(t, err)
	require.NoError(t, search.SendMessage(ctx, init))

	update, err := protocol.NewMessage(types.MessageEvolutionUpdate, types.EvolutionUpdatePayload{
		Generation:     80,
		TopIndividuals: []types.HofEntry{{Expression: "cat", Fitness: 0.7}},
		Labels:         []string{"cat", "dog"},
		Operators:      []string{"and_", "or_"},
	})
	require.NoError(t, err)
	require.NoError(t, search.SendMessage(ctx, update))

	reply, err := search.RecvMessage(ctx)
	require.NoError(t, err)
	suggestions, err := reply.Suggestions()
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "cat or dog", suggestions[0].Expression)

	require.NoError(t, search.SendMessage(ctx, protocol.NewExitCommand()))
	assert.NoError(t, <-done)

	// The prompt carries the population state and vocabulary.
	require.NotEmpty(t, client.prompts)
	prompt := client.prompts[len(client.prompts)-1]
	assert.Contains(t, prompt, "generation 80")
	assert.Contains(t, prompt, "cat (fitness: 0.7000)")
	assert.Contains(t, prompt, "and_, or_")
}

func TestServerDegradesOnModelFailure(t *testing.T) {
	client := &stubClient{err: assert.AnError}
	s, tr := newServerFixture(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	search := tr.SearchEndpoint()
	update, err := protocol.NewMessage(types.MessageEvolutionUpdate, types.EvolutionUpdatePayload{Generation: 40})
	require.NoError(t, err)
	require.NoError(t, search.SendMessage(ctx, update))

	reply, err := search.RecvMessage(ctx)
	require.NoError(t, err)
	suggestions, err := reply.Suggestions()
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	require.NoError(t, search.SendMessage(ctx, protocol.NewExitCommand()))
	assert.NoError(t, <-done)
}

func TestServerStopsOnTransportClose(t *testing.T) {
	s, tr := newServerFixture(t, &stubClient{})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	tr.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop when the transport closed")
	}
}
