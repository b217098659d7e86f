package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

func TestMessageRoundtrip(t *testing.T) {
	m, err := NewMessage(types.MessageEvolutionUpdate, types.EvolutionUpdatePayload{
		Generation: 80,
		TopIndividuals: []types.HofEntry{
			{Expression: "or_(cat, dog)", Fitness: 0.93},
		},
		Labels:    []string{"cat", "dog"},
		Operators: []string{"and_", "or_"},
	})
	require.NoError(t, err)

	data, err := m.Serialize()
	require.NoError(t, err)

	decoded, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, types.MessageEvolutionUpdate, decoded.Type)

	payload, err := decoded.EvolutionUpdatePayload()
	require.NoError(t, err)
	assert.Equal(t, 80, payload.Generation)
	require.Len(t, payload.TopIndividuals, 1)
	assert.Equal(t, "or_(cat, dog)", payload.TopIndividuals[0].Expression)
	assert.Nil(t, payload.PreviousOutcomes)
}

func TestDeserializeEmpty(t *testing.T) {
	_, err := Deserialize(nil)
	require.Error(t, err)
	assert.Equal(t, errors.Process, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "empty message data")
}

func TestDeserializeUnknownType(t *testing.T) {
	_, err := Deserialize([]byte(`{"type":"BOGUS","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message type")
}

func TestDeserializeMalformedJSON(t *testing.T) {
	_, err := Deserialize([]byte(`{not json`))
	require.Error(t, err)
	assert.Equal(t, errors.Process, errors.CodeOf(err))
}

func TestDecodeWrongType(t *testing.T) {
	m, err := NewMessage(types.MessageInit, types.InitPayload{Labels: []string{"cat"}})
	require.NoError(t, err)

	_, err = m.Suggestions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response type: INIT")
}

func TestSuggestionsDecode(t *testing.T) {
	m, err := NewMessage(types.MessageSuggestion, types.SuggestionPayload{
		Suggestions: []types.Suggestion{
			{Expression: "cat and dog", Reason: "co-occurrence"},
		},
	})
	require.NoError(t, err)

	suggestions, err := m.Suggestions()
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "cat and dog", suggestions[0].Expression)
}

func TestNewExitCommand(t *testing.T) {
	m := NewExitCommand()
	assert.Equal(t, types.MessageCommand, m.Type)

	payload, err := m.CommandPayload()
	require.NoError(t, err)
	assert.Equal(t, constants.CommandExit, payload.Command)
}
