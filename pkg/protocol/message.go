// Package protocol implements the process-boundary contract between the
// search engine and the advisor: typed messages, bounded blocking
// transport and the consultation discipline.
package protocol

import (
	"encoding/json"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

// Message is one cross-boundary exchange unit. It serializes to a
// self-contained blob; no live references cross the boundary.
type Message struct {
	Type    types.MessageType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

// NewMessage builds a message of the given type around a payload value.
func NewMessage(msgType types.MessageType, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.Process, "failed to encode message payload")
	}
	return &Message{Type: msgType, Payload: raw}, nil
}

// NewExitCommand builds the terminal COMMAND{exit} message.
func NewExitCommand() *Message {
	m, _ := NewMessage(types.MessageCommand, types.CommandPayload{Command: constants.CommandExit})
	return m
}

// Serialize encodes the message for transport.
func (m *Message) Serialize() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.Process, "failed to serialize message")
	}
	return data, nil
}

// Deserialize reconstructs a message from its wire form.
func Deserialize(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.Process, "empty message data")
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.Process, "failed to deserialize message")
	}
	switch m.Type {
	case types.MessageInit, types.MessageEvolutionUpdate, types.MessageThresholdStart,
		types.MessageSuggestion, types.MessageCommand:
	default:
		return nil, errors.Newf(errors.Process, "unknown message type: %q", m.Type)
	}
	return &m, nil
}

func (m *Message) decodeAs(expected types.MessageType, out interface{}) error {
	if m.Type != expected {
		return errors.Newf(errors.Process, "invalid response type: %s", m.Type)
	}
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return errors.Wrap(err, errors.Process, "malformed message payload")
	}
	return nil
}

// InitPayload decodes an INIT message payload.
func (m *Message) InitPayload() (*types.InitPayload, error) {
	var p types.InitPayload
	if err := m.decodeAs(types.MessageInit, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EvolutionUpdatePayload decodes an EVOLUTION_UPDATE message payload.
func (m *Message) EvolutionUpdatePayload() (*types.EvolutionUpdatePayload, error) {
	var p types.EvolutionUpdatePayload
	if err := m.decodeAs(types.MessageEvolutionUpdate, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ThresholdStartPayload decodes a THRESHOLD_START message payload.
func (m *Message) ThresholdStartPayload() (*types.ThresholdStartPayload, error) {
	var p types.ThresholdStartPayload
	if err := m.decodeAs(types.MessageThresholdStart, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Suggestions decodes a SUGGESTION message payload.
func (m *Message) Suggestions() ([]types.Suggestion, error) {
	var p types.SuggestionPayload
	if err := m.decodeAs(types.MessageSuggestion, &p); err != nil {
		return nil, err
	}
	return p.Suggestions, nil
}

// CommandPayload decodes a COMMAND message payload.
func (m *Message) CommandPayload() (*types.CommandPayload, error) {
	var p types.CommandPayload
	if err := m.decodeAs(types.MessageCommand, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
