package protocol

import (
	"context"
	"sync"

	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

// Transport connects the search and advisor sides with two bounded
// channels. A full channel blocks its producer and an empty channel
// blocks its consumer; only serialized bytes cross the boundary.
type Transport struct {
	toAdvisor chan []byte
	toSearch  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTransport creates a transport whose channels hold up to capacity
// pending messages each.
func NewTransport(capacity int) *Transport {
	return &Transport{
		toAdvisor: make(chan []byte, capacity),
		toSearch:  make(chan []byte, capacity),
		closed:    make(chan struct{}),
	}
}

// Close tears the transport down. Idempotent; blocked senders and
// receivers are released with a Process error.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
}

// SearchEndpoint returns the engine-side endpoint.
func (t *Transport) SearchEndpoint() *Endpoint {
	return &Endpoint{out: t.toAdvisor, in: t.toSearch, closed: t.closed}
}

// AdvisorEndpoint returns the advisor-side endpoint.
func (t *Transport) AdvisorEndpoint() *Endpoint {
	return &Endpoint{out: t.toSearch, in: t.toAdvisor, closed: t.closed}
}

// Endpoint is one side's view of the transport.
type Endpoint struct {
	out    chan<- []byte
	in     <-chan []byte
	closed <-chan struct{}
}

// Send blocks until the outbound channel accepts the data, the context
// is done, or the transport closes.
func (e *Endpoint) Send(ctx context.Context, data []byte) error {
	select {
	case <-e.closed:
		return errors.New(errors.Process, "transport closed")
	case <-ctx.Done():
		return ctx.Err()
	case e.out <- data:
		return nil
	}
}

// Recv blocks until a message arrives, the context is done, or the
// transport closes. Pending messages are still drained after close.
func (e *Endpoint) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-e.in:
		return data, nil
	default:
	}

	select {
	case data := <-e.in:
		return data, nil
	case <-e.closed:
		return nil, errors.New(errors.Process, "transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendMessage serializes and sends a message.
func (e *Endpoint) SendMessage(ctx context.Context, m *Message) error {
	data, err := m.Serialize()
	if err != nil {
		return err
	}
	return e.Send(ctx, data)
}

// RecvMessage receives and deserializes one message.
func (e *Endpoint) RecvMessage(ctx context.Context) (*Message, error) {
	data, err := e.Recv(ctx)
	if err != nil {
		return nil, err
	}
	return Deserialize(data)
}
