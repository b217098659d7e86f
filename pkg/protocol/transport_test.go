package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

func TestTransportDelivery(t *testing.T) {
	tr := NewTransport(4)
	ctx := context.Background()

	search := tr.SearchEndpoint()
	advisorSide := tr.AdvisorEndpoint()

	m, err := NewMessage(types.MessageInit, types.InitPayload{Labels: []string{"cat"}})
	require.NoError(t, err)
	require.NoError(t, search.SendMessage(ctx, m))

	got, err := advisorSide.RecvMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MessageInit, got.Type)
}

func TestTransportBothDirections(t *testing.T) {
	tr := NewTransport(4)
	ctx := context.Background()

	require.NoError(t, tr.AdvisorEndpoint().SendMessage(ctx, NewExitCommand()))

	got, err := tr.SearchEndpoint().RecvMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MessageCommand, got.Type)
}

func TestRecvBlocksUntilSend(t *testing.T) {
	tr := NewTransport(1)
	search := tr.SearchEndpoint()

	done := make(chan *Message, 1)
	go func() {
		m, err := search.RecvMessage(context.Background())
		if err == nil {
			done <- m
		}
	}()

	select {
	case <-done:
		t.Fatal("receive completed before any send")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, tr.AdvisorEndpoint().SendMessage(context.Background(), NewExitCommand()))

	select {
	case m := <-done:
		assert.Equal(t, types.MessageCommand, m.Type)
	case <-time.After(time.Second):
		t.Fatal("receive did not complete after send")
	}
}

func TestCloseReleasesBlockedReceiver(t *testing.T) {
	tr := NewTransport(1)
	errs := make(chan error, 1)

	go func() {
		_, err := tr.SearchEndpoint().Recv(context.Background())
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tr.Close()
	tr.Close() // idempotent

	select {
	case err := <-errs:
		require.Error(t, err)
		assert.Equal(t, errors.Process, errors.CodeOf(err))
	case <-time.After(time.Second):
		t.Fatal("blocked receiver was not released by close")
	}
}

func TestPendingMessagesDrainAfterClose(t *testing.T) {
	tr := NewTransport(2)
	ctx := context.Background()

	require.NoError(t, tr.SearchEndpoint().SendMessage(ctx, NewExitCommand()))
	tr.Close()

	got, err := tr.AdvisorEndpoint().RecvMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.MessageCommand, got.Type)

	_, err = tr.AdvisorEndpoint().Recv(ctx)
	assert.Error(t, err)
}

func TestSendRespectsContext(t *testing.T) {
	tr := NewTransport(1)
	ctx := context.Background()

	// Fill the channel, then a canceled context must unblock the sender.
	require.NoError(t, tr.SearchEndpoint().Send(ctx, []byte("x")))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.SearchEndpoint().Send(canceled, []byte("y"))
	assert.ErrorIs(t, err, context.Canceled)
}
