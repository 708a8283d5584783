package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_SendRejectsEmpty(t *testing.T) {
	h := newHarness(t)
	m := NewManager(h.orch, nil, quietLogger())
	conv, err := m.Create(context.Background())
	require.NoError(t, err)

	_, err = conv.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.ErrorIs(t, conv.HandleSend(""), ErrEmptyMessage)
	assert.Zero(t, h.brain.calls())
}

func TestConversation_BusyRejectsConcurrentSend(t *testing.T) {
	h := newHarness(t, step{reply: textReply("Where to?")})
	h.brain.gate = make(chan struct{})
	m := NewManager(h.orch, NewMemorySessionStore(), quietLogger())
	conv, err := m.Create(context.Background())
	require.NoError(t, err)

	done := make(chan Snapshot, 1)
	conv.OnTurnComplete(func(s Snapshot) { done <- s })

	require.NoError(t, conv.HandleSend("hi there"))
	assert.True(t, conv.Busy())
	assert.True(t, conv.Snapshot().Busy)
	assert.ErrorIs(t, conv.HandleSend("hello?"), ErrBusy)
	_, err = conv.Send(context.Background(), "anyone?")
	assert.ErrorIs(t, err, ErrBusy)

	close(h.brain.gate)
	select {
	case snap := <-done:
		assert.False(t, snap.Busy)
		assert.Equal(t, StateAwaitingUser, snap.State)
		require.Len(t, snap.Messages, 2)
		assert.Equal(t, "Where to?", snap.Messages[1].Content)
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not complete")
	}
	conv.Wait()
	assert.False(t, conv.Busy())
	assert.Equal(t, 1, h.brain.calls())
}

func TestConversation_PanickingTurnReleasesBusy(t *testing.T) {
	h := newHarness(t,
		step{panic: "brain exploded"},
		step{reply: textReply("Where to?")},
	)
	m := NewManager(h.orch, nil, quietLogger())
	conv, err := m.Create(context.Background())
	require.NoError(t, err)

	snap, err := conv.Send(context.Background(), "hi there")
	require.NoError(t, err)
	assert.False(t, snap.Busy)
	assert.False(t, conv.Busy())
	assert.Empty(t, snap.Messages)

	require.NoError(t, conv.HandleSend("hi again"))
	conv.Wait()
	snap = conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Where to?", snap.Messages[1].Content)
}

func TestConversation_ListenerRemoval(t *testing.T) {
	h := newHarness(t)
	m := NewManager(h.orch, nil, quietLogger())
	conv, err := m.Create(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	count := 0
	remove := conv.OnTurnComplete(func(Snapshot) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	_, err = conv.Send(context.Background(), "one")
	require.NoError(t, err)
	remove()
	_, err = conv.Send(context.Background(), "two")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	h := newHarness(t)
	m := NewManager(h.orch, nil, quietLogger())
	conv, err := m.Create(context.Background())
	require.NoError(t, err)

	_, err = conv.Send(context.Background(), "hello")
	require.NoError(t, err)
	snap := conv.Snapshot()
	snap.Messages[0].Content = "changed"
	snap.Slots.Details.City = "Paris"

	again := conv.Snapshot()
	assert.Equal(t, "hello", again.Messages[0].Content)
	assert.Empty(t, again.Slots.Details.City)
}

func TestManager_RestoresFromStore(t *testing.T) {
	h := newHarness(t, step{reply: textReply("Which night?")})
	store := NewMemorySessionStore()
	m := NewManager(h.orch, store, quietLogger())
	conv, err := m.Create(context.Background())
	require.NoError(t, err)
	_, err = conv.Send(context.Background(), "book Lilia for 2")
	require.NoError(t, err)

	other := NewManager(h.orch, store, quietLogger())
	restored, err := other.Get(context.Background(), conv.ID())
	require.NoError(t, err)
	snap := restored.Snapshot()
	assert.Equal(t, StateAwaitingUser, snap.State)
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, conv.Snapshot().Slots, snap.Slots)

	same, err := other.Get(context.Background(), conv.ID())
	require.NoError(t, err)
	assert.Same(t, restored, same)

	_, err = other.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, other.Delete(context.Background(), conv.ID()))
	_, err = store.Load(context.Background(), conv.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_WithoutStore(t *testing.T) {
	h := newHarness(t)
	m := NewManager(h.orch, nil, quietLogger())
	_, err := m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Panics(t, func() { NewManager(nil, nil, nil) })
}
