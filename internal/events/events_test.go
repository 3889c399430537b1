package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliversToAllListeners(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	first := b.AddListener()
	second := b.AddListener()

	b.Publish(Event{Type: TypeEnrolled, Label: "Alice", Message: "enrolled"})

	for _, ch := range []chan Event{first, second} {
		select {
		case ev := <-ch:
			require.Equal(t, TypeEnrolled, ev.Type)
			require.Equal(t, "Alice", ev.Label)
			_, err := uuid.Parse(ev.ID)
			require.NoError(t, err)
			require.False(t, ev.Time.IsZero())
		case <-time.After(time.Second):
			t.Fatal("expected event on listener")
		}
	}
}

func TestBroadcaster_KeepsExplicitIDAndTime(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	ch := b.AddListener()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	b.Publish(Event{ID: "fixed", Time: ts, Type: TypeArmed})

	ev := <-ch
	require.Equal(t, "fixed", ev.ID)
	require.Equal(t, ts, ev.Time)
}

func TestBroadcaster_RemoveListenerClosesChannel(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	ch := b.AddListener()
	require.Equal(t, 1, b.ListenerCount())

	b.RemoveListener(ch)
	require.Equal(t, 0, b.ListenerCount())

	_, open := <-ch
	require.False(t, open)

	// Removing twice must not panic on a double close.
	b.RemoveListener(ch)
}

func TestBroadcaster_DropsWhenListenerFull(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	ch := b.AddListener()

	for i := 0; i < ListenerBuffer+10; i++ {
		b.Publish(Event{Type: TypeDeleted})
	}
	require.Len(t, ch, ListenerBuffer)
}
