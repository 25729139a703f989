package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var seen []EventType
	dispatcher.Subscribe(EventAccountBlocked, func(_ context.Context, event Event) error {
		seen = append(seen, event.Type)
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventAccountBlocked, AccountID: "acc-1"}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventAccountDeleted, AccountID: "acc-1"}))

	assert.Equal(t, []EventType{EventAccountBlocked}, seen)
}

func TestDispatcherDeliversPastFailingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	delivered := false
	dispatcher.Subscribe(EventAccountDeleted, func(_ context.Context, _ Event) error {
		return errors.New("webhook down")
	})
	dispatcher.Subscribe(EventAccountDeleted, func(_ context.Context, _ Event) error {
		delivered = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventAccountDeleted, AccountID: "acc-2"})
	assert.Error(t, err)
	assert.True(t, delivered)
}
