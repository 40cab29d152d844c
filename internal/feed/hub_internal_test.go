package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcast_dropsFullClient(t *testing.T) {
	hub := NewHub(nil, nil)
	slow := &client{send: make(chan Event, 1)}
	fast := &client{send: make(chan Event, 4)}
	hub.clients[slow] = struct{}{}
	hub.clients[fast] = struct{}{}

	hub.PausedChanged(true)
	hub.PausedChanged(false)

	assert.Equal(t, 1, hub.Clients())
	_, stillThere := hub.clients[fast]
	assert.True(t, stillThere)

	// The dropped client's queue is closed after its buffered event.
	ev, ok := <-slow.send
	assert.True(t, ok)
	assert.Equal(t, TypePaused, ev.Type)
	_, ok = <-slow.send
	assert.False(t, ok)

	assert.Len(t, fast.send, 2)
}
