package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-be/internal/pkg/logger"
)

func TestHubDeliversOnlyToWatchersOfTheRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, "test", logger.NewNopLogger())
	go hub.Run(ctx)

	a := &Client{Hub: hub, RunId: "run-a", Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, RunId: "run-b", Send: make(chan []byte, 4)}
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool { return hub.Watchers("run-a") == 1 && hub.Watchers("run-b") == 1 }, time.Second, time.Millisecond)

	hub.SendRun("run-a", []byte(`{"type":"run.progress"}`))

	select {
	case msg := <-a.Send:
		assert.JSONEq(t, `{"type":"run.progress"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("watcher of run-a got nothing")
	}
	assert.Empty(t, b.Send)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, "test", logger.NewNopLogger())
	go hub.Run(ctx)

	c := &Client{Hub: hub, RunId: "run-a", Send: make(chan []byte, 1)}
	hub.register <- c
	hub.unregister <- c
	require.Eventually(t, func() bool { return hub.Watchers("run-a") == 0 }, time.Second, time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)

	// A second removal must not close the channel twice.
	hub.remove(c)
}

func TestHubDropsSlowWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, "test", logger.NewNopLogger())
	go hub.Run(ctx)

	c := &Client{Hub: hub, RunId: "run-a", Send: make(chan []byte)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.Watchers("run-a") == 1 }, time.Second, time.Millisecond)

	hub.SendRun("run-a", []byte(`{}`))
	assert.Eventually(t, func() bool { return hub.Watchers("run-a") == 0 }, time.Second, time.Millisecond)
}
