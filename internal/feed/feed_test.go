package feed_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiroq/sitstand/internal/feed"
	"github.com/tiroq/sitstand/internal/ipc"
	"github.com/tiroq/sitstand/internal/statemachine"
	"github.com/tiroq/sitstand/testutil"
)

func waitForClients(t *testing.T, hub *feed.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_snapshotOnConnectThenEvents(t *testing.T) {
	hub := feed.NewHub(nil, nil)
	hub.UpdateSnapshot(ipc.StatusSnapshot{Activity: "active", TimeRemaining: 1800, Title: "💺 30:00"})

	srv := httptest.NewServer(hub)
	defer srv.Close()

	c, err := testutil.DialFeed(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	defer c.Close()

	msg, err := c.Next(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, feed.TypeSnapshot, msg["type"])
	snap := msg["snapshot"].(map[string]interface{})
	assert.Equal(t, "💺 30:00", snap["title"])
	assert.Equal(t, float64(1800), snap["time_remaining_seconds"])

	waitForClients(t, hub, 1)

	hub.ActivityChanged(statemachine.ActivityIdle)
	hub.PausedChanged(false)
	hub.TimeRemainingChanged(0)
	hub.StandingChanged(true)

	msg, err = c.Next(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "activity", msg["type"])
	assert.Equal(t, "idle", msg["activity"])
	assert.NotEmpty(t, msg["at"])

	msg, err = c.Next(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "paused", msg["type"])
	assert.Equal(t, false, msg["paused"])

	msg, err = c.Next(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "time_remaining", msg["type"])
	assert.Equal(t, float64(0), msg["time_remaining"])

	msg, err = c.Next(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "standing", msg["type"])
	assert.Equal(t, true, msg["standing"])
}

func TestHub_disconnectUnregisters(t *testing.T) {
	hub := feed.NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c, err := testutil.DialFeed(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	_, err = c.Next(2 * time.Second)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	require.NoError(t, c.Close())
	waitForClients(t, hub, 0)

	// Broadcasting with no clients is fine.
	hub.PausedChanged(true)
}

func TestServer_listenAndShutdown(t *testing.T) {
	hub := feed.NewHub(nil, nil)
	srv, err := feed.Listen("127.0.0.1:0", hub)
	require.NoError(t, err)

	c, err := testutil.DialFeed(srv.Addr())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.NextOfType(feed.TypeSnapshot, 2*time.Second)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	assert.Equal(t, 0, hub.Clients())
	_, err = c.Next(2 * time.Second)
	assert.Error(t, err)
}
