package monitor_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpasquier/faunus/internal/monitor"
	"github.com/cpasquier/faunus/internal/move"
)

func dialFeed(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// pushUntilStopped re-broadcasts reports on a short ticker so the test
// does not race the server-side client registration that follows the
// websocket handshake.
func pushUntilStopped(feed *monitor.Feed, reports []move.Report, stop <-chan struct{}) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			feed.Push(reports)
		}
	}
}

func TestFeedBroadcastsReportsToClient(t *testing.T) {
	feed := monitor.New()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)

	reports := []move.Report{{Trials: 5, Accepted: 3, Acceptance: 0.6, RunFraction: 1}}
	stop := make(chan struct{})
	defer close(stop)
	go pushUntilStopped(feed, reports, stop)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got []move.Report
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Trials)
	assert.Equal(t, 3, got[0].Accepted)
	assert.InDelta(t, 0.6, got[0].Acceptance, 1e-12)
}

func TestFeedBroadcastsToEveryClient(t *testing.T) {
	feed := monitor.New()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	a := dialFeed(t, srv)
	b := dialFeed(t, srv)

	stop := make(chan struct{})
	defer close(stop)
	go pushUntilStopped(feed, []move.Report{{Trials: 1}}, stop)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"Trials":1`)
	}
}

func TestFeedPushWithoutClientsIsHarmless(t *testing.T) {
	feed := monitor.New()
	assert.NotPanics(t, func() {
		feed.Push([]move.Report{{Trials: 2}})
	})
}
