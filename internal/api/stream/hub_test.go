package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesClients(t *testing.T) {
	hub := NewHub(logger.Nop())
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	f := flags.New(
		"X1:TEST-FLAG_NAME:1",
		segments.List{segments.Span(0, 10)},
		segments.List{segments.Span(2, 4)},
	)
	hub.Publish(f)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update Update
	require.NoError(t, conn.ReadJSON(&update))

	assert.Equal(t, "X1:TEST-FLAG_NAME:1", update.Name)
	assert.True(t, update.Active.Equal(segments.List{segments.Span(2, 4)}))
}

func TestClientDisconnectIsObserved(t *testing.T) {
	hub := NewHub(logger.Nop())
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}
