package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesburton/night-watch/internal/arbiter"
	"github.com/milesburton/night-watch/internal/config"
	"github.com/milesburton/night-watch/internal/fftstream"
	"github.com/milesburton/night-watch/internal/statebus"
)

func testHub(t *testing.T) (*Hub, *statebus.Bus) {
	t.Helper()
	bus := statebus.New(nil)
	arb := arbiter.New(nil)
	cfg := config.Default()
	fft := fftstream.New(arb, bus, cfg, nil, func() statebus.Status { return bus.GetState().Status })
	return NewHub(bus, fft, nil), bus
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubSendsInitMessage(t *testing.T) {
	hub, _ := testHub(t)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "init", msg["type"])
	assert.Contains(t, msg, "state")
	assert.Contains(t, msg, "fft")
}

func TestHubRelaysBusEvents(t *testing.T) {
	hub, bus := testHub(t)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Drain the init message first.
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	bus.SetStatus(statebus.StatusWaiting)

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "status_change", evt["type"])
	assert.Equal(t, "waiting", evt["to"])
}

func TestHubRejectsNonWSPath(t *testing.T) {
	hub, _ := testHub(t)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	httpResp, err := http.Get(srv.URL + "/other")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, 400, httpResp.StatusCode)
}

func TestHubFFTSubscribeUnsubscribe(t *testing.T) {
	hub, _ := testHub(t)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Drain the init message.
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "fft_subscribe", "frequency": 137500000}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "fft_unsubscribe"}))

	// No crash and connection stays open: send a malformed message too, the
	// connection must tolerate it rather than close.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
}
