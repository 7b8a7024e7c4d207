// Package ws bridges the StateBus event stream to WebSocket clients. It is
// a thin transport: all state lives in statebus.Bus, and this package's
// job is per-connection fan-out plus parsing the small client->server
// command vocabulary (fft_subscribe/fft_unsubscribe) back into FftStream
// calls. Grounded on the teacher's Hub register/unregister/broadcast select
// loop, generalized to one send-channel-plus-writePump goroutine pair per
// client (the pack's nikoskalogridis-streamerbrainz per-client-channel
// shape) so a slow client cannot stall delivery to the others — StateBus
// already enforces this per-subscriber, so the hub just needs to relay it.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/milesburton/night-watch/internal/fftstream"
	"github.com/milesburton/night-watch/internal/statebus"
)

const (
	writeTimeout = 3 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 20 * time.Second
)

// Hub upgrades incoming requests on /ws, sends the initial snapshot, and
// relays every subsequent StateBus event to the connection until it closes.
type Hub struct {
	bus      *statebus.Bus
	fft      *fftstream.Stream
	log      *log.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a hub bound to the given bus and FftStream.
func NewHub(bus *statebus.Bus, fft *fftstream.Stream, logger *log.Logger) *Hub {
	return &Hub{
		bus: bus,
		fft: fft,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns an http.Handler for the /ws path. Upgrades on any other
// path are rejected with HTTP 400.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.serveWS)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ws" {
		http.Error(w, "websocket only available at /ws", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}

	sub := h.bus.Subscribe(nil)
	send := make(chan []byte, 4)

	if initMsg, err := h.buildInit(); err == nil {
		select {
		case send <- initMsg:
		default:
		}
	}

	go h.writePump(conn, sub, send)
	h.readPump(conn, sub)
}

// buildInit assembles the one-time init payload: the current SystemState
// plus FftStream status.
func (h *Hub) buildInit() ([]byte, error) {
	running, subscribers, errStr := h.fft.Status()
	var errField any
	if errStr != "" {
		errField = errStr
	}
	return json.Marshal(map[string]any{
		"type":  "init",
		"state": h.bus.GetState(),
		"fft": map[string]any{
			"running":     running,
			"subscribers": subscribers,
			"error":       errField,
		},
	})
}

// writePump drains the buffered send channel (the init message) and the
// subscription's event channel to the connection, and sends periodic
// pings. It exits when either channel closes or a write fails.
func (h *Hub) writePump(conn *websocket.Conn, sub *statebus.Subscription, send chan []byte) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer conn.Close()
	defer sub.Close()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles the small client->server command vocabulary. Malformed
// or unknown messages are logged and ignored; the connection stays open.
func (h *Hub) readPump(conn *websocket.Conn, sub *statebus.Subscription) {
	defer sub.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	var subID int
	var subscribed bool

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if subscribed {
				h.fft.Unsubscribe(subID)
			}
			return
		}

		var msg struct {
			Type      string `json:"type"`
			Frequency int    `json:"frequency"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			if h.log != nil {
				h.log.Printf("ws: warn: malformed client message: %v", err)
			}
			continue
		}

		switch msg.Type {
		case "fft_subscribe":
			if subscribed {
				h.fft.Unsubscribe(subID)
			}
			subID, _ = h.fft.Subscribe(msg.Frequency)
			subscribed = true
		case "fft_unsubscribe":
			if subscribed {
				h.fft.Unsubscribe(subID)
				subscribed = false
			}
		default:
			if h.log != nil {
				h.log.Printf("ws: warn: unknown client message type %q", msg.Type)
			}
		}
	}
}
