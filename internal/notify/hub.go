package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/observability"
)

const writeWait = 10 * time.Second

type hubClient struct {
	conn *websocket.Conn
	pool string // empty receives every pool
}

// Hub streams events to websocket clients. A client may subscribe to a
// single pool with the "pool" query parameter.
type Hub struct {
	clients  map[*websocket.Conn]*hubClient
	mu       sync.Mutex
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewHub creates an empty hub.
func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		clients:  make(map[*websocket.Conn]*hubClient),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      log.WithField("component", "ws_hub"),
	}
}

// Name implements Publisher.
func (h *Hub) Name() string {
	return "websocket"
}

// Publish writes e to every subscribed client. Clients that fail a write are
// disconnected; the hub itself never fails.
func (h *Hub) Publish(_ context.Context, e domain.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, c := range h.clients {
		if c.pool != "" && c.pool != e.PoolAddress {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithError(err).Debug("websocket write failed, dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
	observability.SetWSClients(len(h.clients))
	return nil
}

// Handler returns an http.HandlerFunc to accept websocket connections.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		h.mu.Lock()
		h.clients[conn] = &hubClient{conn: conn, pool: r.URL.Query().Get("pool")}
		observability.SetWSClients(len(h.clients))
		h.mu.Unlock()

		// Read loop detects disconnects; inbound messages are ignored.
		go func() {
			defer h.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	observability.SetWSClients(0)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		observability.SetWSClients(len(h.clients))
	}
	conn.Close()
}
