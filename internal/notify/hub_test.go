package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-vesting/internal/domain"
)

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 5*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var e domain.Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestHub_BroadcastsToClients(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	c1 := dialHub(t, srv, "")
	c2 := dialHub(t, srv, "")
	waitForClients(t, h, 2)

	err := h.Publish(context.Background(), domain.Event{
		Type:           domain.EventDeposit,
		PoolAddress:    "PoolA",
		Amount:         500,
		CustodyBalance: 1500,
		Timestamp:      42,
	})
	require.NoError(t, err)

	for _, c := range []*websocket.Conn{c1, c2} {
		e := readEvent(t, c)
		assert.Equal(t, domain.EventDeposit, e.Type)
		assert.Equal(t, "PoolA", e.PoolAddress)
		assert.Equal(t, uint64(500), e.Amount)
		assert.Equal(t, uint64(1500), e.CustodyBalance)
	}
}

func TestHub_PoolFilter(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	filtered := dialHub(t, srv, "?pool=PoolB")
	waitForClients(t, h, 1)

	require.NoError(t, h.Publish(context.Background(), domain.Event{Type: domain.EventDeposit, PoolAddress: "PoolA", Timestamp: 1}))
	require.NoError(t, h.Publish(context.Background(), domain.Event{Type: domain.EventDeposit, PoolAddress: "PoolB", Timestamp: 2}))

	e := readEvent(t, filtered)
	assert.Equal(t, "PoolB", e.PoolAddress)
	assert.Equal(t, int64(2), e.Timestamp)
}

func TestHub_RemovesDisconnectedClients(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dialHub(t, srv, "")
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)

	assert.NoError(t, h.Publish(context.Background(), domain.Event{Type: domain.EventClaim}))
}

func TestHub_Close(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	dialHub(t, srv, "")
	waitForClients(t, h, 1)

	h.Close()
	assert.Equal(t, 0, h.Clients())
}
