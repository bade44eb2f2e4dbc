package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	sent := OrderEvent{
		OrderID:      "64f1b2a3c4d5e6f708192a3b",
		CustomerName: "Alice",
		TotalPrice:   200,
		Status:       "Processing",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	hub.BroadcastNewOrder(sent)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got OrderEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sent.OrderID, got.OrderID)
	assert.Equal(t, sent.CustomerName, got.CustomerName)
	assert.Equal(t, sent.TotalPrice, got.TotalPrice)
	assert.Equal(t, sent.Status, got.Status)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dialHub(t, srv)
	defer first.Close()
	second := dialHub(t, srv)
	defer second.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastNewOrder(OrderEvent{OrderID: "abc"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var got OrderEvent
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "abc", got.OrderID)
	}
}

func TestHubBroadcastNotBlockedByStuckClient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	// One client joins and never reads; once the kernel buffers fill, writes
	// to it block until the write deadline fires and it is dropped.
	stuck := dialHub(t, srv)
	defer stuck.Close()

	healthy := dialHub(t, srv)
	defer healthy.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	received := make(chan OrderEvent, 256)
	go func() {
		for {
			var ev OrderEvent
			if err := healthy.ReadJSON(&ev); err != nil {
				return
			}
			received <- ev
		}
	}()

	big := OrderEvent{CustomerName: strings.Repeat("x", 256<<10)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			hub.BroadcastNewOrder(big)
			if hub.ClientCount() < 2 {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("broadcast blocked on a client that stopped reading")
	}

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// The surviving client still receives later broadcasts.
	hub.BroadcastNewOrder(OrderEvent{OrderID: "after-drop"})
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-received:
			if ev.OrderID == "after-drop" {
				return
			}
		case <-deadline:
			t.Fatal("healthy client did not receive broadcast after the stuck one was dropped")
		}
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// Broadcasting to an empty group is a no-op.
	hub.BroadcastNewOrder(OrderEvent{OrderID: "abc"})
}
