package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffin/internal/core"
)

// mockClient creates a Client with a send channel but no connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func orderEvent(action, id string) core.LedgerEvent {
	return core.NewLedgerEvent(core.EntityOrder, action, id, "2024-05-02")
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c1, c2 := mockClient(hub), mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.ClientCount())

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c2)
	hub.Unregister(c2)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestNotifyBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub(slog.Default())
	c1, c2 := mockClient(hub), mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Close()

	require.NoError(t, hub.Notify(context.Background(), orderEvent(core.ActionCreated, "o1")))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, Message{Type: "order_created", Entity: "order", Action: "created", ID: "o1", Date: "2024-05-02"}, got)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestBroadcastFullBufferDrops(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize+3; i++ {
		hub.Broadcast(NewMessage(orderEvent(core.ActionUpdated, "o1")))
	}
	assert.Len(t, c.send, sendBufferSize)
}

func TestMemberMessageOmitsDate(t *testing.T) {
	msg := NewMessage(core.NewLedgerEvent(core.EntityMember, core.ActionDeleted, "m1", ""))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"member_deleted","entity":"member","action":"deleted","id":"m1"}`, string(data))
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub)
	hub.Register(c)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
	_, open := <-c.send
	assert.False(t, open)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage(orderEvent(core.ActionDeleted, "x")))
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHandleWebSocketDeliversEvents(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub, []string{"*"}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Notify(ctx, orderEvent(core.ActionCreated, "o7")))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "order_created", got.Type)
	assert.Equal(t, "o7", got.ID)
}
