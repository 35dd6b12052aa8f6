package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// fakeConn satisfies Conn without a network socket.
type fakeConn struct {
	closed bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (c *fakeConn) WriteMessage(int, []byte) error    { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) Close() error                      { c.closed = true; return nil }

func newTestClient(h *Hub, userID int64) *Client {
	return newClient(h, &fakeConn{}, userID, "user")
}

func drain(c *Client) []Envelope {
	var envelopes []Envelope
	for {
		select {
		case data := <-c.send:
			var env Envelope
			if err := json.Unmarshal(data, &env); err == nil {
				envelopes = append(envelopes, env)
			}
		default:
			return envelopes
		}
	}
}

func TestHubPublishIsScopedToRoom(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	inRoom := newTestClient(hub, 1)
	outside := newTestClient(hub, 2)
	hub.Register(inRoom)
	hub.Register(outside)
	hub.Join(inRoom, "chat:abc")
	hub.Join(outside, "chat:other")

	hub.Publish("chat:abc", "receiveMessage", map[string]string{"text": "hi"})

	got := drain(inRoom)
	assert.Len(t, got, 1)
	assert.Equal(t, "receiveMessage", got[0].Event)
	assert.Empty(t, drain(outside))
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := newTestClient(hub, 1)
	hub.Register(client)
	hub.Join(client, "chat:abc")
	hub.Join(client, "chat:abc")

	hub.Publish("chat:abc", "receiveMessage", nil)

	assert.Len(t, drain(client), 1, "double join must not double delivery")
}

func TestHubJoinBeforeRegisterIsDropped(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := newTestClient(hub, 1)
	hub.Join(client, "chat:abc")

	hub.Publish("chat:abc", "receiveMessage", nil)

	assert.Empty(t, drain(client))
}

func TestHubRemoveClearsEveryMembership(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := newTestClient(hub, 1)
	hub.Register(client)
	hub.Join(client, "chat:abc")
	hub.Join(client, "user:1")

	hub.Remove(client)

	hub.Publish("chat:abc", "receiveMessage", nil)
	hub.Publish("user:1", "notification", nil)

	assert.Empty(t, drain(client))
	assert.Empty(t, hub.rooms, "empty rooms are garbage collected")
}

func TestHubLeaveSingleRoom(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := newTestClient(hub, 1)
	hub.Register(client)
	hub.Join(client, "chat:abc")
	hub.Join(client, "user:1")

	hub.Leave(client, "chat:abc")

	hub.Publish("chat:abc", "receiveMessage", nil)
	hub.Publish("user:1", "notification", nil)

	got := drain(client)
	assert.Len(t, got, 1)
	assert.Equal(t, "notification", got[0].Event)
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	first := newTestClient(hub, 1)
	second := newTestClient(hub, 2)
	hub.Register(first)
	hub.Register(second)
	hub.Join(first, "chat:abc")

	hub.Broadcast("setOnline", map[string]int64{"userId": 1})

	assert.Len(t, drain(first), 1)
	assert.Len(t, drain(second), 1, "broadcast ignores room membership")
}

func TestHubFullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := newTestClient(hub, 1)
	hub.Register(client)
	hub.Join(client, "chat:abc")

	for i := 0; i < sendBuffer+10; i++ {
		hub.Publish("chat:abc", "receiveMessage", i)
	}

	assert.Len(t, drain(client), sendBuffer)
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := newTestClient(hub, 1)
	hub.Register(client)

	hub.Shutdown()

	// a handler can still be mid-flight for this connection; a late
	// delivery must be dropped, not crash the process
	assert.NotPanics(t, func() { client.enqueue([]byte("late")) })
	assert.NotPanics(t, func() { client.enqueue([]byte("later")) })
}

func TestHubShutdown(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	conn := &fakeConn{}
	client := newClient(hub, conn, 1, "user")
	hub.Register(client)
	hub.Join(client, "chat:abc")

	hub.Shutdown()

	assert.True(t, conn.closed)

	late := newTestClient(hub, 2)
	hub.Register(late)
	hub.Join(late, "chat:abc")
	hub.Publish("chat:abc", "receiveMessage", nil)
	assert.Empty(t, drain(late), "registrations after shutdown are rejected")
}
