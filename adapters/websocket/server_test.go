package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/synapse/adapters/message_broker"
	"github.com/satriahrh/synapse/domain"
)

// fakeAuth stands in for the JWT middleware.
func fakeAuth(userID int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", userID)
			return next(c)
		}
	}
}

func clientsOf(h *Hub, userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		out = append(out, c)
	}
	return out
}

func TestFeedDeliversOwnTurns(t *testing.T) {
	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()
	srv := NewServer(broker, nil)
	defer srv.Hub().CloseAll()

	e := echo.New()
	e.GET("/ws", srv.Handler, fakeAuth(7))
	ts := httptest.NewServer(e)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount(domain.TurnTopic, "7") == 1 && srv.Hub().ClientCount(7) == 1
	}, time.Second, 10*time.Millisecond)

	other, _ := json.Marshal(domain.TurnEvent{UserID: 8, SessionID: 99})
	require.NoError(t, broker.Publish(context.Background(), domain.TurnTopic, "8", other))

	ev := domain.TurnEvent{
		UserID:    7,
		SessionID: 3,
		Turns: []domain.Turn{
			{ID: 1, SessionID: 3, Role: domain.UserRole, Content: "q"},
			{ID: 2, SessionID: 3, Role: domain.AssistantRole, Content: "a"},
		},
		Timestamp: time.Now(),
	}
	payload, _ := json.Marshal(ev)
	require.NoError(t, broker.Publish(context.Background(), domain.TurnTopic, "7", payload))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame FeedMessage
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "turns", frame.Type)
	assert.Equal(t, int64(3), frame.SessionID)
	require.Len(t, frame.Turns, 2)
	assert.Equal(t, "a", frame.Turns[1].Content)
}

func TestDisconnectedClientLeavesHub(t *testing.T) {
	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()
	srv := NewServer(broker, nil)
	defer srv.Hub().CloseAll()

	e := echo.New()
	e.GET("/ws", srv.Handler, fakeAuth(5))
	ts := httptest.NewServer(e)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return srv.Hub().ClientCount(5) == 1 }, time.Second, 10*time.Millisecond)
	clients := clientsOf(srv.Hub(), 5)
	require.Len(t, clients, 1)
	assert.False(t, clients[0].IsClosed())

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return clients[0].IsClosed() && srv.Hub().ClientCount(5) == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return broker.SubscriberCount(domain.TurnTopic, "5") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestFeedRequiresUser(t *testing.T) {
	srv := NewServer(message_broker.NewChannelMessageBroker(), nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest("GET", "/ws", nil), rec)

	err := srv.Handler(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 401, he.Code)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
