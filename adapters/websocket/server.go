// Package websocket streams chat turns to connected clients as they are
// answered.
package websocket

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

// FeedMessage is the frame written to clients for every answered turn pair.
type FeedMessage struct {
	Type      string        `json:"type"`
	SessionID int64         `json:"session_id"`
	Turns     []domain.Turn `json:"turns"`
	Timestamp string        `json:"timestamp"`
}

type Server struct {
	upgrader      websocket.Upgrader
	messageBroker domain.MessageBroker
	hub           *Hub
}

// NewServer returns a feed server. allowedOrigins empty or containing "*"
// accepts any origin.
func NewServer(messageBroker domain.MessageBroker, allowedOrigins []string) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		messageBroker: messageBroker,
		hub:           NewHub(),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler upgrades an authenticated request and streams the user's turn
// events until the connection ends.
func (s *Server) Handler(c echo.Context) error {
	userID, ok := c.Get("user_id").(int64)
	if !ok || userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(c.Request().Context(), conn, userID)
	events, err := s.messageBroker.Subscribe(client.Context(), domain.TurnTopic, strconv.FormatInt(userID, 10))
	if err != nil {
		client.Close()
		return err
	}

	s.hub.Register(client)
	defer s.hub.Unregister(client)
	client.Run()

	log.WithCtx(client.Context()).Info("📡 Feed client connected", zap.String("client_id", client.id))
	s.forward(client, events)
	return nil
}

func (s *Server) forward(client *Client, events <-chan domain.Message) {
	ctx := client.Context()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			frame, err := toFrame(msg.Payload)
			if err != nil {
				log.WithCtx(ctx).Error("❌ Failed to decode turn event", zap.Error(err))
				continue
			}
			if err := client.SendMessage(frame); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func toFrame(payload []byte) ([]byte, error) {
	var ev domain.TurnEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return json.Marshal(FeedMessage{
		Type:      "turns",
		SessionID: ev.SessionID,
		Turns:     ev.Turns,
		Timestamp: ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
