package broadcast

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codearena/pkg/contextkey"
	"codearena/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin clients are expected; auth happens via token, not origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection. Inbound frames are ignored except for
// connection control; the socket is a one-way event feed.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	teamID string
	send   chan Event
	done   chan struct{}
}

// enqueue hands a frame to the client's writer. The send channel is never
// closed, so a frame racing an unregister lands in a buffer nobody drains
// instead of panicking. Full buffer means the client is too slow; the frame
// is dropped.
func (c *Client) enqueue(frame Event) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		logger.Warn(context.Background(), "websocket send buffer full, dropping frame",
			zap.String("team_id", c.teamID),
			zap.String("event", frame.Event))
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades GET /ws connections and registers them with the hub. When
// the request carries a team identity the connection also receives targeted
// events for that team.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
			return
		}

		teamID, _ := c.Request.Context().Value(contextkey.TeamID).(string)
		client := &Client{
			hub:    hub,
			conn:   conn,
			teamID: teamID,
			send:   make(chan Event, sendBuffer),
			done:   make(chan struct{}),
		}
		hub.register(client)

		go client.writePump()
		go client.readPump()
	}
}
