package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"taskcolab/internal/livequery"
	"taskcolab/internal/models"
	"taskcolab/internal/ranking"
	"taskcolab/pkg/logger"
)

// Client is one websocket connection. In room mode it is registered with
// the room's hub; in rooms-list mode it owns its own rooms subscription
// (see RoomsPump) and hub is nil.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	onlyMine bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, onlyMine bool) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 16),
		userID:   userID,
		onlyMine: onlyMine,
	}
}

// taskEvent builds this viewer's ranked view of a snapshot. Ranking always
// runs client-side of the store, whichever query shape produced the
// snapshot; the only-mine filter is applied after ranking.
func (c *Client) taskEvent(tasks []models.Task, fallback bool) models.WebSocketEvent {
	ranked := ranking.Ranked(tasks, c.userID, time.Now())
	if c.onlyMine {
		ranked = ranking.FilterAssignedTo(ranked, c.userID)
	}
	return models.WebSocketEvent{
		Type:      models.EventTypeTaskList,
		Tasks:     ranked,
		Fallback:  fallback,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func marshalEvent(event models.WebSocketEvent) ([]byte, error) {
	return json.Marshal(event)
}

// ReadPump drains the connection for liveness. Inbound frames carry no
// commands; all mutations go through the HTTP API and come back as new
// snapshots.
func (c *Client) ReadPump() {
	defer func() {
		if c.hub != nil {
			c.hub.Unregister <- c
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RoomsPump feeds room-list snapshots from a per-connection subscription
// until the selector or the connection goes away. The selector is released
// on every exit path.
func (c *Client) RoomsPump(selector *livequery.Selector[models.Room]) {
	defer selector.Close()
	defer close(c.send)

	for rooms := range selector.Snapshots() {
		event := models.WebSocketEvent{
			Type:      models.EventTypeRoomList,
			Rooms:     rooms,
			Fallback:  selector.State() == livequery.StateSubscribedFallback,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		data, err := marshalEvent(event)
		if err != nil {
			logger.Error("Error marshaling room snapshot: %v", err)
			continue
		}
		select {
		case c.send <- data:
		default:
			return
		}
	}

	if err := selector.Err(); err != nil {
		logger.Error("Rooms subscription for user %s failed: %v", c.userID, err)
		event := models.WebSocketEvent{
			Type:      models.EventTypeError,
			Message:   "live room updates unavailable",
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if data, merr := marshalEvent(event); merr == nil {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

func rankFallbackTasks(tasks []models.Task) {
	ranking.TasksByUpdatedAtDesc(tasks)
}
