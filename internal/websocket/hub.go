package websocket

import (
	"context"
	"sync"
	"time"

	"taskcolab/internal/livequery"
	"taskcolab/internal/models"
	"taskcolab/internal/reminders"
	"taskcolab/internal/store"
	"taskcolab/pkg/logger"
)

// Hub owns the single live task subscription for one room and fans ranked
// snapshots out to the room's connected clients. Each client gets its own
// ranking (self-assignment is a per-viewer tie-break), so the hub keeps
// the raw snapshot and personalizes at send time.
type Hub struct {
	roomID     string
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Reminders  chan reminders.Payload
	shutdown   chan bool
	done       chan struct{}

	selector     *livequery.Selector[models.Task]
	lastTasks    []models.Task
	haveSnapshot bool
	lastActivity time.Time
}

func NewHub(roomID string, selector *livequery.Selector[models.Task]) *Hub {
	return &Hub{
		roomID:       roomID,
		clients:      make(map[*Client]bool),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		Reminders:    make(chan reminders.Payload, 8),
		shutdown:     make(chan bool),
		done:         make(chan struct{}),
		selector:     selector,
		lastActivity: time.Now(),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	defer h.selector.Close()

	for {
		select {
		case <-h.shutdown:
			for client := range h.clients {
				close(client.send)
			}
			return

		case client := <-h.Register:
			h.clients[client] = true
			h.lastActivity = time.Now()
			if h.haveSnapshot {
				h.sendTasks(client, h.lastTasks)
			}
			logger.Info("User %s watching room %s", client.userID, h.roomID)

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.Info("User %s stopped watching room %s", client.userID, h.roomID)
			}

		case tasks, ok := <-h.selector.Snapshots():
			if !ok {
				// Subscription ended. A terminal error is surfaced once to
				// every client; the target is not retried for this hub's
				// lifetime.
				if err := h.selector.Err(); err != nil {
					logger.Error("Task subscription for room %s failed: %v", h.roomID, err)
					h.broadcastError("live task updates unavailable")
				}
				for client := range h.clients {
					close(client.send)
				}
				return
			}
			h.lastActivity = time.Now()
			h.lastTasks = tasks
			h.haveSnapshot = true
			for client := range h.clients {
				h.sendTasks(client, tasks)
			}

		case p := <-h.Reminders:
			h.broadcastReminder(p)
		}
	}
}

// sendTasks ranks the snapshot for this viewer and queues it. A client too
// slow to drain its buffer is dropped, same as any dead connection.
func (h *Hub) sendTasks(client *Client, tasks []models.Task) {
	event := client.taskEvent(tasks, h.selector.State() == livequery.StateSubscribedFallback)
	data, err := marshalEvent(event)
	if err != nil {
		logger.Error("Error marshaling task snapshot: %v", err)
		return
	}
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) broadcastReminder(p reminders.Payload) {
	event := models.WebSocketEvent{
		Type:      models.EventTypeReminder,
		TaskID:    p.TaskID,
		Message:   p.Body,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := marshalEvent(event)
	if err != nil {
		logger.Error("Error marshaling reminder: %v", err)
		return
	}
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) broadcastError(msg string) {
	event := models.WebSocketEvent{
		Type:      models.EventTypeError,
		Message:   msg,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := marshalEvent(event)
	if err != nil {
		return
	}
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) ShutdownHub() {
	select {
	case h.shutdown <- true:
	default:
	}
}

func (h *Hub) Closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Manager keeps one hub per room with clients watching it.
type Manager struct {
	hubs  map[string]*Hub
	mutex sync.Mutex
	db    *store.Mongo
}

func NewManager(db *store.Mongo) *Manager {
	manager := &Manager{
		hubs: make(map[string]*Hub),
		db:   db,
	}

	go manager.cleanupUnusedHubs()
	return manager
}

// GetHubForRoom returns the live hub for the room, creating one (and its
// task subscription) if none exists or the previous one has terminated.
func (m *Manager) GetHubForRoom(roomID string) (*Hub, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	hub, exists := m.hubs[roomID]
	if exists && !hub.Closed() {
		return hub, nil
	}

	selector, err := livequery.New(livequery.Config[models.Task]{
		Preferred: func(ctx context.Context) (livequery.Subscription[models.Task], error) {
			return m.db.WatchTasks(ctx, roomID, true)
		},
		Fallback: func(ctx context.Context) (livequery.Subscription[models.Task], error) {
			return m.db.WatchTasks(ctx, roomID, false)
		},
		Sort:       rankFallbackTasks,
		Degradable: store.IsMissingIndex,
	})
	if err != nil {
		return nil, err
	}
	selector.Start(context.Background())

	hub = NewHub(roomID, selector)
	m.hubs[roomID] = hub
	go hub.Run()
	return hub, nil
}

// DeliverReminder routes a fired reminder to the room's hub, if anyone is
// watching. Reminders for idle rooms are only logged.
func (m *Manager) DeliverReminder(channelID string, p reminders.Payload) {
	logger.Info("Reminder fired on %s: task=%s room=%s", channelID, p.TaskID, p.RoomID)

	m.mutex.Lock()
	hub, exists := m.hubs[p.RoomID]
	m.mutex.Unlock()
	if !exists || hub.Closed() {
		return
	}
	select {
	case hub.Reminders <- p:
	default:
		logger.Error("Reminder for room %s dropped: hub backlog full", p.RoomID)
	}
}

func (m *Manager) cleanupUnusedHubs() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mutex.Lock()
		for roomID, hub := range m.hubs {
			if hub.Closed() {
				delete(m.hubs, roomID)
				continue
			}
			if len(hub.clients) == 0 && time.Since(hub.lastActivity) > 5*time.Minute {
				hub.ShutdownHub()
				delete(m.hubs, roomID)
				logger.Debug("Cleaned up unused hub for room %s", roomID)
			}
		}
		m.mutex.Unlock()
	}
}

// Shutdown tears down every hub and releases their subscriptions.
func (m *Manager) Shutdown() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for roomID, hub := range m.hubs {
		hub.ShutdownHub()
		delete(m.hubs, roomID)
	}
}
