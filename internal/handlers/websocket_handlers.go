package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"taskcolab/internal/auth"
	"taskcolab/internal/livequery"
	"taskcolab/internal/models"
	"taskcolab/internal/ranking"
	"taskcolab/internal/services"
	"taskcolab/internal/store"
	ws "taskcolab/internal/websocket"
	"taskcolab/pkg/logger"
)

type WebSocketHandlers struct {
	authService *auth.Service
	roomService *services.RoomService
	hubManager  *ws.Manager
	db          *store.Mongo
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, roomService *services.RoomService, hubManager *ws.Manager, db *store.Mongo) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		roomService: roomService,
		hubManager:  hubManager,
		db:          db,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and attaches it to one live
// target: the given room's tasks when ?room= is present, otherwise the
// caller's room list. One connection holds exactly one target; switching
// rooms means reconnecting, which releases the old subscription.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.GetUserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	roomID := r.URL.Query().Get("room")
	onlyMine := r.URL.Query().Get("mine") == "1"

	if roomID != "" {
		h.serveRoomTasks(w, r, user, roomID, onlyMine)
		return
	}
	h.serveRoomList(w, r, user)
}

func (h *WebSocketHandlers) serveRoomTasks(w http.ResponseWriter, r *http.Request, user *models.User, roomID string, onlyMine bool) {
	isMember, err := h.roomService.IsMember(r.Context(), roomID, user.UID)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, "error checking room access", http.StatusInternalServerError)
		return
	}
	if !isMember {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	hub, err := h.hubManager.GetHubForRoom(roomID)
	if err != nil {
		logger.Error("Error opening task subscription for room %s: %v", roomID, err)
		http.Error(w, "error opening live updates", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(hub, conn, user.UID, onlyMine)
	hub.Register <- client

	go client.WritePump()
	client.ReadPump()
}

func (h *WebSocketHandlers) serveRoomList(w http.ResponseWriter, r *http.Request, user *models.User) {
	uid := user.UID
	selector, err := livequery.New(livequery.Config[models.Room]{
		Preferred: func(ctx context.Context) (livequery.Subscription[models.Room], error) {
			return h.db.WatchRooms(ctx, uid, true)
		},
		Fallback: func(ctx context.Context) (livequery.Subscription[models.Room], error) {
			return h.db.WatchRooms(ctx, uid, false)
		},
		Sort:       ranking.RoomsByUpdatedAtDesc,
		Degradable: store.IsMissingIndex,
	})
	if err != nil {
		http.Error(w, "error opening live updates", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	selector.Start(context.Background())
	client := ws.NewClient(nil, conn, uid, false)

	go client.RoomsPump(selector)
	go client.WritePump()
	client.ReadPump()
	selector.Close()
}
