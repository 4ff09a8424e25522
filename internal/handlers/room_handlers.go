package handlers

import (
	"encoding/json"
	"net/http"

	"taskcolab/internal/auth"
	"taskcolab/internal/models"
	"taskcolab/internal/services"
	"taskcolab/internal/store"
	"taskcolab/pkg/logger"
)

type RoomHandlers struct {
	roomService *services.RoomService
	authService *auth.Service
}

func NewRoomHandlers(roomService *services.RoomService, authService *auth.Service) *RoomHandlers {
	return &RoomHandlers{
		roomService: roomService,
		authService: authService,
	}
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, err := bearerUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), &req, user.UID)
	if err != nil {
		logger.Error("Create room error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(room)
}

// ListRooms returns the caller's rooms, most recently updated first. A
// signed-out caller is rejected by auth; a signed-in caller with no rooms
// gets an empty list, never an error.
func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	user, err := bearerUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rooms, err := h.roomService.ListRooms(r.Context(), user.UID)
	if err != nil {
		logger.Error("List rooms error: %v", err)
		http.Error(w, "failed to list rooms", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

func (h *RoomHandlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	user, err := bearerUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.JoinRoom(r.Context(), &req, user.UID)
	if err != nil {
		logger.Error("Join room error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

func (h *RoomHandlers) GetRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	user, err := bearerUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	isMember, err := h.roomService.IsMember(r.Context(), roomID, user.UID)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load room", http.StatusInternalServerError)
		return
	}
	if !isMember {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	detail, err := h.roomService.RoomDetail(r.Context(), roomID)
	if err != nil {
		logger.Error("Room detail error: %v", err)
		http.Error(w, "failed to load room", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}
