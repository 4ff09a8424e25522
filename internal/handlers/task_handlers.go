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

type TaskHandlers struct {
	taskService *services.TaskService
	roomService *services.RoomService
	authService *auth.Service
}

func NewTaskHandlers(taskService *services.TaskService, roomService *services.RoomService, authService *auth.Service) *TaskHandlers {
	return &TaskHandlers{
		taskService: taskService,
		roomService: roomService,
		authService: authService,
	}
}

// member authenticates the caller and checks room membership; every task
// operation is member-only.
func (h *TaskHandlers) member(w http.ResponseWriter, r *http.Request, roomID string) (*models.User, bool) {
	user, err := bearerUser(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	isMember, err := h.roomService.IsMember(r.Context(), roomID, user.UID)
	if err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "room not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "failed to check membership", http.StatusInternalServerError)
		return nil, false
	}
	if !isMember {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return nil, false
	}
	return user, true
}

func (h *TaskHandlers) ListTasks(w http.ResponseWriter, r *http.Request, roomID string) {
	user, ok := h.member(w, r, roomID)
	if !ok {
		return
	}

	onlyMine := r.URL.Query().Get("mine") == "1"
	tasks, err := h.taskService.ListTasks(r.Context(), roomID, user.UID, onlyMine)
	if err != nil {
		logger.Error("List tasks error: %v", err)
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

func (h *TaskHandlers) CreateTask(w http.ResponseWriter, r *http.Request, roomID string) {
	user, ok := h.member(w, r, roomID)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), roomID, user.UID, &req)
	if err != nil {
		logger.Error("Create task error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandlers) UpdateTask(w http.ResponseWriter, r *http.Request, roomID, taskID string) {
	if _, ok := h.member(w, r, roomID); !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.taskService.UpdateTask(r.Context(), roomID, taskID, &req); err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		logger.Error("Update task error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandlers) MarkTaskDone(w http.ResponseWriter, r *http.Request, roomID, taskID string) {
	if _, ok := h.member(w, r, roomID); !ok {
		return
	}

	if err := h.taskService.MarkDone(r.Context(), roomID, taskID); err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		logger.Error("Mark done error: %v", err)
		http.Error(w, "failed to mark task done", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandlers) DeleteTask(w http.ResponseWriter, r *http.Request, roomID, taskID string) {
	if _, ok := h.member(w, r, roomID); !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), roomID, taskID); err != nil {
		if store.IsNotFound(err) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		logger.Error("Delete task error: %v", err)
		http.Error(w, "failed to delete task", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandlers) ReorderTasks(w http.ResponseWriter, r *http.Request, roomID string) {
	if _, ok := h.member(w, r, roomID); !ok {
		return
	}

	var req models.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.TaskIDs) == 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.taskService.Reorder(r.Context(), roomID, req.TaskIDs); err != nil {
		logger.Error("Reorder error: %v", err)
		http.Error(w, "failed to reorder tasks", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
