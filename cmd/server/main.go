package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"taskcolab/internal/auth"
	"taskcolab/internal/config"
	"taskcolab/internal/handlers"
	"taskcolab/internal/middleware"
	"taskcolab/internal/reminders"
	"taskcolab/internal/services"
	"taskcolab/internal/store"
	"taskcolab/internal/websocket"
	"taskcolab/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize document store
	db, err := store.NewMongo(cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Index creation is best-effort: without the compound indexes the live
	// queries degrade to their fallback shape automatically.
	if err := db.EnsureIndexes(context.Background()); err != nil {
		logger.Error("Failed to ensure indexes (live queries will fall back): %v", err)
	}

	// Initialize WebSocket hub manager
	hubManager := websocket.NewManager(db)

	// Initialize reminder scheduler, delivering to open room hubs
	scheduler, err := reminders.NewGocronScheduler(hubManager.DeliverReminder)
	if err != nil {
		logger.Fatal("Failed to create reminder scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Shutdown()

	// Initialize services
	authService := auth.NewService(db, cfg)
	roomService := services.NewRoomService(db)
	taskService := services.NewTaskService(db, scheduler)

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	roomHandlers := handlers.NewRoomHandlers(roomService, authService)
	taskHandlers := handlers.NewTaskHandlers(taskService, roomService, authService)
	wsHandlers := handlers.NewWebSocketHandlers(authService, roomService, hubManager, db)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, roomHandlers, taskHandlers, wsHandlers)

	var handler http.Handler = corsMiddleware(mux)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		handler = middleware.RateLimit(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)(handler)
		logger.Info("Rate limiting enabled via Redis at %s", cfg.Redis.Addr)
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	hubManager.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, roomHandlers *handlers.RoomHandlers, taskHandlers *handlers.TaskHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)

	// Room routes
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			roomHandlers.ListRooms(w, r)
		case http.MethodPost:
			roomHandlers.CreateRoom(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Room sub-routes
	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
		// parts: ["", "rooms", {id}, ...]
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /rooms/join
		if len(parts) == 3 && parts[2] == "join" && r.Method == http.MethodPost {
			roomHandlers.JoinRoom(w, r)
			return
		}

		roomID := parts[2]

		// /rooms/{id}
		if len(parts) == 3 && r.Method == http.MethodGet {
			roomHandlers.GetRoom(w, r, roomID)
			return
		}

		// /rooms/{id}/tasks
		if len(parts) == 4 && parts[3] == "tasks" {
			switch r.Method {
			case http.MethodGet:
				taskHandlers.ListTasks(w, r, roomID)
			case http.MethodPost:
				taskHandlers.CreateTask(w, r, roomID)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// /rooms/{id}/tasks/order
		if len(parts) == 5 && parts[3] == "tasks" && parts[4] == "order" && r.Method == http.MethodPut {
			taskHandlers.ReorderTasks(w, r, roomID)
			return
		}

		// /rooms/{id}/tasks/{taskId}[/done]
		if len(parts) >= 5 && parts[3] == "tasks" {
			taskID := parts[4]

			if len(parts) == 6 && parts[5] == "done" && r.Method == http.MethodPost {
				taskHandlers.MarkTaskDone(w, r, roomID, taskID)
				return
			}
			if len(parts) == 5 {
				switch r.Method {
				case http.MethodPatch:
					taskHandlers.UpdateTask(w, r, roomID, taskID)
					return
				case http.MethodDelete:
					taskHandlers.DeleteTask(w, r, roomID, taskID)
					return
				}
			}
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("API endpoints:")
	logger.Info("   POST   /login")
	logger.Info("   POST   /register")
	logger.Info("   GET    /rooms")
	logger.Info("   POST   /rooms")
	logger.Info("   POST   /rooms/join")
	logger.Info("   GET    /rooms/{id}")
	logger.Info("   GET    /rooms/{id}/tasks")
	logger.Info("   POST   /rooms/{id}/tasks")
	logger.Info("   PATCH  /rooms/{id}/tasks/{taskId}")
	logger.Info("   POST   /rooms/{id}/tasks/{taskId}/done")
	logger.Info("   DELETE /rooms/{id}/tasks/{taskId}")
	logger.Info("   PUT    /rooms/{id}/tasks/order")
}
