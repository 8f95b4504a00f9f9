// chatwatch is a headless chat watcher: it logs in with a session token,
// lists every room visible to the user, watches them all over the message
// bus, and serves read-status and Prometheus metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/talent-catalog/chat-client/internal/auth"
	"github.com/talent-catalog/chat-client/internal/bus"
	"github.com/talent-catalog/chat-client/internal/chat"
	"github.com/talent-catalog/chat-client/internal/directory"
	"github.com/talent-catalog/chat-client/internal/metrics"
)

func main() {
	busConfig := bus.DefaultConfig()
	if v := os.Getenv("BUS_URL"); v != "" {
		busConfig.URL = v
	}
	if v := os.Getenv("CLIENT_NAME"); v != "" {
		busConfig.ClientName = v
	}
	if v := os.Getenv("PING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			busConfig.PingInterval = d
		}
	}
	if v := os.Getenv("RECONNECT_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			busConfig.ReconnectWait = d
		}
	}

	apiBaseURL := "http://localhost:8080/api"
	if v := os.Getenv("API_BASE_URL"); v != "" {
		apiBaseURL = v
	}
	listenAddr := ":8090"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		listenAddr = v
	}
	redisAddr := os.Getenv("REDIS_ADDR") // empty = in-memory read marks only

	token := os.Getenv("AUTH_TOKEN")
	if token == "" {
		log.Fatal("AUTH_TOKEN is required")
	}

	authn := auth.NewAuthenticator()
	authn.Login(token)

	// Read-mark snapshots: Redis-backed when configured, scoped to the
	// token's subject so marks are not shared across accounts.
	var snapshots chat.SnapshotStore = chat.NewMemorySnapshots()
	if redisAddr != "" {
		scope := "anonymous"
		if ident, ok := authn.Identity(); ok && ident.Subject != "" {
			scope = ident.Subject
		}
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("redis connection failed: %v", err)
		}
		cancel()
		snapshots = chat.NewRedisSnapshots(client, scope)
	}

	conns := bus.NewManager(busConfig, authn)
	svc := chat.NewService(conns, snapshots)
	binder := chat.NewBinder(svc, conns, authn)
	dir := directory.NewClient(apiBaseURL, authn)

	log.Printf("chatwatch starting")
	log.Printf("  bus_url:        %s", busConfig.URL)
	log.Printf("  api_base_url:   %s", apiBaseURL)
	log.Printf("  listen_addr:    %s", listenAddr)
	log.Printf("  ping_interval:  %s", busConfig.PingInterval)
	log.Printf("  reconnect_wait: %s", busConfig.ReconnectWait)
	if redisAddr != "" {
		log.Printf("  redis_addr:     %s", redisAddr)
	}

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	rooms, err := dir.ListRooms(ctx)
	if err != nil {
		log.Fatalf("list rooms: %v", err)
	}
	log.Printf("watching %d rooms", len(rooms))

	for _, room := range rooms {
		stream, err := svc.Watch(ctx, room)
		if err != nil {
			log.Fatalf("watch room %d: %v", room.ID, err)
		}
		go func(room chat.ChatRoom, stream <-chan chat.InboundMessage) {
			for msg := range stream {
				log.Printf("[watch] room %d (%s): %d bytes", room.ID, room.Type, len(msg.Data))
			}
		}(room, stream)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		type roomStatus struct {
			ID   int64         `json:"id"`
			Type chat.RoomType `json:"type"`
			Name string        `json:"name,omitempty"`
			Read bool          `json:"read"`
		}
		statuses := make([]roomStatus, 0, len(rooms))
		for _, room := range rooms {
			statuses = append(statuses, roomStatus{
				ID:   room.ID,
				Type: room.Type,
				Name: room.Name,
				Read: svc.IsRead(room),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statuses)
	})

	server := &http.Server{Addr: listenAddr, Handler: r}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)

		// Logout drives the full chat teardown through the binder.
		authn.Logout()
		binder.Close()
		cancelCtx()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
	log.Printf("chatwatch stopped")
}
