package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"sentinel-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ClusterChannel relays run events between service instances.
const ClusterChannel = "sentinel_run_events"

type Hub struct {
	// Registered clients: RunId -> every socket watching that run
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out; nil runs single-instance
	rdb *redis.Client

	// instance tags relayed messages so an instance skips its own echo
	instance string

	logger logger.ILogger
}

type relayMessage struct {
	Instance string          `json:"instance"`
	RunId    string          `json:"run_id"`
	Message  json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, instance string, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instance:   instance,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.RunId] = append(h.clients[client.RunId], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"run_id": client.RunId})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.RunId]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.RunId] = append(clients[:i], clients[i+1:]...)
			client.closeSend()
			break
		}
	}
	if len(h.clients[client.RunId]) == 0 {
		delete(h.clients, client.RunId)
		h.logger.Info("Hub", "Last watcher left run", map[string]interface{}{"run_id": client.RunId})
	}
}

// Watchers returns how many local sockets follow runId.
func (h *Hub) Watchers(runId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runId])
}

// SendRun delivers one encoded event to every local watcher of runId and
// relays it to the other instances.
func (h *Hub) SendRun(runId string, data []byte) {
	h.deliverLocal(runId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(relayMessage{Instance: h.instance, RunId: runId, Message: data})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis relay publish failed", map[string]interface{}{"run_id": runId, "error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(runId string, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[runId]...)
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping watcher", map[string]interface{}{"run_id": runId})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload relayMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("[WARN] Redis relay parse error: %v", err)
			continue
		}
		if payload.Instance == h.instance {
			continue
		}
		h.deliverLocal(payload.RunId, payload.Message)
	}
}
