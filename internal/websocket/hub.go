package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries hub messages between instances.
const ClusterChannel = "chatproxy:hub_events"

const MessageTypeChatflowSync = "chatflow_sync"

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Hub keeps the connected websocket clients of this instance and fans sync
// notifications out to them. With Redis every instance relays the messages
// published by the others.
type Hub struct {
	// user id -> connections (multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb        *redis.Client
	instanceId string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserId] = append(h.clients[client.UserId], client)
			h.mu.Unlock()
			h.logger.Info("HUB", "Client registered", map[string]interface{}{"user_id": client.UserId})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.UserId]
	for i, c := range clients {
		if c == client {
			h.clients[client.UserId] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserId]) == 0 {
		delete(h.clients, client.UserId)
		h.logger.Info("HUB", "Client completely unregistered", map[string]interface{}{"user_id": client.UserId})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userId, clients := range h.clients {
		for _, c := range clients {
			close(c.Send)
		}
		delete(h.clients, userId)
	}
}

// ConnectedClients counts local connections.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// NotifySync broadcasts a finished sync run to every connected client.
func (h *Hub) NotifySync(result *dto.SyncResultResponse) {
	data, err := json.Marshal(envelope{Type: MessageTypeChatflowSync, Data: result})
	if err != nil {
		h.logger.Error("HUB", "Failed to encode sync notification", map[string]interface{}{"error": err})
		return
	}

	h.deliver(data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instanceId, Message: data})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("HUB", "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

// deliver never blocks; a client with a full buffer misses the message.
func (h *Hub) deliver(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userId, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("HUB", "Client send buffer full, dropping message", map[string]interface{}{"user_id": userId})
			}
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.relayClusterMessage([]byte(msg.Payload))
		}
	}
}

func (h *Hub) relayClusterMessage(payload []byte) {
	var m clusterMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		h.logger.Warn("HUB", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	// Already delivered locally by NotifySync.
	if m.Origin == h.instanceId {
		return
	}
	h.deliver(m.Message)
}
