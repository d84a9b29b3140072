package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gamedev-cards/internal/domain"
)

// Message types
const (
	MessageTypeDirectoryUpdate = "directory_update"
	MessageTypeOperationUpdate = "operation_update"
	MessageTypeSubscribe       = "subscribe"
	MessageTypeUnsubscribe     = "unsubscribe"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeError           = "error"
)

// TopicExplorer carries directory updates for the Space Explorer
const TopicExplorer = "explorer"

const addressTopicPrefix = "address:"

// AddressTopic is the topic carrying operation updates for one wallet
func AddressTopic(address string) string {
	return addressTopicPrefix + address
}

// ValidTopic reports whether clients may subscribe to topic
func ValidTopic(topic string) bool {
	if topic == TopicExplorer {
		return true
	}
	addr, ok := strings.CutPrefix(topic, addressTopicPrefix)
	return ok && domain.ValidAddress(addr)
}

// Message represents a WebSocket message
type Message struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DirectoryUpdate tells explorer clients to reload
type DirectoryUpdate struct {
	Total   int      `json:"total"`
	Changed []string `json:"changed,omitempty"`
}

// Hub maintains the set of active clients and fans messages out by topic
type Hub struct {
	// Subscribed clients by topic
	topics map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register     chan *Client
	unregister   chan *Client
	broadcast    chan *Message
	subscription chan subscriptionRequest

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	topic  string
	remove bool
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		topics:       make(map[string]map[*Client]bool),
		allClients:   make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan *Message, 256),
		subscription: make(chan subscriptionRequest, 64),
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for topic := range h.topics {
					h.dropLocked(topic, client)
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscription:
			h.mu.Lock()
			if req.remove {
				h.dropLocked(req.topic, req.client)
			} else if h.allClients[req.client] {
				if _, ok := h.topics[req.topic]; !ok {
					h.topics[req.topic] = make(map[*Client]bool)
				}
				h.topics[req.topic][req.client] = true
			}
			h.mu.Unlock()
			h.logger.Debug("subscription changed",
				"client_id", req.client.id,
				"topic", req.topic,
				"remove", req.remove,
			)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) dropLocked(topic string, client *Client) {
	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the subscribers of its topic
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	for client := range h.topics[message.Topic] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "type", message.Type)
	}
}

// BroadcastDirectoryUpdate tells explorer subscribers the directory changed
func (h *Hub) BroadcastDirectoryUpdate(total int, changed []string) {
	h.enqueue(&Message{
		Type:      MessageTypeDirectoryUpdate,
		Topic:     TopicExplorer,
		Data:      DirectoryUpdate{Total: total, Changed: changed},
		Timestamp: time.Now(),
	})
}

// OperationChanged sends a ledger status change to the operation's wallet topic
func (h *Hub) OperationChanged(op domain.PendingOperation) {
	h.enqueue(&Message{
		Type:      MessageTypeOperationUpdate,
		Topic:     AddressTopic(op.Address),
		Data:      op,
		Timestamp: time.Now(),
	})
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe adds a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscription <- subscriptionRequest{client: client, topic: topic}:
	case <-h.ctx.Done():
	}
}

// Unsubscribe removes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	select {
	case h.subscription <- subscriptionRequest{client: client, topic: topic, remove: true}:
	case <-h.ctx.Done():
	}
}

// SubscriberCount returns the number of subscribers of a topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TotalConnections returns the total number of connected clients
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
