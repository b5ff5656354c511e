package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const broadcastBuffer = 256

// Hub maintains the set of active clients and fans events out by topic
type Hub struct {
	// Registered clients organized by topic
	clients map[string]map[*Client]bool

	// Events waiting to be delivered
	broadcast chan *Event

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	listenersMu sync.RWMutex
	listeners   []chan *Event

	now    func() time.Time
	logger zerolog.Logger
}

// Event is one notification delivered to subscribers of Topic
type Event struct {
	Topic     string      `json:"topic"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *Event, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]bool),
		now:        time.Now,
		logger:     logger.With().Str("component", "websocket_hub").Logger(),
	}
}

// Run handles registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Publish queues an event for every subscriber of topic. It never blocks: when
// the queue is full the event is dropped and logged.
func (h *Hub) Publish(topic, eventType string, payload interface{}) {
	event := &Event{Topic: topic, Type: eventType, Payload: payload, Timestamp: h.now().UTC()}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("topic", topic).Str("type", eventType).Msg("Event queue full, dropping event")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range client.topics {
		if _, ok := h.clients[topic]; !ok {
			h.clients[topic] = make(map[*Client]bool)
		}
		h.clients[topic][client] = true
	}

	h.logger.Info().
		Str("userID", client.userID).
		Strs("topics", client.topics).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := false
	for _, topic := range client.topics {
		subscribers, ok := h.clients[topic]
		if !ok || !subscribers[client] {
			continue
		}
		delete(subscribers, client)
		removed = true
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
	if removed {
		close(client.send)
		h.logger.Info().Str("userID", client.userID).Msg("Client unregistered")
	}
}

// deliver runs on the hub goroutine; slow clients are dropped after the read lock is released
func (h *Hub) deliver(event *Event) {
	h.notifyListeners(event)

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", event.Topic).Msg("Failed to marshal event")
		return
	}

	var slow []*Client
	h.mu.RLock()
	subscribers := h.clients[event.Topic]
	for client := range subscribers {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	count := len(subscribers)
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn().Str("userID", client.userID).Msg("Client send buffer full, disconnecting")
		h.unregisterClient(client)
	}

	h.logger.Debug().
		Str("topic", event.Topic).
		Str("type", event.Type).
		Int("clientCount", count).
		Msg("Event delivered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := make(map[*Client]bool)
	for _, subscribers := range h.clients {
		for client := range subscribers {
			if !closed[client] {
				close(client.send)
				closed[client] = true
			}
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}

func (h *Hub) notifyListeners(event *Event) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- event:
		default:
			h.logger.Warn().Msg("Skipped slow event listener")
		}
	}
}

// ClientCount returns the number of clients subscribed to topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// AddListener registers a channel that receives every delivered event
func (h *Hub) AddListener(listener chan *Event) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, listener)
}

// RemoveListener removes a listener from the hub
func (h *Hub) RemoveListener(listener chan *Event) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	for i, l := range h.listeners {
		if l == listener {
			h.listeners[i] = h.listeners[len(h.listeners)-1]
			h.listeners = h.listeners[:len(h.listeners)-1]
			return
		}
	}
}
