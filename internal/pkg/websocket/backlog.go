package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Backlog remembers the most recent events per topic so a client that connects
// late still sees what just happened on its topics.
type Backlog struct {
	hub    *Hub
	limit  int
	events chan *Event

	mu     sync.RWMutex
	recent map[string][]*Event

	logger zerolog.Logger
}

// NewBacklog creates a backlog keeping up to limit events per topic
func NewBacklog(hub *Hub, limit int, logger zerolog.Logger) *Backlog {
	return &Backlog{
		hub:    hub,
		limit:  limit,
		events: make(chan *Event, broadcastBuffer),
		recent: make(map[string][]*Event),
		logger: logger,
	}
}

// Start subscribes to the hub and records events until Stop is called
func (b *Backlog) Start() {
	b.hub.AddListener(b.events)
	go func() {
		for event := range b.events {
			b.record(event)
		}
	}()
}

// Stop detaches the backlog from the hub
func (b *Backlog) Stop() {
	b.hub.RemoveListener(b.events)
	close(b.events)
}

func (b *Backlog) record(event *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := append(b.recent[event.Topic], event)
	if len(events) > b.limit {
		events = events[len(events)-b.limit:]
	}
	b.recent[event.Topic] = events
}

// Recent returns the remembered events of topic, oldest first
func (b *Backlog) Recent(topic string) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Event(nil), b.recent[topic]...)
}

// replay encodes the remembered events of every topic, ready to be queued on a client
func (b *Backlog) replay(topics []string) [][]byte {
	var out [][]byte
	for _, topic := range topics {
		for _, event := range b.Recent(topic) {
			data, err := json.Marshal(event)
			if err != nil {
				b.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal backlog event")
				continue
			}
			out = append(out, data)
		}
	}
	return out
}
