// Package notify keeps the process-scoped registry of open SSE connections.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBuffer = 16

// Event is one server-sent event, already JSON encoded.
type Event struct {
	Name string
	Data []byte
}

type client struct {
	userID   string
	ch       chan Event
	lastSeen time.Time
}

// Registry maps connection ids to their sender channel.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*client
	buffer  int
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*client),
		buffer:  defaultBuffer,
		now:     time.Now,
	}
}

// Register opens a connection for userID and returns its id and receive channel.
func (r *Registry) Register(userID string) (string, <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	c := &client{userID: userID, ch: make(chan Event, r.buffer), lastSeen: r.now()}
	r.clients[id] = c
	return id, c.ch
}

// Unregister closes the connection channel. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(id)
}

func (r *Registry) remove(id string) {
	if c, ok := r.clients[id]; ok {
		close(c.ch)
		delete(r.clients, id)
	}
}

// Touch marks the connection alive, called on every heartbeat written.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.lastSeen = r.now()
	}
}

// Prune drops connections idle for longer than maxIdle.
func (r *Registry) Prune(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	pruned := 0
	for id, c := range r.clients {
		if now.Sub(c.lastSeen) > maxIdle {
			r.remove(id)
			pruned++
		}
	}
	return pruned
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Broadcast delivers to every connection and returns how many accepted it.
// Connections with a full buffer miss the event.
func (r *Registry) Broadcast(event string, data any) int {
	return r.deliver(event, data, func(*client) bool { return true })
}

// SendToUser delivers to every connection opened by userID.
func (r *Registry) SendToUser(userID, event string, data any) int {
	return r.deliver(event, data, func(c *client) bool { return c.userID == userID })
}

func (r *Registry) deliver(event string, data any, match func(*client) bool) int {
	payload, err := json.Marshal(data)
	if err != nil {
		return 0
	}
	ev := Event{Name: event, Data: payload}

	r.mu.Lock()
	defer r.mu.Unlock()

	sent := 0
	for _, c := range r.clients {
		if !match(c) {
			continue
		}
		select {
		case c.ch <- ev:
			sent++
		default:
		}
	}
	return sent
}
