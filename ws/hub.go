package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventPublisher is what services use to broadcast. The processing
// service depends on this instead of *Hub so it can be tested alone.
type EventPublisher interface {
	BroadcastToAll(event Event)
}

// Hub tracks connections per user id (one user may have several tabs).
//
// Registration goes through channels served by Run, so adding and removing
// clients never races with itself. Broadcasts do not go through Run: they
// take the read lock and write straight into each client's buffered send
// channel. That keeps a broadcast from the processing job from waiting on
// a connect or disconnect.
//
// Each event gets a hub-wide sequence number. A client that reconnects can
// compare it with the last one it saw to tell it missed events and reload.
//
// Lifecycle:
//
//	hub := ws.NewHub(logger)
//	go hub.Run()
//	...
//	hub.Shutdown() // write pumps close their sockets, Run returns
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	seq    atomic.Int64
	logger *zap.Logger
}

// NewHub returns a hub; start it with `go hub.Run()`.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register/unregister until Shutdown.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug("client connected",
		zap.Int64("user_id", client.userID),
		zap.Int("connections", len(h.clients[client.userID])))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	h.logger.Debug("client disconnected", zap.Int64("user_id", client.userID))
}

// BroadcastToAll sends event to every connection.
//
// The event is marshalled once and the same bytes go to every client. A
// client whose send buffer is full is dropped instead of blocking the
// caller; the drop runs in its own goroutine because it needs the write
// lock while we hold the read lock. A dropped dashboard reconnects and
// reloads.
func (h *Hub) BroadcastToAll(event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", zap.String("op", event.Op), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				go h.drop(client)
			}
		}
	}
}

// ConnectionCount is the number of open sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// Shutdown closes every connection and stops Run.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, clients := range h.clients {
			for client := range clients {
				close(client.send)
			}
		}
		h.clients = make(map[int64]map[*Client]bool)
		h.logger.Info("hub shut down")
	})
}

// drop unregisters a client unless the hub is already gone.
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
