package hub

import (
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/boardlab/notify-api/pkg/errors"
	"github.com/boardlab/notify-api/pkg/metrics"

	"github.com/boardlab/notify-api/internal/model"
)

type Config struct {
	// BufferSize is the capacity of each handle's event channel. A publish
	// against a full channel is dropped, never blocked on.
	BufferSize int
	// MaxSubscribers caps the registry size. Zero means unlimited.
	MaxSubscribers int
}

// Hub routes live notifications to connected clients. It holds at most one
// handle per user; a second subscribe for the same user replaces and closes
// the first. Publish is best-effort, the persisted notification row remains
// the durable record.
type Hub struct {
	config  Config
	handles map[uuid.UUID]*Handle
	mu      sync.RWMutex
	metrics *metrics.Metrics
}

// Handle is one user's live stream registration. The transport layer reads
// Events until Done is closed.
type Handle struct {
	userID    uuid.UUID
	events    chan *model.Notification
	done      chan struct{}
	closeOnce sync.Once
}

func (h *Handle) UserID() uuid.UUID { return h.userID }

func (h *Handle) Events() <-chan *model.Notification { return h.events }

// Done is closed when the handle is replaced, unsubscribed or the hub shuts
// down.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func NewHub(config Config, m *metrics.Metrics) *Hub {
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}
	return &Hub{
		config:  config,
		handles: make(map[uuid.UUID]*Handle),
		metrics: m,
	}
}

// Subscribe registers a live stream for userID, replacing and closing any
// prior handle for the same user. Replacement never counts against the
// registry cap.
func (h *Hub) Subscribe(userID uuid.UUID) (*Handle, error) {
	h.mu.Lock()
	prior := h.handles[userID]
	if prior == nil && h.config.MaxSubscribers > 0 && len(h.handles) >= h.config.MaxSubscribers {
		h.mu.Unlock()
		return nil, apperrors.ResourceExhausted("subscriber registry full")
	}

	handle := &Handle{
		userID: userID,
		events: make(chan *model.Notification, h.config.BufferSize),
		done:   make(chan struct{}),
	}
	h.handles[userID] = handle
	count := len(h.handles)
	h.mu.Unlock()

	if prior != nil {
		prior.close()
	}
	if h.metrics != nil {
		h.metrics.HubSubscribers.Set(float64(count))
	}

	return handle, nil
}

// Unsubscribe removes the registration if it still belongs to handle, so a
// late cleanup cannot evict a handle that already replaced it. Idempotent.
func (h *Hub) Unsubscribe(userID uuid.UUID, handle *Handle) {
	if handle == nil {
		return
	}

	h.mu.Lock()
	if h.handles[userID] == handle {
		delete(h.handles, userID)
	}
	count := len(h.handles)
	h.mu.Unlock()

	handle.close()
	if h.metrics != nil {
		h.metrics.HubSubscribers.Set(float64(count))
	}
}

// Publish pushes a notification onto the user's stream if one is open. It
// never blocks and never fails: no subscriber, a closed handle or a full
// channel all drop the event silently.
func (h *Hub) Publish(userID uuid.UUID, n *model.Notification) {
	h.mu.RLock()
	handle := h.handles[userID]
	h.mu.RUnlock()

	if handle == nil {
		h.drop("no_subscriber")
		return
	}

	select {
	case <-handle.done:
		h.drop("closed")
	case handle.events <- n:
		if h.metrics != nil {
			h.metrics.HubPublished.Inc()
		}
	default:
		h.drop("full")
	}
}

// Close shuts down every open handle. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	handles := make([]*Handle, 0, len(h.handles))
	for _, handle := range h.handles {
		handles = append(handles, handle)
	}
	h.handles = make(map[uuid.UUID]*Handle)
	h.mu.Unlock()

	for _, handle := range handles {
		handle.close()
	}
	if h.metrics != nil {
		h.metrics.HubSubscribers.Set(0)
	}
}

// Subscribers returns the current registry size.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handles)
}

func (h *Hub) drop(reason string) {
	if h.metrics != nil {
		h.metrics.HubDropped.WithLabelValues(reason).Inc()
	}
}
