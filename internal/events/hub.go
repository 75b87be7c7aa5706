// Package events fans out silo change notifications to connected hosts so
// they can refresh a media browser without polling.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event types.
const (
	TypeAuthorized     = "authorized"
	TypeDeauthorized   = "deauthorized"
	TypeAlbumCreated   = "album-created"
	TypePhotoUploaded  = "photo-uploaded"
	TypeSizeChanged    = "size-changed"
	TypeConfigReloaded = "config-reloaded"
)

// subscriberBuffer is how many events a subscriber may fall behind before
// it is dropped.
const subscriberBuffer = 16

// Event is one change notification. An empty Identity addresses every
// subscriber.
type Event struct {
	Type     string    `json:"type"`
	Identity string    `json:"identity,omitempty"`
	Path     string    `json:"path,omitempty"`
	Time     time.Time `json:"time"`
}

// Subscription receives the events for one identity. C is closed when the
// subscription ends, either by Cancel or because the subscriber fell behind.
type Subscription struct {
	C        <-chan Event
	identity string
	ch       chan Event
	hub      *Hub
}

// Cancel ends the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.hub.remove(s)
}

// Hub tracks subscribers by identity.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	logger *slog.Logger
	now    func() time.Time
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a subscriber for identity.
func (h *Hub) Subscribe(identity string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, identity: identity, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[identity] == nil {
		h.subs[identity] = make(map[*Subscription]struct{})
	}

	h.subs[identity][sub] = struct{}{}

	h.logger.Debug("event subscriber added", slog.String("identity", identity))

	return sub
}

// Publish delivers ev without blocking. A subscriber whose buffer is full
// is dropped; it sees its channel close and can reconnect.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for identity, set := range h.subs {
		if ev.Identity != "" && ev.Identity != identity {
			continue
		}

		for sub := range set {
			select {
			case sub.ch <- ev:
			default:
				h.logger.Warn("dropping slow event subscriber", slog.String("identity", identity))
				h.removeLocked(sub)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}

	return n
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	set := h.subs[sub.identity]
	if _, ok := set[sub]; !ok {
		return
	}

	delete(set, sub)
	close(sub.ch)

	if len(set) == 0 {
		delete(h.subs, sub.identity)
	}
}
