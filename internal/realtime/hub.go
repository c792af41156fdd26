// Package realtime delivers reading-progress writes to live subscribers.
// A single change-stream forwarder feeds an in-process hub; each
// subscription filters on one (userId, documentId) channel so a busy store
// never fans irrelevant writes out to every reader.
package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

const subscriptionBuffer = 16

// ProgressChannel is the hub channel key for one (userId, documentId) pair.
func ProgressChannel(userID, documentID string) string {
	return "progress:" + userID + ":" + documentID
}

// Subscription is a cancellable stream of progress snapshots for a single
// channel. There is no backlog: events before Subscribe are never replayed.
type Subscription struct {
	ID      uuid.UUID
	channel string
	events  chan domain.ReadingProgress

	hub       *Hub
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Events is closed when the subscription ends; check Err afterwards to
// distinguish consumer cancellation from a broken upstream watch.
func (s *Subscription) Events() <-chan domain.ReadingProgress {
	return s.events
}

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Close releases the hub registration. Idempotent, safe from any goroutine.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

type Hub struct {
	log *logger.Logger

	mu            sync.RWMutex
	subscriptions map[string]map[*Subscription]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "ProgressHub"),
		subscriptions: make(map[string]map[*Subscription]struct{}),
	}
}

func (h *Hub) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		ID:      uuid.New(),
		channel: channel,
		events:  make(chan domain.ReadingProgress, subscriptionBuffer),
		hub:     h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscriptions[channel]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.subscriptions[channel] = subs
	}
	subs[sub] = struct{}{}

	h.log.Debug("subscriber added", "subscription_id", sub.ID, "channel", channel)
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.closeOnce.Do(func() {
		if subs, ok := h.subscriptions[sub.channel]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.subscriptions, sub.channel)
			}
		}
		close(sub.events)
		h.log.Debug("subscriber removed", "subscription_id", sub.ID, "channel", sub.channel)
	})
}

// SubscriberCount reports how many subscriptions a channel currently has.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}

// Broadcast delivers one snapshot to every subscriber of its channel. Sends
// never block the caller: a subscriber that cannot keep up loses the frame
// and catches up on the next write.
func (h *Hub) Broadcast(progress domain.ReadingProgress) {
	channel := ProgressChannel(progress.UserID, progress.DocumentID)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscriptions[channel] {
		select {
		case sub.events <- progress:
		default:
			h.log.Warn("dropping progress frame; subscriber buffer full",
				"subscription_id", sub.ID, "channel", channel)
		}
	}
}

// CloseAll terminates every open subscription with err. Used when the
// underlying watch breaks mid-stream; reconnecting is the subscriber's
// responsibility.
func (h *Hub) CloseAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel, subs := range h.subscriptions {
		for sub := range subs {
			sub.setErr(err)
			sub.closeOnce.Do(func() {
				close(sub.events)
			})
		}
		delete(h.subscriptions, channel)
	}
}
