package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

// ChangeStream is the watch cursor consumed by the forwarder.
// *mongo.ChangeStream satisfies it; tests substitute a fake.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// WatchFunc establishes the underlying watch. It must fail fast when the
// store cannot support change notification (e.g. not a replica set).
type WatchFunc func(ctx context.Context) (ChangeStream, error)

type changeEvent struct {
	FullDocument *domain.ReadingProgress `bson:"fullDocument"`
}

// Notifier bridges one collection-wide change stream into per-key hub
// channels. It does not reconnect: a broken stream closes every open
// subscription with an error and marks the notifier unavailable.
type Notifier struct {
	log *logger.Logger
	hub *Hub

	mu      sync.Mutex
	running bool
	failure error
}

func NewNotifier(log *logger.Logger, hub *Hub) *Notifier {
	return &Notifier{
		log: log.With("component", "ProgressNotifier"),
		hub: hub,
	}
}

// Start opens the watch synchronously so configuration problems surface at
// startup, then forwards events until ctx is cancelled or the stream
// breaks.
func (n *Notifier) Start(ctx context.Context, watch WatchFunc) error {
	stream, err := watch(ctx)
	if err != nil {
		n.fail(err)
		return apierr.NotificationUnsupported(err)
	}

	n.mu.Lock()
	n.running = true
	n.failure = nil
	n.mu.Unlock()

	go n.forward(ctx, stream)
	return nil
}

func (n *Notifier) forward(ctx context.Context, stream ChangeStream) {
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			n.log.Warn("closing change stream", "error", err)
		}
	}()

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			n.log.Warn("undecodable change event", "error", err)
			continue
		}
		if event.FullDocument == nil {
			continue
		}
		n.hub.Broadcast(*event.FullDocument)
	}

	err := stream.Err()
	if err == nil || ctx.Err() != nil {
		// Orderly shutdown: end the open streams without an error signal.
		n.fail(fmt.Errorf("notifier stopped"))
		n.hub.CloseAll(nil)
		return
	}

	n.log.Error("change stream broke", "error", err)
	n.fail(err)
	n.hub.CloseAll(err)
}

func (n *Notifier) fail(err error) {
	n.mu.Lock()
	n.running = false
	n.failure = err
	n.mu.Unlock()
}

// Subscribe registers a live subscription filtered to one (userId,
// documentId) pair. It fails fast with a notification_unsupported error
// when no watch is active, instead of handing out a stream that will never
// produce.
func (n *Notifier) Subscribe(userID, documentID string) (*Subscription, error) {
	if userID == "" || documentID == "" {
		return nil, apierr.Validation("userId and documentId are required")
	}

	n.mu.Lock()
	running, failure := n.running, n.failure
	n.mu.Unlock()
	if !running {
		if failure == nil {
			failure = fmt.Errorf("notifier not started")
		}
		return nil, apierr.NotificationUnsupported(failure)
	}

	return n.hub.Subscribe(ProgressChannel(userID, documentID)), nil
}
