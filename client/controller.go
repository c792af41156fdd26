package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leafmark/leafmark-backend/internal/domain"
)

// State is the controller's position in its sync lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	default:
		return "uninitialized"
	}
}

// Controller reconciles a local reading position with server truth for one
// document at a time. Commits apply optimistically before the network call
// resolves; pushes from the server overwrite local state unconditionally.
type Controller struct {
	api *Client

	mu         sync.Mutex
	state      State
	documentID string
	progress   *domain.ReadingProgress
	stream     *Stream
}

func NewController(api *Client) *Controller {
	return &Controller{api: api}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) DocumentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.documentID
}

// Progress returns a snapshot of the current local state. Nil until a
// document is selected and its initial fetch completes with a record, or a
// commit fabricates one.
func (c *Controller) Progress() *domain.ReadingProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return nil
	}
	snapshot := *c.progress
	return &snapshot
}

// Select switches the controller to a document. The previous subscription
// is torn down before the initial fetch runs, so a stale push from the old
// document cannot land in the new document's state. A failed fetch resets
// to Uninitialized. A failed stream open leaves the fetched state usable
// and returns the error: navigation keeps working locally, only live sync
// is lost.
func (c *Controller) Select(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("documentID is required")
	}

	c.mu.Lock()
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	c.state = StateLoading
	c.documentID = documentID
	c.progress = nil
	c.mu.Unlock()

	progress, err := c.api.FindProgress(ctx, documentID)
	if err != nil {
		c.mu.Lock()
		if c.documentID == documentID {
			c.state = StateUninitialized
			c.documentID = ""
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.documentID != documentID {
		// Another Select won the race.
		c.mu.Unlock()
		return nil
	}
	c.progress = progress
	c.state = StateSynced
	c.mu.Unlock()

	stream, err := c.api.StreamProgress(ctx, documentID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.documentID != documentID {
		c.mu.Unlock()
		stream.Close()
		return nil
	}
	c.stream = stream
	c.mu.Unlock()

	go c.consume(documentID, stream)
	return nil
}

// consume overwrites local state with every push for the document. Server
// wins: no merge, no timestamp comparison.
func (c *Controller) consume(documentID string, stream *Stream) {
	for progress := range stream.Events() {
		p := progress
		c.mu.Lock()
		if c.documentID == documentID && c.stream == stream {
			c.progress = &p
		}
		c.mu.Unlock()
	}
}

// Commit records a new reading position. The clamped value becomes local
// state immediately with a fabricated updatedAt; the server's push or
// response supersedes it with the true timestamp. On failure the optimistic
// value is discarded by re-fetching server truth, and the error is
// returned.
func (c *Controller) Commit(ctx context.Context, page, totalPages int) error {
	c.mu.Lock()
	if c.state != StateSynced {
		c.mu.Unlock()
		return fmt.Errorf("no document selected")
	}
	documentID := c.documentID
	clamped := domain.ClampPage(page, totalPages)
	optimistic := &domain.ReadingProgress{
		UserID:     c.api.userID,
		DocumentID: documentID,
		Page:       clamped,
		TotalPages: totalPages,
		UpdatedAt:  time.Now().UTC(),
	}
	c.progress = optimistic
	c.mu.Unlock()

	persisted, err := c.api.CommitProgress(ctx, documentID, clamped, totalPages)
	if err != nil {
		c.resync(ctx, documentID)
		return err
	}

	// A push may have landed while the POST was in flight. The optimistic
	// value always yields to the response; a pushed value carries a real
	// server timestamp, so the later updatedAt wins.
	c.mu.Lock()
	if c.documentID == documentID &&
		(c.progress == optimistic || c.progress == nil || persisted.UpdatedAt.After(c.progress.UpdatedAt)) {
		c.progress = persisted
	}
	c.mu.Unlock()
	return nil
}

// resync replaces the optimistic value with server truth after a failed
// commit. Best effort: when the re-fetch also fails the optimistic value
// stays until the next push or commit.
func (c *Controller) resync(ctx context.Context, documentID string) {
	progress, err := c.api.FindProgress(ctx, documentID)
	if err != nil {
		return
	}
	c.mu.Lock()
	if c.documentID == documentID {
		c.progress = progress
	}
	c.mu.Unlock()
}

// Close deselects the current document and tears down the subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	c.state = StateUninitialized
	c.documentID = ""
	c.progress = nil
}
