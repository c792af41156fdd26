package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/leafmark/leafmark-backend/internal/domain"
)

// fakeServer is an in-memory progress API. Stream frames are fed through
// pushCh so tests control exactly what the subscription observes.
type fakeServer struct {
	mu       sync.Mutex
	records  map[string]domain.ReadingProgress
	failPost bool

	// postStarted and postHold let tests overlap a commit with a push;
	// postResponse pins the body returned once the hold opens.
	postStarted  chan struct{}
	postHold     chan struct{}
	postResponse *domain.ReadingProgress

	pushCh chan domain.ReadingProgress

	srv *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		records: make(map[string]domain.ReadingProgress),
		pushCh:  make(chan domain.ReadingProgress, 8),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/progress", f.handleProgress)
	mux.HandleFunc("/api/progress/stream", f.handleStream)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) set(documentID string, p domain.ReadingProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[documentID] = p
}

func (f *fakeServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		p, ok := f.records[r.URL.Query().Get("documentId")]
		f.mu.Unlock()
		if !ok {
			w.Write([]byte("null"))
			return
		}
		json.NewEncoder(w).Encode(p)
	case http.MethodPost:
		f.mu.Lock()
		fail := f.failPost
		started := f.postStarted
		hold := f.postHold
		canned := f.postResponse
		f.mu.Unlock()
		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		if hold != nil {
			<-hold
		}
		if canned != nil {
			json.NewEncoder(w).Encode(canned)
			return
		}
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"store unreachable","code":"storage_unavailable"}}`))
			return
		}
		var in struct {
			DocumentID string `json:"documentId"`
			Page       int    `json:"page"`
			TotalPages int    `json:"totalPages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		total := in.TotalPages
		if total < 1 {
			total = 1
		}
		p := domain.ReadingProgress{
			UserID:     "u1",
			DocumentID: in.DocumentID,
			Page:       domain.ClampPage(in.Page, in.TotalPages),
			TotalPages: total,
			UpdatedAt:  time.Now().UTC(),
		}
		f.set(in.DocumentID, p)
		json.NewEncoder(w).Encode(p)
	}
}

func (f *fakeServer) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case p := <-f.pushCh:
			payload, _ := json.Marshal(p)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func newTestController(t *testing.T, f *fakeServer) *Controller {
	t.Helper()
	c := NewController(New(f.srv.URL, WithUserID("u1")))
	t.Cleanup(c.Close)
	return c
}

func waitForPage(t *testing.T, c *Controller, page int) domain.ReadingProgress {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := c.Progress(); p != nil && p.Page == page {
			return *p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("progress never reached page %d, got %+v", page, c.Progress())
	return domain.ReadingProgress{}
}

func TestControllerSelectLoadsExistingProgress(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 4, TotalPages: 12})
	c := newTestController(t, f)

	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := c.State(); got != StateSynced {
		t.Fatalf("state = %v, want synced", got)
	}
	p := c.Progress()
	if p == nil || p.Page != 4 || p.TotalPages != 12 {
		t.Fatalf("progress = %+v, want page 4 of 12", p)
	}
}

func TestControllerSelectUnknownDocumentIsSyncedWithNilProgress(t *testing.T) {
	f := newFakeServer(t)
	c := newTestController(t, f)

	if err := c.Select(context.Background(), "nothing"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := c.State(); got != StateSynced {
		t.Fatalf("state = %v, want synced", got)
	}
	if p := c.Progress(); p != nil {
		t.Fatalf("progress = %+v, want nil", p)
	}
}

func TestControllerCommitClampsOptimistically(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 1, TotalPages: 1})
	c := newTestController(t, f)
	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	// totalPages still unknown: the floor is max(0, 1) = 1.
	if err := c.Commit(context.Background(), 2, 0); err != nil {
		t.Fatalf("commit: %v", err)
	}
	p := c.Progress()
	if p == nil || p.Page != 1 {
		t.Fatalf("progress = %+v, want page 1", p)
	}
}

func TestControllerCommitFailureRefetchesServerTruth(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 7, TotalPages: 20})
	c := newTestController(t, f)
	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	f.mu.Lock()
	f.failPost = true
	f.mu.Unlock()

	err := c.Commit(context.Background(), 9, 20)
	if err == nil {
		t.Fatal("commit should fail")
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "storage_unavailable" {
		t.Fatalf("err = %v, want storage_unavailable APIError", err)
	}
	// Optimistic page 9 must be discarded for the server's page 7.
	p := c.Progress()
	if p == nil || p.Page != 7 {
		t.Fatalf("progress = %+v, want server truth page 7", p)
	}
}

func TestControllerNewerPushOutlivesStaleCommitResponse(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 2, TotalPages: 10})
	c := newTestController(t, f)
	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	hold := make(chan struct{})
	f.mu.Lock()
	f.postStarted = make(chan struct{}, 1)
	f.postHold = hold
	f.postResponse = &domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 3, TotalPages: 10, UpdatedAt: t1}
	f.mu.Unlock()

	commitErr := make(chan error, 1)
	go func() { commitErr <- c.Commit(context.Background(), 3, 10) }()
	<-f.postStarted

	// A fresher write lands over SSE while the POST response is held back.
	f.pushCh <- domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 9, TotalPages: 10, UpdatedAt: t2}
	waitForPage(t, c, 9)

	close(hold)
	if err := <-commitErr; err != nil {
		t.Fatalf("commit: %v", err)
	}
	p := c.Progress()
	if p == nil || p.Page != 9 || !p.UpdatedAt.Equal(t2) {
		t.Fatalf("progress = %+v, want pushed page 9 at %v (later updatedAt wins)", p, t2)
	}
}

func TestControllerNewerCommitResponseOverridesOlderPush(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 2, TotalPages: 10})
	c := newTestController(t, f)
	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	hold := make(chan struct{})
	f.mu.Lock()
	f.postStarted = make(chan struct{}, 1)
	f.postHold = hold
	f.postResponse = &domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 3, TotalPages: 10, UpdatedAt: t2}
	f.mu.Unlock()

	commitErr := make(chan error, 1)
	go func() { commitErr <- c.Commit(context.Background(), 3, 10) }()
	<-f.postStarted

	f.pushCh <- domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 9, TotalPages: 10, UpdatedAt: t1}
	waitForPage(t, c, 9)

	close(hold)
	if err := <-commitErr; err != nil {
		t.Fatalf("commit: %v", err)
	}
	p := c.Progress()
	if p == nil || p.Page != 3 || !p.UpdatedAt.Equal(t2) {
		t.Fatalf("progress = %+v, want committed page 3 at %v", p, t2)
	}
}

func TestControllerPushOverwritesLocalState(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 2, TotalPages: 10})
	c := newTestController(t, f)
	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	f.pushCh <- domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 5, TotalPages: 10}
	got := waitForPage(t, c, 5)
	if got.TotalPages != 10 {
		t.Fatalf("totalPages = %d, want 10", got.TotalPages)
	}
}

func TestControllerCloseStopsPushes(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 2, TotalPages: 10})
	c := newTestController(t, f)
	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	c.Close()
	if got := c.State(); got != StateUninitialized {
		t.Fatalf("state = %v, want uninitialized", got)
	}
	if p := c.Progress(); p != nil {
		t.Fatalf("progress = %+v, want nil after close", p)
	}

	select {
	case f.pushCh <- domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 9, TotalPages: 10}:
	default:
	}
	time.Sleep(50 * time.Millisecond)
	if p := c.Progress(); p != nil {
		t.Fatalf("progress = %+v, push landed after close", p)
	}
}

func TestControllerSwitchingDocumentsDropsStalePushes(t *testing.T) {
	f := newFakeServer(t)
	f.set("d1", domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 2, TotalPages: 10})
	f.set("d2", domain.ReadingProgress{UserID: "u1", DocumentID: "d2", Page: 3, TotalPages: 30})
	c := newTestController(t, f)

	if err := c.Select(context.Background(), "d1"); err != nil {
		t.Fatalf("select d1: %v", err)
	}
	if err := c.Select(context.Background(), "d2"); err != nil {
		t.Fatalf("select d2: %v", err)
	}
	if got := c.DocumentID(); got != "d2" {
		t.Fatalf("documentID = %q, want d2", got)
	}
	p := c.Progress()
	if p == nil || p.DocumentID != "d2" || p.Page != 3 {
		t.Fatalf("progress = %+v, want d2 page 3", p)
	}
}

func TestControllerCommitWithoutSelection(t *testing.T) {
	f := newFakeServer(t)
	c := newTestController(t, f)
	if err := c.Commit(context.Background(), 1, 10); err == nil {
		t.Fatal("commit without selection should fail")
	}
}
