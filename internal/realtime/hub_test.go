package realtime

import (
	"errors"
	"testing"
	"time"

	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvProgress(t *testing.T, ch <-chan domain.ReadingProgress, timeout time.Duration) domain.ReadingProgress {
	t.Helper()
	select {
	case p, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed while waiting for progress")
		}
		return p
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for progress event")
	}
	return domain.ReadingProgress{}
}

func assertNoDelivery(t *testing.T, ch <-chan domain.ReadingProgress, wait time.Duration) {
	t.Helper()
	select {
	case p, ok := <-ch:
		if ok {
			t.Fatalf("unexpected delivery: %+v", p)
		}
	case <-time.After(wait):
	}
}

func TestHubFiltersByUserAndDocument(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	subA := hub.Subscribe(ProgressChannel("userA", "doc1"))
	defer subA.Close()

	hub.Broadcast(domain.ReadingProgress{UserID: "userB", DocumentID: "doc1", Page: 7, TotalPages: 20})
	hub.Broadcast(domain.ReadingProgress{UserID: "userA", DocumentID: "doc2", Page: 8, TotalPages: 20})
	assertNoDelivery(t, subA.Events(), 100*time.Millisecond)

	hub.Broadcast(domain.ReadingProgress{UserID: "userA", DocumentID: "doc1", Page: 5, TotalPages: 20})
	got := recvProgress(t, subA.Events(), time.Second)
	if got.Page != 5 || got.TotalPages != 20 {
		t.Fatalf("got page=%d totalPages=%d, want 5/20", got.Page, got.TotalPages)
	}
}

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	sub := hub.Subscribe(ProgressChannel("u1", "d1"))
	defer sub.Close()

	hub.Broadcast(domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 3, TotalPages: 10})
	hub.Broadcast(domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 4, TotalPages: 10})

	if got := recvProgress(t, sub.Events(), time.Second); got.Page != 3 {
		t.Fatalf("first event page = %d, want 3", got.Page)
	}
	if got := recvProgress(t, sub.Events(), time.Second); got.Page != 4 {
		t.Fatalf("second event page = %d, want 4", got.Page)
	}
}

func TestHubCancelledSubscriptionReceivesNothing(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	sub := hub.Subscribe(ProgressChannel("u1", "d1"))
	sub.Close()

	hub.Broadcast(domain.ReadingProgress{UserID: "u1", DocumentID: "d1", Page: 9, TotalPages: 10})

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatalf("closed subscription received an event")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("events channel should be closed after Close")
	}
	if err := sub.Err(); err != nil {
		t.Fatalf("consumer cancellation must not set an error, got %v", err)
	}
}

func TestHubCloseIsIdempotent(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	sub := hub.Subscribe(ProgressChannel("u1", "d1"))
	sub.Close()
	sub.Close()
}

func TestHubCloseAllSignalsError(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	sub := hub.Subscribe(ProgressChannel("u1", "d1"))

	watchErr := errors.New("cursor died")
	hub.CloseAll(watchErr)

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("events channel should be closed after CloseAll")
	}
	if !errors.Is(sub.Err(), watchErr) {
		t.Fatalf("Err() = %v, want %v", sub.Err(), watchErr)
	}
}
