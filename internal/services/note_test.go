package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/leafmark/leafmark-backend/internal/data/repos"
	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type fakeNoteRepo struct {
	notes map[string]domain.Note
	next  int
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]domain.Note)}
}

func (r *fakeNoteRepo) List(_ context.Context, userID, documentID string) ([]domain.Note, error) {
	out := make([]domain.Note, 0)
	for _, n := range r.notes {
		if n.UserID == userID && n.DocumentID == documentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) Create(_ context.Context, note *domain.Note) (*domain.Note, error) {
	r.next++
	created := *note
	created.ID = strings.Repeat("0", 23) + string(rune('a'+r.next))
	created.CreatedAt = time.Now().UTC()
	r.notes[created.ID] = created
	return &created, nil
}

func (r *fakeNoteRepo) Update(_ context.Context, userID, noteID string, update repos.NoteUpdate) (*domain.Note, error) {
	n, ok := r.notes[noteID]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	n.Content = update.Content
	n.PlainText = update.PlainText
	if update.Page > 0 {
		n.Page = update.Page
	}
	r.notes[noteID] = n
	return &n, nil
}

func (r *fakeNoteRepo) Delete(_ context.Context, userID, noteID string) (bool, error) {
	n, ok := r.notes[noteID]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(r.notes, noteID)
	return true, nil
}

func (r *fakeNoteRepo) DeleteByDocument(_ context.Context, userID, documentID string) error {
	for id, n := range r.notes {
		if n.UserID == userID && n.DocumentID == documentID {
			delete(r.notes, id)
		}
	}
	return nil
}

func testNoteService(t *testing.T) (NoteService, *fakeNoteRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	repo := newFakeNoteRepo()
	return NewNoteService(log, repo), repo
}

func TestNoteCreateRequiresText(t *testing.T) {
	svc, _ := testNoteService(t)
	if _, err := svc.Create(context.Background(), "u1", "d1", "   ", 0); err == nil {
		t.Fatalf("blank text should be rejected")
	}
}

func TestNoteUpdateSanitizesContent(t *testing.T) {
	svc, _ := testNoteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", "d1", "first draft", 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, "u1", created.ID, `<p>kept</p><script>drop()</script>`, 3)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated == nil {
		t.Fatalf("Update returned nil for an existing note")
	}
	if strings.Contains(updated.Content, "script") {
		t.Fatalf("script survived: %q", updated.Content)
	}
	if updated.PlainText != "kept" {
		t.Fatalf("plainText = %q, want kept", updated.PlainText)
	}
	if updated.Page != 3 {
		t.Fatalf("page = %d, want 3", updated.Page)
	}
}

func TestNoteUpdateRejectsEmptyAfterSanitization(t *testing.T) {
	svc, _ := testNoteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", "d1", "draft", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Update(ctx, "u1", created.ID, `<script>only()</script>`, 0); err == nil {
		t.Fatalf("content that sanitizes to nothing should be rejected")
	}
}

func TestNoteUpdateUnknownNote(t *testing.T) {
	svc, _ := testNoteService(t)
	got, err := svc.Update(context.Background(), "u1", "missing", "<p>x</p>", 0)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got != nil {
		t.Fatalf("Update = %+v, want nil for unknown note", got)
	}
}

func TestNoteDeleteIsScopedToOwner(t *testing.T) {
	svc, _ := testNoteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", "d1", "mine", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, _ := svc.Delete(ctx, "intruder", created.ID); ok {
		t.Fatalf("another user deleted the note")
	}
	if ok, _ := svc.Delete(ctx, "u1", created.ID); !ok {
		t.Fatalf("owner could not delete the note")
	}
}
