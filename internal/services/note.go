package services

import (
	"context"
	"strings"

	"github.com/leafmark/leafmark-backend/internal/data/repos"
	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/notes"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type NoteService interface {
	List(ctx context.Context, userID, documentID string) ([]domain.Note, error)
	Create(ctx context.Context, userID, documentID, text string, page int) (*domain.Note, error)
	// Update sanitizes rich content, derives the plain-text projection and
	// rewrites the note. Returns nil, nil when the note does not exist.
	Update(ctx context.Context, userID, noteID, content string, page int) (*domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) (bool, error)
}

type noteService struct {
	log   *logger.Logger
	notes repos.NoteRepo
}

func NewNoteService(log *logger.Logger, noteRepo repos.NoteRepo) NoteService {
	return &noteService{
		log:   log.With("service", "NoteService"),
		notes: noteRepo,
	}
}

func (s *noteService) List(ctx context.Context, userID, documentID string) ([]domain.Note, error) {
	if documentID == "" {
		return nil, apierr.Validation("documentId is required")
	}
	return s.notes.List(ctx, userID, documentID)
}

func (s *noteService) Create(ctx context.Context, userID, documentID, text string, page int) (*domain.Note, error) {
	if documentID == "" {
		return nil, apierr.Validation("documentId is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apierr.Validation("text is required")
	}
	if page < 0 {
		page = 0
	}
	return s.notes.Create(ctx, &domain.Note{
		UserID:     userID,
		DocumentID: documentID,
		Page:       page,
		Text:       text,
	})
}

func (s *noteService) Update(ctx context.Context, userID, noteID, content string, page int) (*domain.Note, error) {
	if noteID == "" {
		return nil, apierr.Validation("noteId is required")
	}

	sanitized := notes.SanitizeContent(content)
	plainText := notes.ExtractPlainText(sanitized)
	if !notes.HasContent(sanitized, plainText) {
		return nil, apierr.Validation("note content is required")
	}
	if page < 0 {
		page = 0
	}

	return s.notes.Update(ctx, userID, noteID, repos.NoteUpdate{
		Content:   sanitized,
		PlainText: plainText,
		Page:      page,
	})
}

func (s *noteService) Delete(ctx context.Context, userID, noteID string) (bool, error) {
	if noteID == "" {
		return false, apierr.Validation("noteId is required")
	}
	return s.notes.Delete(ctx, userID, noteID)
}
