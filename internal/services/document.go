package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leafmark/leafmark-backend/internal/data/repos"
	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/pdfmeta"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
	"github.com/leafmark/leafmark-backend/internal/storage"
)

type UploadInput struct {
	Title    string
	FileName string
	MimeType string
	Data     []byte
}

type DocumentService interface {
	List(ctx context.Context, userID string) ([]domain.Document, error)
	Upload(ctx context.Context, userID string, in UploadInput) (*domain.Document, error)
	// File returns nil, nil when the document does not exist for the user.
	File(ctx context.Context, userID, documentID string) (*domain.DocumentFile, error)
	// Delete cascades to the document's progress records and notes and
	// reports whether anything was removed.
	Delete(ctx context.Context, userID, documentID string) (bool, error)
}

type documentService struct {
	log       *logger.Logger
	documents repos.DocumentRepo
	progress  repos.ProgressRepo
	notes     repos.NoteRepo
	blobs     storage.BlobStore // nil: bytes stored inline in Mongo
}

func NewDocumentService(
	log *logger.Logger,
	documents repos.DocumentRepo,
	progress repos.ProgressRepo,
	notes repos.NoteRepo,
	blobs storage.BlobStore,
) DocumentService {
	return &documentService{
		log:       log.With("service", "DocumentService"),
		documents: documents,
		progress:  progress,
		notes:     notes,
		blobs:     blobs,
	}
}

func (s *documentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	return s.documents.List(ctx, userID)
}

func (s *documentService) Upload(ctx context.Context, userID string, in UploadInput) (*domain.Document, error) {
	if len(in.Data) == 0 {
		return nil, apierr.Validation("file is required")
	}
	if !isPDF(in.MimeType, in.FileName) {
		return nil, apierr.Validation("only PDF files are supported")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(in.FileName, ".pdf")
	}

	doc := &domain.Document{
		UserID:     userID,
		Title:      title,
		FileName:   in.FileName,
		MimeType:   "application/pdf",
		TotalPages: pdfmeta.PageCount(in.Data),
	}

	if s.blobs == nil {
		return s.documents.Insert(ctx, doc, in.Data)
	}

	key := fmt.Sprintf("%s/%s.pdf", userID, uuid.NewString())
	if err := s.blobs.Put(ctx, key, in.Data, "application/pdf"); err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	doc.StorageKey = key

	created, err := s.documents.Insert(ctx, doc, nil)
	if err != nil {
		// Metadata write failed; drop the orphaned object.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warn("orphaned upload left in bucket", "key", key, "error", delErr)
		}
		return nil, err
	}
	return created, nil
}

func (s *documentService) File(ctx context.Context, userID, documentID string) (*domain.DocumentFile, error) {
	file, err := s.documents.FindFile(ctx, userID, documentID)
	if err != nil || file == nil {
		return file, err
	}
	if file.StorageKey != "" {
		data, err := s.blobGet(ctx, file.StorageKey)
		if err != nil {
			return nil, err
		}
		file.Data = data
	}
	return file, nil
}

func (s *documentService) blobGet(ctx context.Context, key string) ([]byte, error) {
	if s.blobs == nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("document stored in bucket but no bucket configured"))
	}
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	return data, nil
}

func (s *documentService) Delete(ctx context.Context, userID, documentID string) (bool, error) {
	deleted, err := s.documents.Delete(ctx, userID, documentID)
	if err != nil {
		return false, err
	}
	if deleted == nil {
		return false, nil
	}

	if deleted.StorageKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, deleted.StorageKey); err != nil {
			s.log.Warn("could not delete stored bytes", "key", deleted.StorageKey, "error", err)
		}
	}
	if err := s.progress.DeleteByDocument(ctx, userID, documentID); err != nil {
		s.log.Warn("could not cascade progress delete", "document_id", documentID, "error", err)
	}
	if err := s.notes.DeleteByDocument(ctx, userID, documentID); err != nil {
		s.log.Warn("could not cascade note delete", "document_id", documentID, "error", err)
	}
	return true, nil
}

func isPDF(mimeType, fileName string) bool {
	if strings.EqualFold(strings.TrimSpace(mimeType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}
