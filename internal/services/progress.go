package services

import (
	"context"

	"github.com/leafmark/leafmark-backend/internal/data/repos"
	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type ProgressService interface {
	// Get returns nil, nil when no progress has been tracked yet.
	Get(ctx context.Context, userID, documentID string) (*domain.ReadingProgress, error)
	// Record clamps page into [1, max(totalPages, 1)] and upserts the
	// single record for the (userID, documentID) key.
	Record(ctx context.Context, userID, documentID string, page, totalPages int) (*domain.ReadingProgress, error)
}

type progressService struct {
	log      *logger.Logger
	progress repos.ProgressRepo
}

func NewProgressService(log *logger.Logger, progress repos.ProgressRepo) ProgressService {
	return &progressService{
		log:      log.With("service", "ProgressService"),
		progress: progress,
	}
}

func (s *progressService) Get(ctx context.Context, userID, documentID string) (*domain.ReadingProgress, error) {
	if documentID == "" {
		return nil, apierr.Validation("documentId is required")
	}
	return s.progress.Find(ctx, userID, documentID)
}

func (s *progressService) Record(ctx context.Context, userID, documentID string, page, totalPages int) (*domain.ReadingProgress, error) {
	if documentID == "" {
		return nil, apierr.Validation("documentId is required")
	}
	if totalPages < 0 {
		return nil, apierr.Validation("totalPages must not be negative")
	}

	// totalPages is 0 until the viewer has parsed the PDF; persist the
	// floor of 1 so the stored record always satisfies its invariant.
	storedTotal := totalPages
	if storedTotal < 1 {
		storedTotal = 1
	}
	clamped := domain.ClampPage(page, totalPages)

	return s.progress.Upsert(ctx, userID, documentID, clamped, storedTotal)
}
