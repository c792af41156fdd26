package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/leafmark/leafmark-backend/internal/data/mongodb"
	"github.com/leafmark/leafmark-backend/internal/domain"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

// ProgressRepo is the durable upsert store keyed by (userId, documentId).
type ProgressRepo interface {
	// Find returns nil, nil when no record exists yet; absence is not an
	// error condition.
	Find(ctx context.Context, userID, documentID string) (*domain.ReadingProgress, error)
	// Upsert creates or overwrites the single record for the key, stamping
	// updatedAt. Last write wins; callers clamp page beforehand.
	Upsert(ctx context.Context, userID, documentID string, page, totalPages int) (*domain.ReadingProgress, error)
	// Watch opens a change stream over the whole progress collection. The
	// caller owns the returned stream.
	Watch(ctx context.Context) (*mongo.ChangeStream, error)
	DeleteByDocument(ctx context.Context, userID, documentID string) error
}

type progressRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewProgressRepo(db *mongodb.Handle, log *logger.Logger) ProgressRepo {
	return &progressRepo{
		col: db.Collection(mongodb.ColProgress),
		log: log.With("repo", "ProgressRepo"),
	}
}

func (r *progressRepo) Find(ctx context.Context, userID, documentID string) (*domain.ReadingProgress, error) {
	if userID == "" || documentID == "" {
		return nil, apierr.Validation("userId and documentId are required")
	}
	var progress domain.ReadingProgress
	err := r.col.FindOne(ctx, bson.M{
		"userId":     userID,
		"documentId": documentID,
	}).Decode(&progress)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("find progress: %w", err))
	}
	return &progress, nil
}

func (r *progressRepo) Upsert(ctx context.Context, userID, documentID string, page, totalPages int) (*domain.ReadingProgress, error) {
	if userID == "" || documentID == "" {
		return nil, apierr.Validation("userId and documentId are required")
	}
	if page < 1 || totalPages < 1 {
		return nil, apierr.Validation("page and totalPages must be positive")
	}

	result := r.col.FindOneAndUpdate(
		ctx,
		bson.M{
			"userId":     userID,
			"documentId": documentID,
		},
		bson.M{
			"$set": bson.M{
				"page":       page,
				"totalPages": totalPages,
				"updatedAt":  time.Now().UTC(),
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)

	var progress domain.ReadingProgress
	if err := result.Decode(&progress); err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("upsert progress: %w", err))
	}
	return &progress, nil
}

func (r *progressRepo) Watch(ctx context.Context) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{{{
		Key: "$match",
		Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}},
		},
	}}}
	stream, err := r.col.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("watch progress collection: %w", err)
	}
	return stream, nil
}

func (r *progressRepo) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{
		"userId":     userID,
		"documentId": documentID,
	})
	if err != nil {
		return apierr.StorageUnavailable(fmt.Errorf("delete progress: %w", err))
	}
	return nil
}
