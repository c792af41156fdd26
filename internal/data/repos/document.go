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

type DocumentRepo interface {
	List(ctx context.Context, userID string) ([]domain.Document, error)
	// Insert persists metadata plus, when data is non-nil, the PDF bytes
	// inline. data stays nil when the bytes live in object storage.
	Insert(ctx context.Context, doc *domain.Document, data []byte) (*domain.Document, error)
	// FindFile returns nil, nil when the document does not exist for the
	// user. Data is empty when the bytes live in object storage.
	FindFile(ctx context.Context, userID, documentID string) (*domain.DocumentFile, error)
	// Delete removes the metadata record and reports the removed document,
	// or nil when nothing matched.
	Delete(ctx context.Context, userID, documentID string) (*domain.Document, error)
}

type documentRecord struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	UserID     string        `bson:"userId"`
	Title      string        `bson:"title"`
	FileName   string        `bson:"fileName"`
	MimeType   string        `bson:"mimeType"`
	TotalPages int           `bson:"totalPages,omitempty"`
	StorageKey string        `bson:"storageKey,omitempty"`
	Data       []byte        `bson:"data,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt"`
}

func (rec *documentRecord) toDomain() domain.Document {
	return domain.Document{
		ID:         rec.ID.Hex(),
		UserID:     rec.UserID,
		Title:      rec.Title,
		FileName:   rec.FileName,
		MimeType:   rec.MimeType,
		TotalPages: rec.TotalPages,
		StorageKey: rec.StorageKey,
		CreatedAt:  rec.CreatedAt,
	}
}

type documentRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewDocumentRepo(db *mongodb.Handle, log *logger.Logger) DocumentRepo {
	return &documentRepo{
		col: db.Collection(mongodb.ColDocuments),
		log: log.With("repo", "DocumentRepo"),
	}
}

func (r *documentRepo) List(ctx context.Context, userID string) ([]domain.Document, error) {
	if userID == "" {
		return nil, apierr.Validation("userId is required")
	}
	cursor, err := r.col.Find(ctx,
		bson.M{"userId": userID},
		options.Find().
			SetProjection(bson.M{"data": 0}).
			SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("list documents: %w", err))
	}
	defer cursor.Close(ctx)

	docs := make([]domain.Document, 0)
	for cursor.Next(ctx) {
		var rec documentRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, apierr.StorageUnavailable(fmt.Errorf("decode document: %w", err))
		}
		docs = append(docs, rec.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("iterate documents: %w", err))
	}
	return docs, nil
}

func (r *documentRepo) Insert(ctx context.Context, doc *domain.Document, data []byte) (*domain.Document, error) {
	rec := documentRecord{
		UserID:     doc.UserID,
		Title:      doc.Title,
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		TotalPages: doc.TotalPages,
		StorageKey: doc.StorageKey,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}
	result, err := r.col.InsertOne(ctx, rec)
	if err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("insert document: %w", err))
	}
	rec.ID = result.InsertedID.(bson.ObjectID)
	created := rec.toDomain()
	return &created, nil
}

func (r *documentRepo) FindFile(ctx context.Context, userID, documentID string) (*domain.DocumentFile, error) {
	objectID, err := bson.ObjectIDFromHex(documentID)
	if err != nil {
		return nil, nil
	}
	var rec documentRecord
	err = r.col.FindOne(ctx, bson.M{"_id": objectID, "userId": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("find document: %w", err))
	}
	return &domain.DocumentFile{Document: rec.toDomain(), Data: rec.Data}, nil
}

func (r *documentRepo) Delete(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	objectID, err := bson.ObjectIDFromHex(documentID)
	if err != nil {
		return nil, nil
	}
	result := r.col.FindOneAndDelete(ctx, bson.M{"_id": objectID, "userId": userID},
		options.FindOneAndDelete().SetProjection(bson.M{"data": 0}))

	var rec documentRecord
	if err := result.Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apierr.StorageUnavailable(fmt.Errorf("delete document: %w", err))
	}
	deleted := rec.toDomain()
	return &deleted, nil
}
