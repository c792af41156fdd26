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

type NoteUpdate struct {
	Content   string
	PlainText string
	Page      int
}

type NoteRepo interface {
	List(ctx context.Context, userID, documentID string) ([]domain.Note, error)
	Create(ctx context.Context, note *domain.Note) (*domain.Note, error)
	// Update rewrites the rich content of an owned note. Returns nil, nil
	// when the note does not exist or belongs to someone else.
	Update(ctx context.Context, userID, noteID string, update NoteUpdate) (*domain.Note, error)
	// Delete reports whether a note was actually removed.
	Delete(ctx context.Context, userID, noteID string) (bool, error)
	DeleteByDocument(ctx context.Context, userID, documentID string) error
}

// noteRecord is the persisted shape; the ObjectID is mapped to a hex string
// on the way out.
type noteRecord struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	UserID     string        `bson:"userId"`
	DocumentID string        `bson:"documentId"`
	Page       int           `bson:"page,omitempty"`
	Text       string        `bson:"text,omitempty"`
	Content    string        `bson:"content,omitempty"`
	PlainText  string        `bson:"plainText,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt"`
}

func (rec *noteRecord) toDomain() domain.Note {
	return domain.Note{
		ID:         rec.ID.Hex(),
		UserID:     rec.UserID,
		DocumentID: rec.DocumentID,
		Page:       rec.Page,
		Text:       rec.Text,
		Content:    rec.Content,
		PlainText:  rec.PlainText,
		CreatedAt:  rec.CreatedAt,
	}
}

type noteRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewNoteRepo(db *mongodb.Handle, log *logger.Logger) NoteRepo {
	return &noteRepo{
		col: db.Collection(mongodb.ColNotes),
		log: log.With("repo", "NoteRepo"),
	}
}

func (r *noteRepo) List(ctx context.Context, userID, documentID string) ([]domain.Note, error) {
	if userID == "" || documentID == "" {
		return nil, apierr.Validation("userId and documentId are required")
	}
	cursor, err := r.col.Find(ctx,
		bson.M{"userId": userID, "documentId": documentID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("list notes: %w", err))
	}
	defer cursor.Close(ctx)

	notes := make([]domain.Note, 0)
	for cursor.Next(ctx) {
		var rec noteRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, apierr.StorageUnavailable(fmt.Errorf("decode note: %w", err))
		}
		notes = append(notes, rec.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("iterate notes: %w", err))
	}
	return notes, nil
}

func (r *noteRepo) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	rec := noteRecord{
		UserID:     note.UserID,
		DocumentID: note.DocumentID,
		Page:       note.Page,
		Text:       note.Text,
		Content:    note.Content,
		PlainText:  note.PlainText,
		CreatedAt:  time.Now().UTC(),
	}
	result, err := r.col.InsertOne(ctx, rec)
	if err != nil {
		return nil, apierr.StorageUnavailable(fmt.Errorf("insert note: %w", err))
	}
	rec.ID = result.InsertedID.(bson.ObjectID)
	created := rec.toDomain()
	return &created, nil
}

func (r *noteRepo) Update(ctx context.Context, userID, noteID string, update NoteUpdate) (*domain.Note, error) {
	objectID, err := bson.ObjectIDFromHex(noteID)
	if err != nil {
		return nil, nil
	}

	set := bson.M{
		"content":   update.Content,
		"plainText": update.PlainText,
	}
	if update.Page > 0 {
		set["page"] = update.Page
	}

	result := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID, "userId": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var rec noteRecord
	if err := result.Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apierr.StorageUnavailable(fmt.Errorf("update note: %w", err))
	}
	updated := rec.toDomain()
	return &updated, nil
}

func (r *noteRepo) Delete(ctx context.Context, userID, noteID string) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(noteID)
	if err != nil {
		return false, nil
	}
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": objectID, "userId": userID})
	if err != nil {
		return false, apierr.StorageUnavailable(fmt.Errorf("delete note: %w", err))
	}
	return result.DeletedCount > 0, nil
}

func (r *noteRepo) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"userId": userID, "documentId": documentID})
	if err != nil {
		return apierr.StorageUnavailable(fmt.Errorf("delete notes: %w", err))
	}
	return nil
}
