package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collectionInfos describes the indexes expected by the repositories. The
// unique index on reading_progress backs the one-record-per-key upsert
// invariant.
var collectionInfos = []struct {
	collection string
	indexes    []mongo.IndexModel
}{
	{
		collection: ColProgress,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "documentId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		}},
	},
	{
		collection: ColNotes,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "documentId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		}},
	},
	{
		collection: ColDocuments,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		}},
	},
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, info := range collectionInfos {
		if _, err := db.Collection(info.collection).Indexes().CreateMany(ctx, info.indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", info.collection, err)
		}
	}
	return nil
}
