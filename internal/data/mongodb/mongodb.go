// Package mongodb owns the process-wide MongoDB connection. The handle is
// dialed once at startup, shared by every repository, and closed on
// shutdown, so tests can substitute a fresh instance instead of relying on
// an implicit package-level client.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

// Collection names used by the reader.
const (
	ColDocuments = "documents"
	ColProgress  = "reading_progress"
	ColNotes     = "reading_notes"
)

type Config struct {
	URI      string
	Database string

	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

type Handle struct {
	log    *logger.Logger
	client *mongo.Client
	db     *mongo.Database
}

func Dial(cfg Config, log *logger.Logger) (*Handle, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("missing mongodb connection URI")
	}
	if cfg.Database == "" {
		cfg.Database = "leafmark"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)

	idxCtx, idxCancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer idxCancel()
	if err := ensureIndexes(idxCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("MongoDB connected", "database", cfg.Database)
	return &Handle{log: log.With("component", "mongodb"), client: client, db: db}, nil
}

func (h *Handle) Database() *mongo.Database {
	return h.db
}

func (h *Handle) Collection(name string) *mongo.Collection {
	return h.db.Collection(name)
}

func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.client == nil {
		return nil
	}
	if err := h.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
