package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leafmark/leafmark-backend/internal/clients/redcache"
	"github.com/leafmark/leafmark-backend/internal/clients/translate"
	"github.com/leafmark/leafmark-backend/internal/data/mongodb"
	"github.com/leafmark/leafmark-backend/internal/data/repos"
	internalhttp "github.com/leafmark/leafmark-backend/internal/http"
	"github.com/leafmark/leafmark-backend/internal/http/handlers"
	"github.com/leafmark/leafmark-backend/internal/http/middleware"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
	"github.com/leafmark/leafmark-backend/internal/realtime"
	"github.com/leafmark/leafmark-backend/internal/services"
	"github.com/leafmark/leafmark-backend/internal/storage"
)

// App owns every long-lived component and tears them down in Close. Optional
// pieces (blob storage, translation cache) wire in only when configured; the
// rest of the app runs without them.
type App struct {
	Log      *logger.Logger
	Cfg      Config
	Mongo    *mongodb.Handle
	Hub      *realtime.Hub
	Notifier *realtime.Notifier
	Server   *internalhttp.Server

	cache redcache.TranslationCache
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	mongo, err := mongodb.Dial(mongodb.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	}, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init mongodb: %w", err)
	}

	progressRepo := repos.NewProgressRepo(mongo, log)
	noteRepo := repos.NewNoteRepo(mongo, log)
	documentRepo := repos.NewDocumentRepo(mongo, log)

	hub := realtime.NewHub(log)
	notifier := realtime.NewNotifier(log, hub)
	if err := notifier.Start(ctx, func(ctx context.Context) (realtime.ChangeStream, error) {
		return progressRepo.Watch(ctx)
	}); err != nil {
		// Standalone Mongo has no change streams. Serve everything else and
		// let stream subscriptions fail with notification_unsupported.
		log.Warn("Progress change stream unavailable", "error", err)
	}

	blobs, err := storage.NewBucketStore(ctx, log)
	if err != nil {
		log.Warn("Blob storage disabled, storing document bytes inline", "error", err)
		blobs = nil
	}

	cache, err := redcache.New(log, cfg.TranslateCacheTTL)
	if err != nil {
		log.Warn("Translation cache disabled", "error", err)
		cache = nil
	}

	progressSvc := services.NewProgressService(log, progressRepo)
	noteSvc := services.NewNoteService(log, noteRepo)
	documentSvc := services.NewDocumentService(log, documentRepo, progressRepo, noteRepo, blobs)
	translateSvc := services.NewTranslateService(log, translate.NewClient(log), cache)

	server := internalhttp.NewServer(internalhttp.RouterConfig{
		Log:                log,
		IdentityMiddleware: middleware.NewIdentityMiddleware(log, cfg.JWTSecretKey),
		AllowedOrigins:     cfg.AllowedOrigins,
		HealthHandler:      handlers.NewHealthHandler(),
		ProgressHandler:    handlers.NewProgressHandler(log, progressSvc, notifier),
		DocumentHandler:    handlers.NewDocumentHandler(log, documentSvc),
		NoteHandler:        handlers.NewNoteHandler(log, noteSvc),
		TranslateHandler:   handlers.NewTranslateHandler(log, translateSvc),
	})

	return &App{
		Log:      log,
		Cfg:      cfg,
		Mongo:    mongo,
		Hub:      hub,
		Notifier: notifier,
		Server:   server,
		cache:    cache,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	addr := ":" + a.Cfg.Port
	a.Log.Info("Starting server", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Log.Warn("Closing translation cache failed", "error", err)
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Close(ctx); err != nil {
			a.Log.Warn("Closing mongodb failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
