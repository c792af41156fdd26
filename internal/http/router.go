package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/leafmark/leafmark-backend/internal/http/handlers"
	httpMW "github.com/leafmark/leafmark-backend/internal/http/middleware"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	IdentityMiddleware *httpMW.IdentityMiddleware
	AllowedOrigins     []string

	HealthHandler    *httpH.HealthHandler
	ProgressHandler  *httpH.ProgressHandler
	DocumentHandler  *httpH.DocumentHandler
	NoteHandler      *httpH.NoteHandler
	TranslateHandler *httpH.TranslateHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.IdentityMiddleware != nil {
		api.Use(cfg.IdentityMiddleware.Resolve())
	}

	if cfg.ProgressHandler != nil {
		api.GET("/progress", cfg.ProgressHandler.Get)
		api.POST("/progress", cfg.ProgressHandler.Record)
		api.GET("/progress/stream", cfg.ProgressHandler.Stream)
	}

	if cfg.DocumentHandler != nil {
		api.GET("/documents", cfg.DocumentHandler.List)
		api.POST("/documents", cfg.DocumentHandler.Upload)
		api.GET("/documents/:documentId/file", cfg.DocumentHandler.File)
		api.DELETE("/documents/:documentId", cfg.DocumentHandler.Delete)
	}

	if cfg.NoteHandler != nil {
		api.GET("/notes", cfg.NoteHandler.List)
		api.POST("/notes", cfg.NoteHandler.Create)
		api.PUT("/notes/:noteId", cfg.NoteHandler.Update)
		api.DELETE("/notes/:noteId", cfg.NoteHandler.Delete)
	}

	if cfg.TranslateHandler != nil {
		api.POST("/translate", cfg.TranslateHandler.Translate)
	}

	return r
}
