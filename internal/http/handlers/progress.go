package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafmark/leafmark-backend/internal/http/response"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/ctxutil"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
	"github.com/leafmark/leafmark-backend/internal/realtime"
	"github.com/leafmark/leafmark-backend/internal/services"
)

type ProgressHandler struct {
	log      *logger.Logger
	progress services.ProgressService
	notifier *realtime.Notifier
}

func NewProgressHandler(log *logger.Logger, progress services.ProgressService, notifier *realtime.Notifier) *ProgressHandler {
	return &ProgressHandler{
		log:      log.With("handler", "ProgressHandler"),
		progress: progress,
		notifier: notifier,
	}
}

// Get responds with the stored progress record, or JSON null when the user
// has not read the document yet.
func (h *ProgressHandler) Get(c *gin.Context) {
	documentID := c.Query("documentId")
	if documentID == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("documentId is required"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	progress, err := h.progress.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, progress)
}

type recordProgressRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Page       *int   `json:"page" binding:"required"`
	TotalPages *int   `json:"totalPages" binding:"required"`
}

func (h *ProgressHandler) Record(c *gin.Context) {
	var req recordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("documentId, page and totalPages are required"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	progress, err := h.progress.Record(c.Request.Context(), userID, req.DocumentID, *req.Page, *req.TotalPages)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, progress)
}

// Stream pushes progress changes for one document as Server-Sent Events
// until the client disconnects or the underlying watch ends.
func (h *ProgressHandler) Stream(c *gin.Context) {
	documentID := c.Query("documentId")
	if documentID == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("documentId is required"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	sub, err := h.notifier.Subscribe(userID, documentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	defer sub.Close()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported",
			apierr.New(http.StatusInternalServerError, "streaming_unsupported", nil))
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.log.Debug("progress stream open", "user_id", userID, "document_id", documentID)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			// Client went away; Close releases the hub registration.
			h.log.Debug("progress stream client disconnected", "document_id", documentID)
			return
		case progress, open := <-sub.Events():
			if !open {
				if err := sub.Err(); err != nil {
					h.log.Warn("progress stream ended with error", "document_id", documentID, "error", err)
				}
				return
			}
			payload, err := json.Marshal(progress)
			if err != nil {
				h.log.Warn("could not encode progress frame", "error", err)
				continue
			}
			if _, err := c.Writer.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
