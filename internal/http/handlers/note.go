package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafmark/leafmark-backend/internal/http/response"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/ctxutil"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
	"github.com/leafmark/leafmark-backend/internal/services"
)

type NoteHandler struct {
	log   *logger.Logger
	notes services.NoteService
}

func NewNoteHandler(log *logger.Logger, notes services.NoteService) *NoteHandler {
	return &NoteHandler{
		log:   log.With("handler", "NoteHandler"),
		notes: notes,
	}
}

func (h *NoteHandler) List(c *gin.Context) {
	documentID := c.Query("documentId")
	if documentID == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("documentId is required"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	notes, err := h.notes.List(c.Request.Context(), userID, documentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, notes)
}

type createNoteRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Text       string `json:"text" binding:"required"`
	Page       int    `json:"page"`
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("documentId and text are required"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	note, err := h.notes.Create(c.Request.Context(), userID, req.DocumentID, req.Text, req.Page)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, note)
}

type updateNoteRequest struct {
	Content string `json:"content" binding:"required"`
	Page    int    `json:"page"`
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("content is required"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	note, err := h.notes.Update(c.Request.Context(), userID, c.Param("noteId"), req.Content, req.Page)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if note == nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeNotFound,
			apierr.NotFound("note not found"))
		return
	}
	response.RespondOK(c, note)
}

func (h *NoteHandler) Delete(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	deleted, err := h.notes.Delete(c.Request.Context(), userID, c.Param("noteId"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !deleted {
		response.RespondError(c, http.StatusNotFound, apierr.CodeNotFound,
			apierr.NotFound("note not found"))
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
