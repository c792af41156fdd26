package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafmark/leafmark-backend/internal/http/response"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/ctxutil"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
	"github.com/leafmark/leafmark-backend/internal/services"
)

// maxUploadBytes caps PDF uploads at 50 MiB.
const maxUploadBytes = 50 << 20

type DocumentHandler struct {
	log       *logger.Logger
	documents services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, documents services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		log:       log.With("handler", "DocumentHandler"),
		documents: documents,
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	docs, err := h.documents.List(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, docs)
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("could not read uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("could not read uploaded file"))
		return
	}

	userID := ctxutil.UserID(c.Request.Context())
	doc, err := h.documents.Upload(c.Request.Context(), userID, services.UploadInput{
		Title:    c.PostForm("title"),
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, doc)
}

func (h *DocumentHandler) File(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	file, err := h.documents.File(c.Request.Context(), userID, c.Param("documentId"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if file == nil {
		response.RespondError(c, http.StatusNotFound, apierr.CodeNotFound,
			apierr.NotFound("document not found"))
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.MimeType, file.Data)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	deleted, err := h.documents.Delete(c.Request.Context(), userID, c.Param("documentId"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !deleted {
		response.RespondError(c, http.StatusNotFound, apierr.CodeNotFound,
			apierr.NotFound("document not found"))
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}
