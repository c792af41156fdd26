package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafmark/leafmark-backend/internal/clients/translate"
	"github.com/leafmark/leafmark-backend/internal/http/response"
	"github.com/leafmark/leafmark-backend/internal/platform/apierr"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
	"github.com/leafmark/leafmark-backend/internal/services"
)

type TranslateHandler struct {
	log       *logger.Logger
	translate services.TranslateService
}

func NewTranslateHandler(log *logger.Logger, svc services.TranslateService) *TranslateHandler {
	return &TranslateHandler{
		log:       log.With("handler", "TranslateHandler"),
		translate: svc,
	}
}

func (h *TranslateHandler) Translate(c *gin.Context) {
	var req translate.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
			apierr.Validation("text and targetLanguage are required"))
		return
	}

	resp, err := h.translate.Translate(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, resp)
}
