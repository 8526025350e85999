// Package http provides HTTP handlers for the document boundary operations.
// Payloads are JSON trees; only the declared sensitive leaves are transformed.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/phiguard/internal/document/http/dto"
	documentUseCase "github.com/allisson/phiguard/internal/document/usecase"
	"github.com/allisson/phiguard/internal/httputil"
	customValidation "github.com/allisson/phiguard/internal/validation"
)

// DocumentHandler handles HTTP requests for protecting and revealing documents.
type DocumentHandler struct {
	documentUseCase documentUseCase.DocumentUseCase
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler with required dependencies.
func NewDocumentHandler(useCase documentUseCase.DocumentUseCase, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentUseCase: useCase,
		logger:          logger,
	}
}

// ProtectHandler encrypts the sensitive fields of an outgoing payload.
// POST /v1/documents/protect
// Returns 200 OK with the (possibly unchanged) document. Encryption failures are
// fail-closed and answered with 503 and a generic message.
func (h *DocumentHandler) ProtectHandler(c *gin.Context) {
	var req dto.ProtectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.documentUseCase.Protect(c.Request.Context(), req.Document, req.Context.ToDomain())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapProtectedToResponse(result))
}

// RevealHandler decrypts a payload read back from storage.
// POST /v1/documents/reveal
// Returns 200 OK even when some fields could not be decrypted; those stay
// encrypted and are listed by path.
func (h *DocumentHandler) RevealHandler(c *gin.Context) {
	var req dto.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.documentUseCase.Reveal(c.Request.Context(), req.Document)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRevealedToResponse(result))
}

// RewrapHandler re-encrypts a stored payload under the current key.
// POST /v1/documents/rewrap
func (h *DocumentHandler) RewrapHandler(c *gin.Context) {
	var req dto.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.documentUseCase.Rewrap(c.Request.Context(), req.Document)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRewrappedToResponse(result))
}
