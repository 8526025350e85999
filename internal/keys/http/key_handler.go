// Package http provides HTTP handlers for key introspection and manual rotation.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/phiguard/internal/httputil"
	"github.com/allisson/phiguard/internal/keys/http/dto"
	keysUseCase "github.com/allisson/phiguard/internal/keys/usecase"
	customValidation "github.com/allisson/phiguard/internal/validation"
)

// KeyHandler handles HTTP requests for the key ring.
type KeyHandler struct {
	keyManager keysUseCase.KeyManager
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler(keyManager keysUseCase.KeyManager, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyManager: keyManager,
		logger:     logger,
	}
}

// StatsHandler returns the key manager statistics.
// GET /v1/keys/stats
func (h *KeyHandler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.keyManager.Stats())
}

// ListHandler returns key metadata, newest first.
// GET /v1/keys?offset=0&limit=50
func (h *KeyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	keys := httputil.Page(h.keyManager.ListKeys(), offset, limit)
	c.JSON(http.StatusOK, dto.MapKeysToListResponse(keys))
}

// RotateHandler generates a new active key and retires the previous one.
// POST /v1/keys/rotate
// Returns 201 Created with the new key id. An empty body rotates without a scope.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateKeyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	keyID, err := h.keyManager.RotateKey(c.Request.Context(), req.Scope)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("key rotated via api", slog.String("key_id", keyID), slog.String("scope", req.Scope))
	c.JSON(http.StatusCreated, dto.RotateKeyResponse{KeyID: keyID})
}
