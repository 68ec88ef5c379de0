// Package handler provides HTTP handlers for the syntaxia JSON API.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/render"
)

// Pipeline is the part of the renderer the handlers use.
type Pipeline interface {
	RenderPath(ctx context.Context, requested string) (render.Result, error)
	Open(ctx context.Context, requested string) ([]byte, string, error)
}

// ViewHandler serves rendered and raw repository content.
type ViewHandler struct {
	pipeline Pipeline
	logger   *zap.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(p Pipeline, logger *zap.Logger) *ViewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewHandler{pipeline: p, logger: logger}
}

// GetView returns the listing, rendered document or raw descriptor for a path
func (h *ViewHandler) GetView(c *gin.Context) {
	res, err := h.pipeline.RenderPath(c.Request.Context(), c.Param("path"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRaw returns the file bytes with their detected content type
func (h *ViewHandler) GetRaw(c *gin.Context) {
	data, mime, err := h.pipeline.Open(c.Request.Context(), c.Param("path"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	// never let the browser render repository files as active content
	if strings.HasPrefix(mime, "text/html") || strings.HasPrefix(mime, "image/svg+xml") {
		mime = "text/plain; charset=utf-8"
	}
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	c.Data(http.StatusOK, mime, data)
}
