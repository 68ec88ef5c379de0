package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/highlight"
)

// StyleHandler serves the stylesheet for highlighted code.
type StyleHandler struct {
	theme  string
	logger *zap.Logger
}

// NewStyleHandler creates a style handler for the default theme.
func NewStyleHandler(theme string, logger *zap.Logger) *StyleHandler {
	if !highlight.HasStyle(theme) {
		theme = highlight.DefaultStyle
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StyleHandler{theme: theme, logger: logger}
}

// GetCSS writes the token class stylesheet. A known ?theme= overrides the
// configured theme.
func (h *StyleHandler) GetCSS(c *gin.Context) {
	theme := h.theme
	if q := c.Query("theme"); q != "" {
		if !highlight.HasStyle(q) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown theme", "themes": highlight.StyleNames()})
			return
		}
		theme = q
	}

	var buf bytes.Buffer
	if err := highlight.WriteCSS(&buf, theme); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
}

// GetThemes lists the available themes.
func (h *StyleHandler) GetThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"default": h.theme, "themes": highlight.StyleNames()})
}
