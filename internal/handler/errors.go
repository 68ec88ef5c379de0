package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/logging"
)

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.InvalidPath:
		return http.StatusBadRequest
	case errs.OutsideRoot, errs.PermissionDenied:
		return http.StatusForbidden
	case errs.NotFound:
		return http.StatusNotFound
	case errs.TooLarge:
		return http.StatusRequestEntityTooLarge
	case errs.RenderTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError responds with the status for err and a JSON body naming its
// kind. Details of internal errors are logged, not returned.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := StatusFor(err)
	kind := errs.KindOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(c, logger).Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error": msg,
		"kind":  kind.String(),
	})
}
