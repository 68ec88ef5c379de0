package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/cache"
	"github.com/CageChen/syntaxia/internal/logging"
	"github.com/CageChen/syntaxia/internal/metrics"
)

// RouterOptions wires the handlers into a router.
type RouterOptions struct {
	Pipeline Pipeline
	// Stats reports render cache counters at /api/stats when set.
	Stats   func() cache.Stats
	Theme   string
	WS      *WSHandler
	Metrics bool
	Logger  *zap.Logger
}

// NewRouter builds the gin engine serving the JSON API.
func NewRouter(opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.FromContext(c, logger).Error("panic serving request", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}))
	r.Use(logging.Middleware(logger))
	r.Use(metricsMiddleware())
	r.Use(securityHeaders())
	r.Use(corsMiddleware())

	view := NewViewHandler(opts.Pipeline, logger)
	style := NewStyleHandler(opts.Theme, logger)

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	if opts.Metrics {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// API routes
	api := r.Group("/api")
	{
		api.GET("/view/*path", view.GetView)
		api.GET("/raw/*path", view.GetRaw)
		api.GET("/highlight.css", style.GetCSS)
		api.GET("/themes", style.GetThemes)
		if opts.WS != nil {
			api.GET("/ws", opts.WS.HandleWS)
		}
		if opts.Stats != nil {
			api.GET("/stats", func(c *gin.Context) { c.JSON(http.StatusOK, opts.Stats()) })
		}
	}
	return r
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Max-Age", strconv.Itoa(int((12 * time.Hour).Seconds())))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
