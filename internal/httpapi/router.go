// Package httpapi serves the bridge over local HTTP, including the MCP
// streamable HTTP endpoint and a websocket exchange feed.
package httpapi

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rbright/flmcp/internal/bridge"
	"github.com/rbright/flmcp/internal/feed"
	"github.com/rbright/flmcp/internal/mcpserver"
	"github.com/rbright/flmcp/internal/metrics"
)

const maxHistoryLimit = 500

// Options wires the router. Session is required; each optional route is
// skipped when its field is nil.
type Options struct {
	Session mcpserver.Session
	History mcpserver.History
	MCP     http.Handler
	MCPPath string
	Timeout time.Duration
	Version string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Feed    *feed.Hub
	// CORSOrigins are browser origins allowed to call the API and open
	// /events. "*" allows any origin.
	CORSOrigins []string
}

// CommandRequest is the POST /command body.
type CommandRequest struct {
	Action    string         `json:"action" binding:"required"`
	Params    map[string]any `json:"params"`
	TimeoutMS int            `json:"timeout_ms"`
}

// NewRouter builds the gin engine.
func NewRouter(opts Options) *gin.Engine {
	// stdout carries MCP stdio; keep gin's debug route dump off it.
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(corsMiddleware(opts.CORSOrigins))
	}
	_ = r.SetTrustedProxies(nil)

	h := &handler{opts: opts, logger: logger, upgrader: newUpgrader(opts.CORSOrigins)}
	r.GET("/healthz", h.health)
	r.GET("/status", h.status)
	r.POST("/command", h.command)
	if opts.History != nil {
		r.GET("/history", h.history)
	}
	if opts.Feed != nil {
		r.GET("/events", h.events)
	}
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.MCP != nil {
		path := opts.MCPPath
		if path == "" {
			path = "/mcp"
		}
		r.Any(path, gin.WrapH(opts.MCP))
	}
	return r
}

type handler struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.opts.Version})
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.opts.Session.Status())
}

func (h *handler) command(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid command body: " + err.Error()})
		return
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}
	timeout := h.opts.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	res, err := h.opts.Session.Exchange(c.Request.Context(), action, req.Params, timeout)
	if err != nil {
		h.logger.Error("http command failed", "action", action, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(statusFor(res.Failure), gin.H{"failure": res.Failure, "response": res.Response})
}

// statusFor maps a failure kind onto an HTTP status.
func statusFor(kind bridge.FailureKind) int {
	switch kind {
	case bridge.FailureNone:
		return http.StatusOK
	case bridge.FailureConnection, bridge.FailureUnsupported:
		return http.StatusServiceUnavailable
	case bridge.FailureTimeout:
		return http.StatusGatewayTimeout
	case bridge.FailureMalformed, bridge.FailureIO:
		return http.StatusBadGateway
	case bridge.FailureCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *handler) history(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and " + strconv.Itoa(maxHistoryLimit)})
			return
		}
		limit = n
	}
	entries, err := h.opts.History.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]mcpserver.ExchangeView, 0, len(entries))
	for _, e := range entries {
		views = append(views, mcpserver.ViewOf(e))
	}
	c.JSON(http.StatusOK, views)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		level := slog.LevelDebug
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposeHeaders: []string{"Mcp-Session-Id"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
