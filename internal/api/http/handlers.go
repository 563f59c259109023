package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/domain/service"
	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/termhost/internal/shared/types"
)

const version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	manager  *terminal.Manager
	registry *service.Registry
	metrics  *monitoring.Metrics
	tracked  *HandlerMetrics
	logger   *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(manager *terminal.Manager, registry *service.Registry, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager:  manager,
		registry: registry,
		metrics:  metrics,
		tracked:  NewHandlerMetrics(metrics),
		logger:   logger.Named("http"),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "termhost",
		"version": version,
	})
}

// Health reports liveness and session counts
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status": "healthy",
		"sessions": gin.H{
			"active": h.manager.Count(),
			"max":    h.manager.Options().MaxSessions,
		},
		"service_registry": h.registry.Stats(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		cat := types.Category(raw)
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// DiscoverServices ranks services against a free-text intent
func (h *Handlers) DiscoverServices(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    req.Message,
		"services": h.registry.Discover(req.Message, 5),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	appCtx := &types.Context{AgentID: req.AgentID}
	if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
		requestID := string(traceID)
		appCtx.RequestID = &requestID
	}

	done := h.tracked.TrackServiceOperation(req.ToolID)
	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	done()
	if err != nil {
		_ = c.Error(err)
		c.JSON(StatusFor(err), result)
		return
	}

	c.JSON(http.StatusOK, result)
}
