package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/termhost/internal/api/middleware"
)

// Register mounts the REST routes. WebSocket routes are mounted by the
// relay.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	services := r.Group("/services")
	services.GET("", h.ListServices)
	services.POST("/discover", h.DiscoverServices)
	services.POST("/execute", h.ExecuteService)

	terminals := r.Group("/api/terminals")
	terminals.GET("", h.ListTerminals)
	terminals.POST("", h.CreateTerminal)
	terminals.GET("/:id", h.GetTerminal)
	terminals.DELETE("/:id", h.KillTerminal)
	terminals.POST("/:id/exec", h.Exec)
	terminals.POST("/:id/exec/wait", h.ExecWait)
	terminals.POST("/:id/exec/capture", h.ExecCapture)
	terminals.POST("/:id/write", h.Write)
	terminals.POST("/:id/resize", h.Resize)
	terminals.GET("/:id/buffer", middleware.Gzip(), h.GetBuffer)
	terminals.DELETE("/:id/buffer", h.FlushBuffer)

	names := r.Group("/api/names")
	names.GET("/:name", h.GetTerminalByName)
	names.POST("/:name/exec", h.ExecByName)
	names.POST("/:name/exec/wait", h.ExecWaitByName)
	names.POST("/:name/write", h.WriteByName)
	names.GET("/:name/buffer", middleware.Gzip(), h.GetBufferByName)
}
