package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisgraph/jurisgraph/pkg/orchestrator"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// AskHandler streams retrieval answers over server-sent events.
type AskHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(orch *orchestrator.Orchestrator, logger *slog.Logger) *AskHandler {
	return &AskHandler{orchestrator: orch, logger: logger}
}

// Ask handles POST /api/v1/ask. The response is an SSE stream whose event
// names mirror the stream event kinds; the final event is always complete or
// error.
func (h *AskHandler) Ask(c *gin.Context) {
	var req types.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := h.orchestrator.Handle(c.Request.Context(), req)
	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal stream event", "error", err)
			return false
		}
		c.SSEvent(string(event.Kind), string(payload))
		return !event.Terminal()
	})
}
