package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/posture-coach/engine/internal/bus"
	"github.com/posture-coach/engine/pkg/dto"
)

// FrameHandler accepts capture frames over REST and forwards them onto the
// frames stream for the owning engine process to consume.
type FrameHandler struct {
	publisher *bus.Publisher
}

func NewFrameHandler(publisher *bus.Publisher) *FrameHandler {
	return &FrameHandler{publisher: publisher}
}

func (h *FrameHandler) Ingest(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req dto.FrameIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishFrame(c.Request.Context(), sessionID, req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
