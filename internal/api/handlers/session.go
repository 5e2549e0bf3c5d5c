package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/posture-coach/engine/internal/bus"
	"github.com/posture-coach/engine/pkg/dto"
)

// SessionHandler sends pause/resume control commands to a session's engine
// process; it holds no session state itself.
type SessionHandler struct {
	publisher *bus.Publisher
}

func NewSessionHandler(publisher *bus.Publisher) *SessionHandler {
	return &SessionHandler{publisher: publisher}
}

func (h *SessionHandler) Pause(c *gin.Context) {
	h.sendControl(c, dto.ControlPause)
}

func (h *SessionHandler) Resume(c *gin.Context) {
	h.sendControl(c, dto.ControlResume)
}

func (h *SessionHandler) sendControl(c *gin.Context, cmdType dto.ControlCommandType) {
	sessionID := c.Param("sessionId")

	payload, err := json.Marshal(dto.ControlCommand{Type: cmdType})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishControl(sessionID, payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": string(cmdType)})
}
