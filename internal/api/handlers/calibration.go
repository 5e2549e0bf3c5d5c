package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/posture-coach/engine/internal/bus"
	"github.com/posture-coach/engine/internal/storage"
	"github.com/posture-coach/engine/pkg/dto"
)

type CalibrationHandler struct {
	db        *storage.PostgresStore
	publisher *bus.Publisher
}

func NewCalibrationHandler(db *storage.PostgresStore, publisher *bus.Publisher) *CalibrationHandler {
	return &CalibrationHandler{db: db, publisher: publisher}
}

// Start publishes a calibration.start control command to the session's
// engine process. The resulting progress/complete/failed events arrive
// asynchronously over the calibration events stream, not in this response.
func (h *CalibrationHandler) Start(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req dto.StartCalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := dto.ControlCommand{Type: dto.ControlStartCalibration, Calibration: &req}
	payload, err := json.Marshal(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishControl(sessionID, payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "calibration started"})
}

func (h *CalibrationHandler) Cancel(c *gin.Context) {
	sessionID := c.Param("sessionId")

	cmd := dto.ControlCommand{Type: dto.ControlCancelCalibration}
	payload, err := json.Marshal(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishControl(sessionID, payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "calibration cancelled"})
}

// GetActive returns the persisted active calibration record for a user, if
// any.
func (h *CalibrationHandler) GetActive(c *gin.Context) {
	userID := c.Param("userId")

	rec, err := h.db.GetActiveCalibration(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active calibration"})
		return
	}

	c.JSON(http.StatusOK, dto.FromCalibrationRecord(*rec))
}
