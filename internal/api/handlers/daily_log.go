package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/posture-coach/engine/internal/aggregator"
	"github.com/posture-coach/engine/internal/storage"
	"github.com/posture-coach/engine/pkg/dto"
)

type DailyLogHandler struct {
	db *storage.PostgresStore
}

func NewDailyLogHandler(db *storage.PostgresStore) *DailyLogHandler {
	return &DailyLogHandler{db: db}
}

func (h *DailyLogHandler) Get(c *gin.Context) {
	date := c.Param("date")

	log, err := h.db.GetDailyLog(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if log == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no log for that date"})
		return
	}

	c.JSON(http.StatusOK, dto.FromDailyLog(*log))
}

func (h *DailyLogHandler) List(c *gin.Context) {
	limit := 30
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	logs, err := h.db.ListDailyLogsDesc(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.DailyLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, dto.FromDailyLog(l))
	}

	c.JSON(http.StatusOK, gin.H{"logs": resp, "total": len(resp)})
}

func (h *DailyLogHandler) Streak(c *gin.Context) {
	today := c.DefaultQuery("date", time.Now().Format("2006-01-02"))

	streak, err := aggregator.Streak(c.Request.Context(), h.db, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.StreakResponse{CurrentStreakDays: streak})
}
