package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/pkg/dto"
)

type ConfigHandler struct {
	store *config.Store
}

func NewConfigHandler(store *config.Store) *ConfigHandler {
	return &ConfigHandler{store: store}
}

func (h *ConfigHandler) GetScore(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromScoreConfig(h.store.Score()))
}

func (h *ConfigHandler) UpdateScore(c *gin.Context) {
	var req dto.UpdateScoreConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.FromScoreConfig(h.store.UpdateScore(req.ToOverrides())))
}

func (h *ConfigHandler) ResetScore(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromScoreConfig(h.store.ResetScore()))
}

func (h *ConfigHandler) GetSignal(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromSignalConfig(h.store.Signal()))
}

func (h *ConfigHandler) UpdateSignal(c *gin.Context) {
	var req dto.UpdateSignalConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.FromSignalConfig(h.store.UpdateSignal(req.ToOverrides())))
}

func (h *ConfigHandler) ResetSignal(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromSignalConfig(h.store.ResetSignal()))
}

func (h *ConfigHandler) GetGuardrails(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromGuardrailConfig(h.store.Guardrails()))
}

func (h *ConfigHandler) UpdateGuardrails(c *gin.Context) {
	var req dto.UpdateGuardrailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.FromGuardrailConfig(h.store.UpdateGuardrails(req.ToOverrides())))
}

func (h *ConfigHandler) ResetGuardrails(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FromGuardrailConfig(h.store.ResetGuardrails()))
}
