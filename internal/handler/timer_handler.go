package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "pomodoro/tracker/internal/errors"
	"pomodoro/tracker/internal/service"
	"pomodoro/tracker/internal/settings"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type startRequest struct {
	Title *string `json:"title"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type loadRequest struct {
	SessionID string `json:"sessionId"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	state, apiErr := h.timerService.State(c.Request.Context(), principal)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req startRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	state, apiErr := h.timerService.Start(c.Request.Context(), principal, req.Title)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	state, apiErr := h.timerService.Pause(c.Request.Context(), principal)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}

func (h *TimerHandler) Stop(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	state, apiErr := h.timerService.Stop(c.Request.Context(), principal)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}

func (h *TimerHandler) Reset(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	state, apiErr := h.timerService.Reset(c.Request.Context(), principal)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}

func (h *TimerHandler) SetMode(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.InvalidJSON())
		return
	}

	state, apiErr := h.timerService.SetMode(c.Request.Context(), principal, req.Mode)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}

func (h *TimerHandler) GetSettings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	current, apiErr := h.timerService.Settings(c.Request.Context(), principal)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"settings": current})
}

func (h *TimerHandler) UpdateSettings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, apperrors.InvalidJSON())
		return
	}

	state, apiErr := h.timerService.UpdateSettings(c.Request.Context(), principal, patch)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state, "settings": state.Settings})
}

func (h *TimerHandler) LoadSession(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.InvalidJSON())
		return
	}

	state, apiErr := h.timerService.LoadSession(c.Request.Context(), principal, req.SessionID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"state": state})
}
