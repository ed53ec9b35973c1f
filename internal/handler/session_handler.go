package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pomodoro/tracker/internal/service"
)

type SessionHandler struct {
	historyService *service.HistoryService
}

func NewSessionHandler(historyService *service.HistoryService) *SessionHandler {
	return &SessionHandler{historyService: historyService}
}

func (h *SessionHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.historyService.ListSessions(c.Request.Context(), principal.ID, c.Query("filter"), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"sessions": sessions})
}

func (h *SessionHandler) Get(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	session, apiErr := h.historyService.GetSession(c.Request.Context(), principal.ID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"session": session})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if apiErr := h.historyService.DeleteSession(c.Request.Context(), principal.ID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Stats(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	stats, apiErr := h.historyService.Stats(c.Request.Context(), principal.ID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeOK(c, gin.H{"stats": stats})
}
