package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pomodoro/tracker/internal/errors"
	"pomodoro/tracker/internal/middleware"
	"pomodoro/tracker/internal/model"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		apiErr = apperrors.Internal("")
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		errorBody["details"] = apiErr.Details
	}

	c.JSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

// requirePrincipal writes a 401 and returns false when the request carries
// no authenticated principal.
func requirePrincipal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok {
		writeError(c, apperrors.Unauthorized(""))
		return model.Principal{}, false
	}
	return principal, true
}

// bindOptionalJSON accepts an empty body and otherwise decodes JSON into dst.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, apperrors.InvalidJSON())
		return false
	}
	return true
}

func writeOK(c *gin.Context, body gin.H) {
	c.JSON(http.StatusOK, body)
}
