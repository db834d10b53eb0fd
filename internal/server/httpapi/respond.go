package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg})
}

func bad(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, msg)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		fail(c, status, common.ErrorInternal.Error())
		return
	}
	if status == http.StatusNotFound {
		fail(c, status, "not found")
		return
	}
	fail(c, status, err.Error())
}
