package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/barong-iam/core"
)

// Result is the envelope of every JSON response. The HTTP status always
// equals Code.
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	msgSuccess      = "success"
	msgFailed       = "operation failed"
	msgBadRequest   = "invalid request"
	msgUnauthorized = "not logged in or token has expired"
	msgForbidden    = "permission denied"
)

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Result{Code: http.StatusOK, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Result{Code: status, Message: message})
}

// errorStatus maps a service error to its HTTP status and client message.
// Internal causes are never exposed.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrInvalidCaptcha):
		return http.StatusBadRequest, core.ErrInvalidCaptcha.Error()
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, core.ErrInvalidCredentials.Error()
	case errors.Is(err, core.ErrTokenReused):
		return http.StatusUnauthorized, core.ErrTokenReused.Error()
	case errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized, core.ErrTokenExpired.Error()
	case errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized, core.ErrInvalidToken.Error()
	default:
		return http.StatusInternalServerError, msgFailed
	}
}
