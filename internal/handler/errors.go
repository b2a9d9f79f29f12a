package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/service"
	"github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

// fail maps a service error onto the response envelope. Client errors are
// logged at debug level, everything else at error with a generic message.
func fail(c *gin.Context, err error, action string) {
	l := log.Ctx(c.Request.Context())
	msg := err.Error()

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		l.Debug().Err(err).Msg(action + ": invalid input")
		response.BadRequest(c, msg)
	case errors.Is(err, service.ErrInvalidCredentials):
		l.Debug().Msg(action + ": invalid credentials")
		response.Unauthorized(c, "incorrect user name or password")
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, msg)
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, msg)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, msg)
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, msg)
	case errors.Is(err, context.DeadlineExceeded):
		l.Error().Err(err).Msg(action + " timed out")
		response.Error(c, http.StatusGatewayTimeout, "TIMEOUT", "the request timed out")
	default:
		l.Error().Err(err).Msg(action + " failed")
		response.InternalError(c, "failed to "+action)
	}
}

// badRequest rejects a request whose body or query failed to bind.
func badRequest(c *gin.Context, err error, what string) {
	l := log.Ctx(c.Request.Context())
	l.Warn().Err(err).Msg("invalid " + what)
	response.BadRequest(c, err.Error())
}
