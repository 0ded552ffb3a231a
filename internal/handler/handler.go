// Package handler exposes the services over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"medi-kart/internal/middleware"
	"medi-kart/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// statusFor maps a domain error kind onto an HTTP status code.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindValidation, model.KindInsufficientStock, model.KindInvalidState:
		return http.StatusBadRequest
	case model.KindAccessDenied:
		return http.StatusForbidden
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts err into the failure envelope. Unclassified errors
// are logged and reported with a generic message.
func writeError(c *gin.Context, err error, logger zerolog.Logger) {
	rid := middleware.RequestIDFrom(c)

	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", rid).
			Msg("handler error")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success:       false,
			Message:       "Server error",
			Error:         model.ErrCodeInternalError,
			CorrelationID: rid,
		})
		return
	}

	status := statusFor(de.Kind)
	logger.Debug().Str("code", de.Code).Int("status", status).Str("request_id", rid).Msg(de.Message)
	c.JSON(status, model.ErrorResponse{
		Success:       false,
		Message:       de.Message,
		Error:         de.Code,
		CorrelationID: rid,
	})
}

// writeBindError reports a request body that could not be decoded.
func writeBindError(c *gin.Context, err error, logger zerolog.Logger) {
	logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("invalid request body")
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success:       false,
		Message:       "Invalid request body",
		Error:         model.ErrCodeInvalidJSON,
		CorrelationID: middleware.RequestIDFrom(c),
	})
}

func writeData(c *gin.Context, status int, message string, data any) {
	c.JSON(status, model.Response{Success: true, Message: message, Data: data})
}

// principal returns the authenticated caller. Routes are mounted behind
// middleware.Authenticate, so a missing principal is reported as 401.
func principal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Success:       false,
			Message:       "Not authorized, no token",
			Error:         model.ErrCodeUnauthorised,
			CorrelationID: middleware.RequestIDFrom(c),
		})
	}
	return p, ok
}

// listQuery reads status, page and limit query parameters.
func listQuery(c *gin.Context) model.ListQuery {
	return model.ListQuery{
		Status: c.Query("status"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 0),
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
