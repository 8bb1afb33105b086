package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentspace/internal/app/uow"
	"rentspace/internal/domain/shared/errkind"
)

func errorBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// statusFor maps an error kind to the HTTP status returned to clients.
func statusFor(kind errkind.Kind) int {
	switch kind {
	case errkind.InvalidInput:
		return http.StatusBadRequest
	case errkind.InvalidRange, errkind.PastStartDate, errkind.InvalidPrice:
		return http.StatusUnprocessableEntity
	case errkind.SelfBooking, errkind.Forbidden:
		return http.StatusForbidden
	case errkind.NotFound:
		return http.StatusNotFound
	case errkind.Unavailable, errkind.Conflict, errkind.AlreadyPaid, errkind.NotPayable,
		errkind.InvalidState, errkind.ReviewNotEligible:
		return http.StatusConflict
	case errkind.ExternalServiceFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": {"kind", "message"}}. Unknown errors
// are logged and reported without their internals.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, uow.ErrUnitOfWorkMissing) {
		c.JSON(http.StatusServiceUnavailable, errorBody(string(errkind.Unknown), "storage unavailable"))
		return
	}
	kind := errkind.KindOf(err)
	status := statusFor(kind)
	message := errkind.MessageOf(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "kind", kind, "error", err, "request_id", c.GetString("request_id"))
		}
		if kind == errkind.Unknown {
			message = "internal error"
		}
	} else if logger != nil {
		logger.Warn("request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.JSON(status, errorBody(string(kind), message))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(string(errkind.InvalidInput), message))
}

// parseDate accepts 2006-01-02 or RFC 3339.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
