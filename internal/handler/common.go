package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole returns the role claim stored by the JWT middleware, or "".
func getRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// paramID parses a numeric path parameter; zero is invalid.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// parseRFC3339 parses a required timestamp field.
func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// serviceError maps service and repository sentinels onto HTTP
// responses.  Every domain handler funnels its terminal errors through
// here so the status codes stay consistent across endpoints.  The code
// field is the stable machine-readable identifier; several conditions
// share a 409 and clients tell them apart by code, not by message.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apiError(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, repository.ErrForbidden):
		return apiError(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
	case errors.Is(err, repository.ErrConflict):
		return apiError(c, http.StatusConflict, "CONFLICT", "conflict")
	case errors.Is(err, service.ErrInvalidRange):
		return apiError(c, http.StatusBadRequest, "INVALID_RANGE", "invalid time range")
	case errors.Is(err, service.ErrSlotUnavailable):
		return apiError(c, http.StatusConflict, "SLOT_UNAVAILABLE", "slot unavailable for the requested window")
	case errors.Is(err, service.ErrSlotDisabled):
		return apiError(c, http.StatusConflict, "SLOT_DISABLED", "slot is not bookable")
	case errors.Is(err, service.ErrTooEarly):
		return apiError(c, http.StatusConflict, "TOO_EARLY", "check-in window not open yet")
	case errors.Is(err, service.ErrTooLate):
		return apiError(c, http.StatusConflict, "TOO_LATE", "check-in window has closed")
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		return apiError(c, http.StatusConflict, "ALREADY_CHECKED_IN", "already checked in")
	case errors.Is(err, service.ErrBookingClosed):
		return apiError(c, http.StatusConflict, "BOOKING_CLOSED", "booking is no longer open")
	case errors.Is(err, service.ErrSwapClosed):
		return apiError(c, http.StatusConflict, "SWAP_CLOSED", "swap request is no longer open")
	case errors.Is(err, service.ErrServiceUnavailable):
		return apiError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "temporarily unavailable, retry")
	default:
		return apiError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func apiError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"code": code, "error": msg})
}
