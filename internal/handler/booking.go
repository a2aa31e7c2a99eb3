package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// BookingHandler exposes the booking lifecycle over HTTP.  All methods
// assume JWT authentication has already run so user_id and role are in
// the context.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(b *service.BookingService) *BookingHandler {
	if b == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b}
}

type createBookingReq struct {
	SlotID   uint64 `json:"slot_id"`
	StartsAt string `json:"starts_at"` // RFC 3339
	EndsAt   string `json:"ends_at"`   // RFC 3339
}

type bookingResp struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"user_id"`
	SlotID      uint64     `json:"slot_id"`
	LotID       uint64     `json:"lot_id"`
	Status      string     `json:"status"`
	BookingType string     `json:"booking_type"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	PatternID   *uint64    `json:"pattern_id,omitempty"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:          b.ID,
		UserID:      b.UserID,
		SlotID:      b.SlotID,
		LotID:       b.LotID,
		Status:      b.Status,
		BookingType: b.BookingType,
		StartsAt:    b.StartsAt,
		EndsAt:      b.EndsAt,
		CheckedInAt: b.CheckedInAt,
		PatternID:   b.PatternID,
	}
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.SlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_id is required"})
	}
	start, err := parseRFC3339(strings.TrimSpace(req.StartsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}
	end, err := parseRFC3339(strings.TrimSpace(req.EndsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC 3339"})
	}

	b, err := h.Bookings.Create(c.Request().Context(), service.CreateBookingInput{
		UserID:   userID,
		SlotID:   req.SlotID,
		StartsAt: start,
		EndsAt:   end,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.Get(c.Request().Context(), id, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// List handles GET /v1/bookings: the caller's current and upcoming
// bookings plus anything that ended within the last day.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]bookingResp, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// CheckIn handles POST /v1/bookings/:id/checkin.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.CheckIn(c.Request().Context(), id, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Bookings.Cancel(c.Request().Context(), id, userID, getRole(c)); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type extendReq struct {
	EndsAt string `json:"ends_at"` // RFC 3339
}

// Extend handles PATCH /v1/bookings/:id: moves the end time, subject to
// the same conflict rules as creation.
func (h *BookingHandler) Extend(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req extendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	newEnd, err := parseRFC3339(strings.TrimSpace(req.EndsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC 3339"})
	}
	b, err := h.Bookings.Extend(c.Request().Context(), id, newEnd, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}
