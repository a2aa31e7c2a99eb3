package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// WaitlistHandler exposes the waitlist and swap endpoints.
type WaitlistHandler struct {
	Waitlist *service.WaitlistService
}

func NewWaitlistHandler(w *service.WaitlistService) *WaitlistHandler {
	if w == nil {
		panic("nil service passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{Waitlist: w}
}

type joinWaitlistReq struct {
	LotID    uint64 `json:"lot_id"`
	StartsAt string `json:"starts_at"` // RFC 3339
	EndsAt   string `json:"ends_at"`   // RFC 3339
}

type waitlistResp struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	LotID     uint64    `json:"lot_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	BookingID *uint64   `json:"booking_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toWaitlistResp(e model.WaitlistEntry) waitlistResp {
	return waitlistResp{
		ID:        e.ID,
		UserID:    e.UserID,
		LotID:     e.LotID,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Status:    e.Status,
		BookingID: e.BookingID,
		CreatedAt: e.CreatedAt,
	}
}

type swapResp struct {
	ID          uint64    `json:"id"`
	BookingID   uint64    `json:"booking_id"`
	RequesterID uint64    `json:"requester_id"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func toSwapResp(s model.SwapRequest) swapResp {
	return swapResp{
		ID:          s.ID,
		BookingID:   s.BookingID,
		RequesterID: s.RequesterID,
		Status:      s.Status,
		ExpiresAt:   s.ExpiresAt,
		CreatedAt:   s.CreatedAt,
	}
}

// Join handles POST /v1/waitlist.
func (h *WaitlistHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req joinWaitlistReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.LotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id is required"})
	}
	start, err := parseRFC3339(strings.TrimSpace(req.StartsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}
	end, err := parseRFC3339(strings.TrimSpace(req.EndsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC 3339"})
	}
	e, err := h.Waitlist.Join(c.Request().Context(), userID, req.LotID, start, end)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toWaitlistResp(e))
}

// Get handles GET /v1/waitlist/:id.
func (h *WaitlistHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waitlist id"})
	}
	e, err := h.Waitlist.GetEntry(c.Request().Context(), id, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toWaitlistResp(e))
}

// List handles GET /v1/waitlist.
func (h *WaitlistHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Waitlist.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]waitlistResp, 0, len(items))
	for _, e := range items {
		out = append(out, toWaitlistResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

type requestSwapReq struct {
	BookingID uint64 `json:"booking_id"`
}

// RequestSwap handles POST /v1/swaps.
func (h *WaitlistHandler) RequestSwap(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req requestSwapReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}
	sr, err := h.Waitlist.RequestSwap(c.Request().Context(), req.BookingID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toSwapResp(sr))
}

// AcceptSwap handles POST /v1/swaps/:id/accept.
func (h *WaitlistHandler) AcceptSwap(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid swap id"})
	}
	sr, err := h.Waitlist.AcceptSwap(c.Request().Context(), id, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toSwapResp(sr))
}

// RejectSwap handles POST /v1/swaps/:id/reject.
func (h *WaitlistHandler) RejectSwap(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid swap id"})
	}
	if err := h.Waitlist.RejectSwap(c.Request().Context(), id, userID, getRole(c)); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSwaps handles GET /v1/swaps.  ?direction=incoming lists requests
// against the caller's bookings, anything else lists the caller's own
// requests.
func (h *WaitlistHandler) ListSwaps(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var items []model.SwapRequest
	if c.QueryParam("direction") == "incoming" {
		items, err = h.Waitlist.ListSwapsForOwner(c.Request().Context(), userID)
	} else {
		items, err = h.Waitlist.ListSwapsByRequester(c.Request().Context(), userID)
	}
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]swapResp, 0, len(items))
	for _, s := range items {
		out = append(out, toSwapResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
