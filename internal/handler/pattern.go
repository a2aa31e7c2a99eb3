package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// PatternHandler exposes recurring booking patterns over HTTP.
type PatternHandler struct {
	Recurrence *service.RecurrenceService
}

func NewPatternHandler(r *service.RecurrenceService) *PatternHandler {
	if r == nil {
		panic("nil service passed to NewPatternHandler")
	}
	return &PatternHandler{Recurrence: r}
}

type createPatternReq struct {
	LotID           uint64 `json:"lot_id"`
	SlotID          uint64 `json:"slot_id"`
	Interval        string `json:"interval"`              // WEEKLY | MONTHLY
	Weekdays        uint8  `json:"weekdays,omitempty"`    // bitmask, bit 0 = Sunday
	DayOfMonth      uint8  `json:"day_of_month,omitempty"`
	StartMinute     uint16 `json:"start_minute"`
	DurationMinutes uint32 `json:"duration_minutes"`
	StartDate       string `json:"start_date"`            // YYYY-MM-DD
	EndDate         string `json:"end_date,omitempty"`    // YYYY-MM-DD
}

type patternResp struct {
	ID              uint64     `json:"id"`
	UserID          uint64     `json:"user_id"`
	LotID           uint64     `json:"lot_id"`
	SlotID          uint64     `json:"slot_id"`
	Interval        string     `json:"interval"`
	Weekdays        uint8      `json:"weekdays,omitempty"`
	DayOfMonth      uint8      `json:"day_of_month,omitempty"`
	StartMinute     uint16     `json:"start_minute"`
	DurationMinutes uint32     `json:"duration_minutes"`
	StartDate       string     `json:"start_date"`
	EndDate         *string    `json:"end_date,omitempty"`
	LastExpanded    *string    `json:"last_expanded_date,omitempty"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toPatternResp(p model.RecurringPattern) patternResp {
	r := patternResp{
		ID:              p.ID,
		UserID:          p.UserID,
		LotID:           p.LotID,
		SlotID:          p.SlotID,
		Interval:        p.Interval,
		Weekdays:        p.Weekdays,
		DayOfMonth:      p.DayOfMonth,
		StartMinute:     p.StartMinute,
		DurationMinutes: p.DurationMinutes,
		StartDate:       p.StartDate.Format("2006-01-02"),
		Active:          p.Active,
		CreatedAt:       p.CreatedAt,
	}
	if p.EndDate != nil {
		s := p.EndDate.Format("2006-01-02")
		r.EndDate = &s
	}
	if p.LastExpandedDate != nil {
		s := p.LastExpandedDate.Format("2006-01-02")
		r.LastExpanded = &s
	}
	return r
}

// Create handles POST /v1/patterns.  The first batch of occurrences is
// materialized before the response returns.
func (h *PatternHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createPatternReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.LotID == 0 || req.SlotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id and slot_id are required"})
	}
	startDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	var endDate *time.Time
	if s := strings.TrimSpace(req.EndDate); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
		}
		endDate = &d
	}

	p, err := h.Recurrence.CreatePattern(c.Request().Context(), service.CreatePatternInput{
		UserID:          userID,
		LotID:           req.LotID,
		SlotID:          req.SlotID,
		Interval:        strings.ToUpper(strings.TrimSpace(req.Interval)),
		Weekdays:        req.Weekdays,
		DayOfMonth:      req.DayOfMonth,
		StartMinute:     req.StartMinute,
		DurationMinutes: req.DurationMinutes,
		StartDate:       startDate,
		EndDate:         endDate,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toPatternResp(p))
}

// Get handles GET /v1/patterns/:id.
func (h *PatternHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pattern id"})
	}
	p, err := h.Recurrence.Get(c.Request().Context(), id, userID, getRole(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toPatternResp(p))
}

// List handles GET /v1/patterns.
func (h *PatternHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Recurrence.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]patternResp, 0, len(items))
	for _, p := range items {
		out = append(out, toPatternResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Delete handles DELETE /v1/patterns/:id.  The pattern is deactivated
// and its future confirmed occurrences cancelled.
func (h *PatternHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pattern id"})
	}
	if err := h.Recurrence.DeletePattern(c.Request().Context(), id, userID, getRole(c)); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
