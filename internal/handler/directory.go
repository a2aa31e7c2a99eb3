package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// DirectoryHandler manages the lot, zone and slot directory.  Reads are
// open to any authenticated user; writes are restricted to admins by
// route middleware.
type DirectoryHandler struct {
	Lots  *repository.LotRepo
	Slots *repository.SlotRepo
}

func NewDirectoryHandler(lots *repository.LotRepo, slots *repository.SlotRepo) *DirectoryHandler {
	if lots == nil || slots == nil {
		panic("nil repository passed to NewDirectoryHandler")
	}
	return &DirectoryHandler{Lots: lots, Slots: slots}
}

type createLotReq struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	MaxBookingDays uint32 `json:"max_booking_days,omitempty"` // 0 = engine default
}

// CreateLot handles POST /v1/lots (admin).
func (h *DirectoryHandler) CreateLot(c echo.Context) error {
	var req createLotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	l := model.Lot{Name: req.Name, Address: strings.TrimSpace(req.Address), MaxBookingDays: req.MaxBookingDays}
	if err := h.Lots.Create(c.Request().Context(), &l); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// ListLots handles GET /v1/lots.
func (h *DirectoryHandler) ListLots(c echo.Context) error {
	items, err := h.Lots.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetLot handles GET /v1/lots/:id.
func (h *DirectoryHandler) GetLot(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	l, err := h.Lots.GetByID(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

type createZoneReq struct {
	Name string `json:"name"`
}

// CreateZone handles POST /v1/lots/:id/zones (admin).
func (h *DirectoryHandler) CreateZone(c echo.Context) error {
	lotID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req createZoneReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if _, err := h.Lots.GetByID(c.Request().Context(), lotID); err != nil {
		return serviceError(c, err)
	}
	z := model.Zone{LotID: lotID, Name: strings.TrimSpace(req.Name)}
	if err := h.Lots.CreateZone(c.Request().Context(), &z); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, z)
}

// ListZones handles GET /v1/lots/:id/zones.
func (h *DirectoryHandler) ListZones(c echo.Context) error {
	lotID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	items, err := h.Lots.ListZones(c.Request().Context(), lotID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type createSlotReq struct {
	ZoneID *uint64 `json:"zone_id,omitempty"`
	Number string  `json:"number"`
}

// CreateSlot handles POST /v1/lots/:id/slots (admin).  New slots start
// AVAILABLE.
func (h *DirectoryHandler) CreateSlot(c echo.Context) error {
	lotID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req createSlotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Number) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "number is required"})
	}
	if _, err := h.Lots.GetByID(c.Request().Context(), lotID); err != nil {
		return serviceError(c, err)
	}
	s := model.Slot{
		LotID:  lotID,
		ZoneID: req.ZoneID,
		Number: strings.TrimSpace(req.Number),
		Status: model.SlotAvailable,
	}
	if err := h.Slots.Create(c.Request().Context(), &s); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// ListSlots handles GET /v1/lots/:id/slots.
func (h *DirectoryHandler) ListSlots(c echo.Context) error {
	lotID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	items, err := h.Slots.ListByLot(c.Request().Context(), lotID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Availability handles GET /v1/lots/:id/availability?from=...&to=...
// It lists the lot's slots that are free for the whole window.
func (h *DirectoryHandler) Availability(c echo.Context) error {
	lotID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	from, err := parseRFC3339(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC 3339"})
	}
	to, err := parseRFC3339(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC 3339"})
	}
	if !from.Before(to) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must precede to"})
	}
	items, err := h.Slots.ListFreeByLot(c.Request().Context(), lotID, from.UTC(), to.UTC())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type slotStatusReq struct {
	Status string `json:"status"` // AVAILABLE | DISABLED | BLOCKED
}

// SetSlotStatus handles PATCH /v1/slots/:id/status (admin).  Disabling
// a slot stops new bookings; existing ones are untouched.
func (h *DirectoryHandler) SetSlotStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req slotStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	switch status {
	case model.SlotAvailable, model.SlotDisabled, model.SlotBlocked:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be AVAILABLE, DISABLED or BLOCKED"})
	}
	if _, err := h.Slots.GetByID(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}
	if err := h.Slots.SetStatus(c.Request().Context(), id, status); err != nil {
		return serviceError(c, err)
	}
	s, err := h.Slots.GetByID(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
