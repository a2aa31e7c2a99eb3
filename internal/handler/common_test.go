package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

func TestServiceErrorCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"invalid range", service.ErrInvalidRange, http.StatusBadRequest, "INVALID_RANGE"},
		{"slot unavailable", service.ErrSlotUnavailable, http.StatusConflict, "SLOT_UNAVAILABLE"},
		{"slot disabled", service.ErrSlotDisabled, http.StatusConflict, "SLOT_DISABLED"},
		{"too early", service.ErrTooEarly, http.StatusConflict, "TOO_EARLY"},
		{"too late", service.ErrTooLate, http.StatusConflict, "TOO_LATE"},
		{"already checked in", service.ErrAlreadyCheckedIn, http.StatusConflict, "ALREADY_CHECKED_IN"},
		{"booking closed", service.ErrBookingClosed, http.StatusConflict, "BOOKING_CLOSED"},
		{"swap closed", service.ErrSwapClosed, http.StatusConflict, "SWAP_CLOSED"},
		{"unavailable", service.ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := serviceError(c, tc.err); err != nil {
				t.Fatalf("serviceError returned %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body struct {
				Code  string `json:"code"`
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("code = %q, want %q", body.Code, tc.code)
			}
			if body.Error == "" {
				t.Fatal("expected a human readable message")
			}
		})
	}
}

// The three check-in failures all answer 409, so the code field is the
// only thing a client can branch on.
func TestServiceErrorConflictCodesDistinct(t *testing.T) {
	e := echo.New()
	seen := map[string]bool{}
	for _, err := range []error{service.ErrTooEarly, service.ErrTooLate, service.ErrAlreadyCheckedIn} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		if serr := serviceError(e.NewContext(req, rec), err); serr != nil {
			t.Fatalf("serviceError returned %v", serr)
		}
		var body map[string]string
		if derr := json.Unmarshal(rec.Body.Bytes(), &body); derr != nil {
			t.Fatalf("decode body: %v", derr)
		}
		if seen[body["code"]] {
			t.Fatalf("code %q reused across distinct conditions", body["code"])
		}
		seen[body["code"]] = true
	}
}
