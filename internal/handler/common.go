package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/booking"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  JWTAuth stores the raw claim value, so the number may arrive
// as float64 (JSON), string, or an integer type.
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

// parseInstanceID parses the :id path parameter shared by all seat
// endpoints.
func parseInstanceID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// writeBookingError maps coordinator and ledger errors onto HTTP
// responses.  Conflicts and unknown seats carry the offending labels so
// the client can highlight exactly which selections failed and re-render
// the seat map instead of showing a generic error.
func writeBookingError(c echo.Context, err error) error {
	var nf *booking.SeatsNotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown seats", "unknown": nf.Labels})
	}
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "some seats are unavailable", "rejected": conflict.Rejected})
	}
	switch {
	case errors.Is(err, booking.ErrInstanceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime instance not found"})
	case errors.Is(err, booking.ErrNoSeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_labels is required"})
	case errors.Is(err, booking.ErrTooManySeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many seats for one checkout"})
	case errors.Is(err, booking.ErrMixedSeatTypes):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must share a single seat type"})
	case errors.Is(err, booking.ErrOrderRefRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_ref is required"})
	case errors.Is(err, booking.ErrPairingViolation):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "couple pairing violation"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
