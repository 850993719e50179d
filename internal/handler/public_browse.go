package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/booking"
	"github.com/cinetix/showtime-booking/internal/model"
	"github.com/cinetix/showtime-booking/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints: the showtime
// catalogue and its scheduled instances.  Responses here feed the movie
// listing page and are good candidates for the Redis response cache.
type PublicHandler struct {
	ShowtimeRepo *repository.ShowtimeRepo
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(showtimeRepo *repository.ShowtimeRepo) *PublicHandler {
	if showtimeRepo == nil {
		panic("nil showtime repo passed to NewPublicHandler")
	}
	return &PublicHandler{ShowtimeRepo: showtimeRepo}
}

// ListShowtimes handles GET /v1/showtimes and returns every screening
// series with its movie title and theater.
func (h *PublicHandler) ListShowtimes(c echo.Context) error {
	shows, err := h.ShowtimeRepo.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(shows))
	for _, s := range shows {
		out = append(out, echo.Map{
			"id":           s.ID,
			"movie_title":  s.MovieTitle,
			"theater_name": s.TheaterName,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"showtimes": out})
}

// ListInstances handles GET /v1/showtimes/:id/instances.  Without query
// parameters it lists every scheduled instance of the showtime.  When
// date, start_time and room are all supplied it resolves the single
// matching instance instead, which saves the client a scan when it
// already knows the slot.
func (h *PublicHandler) ListInstances(c echo.Context) error {
	showtimeID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()
	if _, err := h.ShowtimeRepo.GetByID(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	date := c.QueryParam("date")
	startTime := c.QueryParam("start_time")
	room := c.QueryParam("room")
	if date != "" && startTime != "" && room != "" {
		inst, err := h.ShowtimeRepo.ResolveInstance(ctx, showtimeID, room, date, startTime)
		if err != nil {
			if errors.Is(err, booking.ErrInstanceNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime instance not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"instances": []echo.Map{instanceJSON(inst)}})
	}

	insts, err := h.ShowtimeRepo.ListInstances(ctx, showtimeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(insts))
	for i := range insts {
		out = append(out, instanceJSON(&insts[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"instances": out})
}

func instanceJSON(inst *model.ShowtimeInstance) echo.Map {
	return echo.Map{
		"id":         inst.ID,
		"room":       inst.Room,
		"show_date":  inst.ShowDate,
		"start_time": inst.StartTime,
		"seat_rows":  inst.SeatRows,
		"seat_cols":  inst.SeatCols,
	}
}
