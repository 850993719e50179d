package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers the guest-facing browse endpoints.  None of
// them require a token: guests browse showtimes and preview seat maps
// before logging in to hold seats.  The optional cache middleware fronts
// the anonymous seat map, the hottest read in the system; pass nil to
// serve it uncached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/showtimes", p.ListShowtimes)
	e.GET("/v1/showtimes/:id/instances", p.ListInstances)
	e.GET("/v1/showtimes/:id/seatmap", b.ResolveSeatMap)

	seatMap := []echo.MiddlewareFunc{}
	if cache != nil {
		seatMap = append(seatMap, cache)
	}
	e.GET("/v1/instances/:id/seats", b.GetSeatMap, seatMap...)
}
