package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/handler"
	"github.com/cinetix/showtime-booking/internal/middleware"
)

// RegisterBooking registers the hold lifecycle endpoints.  Customers
// hold and release seats; the payment service finalizes them after a
// confirmed charge.  Both groups require a valid JWT; the role claim
// decides which group a caller may reach.  The optional rate limiter is
// applied to the mutating customer endpoints, the ones a misbehaving
// client can hammer; pass nil to skip limiting.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	customer := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	customer.GET("/instances/:id/seats/me", h.GetSeatMapForViewer)

	mutating := []echo.MiddlewareFunc{}
	if limiter != nil {
		mutating = append(mutating, limiter)
	}
	customer.POST("/instances/:id/hold", h.HoldSeats, mutating...)
	customer.POST("/instances/:id/release", h.ReleaseSeats, mutating...)
	customer.DELETE("/instances/:id/hold", h.ReleaseAllHolds, mutating...)

	payment := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("PAYMENT"),
	)
	payment.POST("/instances/:id/finalize", h.FinalizeSeats)
}
