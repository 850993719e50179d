package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/handler"
	"github.com/cinetix/showtime-booking/internal/middleware"
)

// RegisterAdmin registers the provisioning endpoints under /v1 for the
// ADMIN role: creating showtimes and scheduling instances with their
// generated seat grids.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.POST("/showtimes", h.CreateShowtime)
	g.POST("/showtimes/:id/instances", h.CreateInstance)
}
