package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/booking"
	"github.com/cinetix/showtime-booking/internal/queue"
	"github.com/cinetix/showtime-booking/internal/repository"
)

// BookingHandler groups the coordinator, ledger and repositories required
// to serve seat maps and drive the hold lifecycle.  All mutating methods
// assume that JWT authentication and role validation has already been
// performed by middleware and may return 401 Unauthorized if the user ID
// cannot be extracted from the context.
type BookingHandler struct {
	Coordinator  *booking.Coordinator
	Ledger       *booking.Ledger
	ShowtimeRepo *repository.ShowtimeRepo
	// Publish sends the tickets.issued event after a successful
	// finalize.  It may be nil when the broker is not configured; a
	// publish failure never fails the sale.
	Publish func(ctx context.Context, ev queue.TicketsIssuedEvent) error
}

// NewBookingHandler constructs a BookingHandler with the provided
// dependencies.  Coordinator, ledger and showtime repo must be non-nil.
func NewBookingHandler(coord *booking.Coordinator, ledger *booking.Ledger, showtimeRepo *repository.ShowtimeRepo, publish func(ctx context.Context, ev queue.TicketsIssuedEvent) error) *BookingHandler {
	if coord == nil || ledger == nil || showtimeRepo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Coordinator:  coord,
		Ledger:       ledger,
		ShowtimeRepo: showtimeRepo,
		Publish:      publish,
	}
}

// GetSeatMap handles GET /v1/instances/:id/seats.  It returns the
// anonymous seat map for a showtime instance: layout dimensions plus
// every seat's type and effective status, with expired holds already
// reported as available.  Unknown instances return 404, never an empty
// map.
func (h *BookingHandler) GetSeatMap(c echo.Context) error {
	instanceID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	m, err := h.Ledger.SeatMap(c.Request().Context(), instanceID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// GetSeatMapForViewer handles GET /v1/instances/:id/seats/me.  It is the
// same map additionally distinguishing "held by me" from "held by someone
// else", which lets a customer resume a checkout after navigating back.
// This endpoint is never cached.
func (h *BookingHandler) GetSeatMapForViewer(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	instanceID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	m, err := h.Ledger.SeatMapForViewer(c.Request().Context(), instanceID, userID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// ResolveSeatMap handles GET /v1/showtimes/:id/seatmap.  It resolves the
// showtime instance for the given date, start_time and room query
// parameters and returns its seat map in one round trip, the lookup a
// client performs when entering seat selection from the showtime list.
func (h *BookingHandler) ResolveSeatMap(c echo.Context) error {
	showtimeID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	date := c.QueryParam("date")
	startTime := c.QueryParam("start_time")
	room := c.QueryParam("room")
	if date == "" || startTime == "" || room == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date, start_time and room are required"})
	}
	ctx := c.Request().Context()
	inst, err := h.ShowtimeRepo.ResolveInstance(ctx, showtimeID, room, date, startTime)
	if err != nil {
		return writeBookingError(c, err)
	}
	m, err := h.Ledger.SeatMap(ctx, inst.ID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// HoldSeats handles POST /v1/instances/:id/hold.  It places an 8-minute
// hold on the requested seats for the authenticated customer.  The
// request body must contain a JSON object with a "seat_labels" array.
// Couple seats are expanded to their partner automatically.  On success
// it returns 201 with the full held set and the expiration timestamp; if
// any requested seat is unavailable the whole batch fails with 409 and
// the list of rejected labels.  Re-holding seats the user already holds
// restarts the timer.
func (h *BookingHandler) HoldSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	instanceID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	var body struct {
		SeatLabels []string `json:"seat_labels"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Coordinator.Hold(c.Request().Context(), instanceID, userID, body.SeatLabels)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"seat_labels": res.SeatLabels,
		"expires_at":  res.ExpiresAt.Format(time.RFC3339),
	})
}

// ReleaseSeats handles POST /v1/instances/:id/release.  It releases the
// named seats when they are held by the caller; seats held by someone
// else or already available are skipped silently.  An empty or missing
// seat_labels releases everything the caller holds on the instance.
func (h *BookingHandler) ReleaseSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	instanceID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	var body struct {
		SeatLabels []string `json:"seat_labels"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	released, err := h.Coordinator.Release(c.Request().Context(), instanceID, userID, body.SeatLabels)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"released": len(released),
	})
}

// ReleaseAllHolds handles DELETE /v1/instances/:id/hold.  It releases all
// holds the caller has on the instance, used when a customer abandons the
// checkout and returns to the movie list.
func (h *BookingHandler) ReleaseAllHolds(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	instanceID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	released, err := h.Coordinator.Release(c.Request().Context(), instanceID, userID, nil)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"released": len(released),
	})
}

// FinalizeSeats handles POST /v1/instances/:id/finalize.  The payment
// service invokes it after a confirmed payment to transition seats to
// sold under the given order_ref.  Finalize does not check hold expiry: a
// successful payment wins a race against the timer.  It fails with 409
// only when a seat is already sold under a different order.  On success
// one ticket code is issued per seat and a tickets.issued event is
// published best-effort.
func (h *BookingHandler) FinalizeSeats(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	instanceID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instance id"})
	}
	var body struct {
		SeatLabels []string `json:"seat_labels"`
		OrderRef   string   `json:"order_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	res, err := h.Coordinator.Finalize(ctx, instanceID, body.SeatLabels, body.OrderRef)
	if err != nil {
		return writeBookingError(c, err)
	}
	h.publishIssued(ctx, instanceID, res)
	return c.JSON(http.StatusCreated, res)
}

// publishIssued assembles and publishes the tickets.issued event.  Any
// failure is swallowed: the seats are already sold and the publisher has
// logged the error.
func (h *BookingHandler) publishIssued(ctx context.Context, instanceID uint64, res *booking.FinalizeResult) {
	if h.Publish == nil {
		return
	}
	ev := queue.TicketsIssuedEvent{
		OrderRef:   res.OrderRef,
		InstanceID: instanceID,
		IssuedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, t := range res.Tickets {
		ev.Tickets = append(ev.Tickets, queue.SeatTicket{SeatLabel: t.SeatLabel, TicketCode: t.TicketCode})
	}
	// Enrich with showtime details when they resolve; the event is still
	// useful without them.
	if info, err := h.instanceInfo(ctx, instanceID); err == nil {
		ev.ShowtimeID = info.showtimeID
		ev.MovieTitle = info.movieTitle
		ev.TheaterName = info.theaterName
		ev.Room = info.room
		ev.ShowDate = info.showDate
		ev.StartTime = info.startTime
	}
	_ = h.Publish(ctx, ev)
}

type instanceInfo struct {
	showtimeID  uint64
	movieTitle  string
	theaterName string
	room        string
	showDate    string
	startTime   string
}

func (h *BookingHandler) instanceInfo(ctx context.Context, instanceID uint64) (*instanceInfo, error) {
	insts, err := h.ShowtimeRepo.InstanceByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	st, err := h.ShowtimeRepo.GetByID(ctx, insts.ShowtimeID)
	if err != nil {
		return nil, err
	}
	return &instanceInfo{
		showtimeID:  st.ID,
		movieTitle:  st.MovieTitle,
		theaterName: st.TheaterName,
		room:        insts.Room,
		showDate:    insts.ShowDate,
		startTime:   insts.StartTime,
	}, nil
}
