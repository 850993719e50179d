package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/showtime-booking/internal/model"
	"github.com/cinetix/showtime-booking/internal/repository"
)

// AdminHandler serves the provisioning endpoints restricted to the ADMIN
// role: creating showtimes and generating their seat grids.  Grid
// generation is the only writer of show_seats rows outside the
// reservation coordinator.
type AdminHandler struct {
	ShowtimeRepo *repository.ShowtimeRepo
	LedgerRepo   *repository.SeatLedgerRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(showtimeRepo *repository.ShowtimeRepo, ledgerRepo *repository.SeatLedgerRepo) *AdminHandler {
	if showtimeRepo == nil || ledgerRepo == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{ShowtimeRepo: showtimeRepo, LedgerRepo: ledgerRepo}
}

// CreateShowtime handles POST /v1/showtimes.  It registers a screening
// series from a movie title and theater name.
func (h *AdminHandler) CreateShowtime(c echo.Context) error {
	var body struct {
		MovieTitle  string `json:"movie_title"`
		TheaterName string `json:"theater_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MovieTitle == "" || body.TheaterName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_title and theater_name are required"})
	}
	s := &model.Showtime{MovieTitle: body.MovieTitle, TheaterName: body.TheaterName}
	if err := h.ShowtimeRepo.Create(c.Request().Context(), s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":           s.ID,
		"movie_title":  s.MovieTitle,
		"theater_name": s.TheaterName,
	})
}

// instanceLayout is the request body for CreateInstance.  Row labels in
// vip_rows, couple_rows and fourdx_rows select entire rows of that type;
// rows named in none of them default to NORMAL.  maintenance_seats lists
// individual labels blocked from sale.
type instanceLayout struct {
	Room             string   `json:"room"`
	ShowDate         string   `json:"show_date"`
	StartTime        string   `json:"start_time"`
	SeatRows         uint32   `json:"seat_rows"`
	SeatCols         uint32   `json:"seat_cols"`
	VIPRows          []string `json:"vip_rows"`
	CoupleRows       []string `json:"couple_rows"`
	FourDXRows       []string `json:"fourdx_rows"`
	MaintenanceSeats []string `json:"maintenance_seats"`
}

// CreateInstance handles POST /v1/showtimes/:id/instances.  It schedules
// a concrete screening and generates its full seat grid in the same
// transaction, so a scheduled instance always has a complete seat map.
// Couple rows require an even column count because couple seats pair by
// column parity.  Duplicate (room, date, start_time) slots answer 409.
func (h *AdminHandler) CreateInstance(c echo.Context) error {
	showtimeID, ok := parseInstanceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body instanceLayout
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := validateLayout(&body); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	if _, err := h.ShowtimeRepo.GetByID(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	inst := &model.ShowtimeInstance{
		ShowtimeID: showtimeID,
		Room:       body.Room,
		ShowDate:   body.ShowDate,
		StartTime:  body.StartTime,
		SeatRows:   body.SeatRows,
		SeatCols:   body.SeatCols,
	}

	tx, err := h.ShowtimeRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.ShowtimeRepo.CreateInstanceTx(ctx, tx, inst); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "instance already scheduled for this room, date and start time"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats := generateSeatGrid(inst.ID, &body)
	if err := h.LedgerRepo.CreateBulkTx(ctx, tx, seats); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         inst.ID,
		"room":       inst.Room,
		"show_date":  inst.ShowDate,
		"start_time": inst.StartTime,
		"seat_rows":  inst.SeatRows,
		"seat_cols":  inst.SeatCols,
		"seats":      len(seats),
	})
}

// validateLayout checks the layout request and returns a client-facing
// message for the first problem found, or "" when the layout is valid.
func validateLayout(l *instanceLayout) string {
	if l.Room == "" {
		return "room is required"
	}
	if _, err := time.Parse("2006-01-02", l.ShowDate); err != nil {
		return "show_date must be formatted as 2006-01-02"
	}
	if _, err := time.Parse("15:04", l.StartTime); err != nil {
		return "start_time must be formatted as 15:04"
	}
	if l.SeatRows == 0 || l.SeatCols == 0 {
		return "seat_rows and seat_cols must be positive"
	}
	if l.SeatRows > 40 || l.SeatCols > 60 {
		return "seat grid exceeds the supported size"
	}
	for _, rows := range [][]string{l.VIPRows, l.CoupleRows, l.FourDXRows} {
		for _, r := range rows {
			idx, ok := model.RowIndex(r)
			if !ok || idx >= int(l.SeatRows) {
				return "row label " + r + " is outside the seat grid"
			}
		}
	}
	if len(l.CoupleRows) > 0 && l.SeatCols%2 != 0 {
		return "couple rows require an even seat_cols"
	}
	for _, s := range l.MaintenanceSeats {
		row, col, ok := model.ParseSeatLabel(s)
		if !ok {
			return "invalid maintenance seat label " + s
		}
		idx, _ := model.RowIndex(row)
		if idx >= int(l.SeatRows) || col >= l.SeatCols {
			return "maintenance seat " + s + " is outside the seat grid"
		}
	}
	return ""
}

// generateSeatGrid materializes show_seats rows for every position in the
// layout.  Seat type is decided per row, maintenance per individual
// label; everything else starts AVAILABLE.
func generateSeatGrid(instanceID uint64, l *instanceLayout) []model.ShowSeat {
	typeByRow := make(map[string]string, len(l.VIPRows)+len(l.CoupleRows)+len(l.FourDXRows))
	for _, r := range l.VIPRows {
		typeByRow[normalizeRow(r)] = model.SeatTypeVIP
	}
	for _, r := range l.CoupleRows {
		typeByRow[normalizeRow(r)] = model.SeatTypeCouple
	}
	for _, r := range l.FourDXRows {
		typeByRow[normalizeRow(r)] = model.SeatTypeFourDX
	}
	maintenance := make(map[string]bool, len(l.MaintenanceSeats))
	for _, s := range l.MaintenanceSeats {
		if row, col, ok := model.ParseSeatLabel(s); ok {
			maintenance[row+strconv.FormatUint(uint64(col), 10)] = true
		}
	}

	seats := make([]model.ShowSeat, 0, int(l.SeatRows)*int(l.SeatCols))
	for r := 0; r < int(l.SeatRows); r++ {
		rowLabel := model.RowLabel(r)
		seatType, ok := typeByRow[rowLabel]
		if !ok {
			seatType = model.SeatTypeNormal
		}
		for col := uint32(0); col < l.SeatCols; col++ {
			label := model.SeatLabelFor(r, col)
			status := model.SeatStatusAvailable
			if maintenance[label] {
				status = model.SeatStatusMaintenance
			}
			seats = append(seats, model.ShowSeat{
				InstanceID: instanceID,
				SeatLabel:  label,
				RowLabel:   rowLabel,
				ColNumber:  col,
				SeatType:   seatType,
				Status:     status,
			})
		}
	}
	return seats
}

func normalizeRow(r string) string {
	idx, ok := model.RowIndex(r)
	if !ok {
		return ""
	}
	return model.RowLabel(idx)
}
