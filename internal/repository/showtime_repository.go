// Package repository contains data access logic for showtime domain
// operations. This file defines repository methods for showtimes and
// their concrete instances. A Showtime represents a screening series
// (movie + theater); a ShowtimeInstance pins it to a room, date and
// start time and owns the generated seat grid.
package repository

import (
	"context"
	"database/sql"

	"github.com/cinetix/showtime-booking/internal/booking"
	"github.com/cinetix/showtime-booking/internal/model"
)

// ShowtimeRepo manages persistence for showtimes and showtime instances.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories, such as creating an
// instance together with its seat grid.
func (r *ShowtimeRepo) DB() *sql.DB {
	return r.db
}

// Create inserts a new showtime and assigns the generated ID back to the
// struct.  Timestamps default in the DB and are read back after insert.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_title, theater_name) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.MovieTitle, s.TheaterName)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT id, movie_title, theater_name, created_at, updated_at FROM showtimes WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.ID, &s.MovieTitle, &s.TheaterName, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a showtime by its ID.  It returns
// ErrShowtimeNotFound if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_title, theater_name, created_at, updated_at FROM showtimes WHERE id = ?`
	var s model.Showtime
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieTitle, &s.TheaterName, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListAll returns every showtime ordered by creation.  Used by the
// public browse endpoint.
func (r *ShowtimeRepo) ListAll(ctx context.Context) ([]model.Showtime, error) {
	const q = `SELECT id, movie_title, theater_name, created_at, updated_at FROM showtimes ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Showtime
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(&s.ID, &s.MovieTitle, &s.TheaterName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateInstanceTx inserts a showtime instance using the provided
// transaction so seat-grid generation can join the same transaction.
// The caller must commit or roll back.  The unique key on
// (showtime_id, room, show_date, start_time) maps duplicate slots to
// ErrConflict.
func (r *ShowtimeRepo) CreateInstanceTx(ctx context.Context, tx *sql.Tx, inst *model.ShowtimeInstance) error {
	const q = `INSERT INTO showtime_instances (showtime_id, room, show_date, start_time, seat_rows, seat_cols)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, inst.ShowtimeID, inst.Room, inst.ShowDate, inst.StartTime, inst.SeatRows, inst.SeatCols)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inst.ID = uint64(id)
	return nil
}

// InstanceByID fetches a single showtime instance.  A missing row yields
// booking.ErrInstanceNotFound.
func (r *ShowtimeRepo) InstanceByID(ctx context.Context, id uint64) (*model.ShowtimeInstance, error) {
	const q = `SELECT id, showtime_id, room, show_date, start_time, seat_rows, seat_cols, created_at
	           FROM showtime_instances WHERE id = ?`
	var inst model.ShowtimeInstance
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&inst.ID, &inst.ShowtimeID, &inst.Room, &inst.ShowDate, &inst.StartTime,
		&inst.SeatRows, &inst.SeatCols, &inst.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, booking.ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// ResolveInstance looks up the instance of a showtime scheduled in the
// given room at the given date and start time.  This is the lookup a
// client performs before fetching the seat map.  A missing instance
// yields booking.ErrInstanceNotFound, never an empty result.
func (r *ShowtimeRepo) ResolveInstance(ctx context.Context, showtimeID uint64, room, showDate, startTime string) (*model.ShowtimeInstance, error) {
	const q = `SELECT id, showtime_id, room, show_date, start_time, seat_rows, seat_cols, created_at
	           FROM showtime_instances
	           WHERE showtime_id = ? AND room = ? AND show_date = ? AND start_time = ?`
	var inst model.ShowtimeInstance
	err := r.db.QueryRowContext(ctx, q, showtimeID, room, showDate, startTime).Scan(
		&inst.ID, &inst.ShowtimeID, &inst.Room, &inst.ShowDate, &inst.StartTime,
		&inst.SeatRows, &inst.SeatCols, &inst.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, booking.ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListInstances returns every instance of a showtime ordered by date and
// start time.
func (r *ShowtimeRepo) ListInstances(ctx context.Context, showtimeID uint64) ([]model.ShowtimeInstance, error) {
	const q = `SELECT id, showtime_id, room, show_date, start_time, seat_rows, seat_cols, created_at
	           FROM showtime_instances WHERE showtime_id = ? ORDER BY show_date, start_time, room`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ShowtimeInstance
	for rows.Next() {
		var inst model.ShowtimeInstance
		if err := rows.Scan(&inst.ID, &inst.ShowtimeID, &inst.Room, &inst.ShowDate, &inst.StartTime,
			&inst.SeatRows, &inst.SeatCols, &inst.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
