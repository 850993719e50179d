package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cinetix/showtime-booking/internal/booking"
	"github.com/cinetix/showtime-booking/internal/model"
)

// SeatLedgerRepo provides data access to the show_seats table and
// implements booking.Store.  Every status transition is a single
// conditional UPDATE whose affected-row count decides success, so two
// requests racing for the same seat are serialized by the database and
// exactly one wins.  All timestamp comparisons are performed in UTC.
type SeatLedgerRepo struct {
	db *sql.DB
}

// NewSeatLedgerRepo returns a new SeatLedgerRepo bound to the provided
// database.
func NewSeatLedgerRepo(db *sql.DB) *SeatLedgerRepo {
	return &SeatLedgerRepo{db: db}
}

// DB exposes the underlying sql.DB for callers that need to span a
// transaction across repositories.
func (r *SeatLedgerRepo) DB() *sql.DB {
	return r.db
}

const seatColumns = `id, instance_id, seat_label, row_label, col_number, seat_type, status,
	held_by, held_at, hold_expires_at, order_ref`

// InstanceByID resolves a showtime instance by primary key.  A missing
// row yields booking.ErrInstanceNotFound.
func (r *SeatLedgerRepo) InstanceByID(ctx context.Context, id uint64) (*model.ShowtimeInstance, error) {
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

// SeatsForInstance returns the instance's full seat map ordered by row
// and column.  Rows are ordered by label length first so "AA" sorts
// after "Z".
func (r *SeatLedgerRepo) SeatsForInstance(ctx context.Context, instanceID uint64) ([]model.ShowSeat, error) {
	q := `SELECT ` + seatColumns + ` FROM show_seats WHERE instance_id = ?
	      ORDER BY LENGTH(row_label), row_label, col_number`
	rows, err := r.db.QueryContext(ctx, q, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// InTx runs fn within a transaction, exposing the transactional seat
// mutation surface.  When fn returns an error the transaction is rolled
// back in full, so a multi-seat batch never commits partially.
func (r *SeatLedgerRepo) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&seatTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReleaseExpired physically resets every expired hold back to AVAILABLE
// and reports how many rows changed.  Lazy expiry at read/hold time does
// not depend on this running; it only bounds storage staleness.
func (r *SeatLedgerRepo) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE show_seats
	           SET status = 'AVAILABLE', held_by = NULL, held_at = NULL, hold_expires_at = NULL
	           WHERE status = 'HELD' AND hold_expires_at <= ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateBulkTx inserts the generated seat grid for an instance in one
// statement within the provided transaction.  Passing an empty slice has
// no effect and returns nil.  The caller must commit or roll back.
func (r *SeatLedgerRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.ShowSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO show_seats (instance_id, seat_label, row_label, col_number, seat_type, status) VALUES `
	args := make([]interface{}, 0, len(seats)*6)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, s.InstanceID, s.SeatLabel, s.RowLabel, s.ColNumber, s.SeatType, s.Status)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// seatTx implements booking.Tx over one *sql.Tx.
type seatTx struct {
	tx *sql.Tx
}

// SeatsByLabels loads the named seats for an instance.  Labels with no
// matching row are simply absent from the result.
func (t *seatTx) SeatsByLabels(ctx context.Context, instanceID uint64, labels []string) ([]model.ShowSeat, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	q := `SELECT ` + seatColumns + ` FROM show_seats
	      WHERE instance_id = ? AND seat_label IN (` + placeholders(len(labels)) + `)`
	args := make([]interface{}, 0, len(labels)+1)
	args = append(args, instanceID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// MarkHeld grants a hold when the seat is AVAILABLE, expired-HELD, or
// already HELD by the same user (the deadline resets).  SOLD and
// MAINTENANCE rows never match the condition, so they refuse without a
// prior read.
func (t *seatTx) MarkHeld(ctx context.Context, instanceID uint64, label string, userID uint64, now, expiresAt time.Time) (bool, error) {
	const q = `UPDATE show_seats
	           SET status = 'HELD', held_by = ?, held_at = ?, hold_expires_at = ?
	           WHERE instance_id = ? AND seat_label = ?
	             AND (status = 'AVAILABLE'
	                  OR (status = 'HELD' AND (held_by = ? OR hold_expires_at <= ?)))`
	res, err := t.tx.ExecContext(ctx, q, userID, now.UTC(), expiresAt.UTC(), instanceID, label, userID, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// MySQL reports zero affected rows when the update writes values
	// identical to the current ones, which happens when the same user
	// re-holds within the timestamp resolution. Confirm ownership before
	// reporting a refusal.
	return t.heldBy(ctx, instanceID, label, userID)
}

// MarkReleased frees a seat only when it is currently held by userID.
// Anything else is a no-op reported as false.
func (t *seatTx) MarkReleased(ctx context.Context, instanceID uint64, label string, userID uint64) (bool, error) {
	const q = `UPDATE show_seats
	           SET status = 'AVAILABLE', held_by = NULL, held_at = NULL, hold_expires_at = NULL
	           WHERE instance_id = ? AND seat_label = ? AND status = 'HELD' AND held_by = ?`
	res, err := t.tx.ExecContext(ctx, q, instanceID, label, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkSold transitions a seat to SOLD under orderRef independent of the
// holder; it refuses only when the seat is already SOLD under a
// different order.  Re-finalizing the same order is idempotent.
func (t *seatTx) MarkSold(ctx context.Context, instanceID uint64, label string, orderRef string, now time.Time) (bool, error) {
	const q = `UPDATE show_seats
	           SET status = 'SOLD', order_ref = ?, held_by = NULL, held_at = NULL, hold_expires_at = NULL
	           WHERE instance_id = ? AND seat_label = ?
	             AND status <> 'MAINTENANCE'
	             AND (status <> 'SOLD' OR order_ref = ?)`
	res, err := t.tx.ExecContext(ctx, q, orderRef, instanceID, label, orderRef)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// Zero affected rows is ambiguous between "refused" and "already
	// sold under this very order"; disambiguate with a read.
	const sel = `SELECT COUNT(*) FROM show_seats
	             WHERE instance_id = ? AND seat_label = ? AND status = 'SOLD' AND order_ref = ?`
	var cnt int
	if err := t.tx.QueryRowContext(ctx, sel, instanceID, label, orderRef).Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// HeldLabelsByUser lists the labels of every seat recorded as held by
// userID on the instance, expired holds included.
func (t *seatTx) HeldLabelsByUser(ctx context.Context, instanceID, userID uint64) ([]string, error) {
	const q = `SELECT seat_label FROM show_seats
	           WHERE instance_id = ? AND status = 'HELD' AND held_by = ?
	           ORDER BY LENGTH(row_label), row_label, col_number`
	rows, err := t.tx.QueryContext(ctx, q, instanceID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (t *seatTx) heldBy(ctx context.Context, instanceID uint64, label string, userID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM show_seats
	           WHERE instance_id = ? AND seat_label = ? AND status = 'HELD' AND held_by = ?`
	var cnt int
	if err := t.tx.QueryRowContext(ctx, q, instanceID, label, userID).Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// scanSeats reads ShowSeat rows, mapping nullable hold columns onto
// pointer fields.
func scanSeats(rows *sql.Rows) ([]model.ShowSeat, error) {
	var out []model.ShowSeat
	for rows.Next() {
		var (
			s         model.ShowSeat
			heldBy    sql.NullInt64
			heldAt    sql.NullTime
			expiresAt sql.NullTime
			orderRef  sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.InstanceID, &s.SeatLabel, &s.RowLabel, &s.ColNumber,
			&s.SeatType, &s.Status, &heldBy, &heldAt, &expiresAt, &orderRef); err != nil {
			return nil, err
		}
		if heldBy.Valid {
			v := uint64(heldBy.Int64)
			s.HeldBy = &v
		}
		if heldAt.Valid {
			v := heldAt.Time
			s.HeldAt = &v
		}
		if expiresAt.Valid {
			v := expiresAt.Time
			s.HoldExpiresAt = &v
		}
		if orderRef.Valid {
			v := orderRef.String
			s.OrderRef = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// placeholders builds a "?, ?, ?" list of length n for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
