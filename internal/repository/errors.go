// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrShowtimeNotFound indicates that a showtime lookup
// matched nothing, while ErrConflict signals that an operation
// cannot proceed due to existing dependent records (e.g. creating
// a showtime instance for a slot that is already scheduled).
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrShowtimeNotFound is returned when a showtime lookup matches no
// row. Handlers should translate this into an HTTP 404 response.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as creating a
// showtime instance for a room/date/time slot that already
// exists. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate-key error
// (error number 1062), which unique constraints surface on insert.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
