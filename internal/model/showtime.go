package model

import "time"

// Showtime represents a scheduled screening series: one movie playing at
// one theater.  Concrete screenings (date, start time, room) are stored
// as ShowtimeInstance rows referencing the showtime.  This struct
// corresponds to a row in the `showtimes` table.
//
// Fields:
//  ID          – primary key identifier.
//  MovieTitle  – title of the movie being screened.
//  TheaterName – name of the theater running the screening.
//  CreatedAt   – timestamp when the showtime was created.
//  UpdatedAt   – timestamp of last update.
type Showtime struct {
	ID          uint64    // showtimes.id
	MovieTitle  string    // showtimes.movie_title
	TheaterName string    // showtimes.theater_name
	CreatedAt   time.Time // showtimes.created_at
	UpdatedAt   time.Time // showtimes.updated_at
}

// ShowtimeInstance is one concrete screening of a showtime: a specific
// room, date and start time.  Each instance owns a seat grid generated
// once from the room layout; the grid dimensions are recorded here so
// clients can render the map without a separate layout lookup.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – showtime this instance belongs to.
//  Room       – room identifier within the theater (e.g. "R1").
//  ShowDate   – calendar date of the screening ("2006-01-02").
//  StartTime  – wall-clock start time ("15:04").
//  SeatRows   – number of seat rows in the generated grid.
//  SeatCols   – number of seat columns in the generated grid.
//  CreatedAt  – creation timestamp.
type ShowtimeInstance struct {
	ID         uint64    // showtime_instances.id
	ShowtimeID uint64    // showtime_instances.showtime_id
	Room       string    // showtime_instances.room
	ShowDate   string    // showtime_instances.show_date
	StartTime  string    // showtime_instances.start_time
	SeatRows   uint32    // showtime_instances.seat_rows
	SeatCols   uint32    // showtime_instances.seat_cols
	CreatedAt  time.Time // showtime_instances.created_at
}
