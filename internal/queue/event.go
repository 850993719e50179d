// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatTicket is one issued seat within a TicketsIssuedEvent.
type SeatTicket struct {
	SeatLabel  string `json:"seat_label"`
	TicketCode string `json:"ticket_code"`
}

// TicketsIssuedEvent is published when finalize transitions seats to sold
// after a confirmed payment.  It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type TicketsIssuedEvent struct {
	OrderRef    string       `json:"order_ref"`
	InstanceID  uint64       `json:"instance_id"`
	ShowtimeID  uint64       `json:"showtime_id"`
	MovieTitle  string       `json:"movie_title"`
	TheaterName string       `json:"theater_name"`
	Room        string       `json:"room"`
	ShowDate    string       `json:"show_date"`
	StartTime   string       `json:"start_time"`
	Tickets     []SeatTicket `json:"tickets"`
	IssuedAt    string       `json:"issued_at"`
}
