package booking

import "time"

// Clock abstracts the current time so tests can drive hold expiry
// deterministically.  Production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.  All ledger timestamps are
// compared in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
