package model

import (
	"strconv"
	"strings"
)

// RowLabel converts a zero-based row index to an alphabetical label like
// A, B, ..., Z, AA, AB.  Negative indices yield an empty string.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// RowIndex converts a row label like "A" or "AA" into its zero-based
// index.  The second return value is false for labels containing
// anything other than ASCII letters.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// SeatLabelFor builds the canonical seat label for a zero-based row index
// and column number, e.g. (3, 4) -> "D4".
func SeatLabelFor(rowIdx int, col uint32) string {
	return RowLabel(rowIdx) + strconv.FormatUint(uint64(col), 10)
}

// ParseSeatLabel splits a seat label into its row label and column
// number.  Labels are case-insensitive ("d4" parses as row "D", column
// 4); columns are zero-based.  The boolean is false when the label has no
// letter prefix or no digit suffix.
func ParseSeatLabel(label string) (row string, col uint32, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return "", 0, false
	}
	n, err := strconv.ParseUint(s[i:], 10, 32)
	if err != nil {
		return "", 0, false
	}
	return s[:i], uint32(n), true
}

// PartnerLabel returns the fixed partner of a couple seat.  Pairing is by
// column parity within the row: an even column pairs with the next
// column, an odd column with the previous one ((0,1), (2,3), ...), so F6
// always partners F7.  The boolean is false when the label does not
// parse.
func PartnerLabel(label string) (string, bool) {
	row, col, ok := ParseSeatLabel(label)
	if !ok {
		return "", false
	}
	if col%2 == 0 {
		col++
	} else {
		col--
	}
	return row + strconv.FormatUint(uint64(col), 10), true
}
