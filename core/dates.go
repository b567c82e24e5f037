package core

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the calendar-date layout used for due dates everywhere in the engine.
const DateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

// Today returns the current calendar date at UTC midnight.
func Today() time.Time {
	return DateOf(NowFunc())
}

// DateOf drops the time of day of t, keeping its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD (or RFC 3339) due date into a calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, errors.Wrapf(ErrInvalidDate, "parsing %q", s)
}

// IsValidDate reports whether s parses as a due date.
func IsValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns ceil(to - from) in days, computed on calendar dates.
func DaysBetween(from, to time.Time) int {
	return int(math.Ceil(DateOf(to).Sub(DateOf(from)).Hours() / 24))
}
