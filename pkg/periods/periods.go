// Package periods parses named calendar periods and compares aggregate
// totals between two of them.
package periods

import (
	"errors"
	"fmt"
	"time"
)

var ErrBadPeriod = errors.New("bad period identifier, expected YYYY or YYYY-MM")

// Parse turns a period identifier into an inclusive date range: "2025" is
// the full year, "2025-02" the full month. Anything else is a format error.
func Parse(identifier string) (start, end time.Time, err error) {
	switch len(identifier) {
	case 4:
		t, perr := time.Parse("2006", identifier)
		if perr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadPeriod, identifier)
		}
		return t, t.AddDate(1, 0, -1), nil
	case 7:
		t, perr := time.Parse("2006-01", identifier)
		if perr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadPeriod, identifier)
		}
		return t, t.AddDate(0, 1, -1), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadPeriod, identifier)
}

// Contains reports whether a YYYY-MM-DD date falls inside [start, end].
func Contains(start, end time.Time, date string) bool {
	return date >= start.Format("2006-01-02") && date <= end.Format("2006-01-02")
}
