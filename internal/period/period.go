// Package period handles the YYYY-MM calendar months that reports and
// amortization schedules are keyed by.
package period

import (
	"fmt"
	"time"
)

type Month struct {
	Year  int
	Month time.Month
}

// Parse accepts the wire form "YYYY-MM".
func Parse(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid periodYm %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// FromDate accepts "YYYY-MM-DD" and truncates to its month.
func FromDate(s string) (Month, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// FromTimestamp truncates an RFC3339 timestamp to its month.
func FromTimestamp(ts string) (Month, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Month{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func Now() Month {
	now := time.Now().UTC()
	return Month{Year: now.Year(), Month: now.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Since returns the number of whole months from start to m; negative
// when m precedes start.
func (m Month) Since(start Month) int {
	return m.index() - start.index()
}

func (m Month) Before(x Month) bool { return m.index() < x.index() }
func (m Month) After(x Month) bool  { return m.index() > x.index() }
