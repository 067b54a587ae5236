package csr

import (
	"time"
)

// =============================================================================
// TIME POINT - Day-granularity date (activities and opportunities are dated,
// never timed)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() TimePoint {
	now := time.Now()
	return NewTimePoint(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return TimePoint{Time: t}, nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool {
	return tp.Before(other) || tp.Equal(other)
}
func (tp TimePoint) AfterOrEqual(other TimePoint) bool {
	return tp.After(other) || tp.Equal(other)
}

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) IsZero() bool { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format("2006-01-02")
}

// QuarterWindow returns the trailing historical window used for
// point-improvement rollups: [asOf-180d, asOf-90d). The quarter is
// approximated by days, not calendar quarters.
func QuarterWindow(asOf TimePoint) (from, to TimePoint) {
	return asOf.AddDays(-180), asOf.AddDays(-90)
}

// InQuarterWindow reports whether d falls inside [asOf-180d, asOf-90d).
func InQuarterWindow(d, asOf TimePoint) bool {
	from, to := QuarterWindow(asOf)
	return d.AfterOrEqual(from) && d.Before(to)
}
