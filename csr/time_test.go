package csr_test

import (
	"testing"
	"time"

	"github.com/greenflow/impact-engine/csr"
)

func TestQuarterWindow_Boundaries(t *testing.T) {
	// GIVEN: A fixed as-of date
	// WHEN: Checking window membership
	// THEN: [asOf-180d, asOf-90d), inclusive start, exclusive end

	asOf := csr.NewTimePoint(2026, time.June, 30)
	from, to := csr.QuarterWindow(asOf)

	if !from.Equal(asOf.AddDays(-180)) || !to.Equal(asOf.AddDays(-90)) {
		t.Fatalf("unexpected window: %s .. %s", from, to)
	}

	if !csr.InQuarterWindow(from, asOf) {
		t.Error("window start should be included")
	}
	if csr.InQuarterWindow(to, asOf) {
		t.Error("window end should be excluded")
	}
	if !csr.InQuarterWindow(to.AddDays(-1), asOf) {
		t.Error("day before window end should be included")
	}
	if csr.InQuarterWindow(asOf, asOf) {
		t.Error("as-of date is outside the trailing window")
	}
	if csr.InQuarterWindow(from.AddDays(-1), asOf) {
		t.Error("day before window start should be excluded")
	}
}

func TestTimePoint_DayGranularity(t *testing.T) {
	// Two instants on the same day compare equal.
	morning := csr.TimePoint{Time: time.Date(2026, time.March, 5, 8, 0, 0, 0, time.UTC)}
	evening := csr.TimePoint{Time: time.Date(2026, time.March, 5, 22, 30, 0, 0, time.UTC)}

	if !morning.Equal(evening) {
		t.Error("same-day instants should be equal")
	}
	if morning.Before(evening) || morning.After(evening) {
		t.Error("same-day instants should not order")
	}
}

func TestParseDate(t *testing.T) {
	tp, err := csr.ParseDate("2026-02-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.String() != "2026-02-14" {
		t.Errorf("round trip failed: %s", tp)
	}

	if _, err := csr.ParseDate("14/02/2026"); err == nil {
		t.Error("expected error for wrong format")
	}
}
