package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

func TestResolveOpenDay(t *testing.T) {
	resolver := NewHoursResolver(timeutil.NewConverter(time.UTC))

	open, ok, err := resolver.Resolve(testLocation(), testDay, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected the location to be open")
	}
	if !open.Start.Equal(at(9, 0)) || !open.End.Equal(at(17, 0)) {
		t.Fatalf("open interval spans %v..%v", open.Start, open.End)
	}
}

func TestResolveClosedWeekday(t *testing.T) {
	resolver := NewHoursResolver(timeutil.NewConverter(time.UTC))

	location := Location{
		ID: "loc-1",
		WeeklyHours: map[time.Weekday]DayHours{
			time.Tuesday: {Start: timeutil.Clock(900), End: timeutil.Clock(1700)},
		},
	}

	// testDay is a Monday with no entry; closed, not missing configuration.
	_, ok, err := resolver.Resolve(location, testDay, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected the location to be closed on Monday")
	}
}

func TestResolveNoHoursConfigured(t *testing.T) {
	resolver := NewHoursResolver(timeutil.NewConverter(time.UTC))

	_, _, err := resolver.Resolve(Location{ID: "loc-1"}, testDay, nil)
	if !errors.Is(err, ErrNoHoursConfigured) {
		t.Fatalf("expected ErrNoHoursConfigured, got %v", err)
	}
}

func TestResolveWeekdayInDisplayZone(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	resolver := NewHoursResolver(timeutil.NewConverter(time.UTC))

	// 01:00 UTC Monday is Sunday evening in New York; only Sunday has hours.
	location := Location{
		ID: "loc-1",
		WeeklyHours: map[time.Weekday]DayHours{
			time.Sunday: {Start: timeutil.Clock(1200), End: timeutil.Clock(1600)},
		},
	}
	instant := time.Date(2024, time.June, 10, 1, 0, 0, 0, time.UTC)

	if _, ok, err := resolver.Resolve(location, instant, nil); err != nil || ok {
		t.Fatalf("storage-zone lookup should be closed on Monday, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := resolver.Resolve(location, instant, eastern); err != nil || !ok {
		t.Fatalf("display-zone lookup should find Sunday hours, got ok=%v err=%v", ok, err)
	}
}

func TestResolveRejectsInvalidHours(t *testing.T) {
	resolver := NewHoursResolver(timeutil.NewConverter(time.UTC))

	location := Location{
		ID: "loc-1",
		WeeklyHours: map[time.Weekday]DayHours{
			time.Monday: {Start: timeutil.Clock(1700), End: timeutil.Clock(900)},
		},
	}

	// An inverted interval is treated as closed rather than producing a
	// negative-length open window.
	_, ok, err := resolver.Resolve(location, testDay, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("inverted hours should resolve as closed")
	}
}
