package availability

import (
	"sort"
	"time"
)

// busyInterval is one merged span of occupied time. Overlapping reservations
// are a data anomaly; they are merged rather than dropped, and every
// contributing reservation id is retained.
type busyInterval struct {
	Start          time.Time
	End            time.Time
	ReservationIDs []string
}

// ActiveOverlapping filters a reservation snapshot down to the entries that
// occupy the calendar and intersect the half-open window, ordered by start
// time with ties broken by id. When excludeID is non-empty that reservation
// is skipped, so edit-availability checks do not conflict with themselves.
func ActiveOverlapping(reservations []Reservation, windowStart, windowEnd time.Time, excludeID string) []Reservation {
	var active []Reservation
	for _, reservation := range reservations {
		if excludeID != "" && reservation.ID == excludeID {
			continue
		}
		if !reservation.Status.OccupiesCalendar() {
			continue
		}
		if !intervalsOverlap(reservation.Start, reservation.End, windowStart, windowEnd) {
			continue
		}
		active = append(active, reservation)
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Start.Equal(active[j].Start) {
			return active[i].ID < active[j].ID
		}
		return active[i].Start.Before(active[j].Start)
	})

	return active
}

// mergeBusySet builds the ordered, non-overlapping busy set from active
// reservations, clipped to the window. Adjacent reservations coalesce into
// one contiguous span; half-open semantics mean they still never conflict
// with each other.
func mergeBusySet(reservations []Reservation, windowStart, windowEnd time.Time) []busyInterval {
	var busy []busyInterval
	for _, reservation := range ActiveOverlapping(reservations, windowStart, windowEnd, "") {
		start := laterOf(reservation.Start, windowStart)
		end := earlierOf(reservation.End, windowEnd)
		if !start.Before(end) {
			continue
		}

		if n := len(busy); n > 0 && !start.After(busy[n-1].End) {
			last := &busy[n-1]
			if end.After(last.End) {
				last.End = end
			}
			last.ReservationIDs = append(last.ReservationIDs, reservation.ID)
			continue
		}

		busy = append(busy, busyInterval{
			Start:          start,
			End:            end,
			ReservationIDs: []string{reservation.ID},
		})
	}
	return busy
}

// intervalsOverlap reports whether the half-open intervals [s1,e1) and
// [s2,e2) intersect. An interval ending exactly when another starts does not
// overlap it.
func intervalsOverlap(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
