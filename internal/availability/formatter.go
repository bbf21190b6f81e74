package availability

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// rowClockFormat mirrors the compact month/day - 24h clock rendering of the
// original diagnostic table.
const rowClockFormat = "01/02 - 15:04"

// Row is one display-ready line of a computed schedule. All fields are plain
// data so any view layer can consume them.
type Row struct {
	Start           string
	End             string
	Label           string
	DurationMinutes int
	Duration        string
	// Eligible is set on open slots long enough to host the requested
	// duration.
	Eligible       bool
	ReservationIDs []string
}

// ScheduleRows renders a result's partition as display rows in the given
// timezone. The returned sequence is lazy, finite, and restartable: it reads
// only the immutable result snapshot, so it is safe to range over more than
// once.
func ScheduleRows(result Result, zone *time.Location) iter.Seq[Row] {
	return rows(result.Schedule, result.RequestedDurationMins, zone)
}

// OpenHoursRows is ScheduleRows restricted to the partition inside operating
// hours, the "working schedule" view that hides closed time.
func OpenHoursRows(result Result, zone *time.Location) iter.Seq[Row] {
	return rows(result.ScheduleByOpenHours, result.RequestedDurationMins, zone)
}

func rows(segments []ScheduleSegment, requestedMinutes int, zone *time.Location) iter.Seq[Row] {
	if zone == nil {
		zone = time.UTC
	}
	return func(yield func(Row) bool) {
		for _, segment := range segments {
			row := Row{
				Start:           segment.Start.In(zone).Format(rowClockFormat),
				End:             segment.End.In(zone).Format(rowClockFormat),
				Label:           segmentLabel(segment.Kind),
				DurationMinutes: segment.DurationMinutes,
				Duration:        FormatDuration(segment.DurationMinutes),
				Eligible:        segment.Kind == SegmentOpenFree && segment.DurationMinutes >= requestedMinutes,
				ReservationIDs:  segment.ReservationIDs,
			}
			if !yield(row) {
				return
			}
		}
	}
}

func segmentLabel(kind SegmentKind) string {
	switch kind {
	case SegmentOpenFree:
		return "Open slot"
	case SegmentReservationBusy:
		return "Reservation"
	case SegmentClosed:
		return "Closed"
	default:
		return string(kind)
	}
}

// FormatDuration renders minutes with a human unit breakdown, e.g.
// "60 min (1 hour)" or "1500 min (1 day, 1 hour)". Partial units below an
// hour stay in the minute count only.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}

	var units []string
	if days := minutes / (24 * 60); days > 0 {
		units = append(units, pluralize(days, "day"))
	}
	if hours := minutes % (24 * 60) / 60; hours > 0 {
		units = append(units, pluralize(hours, "hour"))
	}

	if len(units) == 0 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d min (%s)", minutes, strings.Join(units, ", "))
}

func pluralize(count int, unit string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", count, unit)
}
