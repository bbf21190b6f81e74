// Package availability computes the free/busy structure of a room's calendar
// by reconciling a location's weekly operating hours, existing reservations,
// and timezone conversions. The engine is a pure function of its snapshot
// inputs: no shared state, no clock reads, safe to evaluate in parallel for
// different rooms.
package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

// DefaultOpenHours is the institution-wide fallback window applied when a
// location has no operating hours configured at all.
var DefaultOpenHours = DayHours{Start: timeutil.Clock(900), End: timeutil.Clock(2100)}

// Engine composes hours resolution and busy-set merging into the schedule
// partition used to gate reservations and render diagnostics.
type Engine struct {
	conv         *timeutil.Converter
	hours        *HoursResolver
	defaultHours DayHours
}

// NewEngine constructs an engine bound to the given converter. When
// defaultHours is not a valid interval, DefaultOpenHours is used for the
// missing-configuration fallback.
func NewEngine(conv *timeutil.Converter, defaultHours DayHours) *Engine {
	if conv == nil {
		conv = timeutil.NewConverter(nil)
	}
	if !defaultHours.Valid() {
		defaultHours = DefaultOpenHours
	}
	return &Engine{
		conv:         conv,
		hours:        NewHoursResolver(conv),
		defaultHours: defaultHours,
	}
}

// Compute partitions the request window into an ordered, gap-free sequence of
// busy, free, and closed segments and evaluates the conflict verdicts for the
// requested interval. Inputs are treated as immutable snapshots; the result
// is deterministic for identical inputs.
func (e *Engine) Compute(room Room, location Location, req Request, reservations []Reservation) (Result, error) {
	if err := validateRequest(room, req); err != nil {
		return Result{}, err
	}

	open, isOpen, fellBack, err := e.resolveOpenInterval(location, req)
	if err != nil {
		return Result{}, err
	}

	busy := mergeBusySet(reservations, req.WindowStart, req.WindowEnd)

	reqStart, reqEnd := req.requestedInterval()

	result := Result{
		RequestedDurationMins:  req.DurationMinutes,
		HasReservationConflict: overlapsBusy(busy, reqStart, reqEnd),
		HoursFellBack:          fellBack,
	}

	if isOpen {
		interval := open
		result.OpenInterval = &interval
	}

	openStart, openEnd := clipOpen(open, isOpen, req)
	closedDay := !openStart.Before(openEnd)

	if closedDay {
		result.HasOpenHoursConflict = true
		result.Schedule = []ScheduleSegment{
			newSegment(req.WindowStart, req.WindowEnd, SegmentClosed, nil),
		}
		return result, nil
	}

	result.HasOpenHoursConflict = reqStart.Before(openStart) || reqEnd.After(openEnd)
	result.Schedule = buildPartition(req.WindowStart, req.WindowEnd, openStart, openEnd, busy)
	result.ScheduleByOpenHours = filterOpenHours(result.Schedule)

	return result, nil
}

func validateRequest(room Room, req Request) error {
	if room.ID == "" {
		return fmt.Errorf("%w: room does not exist", ErrInvalidRequest)
	}
	if req.RoomID != "" && req.RoomID != room.ID {
		return fmt.Errorf("%w: request room %q does not match room %q", ErrInvalidRequest, req.RoomID, room.ID)
	}
	if req.WindowStart.IsZero() || req.WindowEnd.IsZero() || !req.WindowStart.Before(req.WindowEnd) {
		return fmt.Errorf("%w: window start must precede window end", ErrInvalidRequest)
	}
	if req.DurationMinutes <= 0 {
		return fmt.Errorf("%w: requested duration must be positive", ErrInvalidRequest)
	}

	reqStart, reqEnd := req.requestedInterval()
	if !reqStart.Before(reqEnd) {
		return fmt.Errorf("%w: requested start must precede requested end", ErrInvalidRequest)
	}
	return nil
}

// resolveOpenInterval resolves the window-start day's hours, applying the
// institution default when the location has none configured anywhere.
func (e *Engine) resolveOpenInterval(location Location, req Request) (OpenInterval, bool, bool, error) {
	open, isOpen, err := e.hours.Resolve(location, req.WindowStart, req.DisplayZone)
	if err == nil {
		return open, isOpen, false, nil
	}
	if !errors.Is(err, ErrNoHoursConfigured) {
		return OpenInterval{}, false, false, err
	}

	zone := e.conv.StorageZone()
	fallback := OpenInterval{
		Start: e.conv.CombineDateClock(req.WindowStart, e.defaultHours.Start, zone),
		End:   e.conv.CombineDateClock(req.WindowStart, e.defaultHours.End, zone),
	}
	return fallback, true, true, nil
}

// clipOpen intersects the open interval with the request window. A closed day
// collapses to an empty range.
func clipOpen(open OpenInterval, isOpen bool, req Request) (time.Time, time.Time) {
	if !isOpen {
		return req.WindowStart, req.WindowStart
	}
	return laterOf(open.Start, req.WindowStart), earlierOf(open.End, req.WindowEnd)
}

// buildPartition emits the closed lead-in, the alternating busy/free spans
// inside the open range, and the closed tail. The concatenation covers the
// window exactly, with no gaps and no overlaps.
func buildPartition(windowStart, windowEnd, openStart, openEnd time.Time, busy []busyInterval) []ScheduleSegment {
	var segments []ScheduleSegment

	if openStart.After(windowStart) {
		segments = append(segments, newSegment(windowStart, openStart, SegmentClosed, nil))
	}

	cursor := openStart
	for _, span := range busy {
		start := laterOf(span.Start, openStart)
		end := earlierOf(span.End, openEnd)
		if !start.Before(end) {
			continue
		}
		if start.After(cursor) {
			segments = append(segments, newSegment(cursor, start, SegmentOpenFree, nil))
		}
		segments = append(segments, newSegment(start, end, SegmentReservationBusy, span.ReservationIDs))
		cursor = end
	}
	if cursor.Before(openEnd) {
		segments = append(segments, newSegment(cursor, openEnd, SegmentOpenFree, nil))
	}

	if windowEnd.After(openEnd) {
		segments = append(segments, newSegment(openEnd, windowEnd, SegmentClosed, nil))
	}

	return segments
}

func filterOpenHours(segments []ScheduleSegment) []ScheduleSegment {
	var open []ScheduleSegment
	for _, segment := range segments {
		if segment.Kind != SegmentClosed {
			open = append(open, segment)
		}
	}
	return open
}

func overlapsBusy(busy []busyInterval, start, end time.Time) bool {
	for _, span := range busy {
		if intervalsOverlap(span.Start, span.End, start, end) {
			return true
		}
	}
	return false
}

// newSegment builds a segment with its duration rounded down to whole
// minutes. Comparisons elsewhere stay at instant precision.
func newSegment(start, end time.Time, kind SegmentKind, reservationIDs []string) ScheduleSegment {
	var ids []string
	if len(reservationIDs) > 0 {
		ids = make([]string, len(reservationIDs))
		copy(ids, reservationIDs)
	}
	return ScheduleSegment{
		Start:           start,
		End:             end,
		Kind:            kind,
		DurationMinutes: int(end.Sub(start).Minutes()),
		ReservationIDs:  ids,
	}
}
