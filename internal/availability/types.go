package availability

import (
	"errors"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

// Status is the lifecycle state of a reservation. Only requested and approved
// reservations occupy the calendar for conflict purposes.
type Status string

const (
	// StatusRequested marks a reservation awaiting approval.
	StatusRequested Status = "requested"
	// StatusApproved marks a confirmed reservation.
	StatusApproved Status = "approved"
	// StatusDenied marks a reservation rejected by staff.
	StatusDenied Status = "denied"
	// StatusCanceled marks a reservation withdrawn by its owner.
	StatusCanceled Status = "canceled"
)

// OccupiesCalendar reports whether a reservation in this status blocks the
// room's schedule.
func (s Status) OccupiesCalendar() bool {
	return s == StatusRequested || s == StatusApproved
}

// DayHours is a single day's open interval expressed as wall clocks in the
// storage timezone.
type DayHours struct {
	Start timeutil.Clock
	End   timeutil.Clock
}

// Valid reports whether both clocks are well formed and ordered.
func (h DayHours) Valid() bool {
	return h.Start.Valid() && h.End.Valid() && h.Start < h.End
}

// Location is the snapshot of a room's owning location that the engine reads.
// Weekdays absent from WeeklyHours are closed all day; an entirely empty map
// means no hours are configured at all, which is a distinct condition.
type Location struct {
	ID          string
	Name        string
	WeeklyHours map[time.Weekday]DayHours
}

// Capacity bounds the attendance a room supports.
type Capacity struct {
	Min int
	Max int
}

// Room is the snapshot of a reservable room. The location reference is a weak
// one; the caller resolves and supplies the Location alongside it.
type Room struct {
	ID               string
	LocationID       string
	Name             string
	Capacity         Capacity
	ApprovalRequired bool
}

// Reservation is the snapshot of a stored reservation, instants in the
// storage timezone.
type Reservation struct {
	ID        string
	RoomID    string
	Start     time.Time
	End       time.Time
	Status    Status
	CreatedAt time.Time
}

// Request describes one availability computation. The window bounds the
// partition; Start/End is the exact interval the conflict verdicts are
// evaluated against and defaults to the full window when zero.
type Request struct {
	RoomID          string
	WindowStart     time.Time
	WindowEnd       time.Time
	Start           time.Time
	End             time.Time
	DurationMinutes int
	DisplayZone     *time.Location
}

// requestedInterval resolves the verdict interval, defaulting to the window.
func (r Request) requestedInterval() (time.Time, time.Time) {
	start, end := r.Start, r.End
	if start.IsZero() {
		start = r.WindowStart
	}
	if end.IsZero() {
		end = r.WindowEnd
	}
	return start, end
}

// SegmentKind classifies one maximal interval of the computed partition.
type SegmentKind string

const (
	// SegmentReservationBusy covers time occupied by active reservations.
	SegmentReservationBusy SegmentKind = "reservation_busy"
	// SegmentOpenFree covers reservable time inside operating hours.
	SegmentOpenFree SegmentKind = "open_free"
	// SegmentClosed covers time outside the location's operating hours.
	SegmentClosed SegmentKind = "closed"
)

// ScheduleSegment is one entry of the gap-free window partition. Busy
// segments carry every contributing reservation id; merged anomalies retain
// all of them.
type ScheduleSegment struct {
	Start           time.Time
	End             time.Time
	Kind            SegmentKind
	DurationMinutes int
	ReservationIDs  []string
}

// OpenInterval is the resolved operating window for one calendar day,
// expressed as instants.
type OpenInterval struct {
	Start time.Time
	End   time.Time
}

// Result is the full outcome of one availability computation. It is
// constructed per call, never mutated afterwards, and safe to share across
// goroutines.
type Result struct {
	HasReservationConflict bool
	HasOpenHoursConflict   bool
	Schedule               []ScheduleSegment
	ScheduleByOpenHours    []ScheduleSegment
	OpenInterval           *OpenInterval
	RequestedDurationMins  int
	// HoursFellBack is set when the location had no configured hours and the
	// institution default window was applied. Callers log it as a warning.
	HoursFellBack bool
}

// EligibleSlots returns the open segments long enough to host the requested
// duration. The filter is derived; the partition itself is unchanged.
func (r Result) EligibleSlots() []ScheduleSegment {
	var slots []ScheduleSegment
	for _, segment := range r.Schedule {
		if segment.Kind == SegmentOpenFree && segment.DurationMinutes >= r.RequestedDurationMins {
			slots = append(slots, segment)
		}
	}
	return slots
}

// ErrInvalidRequest flags caller programming errors: a malformed window, a
// non-positive duration, or a missing room. Never retried.
var ErrInvalidRequest = errors.New("availability: invalid request")

// ErrNoHoursConfigured signals a location with no weekly hours at all,
// distinct from a day that is simply closed.
var ErrNoHoursConfigured = errors.New("availability: no operating hours configured")
