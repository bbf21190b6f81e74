package application

import (
	"time"

	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/recurrence"
	"github.com/example/facility-reservations/internal/timeutil"
)

// Hours is one weekday's open interval.
type Hours struct {
	Start timeutil.Clock
	End   timeutil.Clock
}

// HoursInput captures caller provided open hours as 24-hour HHMM integers,
// e.g. 900 and 1700.
type HoursInput struct {
	Start int
	End   int
}

// LocationInput captures caller provided location fields. Weekdays absent
// from WeeklyHours are closed.
type LocationInput struct {
	Name        string
	WeeklyHours map[time.Weekday]HoursInput
}

// Location represents a facility location exposed by the application services.
type Location struct {
	ID          string
	Name        string
	WeeklyHours map[time.Weekday]Hours
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdateLocationParams wraps the data required to update a location.
type UpdateLocationParams struct {
	LocationID string
	Input      LocationInput
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	LocationID       string
	Name             string
	MinCapacity      int
	MaxCapacity      int
	ApprovalRequired bool
}

// Room represents a reservable room exposed by the application services.
type Room struct {
	ID               string
	LocationID       string
	Name             string
	MinCapacity      int
	MaxCapacity      int
	ApprovalRequired bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	RoomID string
	Input  RoomInput
}

// ReservationInput captures caller provided reservation fields. Start and End
// are instants in any zone; they are stored in the storage timezone.
type ReservationInput struct {
	RoomID string
	UserID string
	Start  time.Time
	End    time.Time
}

// Reservation represents a room reservation exposed by the application services.
type Reservation struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Status    availability.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateReservationParams wraps the data required to reschedule a reservation.
type UpdateReservationParams struct {
	ReservationID string
	Input         ReservationInput
}

// ListReservationsParams narrows reservation listings.
type ListReservationsParams struct {
	RoomID      string
	UserID      string
	Statuses    []availability.Status
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// AvailabilityParams describes one availability question: a room, a search
// window, the requested duration, and optionally the exact interval the
// caller wants (defaulting to the whole window). ExcludeReservationID lets
// edit flows ignore the reservation being moved.
type AvailabilityParams struct {
	RoomID               string
	WindowStart          time.Time
	WindowEnd            time.Time
	Start                *time.Time
	End                  *time.Time
	DurationMinutes      int
	DisplayZone          string
	ExcludeReservationID string
	Debug                bool
}

// AvailabilityReport is the engine verdict enriched with the context the
// transport layer renders.
type AvailabilityReport struct {
	RoomID       string
	RoomName     string
	LocationID   string
	LocationName string
	Result       availability.Result
	// Rows and OpenHoursRows are populated only for debug requests.
	Rows          []availability.Row
	OpenHoursRows []availability.Row
}

// SeriesAvailabilityParams describes an availability question repeated over
// the candidate dates of a recurrence rule, optionally across several rooms.
type SeriesAvailabilityParams struct {
	RoomIDs         []string
	Rule            recurrence.Rule
	BaseStart       time.Time
	BaseEnd         time.Time
	RangeStart      time.Time
	RangeEnd        time.Time
	DurationMinutes int
	DisplayZone     string
}

// CandidateAvailability is the verdict for one room on one candidate date.
type CandidateAvailability struct {
	RoomID    string
	Candidate recurrence.Candidate
	Report    AvailabilityReport
	Err       error
}
