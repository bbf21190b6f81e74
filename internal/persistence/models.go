package persistence

import "time"

// DayHours is one weekday's open interval, clocks stored as 24-hour HHMM
// integers in the storage timezone.
type DayHours struct {
	StartClock int
	EndClock   int
}

// Location represents a facility location and its weekly operating hours.
// Weekdays absent from WeeklyHours are closed; an empty map means no hours
// are configured for the location at all.
type Location struct {
	ID          string
	Name        string
	WeeklyHours map[time.Weekday]DayHours
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Room represents a reservable room catalog entry. LocationID is a weak
// reference resolved by lookup, never ownership.
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

// Reservation represents a stored room reservation, instants persisted in
// the storage timezone.
type Reservation struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecurrenceRule represents a recurrence configuration for a reservation
// series.
type RecurrenceRule struct {
	ID        string
	SeriesID  string
	Frequency int
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
