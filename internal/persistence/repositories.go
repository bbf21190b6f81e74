package persistence

import (
	"context"
	"time"
)

// LocationRepository exposes CRUD operations for locations and their weekly
// hours.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) error
	UpdateLocation(ctx context.Context, location Location) error
	GetLocation(ctx context.Context, id string) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	DeleteLocation(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListRoomsForLocation(ctx context.Context, locationID string) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	RoomID      string
	UserID      string
	Statuses    []string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// ReservationRepository stores reservations and answers the overlap queries
// the availability engine's callers need for snapshot loading.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// ListOverlapping returns requested or approved reservations whose
	// [start, end) intersects the half-open window, ordered by start then id.
	// Denied and canceled reservations never occupy the calendar. When
	// excludeID is non-empty that reservation is omitted, so edit flows do
	// not see themselves.
	ListOverlapping(ctx context.Context, roomID string, windowStart, windowEnd time.Time, excludeID string) ([]Reservation, error)
	// CountActiveForUser counts requested or approved reservations for the
	// user that have not yet ended at the reference instant.
	CountActiveForUser(ctx context.Context, userID string, reference time.Time) (int, error)
	DeleteReservation(ctx context.Context, id string) error
}

// RecurrenceRepository stores recurrence rules attached to reservation
// series.
type RecurrenceRepository interface {
	UpsertRecurrence(ctx context.Context, rule RecurrenceRule) error
	ListRecurrencesForSeries(ctx context.Context, seriesID string) ([]RecurrenceRule, error)
	DeleteRecurrence(ctx context.Context, id string) error
	DeleteRecurrencesForSeries(ctx context.Context, seriesID string) error
}
