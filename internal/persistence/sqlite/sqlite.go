package sqlite

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
)

// Storage provides an in-memory persistence layer implementation with the
// same ordering and override semantics as the SQLite repositories. It backs
// fixtures and tests that do not need a database file.
type Storage struct {
	mu           sync.RWMutex
	locations    map[string]persistence.Location
	rooms        map[string]persistence.Room
	reservations map[string]persistence.Reservation
	recurrences  map[string]persistence.RecurrenceRule
}

// Open returns a new Storage instance. The dsn is accepted for API compatibility.
func Open(_ string) (*Storage, error) {
	return &Storage{
		locations:    make(map[string]persistence.Location),
		rooms:        make(map[string]persistence.Room),
		reservations: make(map[string]persistence.Reservation),
		recurrences:  make(map[string]persistence.RecurrenceRule),
	}, nil
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- LocationRepository implementation ---

// CreateLocation stores a new location with its weekly hours.
func (s *Storage) CreateLocation(ctx context.Context, location persistence.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[location.ID]; ok {
		return fmt.Errorf("sqlite: location %s already exists: %w", location.ID, persistence.ErrDuplicate)
	}

	s.locations[location.ID] = cloneLocation(location)
	return nil
}

// UpdateLocation updates an existing location.
func (s *Storage) UpdateLocation(ctx context.Context, location persistence.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[location.ID]; !ok {
		return persistence.ErrNotFound
	}

	s.locations[location.ID] = cloneLocation(location)
	return nil
}

// GetLocation retrieves a location by ID.
func (s *Storage) GetLocation(ctx context.Context, id string) (persistence.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	location, ok := s.locations[id]
	if !ok {
		return persistence.Location{}, persistence.ErrNotFound
	}

	return cloneLocation(location), nil
}

// ListLocations returns all locations ordered by name.
func (s *Storage) ListLocations(ctx context.Context) ([]persistence.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]persistence.Location, 0, len(s.locations))
	for _, location := range s.locations {
		locations = append(locations, cloneLocation(location))
	}

	sort.Slice(locations, func(i, j int) bool {
		if locations[i].Name == locations[j].Name {
			return locations[i].ID < locations[j].ID
		}
		return locations[i].Name < locations[j].Name
	})

	return locations, nil
}

// DeleteLocation removes a location by ID.
func (s *Storage) DeleteLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.locations, id)
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("sqlite: room %s already exists: %w", room.ID, persistence.ErrDuplicate)
	}

	if room.LocationID != "" {
		if _, ok := s.locations[room.LocationID]; !ok {
			return fmt.Errorf("sqlite: location %s does not exist: %w", room.LocationID, persistence.ErrConstraintViolation)
		}
	}

	s.rooms[room.ID] = room
	return nil
}

// UpdateRoom updates an existing room.
func (s *Storage) UpdateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}

	s.rooms[room.ID] = room
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}

	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}

	sortRooms(rooms)
	return rooms, nil
}

// ListRoomsForLocation returns the rooms belonging to a location ordered by name.
func (s *Storage) ListRoomsForLocation(ctx context.Context, locationID string) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0)
	for _, room := range s.rooms {
		if room.LocationID != locationID {
			continue
		}
		rooms = append(rooms, room)
	}

	sortRooms(rooms)
	return rooms, nil
}

// DeleteRoom removes a room by ID along with its reservations.
func (s *Storage) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.rooms, id)

	for reservationID, reservation := range s.reservations {
		if reservation.RoomID == id {
			delete(s.reservations, reservationID)
		}
	}

	return nil
}

// --- ReservationRepository implementation ---

// CreateReservation stores a new reservation.
func (s *Storage) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[reservation.ID]; ok {
		return fmt.Errorf("sqlite: reservation %s already exists: %w", reservation.ID, persistence.ErrDuplicate)
	}

	if _, ok := s.rooms[reservation.RoomID]; !ok {
		return fmt.Errorf("sqlite: room %s does not exist: %w", reservation.RoomID, persistence.ErrConstraintViolation)
	}

	if !reservation.Start.Before(reservation.End) {
		return persistence.ErrConstraintViolation
	}

	s.reservations[reservation.ID] = reservation
	return nil
}

// UpdateReservation updates an existing reservation. The owning user and
// creation time are immutable.
func (s *Storage) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reservations[reservation.ID]
	if !ok {
		return persistence.ErrNotFound
	}

	if !reservation.Start.Before(reservation.End) {
		return persistence.ErrConstraintViolation
	}

	reservation.UserID = existing.UserID
	reservation.CreatedAt = existing.CreatedAt
	s.reservations[reservation.ID] = reservation
	return nil
}

// GetReservation retrieves a reservation by ID.
func (s *Storage) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by start time.
func (s *Storage) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]persistence.Reservation, 0)
	for _, reservation := range s.reservations {
		if !matchesReservationFilter(reservation, filter) {
			continue
		}
		reservations = append(reservations, reservation)
	}

	sortReservations(reservations)
	return reservations, nil
}

// ListOverlapping returns calendar-occupying reservations (requested or
// approved) whose half-open interval intersects the window, ordered by start
// time then id.
func (s *Storage) ListOverlapping(ctx context.Context, roomID string, windowStart, windowEnd time.Time, excludeID string) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]persistence.Reservation, 0)
	for _, reservation := range s.reservations {
		if reservation.RoomID != roomID || reservation.ID == excludeID {
			continue
		}
		if reservation.Status != "requested" && reservation.Status != "approved" {
			continue
		}
		if !reservation.Start.Before(windowEnd) || !windowStart.Before(reservation.End) {
			continue
		}
		reservations = append(reservations, reservation)
	}

	sortReservations(reservations)
	return reservations, nil
}

// CountActiveForUser counts requested or approved reservations for the user
// that have not yet ended at the reference instant.
func (s *Storage) CountActiveForUser(ctx context.Context, userID string, reference time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, reservation := range s.reservations {
		if reservation.UserID != userID {
			continue
		}
		if reservation.Status != "requested" && reservation.Status != "approved" {
			continue
		}
		if reservation.End.After(reference) {
			count++
		}
	}

	return count, nil
}

// DeleteReservation removes a reservation by ID.
func (s *Storage) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.reservations, id)
	return nil
}

// --- RecurrenceRepository implementation ---

// UpsertRecurrence creates or updates a recurrence rule.
func (s *Storage) UpsertRecurrence(ctx context.Context, rule persistence.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.Weekdays = uniqueWeekdays(rule.Weekdays)
	existing, ok := s.recurrences[rule.ID]
	if ok {
		rule.CreatedAt = existing.CreatedAt
	}

	s.recurrences[rule.ID] = cloneRecurrence(rule)
	return nil
}

// ListRecurrencesForSeries returns recurrence rules for a series ordered by CreatedAt.
func (s *Storage) ListRecurrencesForSeries(ctx context.Context, seriesID string) ([]persistence.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]persistence.RecurrenceRule, 0)
	for _, rule := range s.recurrences {
		if rule.SeriesID != seriesID {
			continue
		}
		rules = append(rules, cloneRecurrence(rule))
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

// DeleteRecurrence removes a recurrence rule by ID.
func (s *Storage) DeleteRecurrence(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recurrences[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.recurrences, id)
	return nil
}

// DeleteRecurrencesForSeries removes all recurrence rules attached to a series.
func (s *Storage) DeleteRecurrencesForSeries(ctx context.Context, seriesID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rule := range s.recurrences {
		if rule.SeriesID == seriesID {
			delete(s.recurrences, id)
		}
	}

	return nil
}

// --- Helpers ---

func cloneLocation(location persistence.Location) persistence.Location {
	hours := make(map[time.Weekday]persistence.DayHours, len(location.WeeklyHours))
	for weekday, day := range location.WeeklyHours {
		hours[weekday] = day
	}

	return persistence.Location{
		ID:          location.ID,
		Name:        location.Name,
		WeeklyHours: hours,
		CreatedAt:   location.CreatedAt,
		UpdatedAt:   location.UpdatedAt,
	}
}

func cloneRecurrence(rule persistence.RecurrenceRule) persistence.RecurrenceRule {
	var endsOn *time.Time
	if rule.EndsOn != nil {
		copy := *rule.EndsOn
		endsOn = &copy
	}

	weekdays := make([]time.Weekday, len(rule.Weekdays))
	copy(weekdays, rule.Weekdays)

	return persistence.RecurrenceRule{
		ID:        rule.ID,
		SeriesID:  rule.SeriesID,
		Frequency: rule.Frequency,
		Weekdays:  weekdays,
		StartsOn:  rule.StartsOn,
		EndsOn:    endsOn,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}

func sortRooms(rooms []persistence.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
}

func sortReservations(reservations []persistence.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		if reservations[i].Start.Equal(reservations[j].Start) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].Start.Before(reservations[j].Start)
	})
}

func matchesReservationFilter(reservation persistence.Reservation, filter persistence.ReservationFilter) bool {
	if filter.RoomID != "" && reservation.RoomID != filter.RoomID {
		return false
	}

	if filter.UserID != "" && reservation.UserID != filter.UserID {
		return false
	}

	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if reservation.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.StartsAfter != nil && !reservation.End.After(*filter.StartsAfter) {
		return false
	}

	if filter.EndsBefore != nil && !reservation.Start.Before(*filter.EndsBefore) {
		return false
	}

	return true
}

func uniqueWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	result := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		result = append(result, day)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})

	return result
}
