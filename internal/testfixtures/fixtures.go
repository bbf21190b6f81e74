// Package testfixtures provides deterministic builders for locations, rooms,
// reservations, and recurrence rules so that tests across layers share one
// vocabulary of sample data.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/facility-reservations/internal/application"
	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/persistence"
	"github.com/example/facility-reservations/internal/recurrence"
	"github.com/example/facility-reservations/internal/timeutil"
)

var (
	locationCounter    uint64
	roomCounter        uint64
	reservationCounter uint64
	recurrenceCounter  uint64
)

// referenceTime is a Monday so default weekly-hour fixtures cover it.
var referenceTime = time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Location fixtures ---------------------------

// LocationFixture represents a deterministic location record with weekly
// operating hours.
type LocationFixture struct {
	ID          string
	Name        string
	WeeklyHours map[time.Weekday]persistence.DayHours
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LocationOption configures the generated location fixture.
type LocationOption func(*LocationFixture)

// NewLocationFixture returns a deterministic location fixture open Monday
// through Friday 09:00-17:00, with optional overrides.
func NewLocationFixture(opts ...LocationOption) LocationFixture {
	idx := atomic.AddUint64(&locationCounter, 1)
	id := fmt.Sprintf("location-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	hours := make(map[time.Weekday]persistence.DayHours, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		hours[day] = persistence.DayHours{StartClock: 900, EndClock: 1700}
	}
	fixture := LocationFixture{
		ID:          id,
		Name:        fmt.Sprintf("Location %03d", idx),
		WeeklyHours: hours,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithLocationID overrides the generated location ID.
func WithLocationID(id string) LocationOption {
	return func(f *LocationFixture) {
		f.ID = id
	}
}

// WithLocationName overrides the generated name.
func WithLocationName(name string) LocationOption {
	return func(f *LocationFixture) {
		f.Name = name
	}
}

// WithLocationHours sets one weekday's open interval.
func WithLocationHours(day time.Weekday, startClock, endClock int) LocationOption {
	return func(f *LocationFixture) {
		if f.WeeklyHours == nil {
			f.WeeklyHours = make(map[time.Weekday]persistence.DayHours)
		}
		f.WeeklyHours[day] = persistence.DayHours{StartClock: startClock, EndClock: endClock}
	}
}

// WithoutLocationHours clears all weekly hours, modelling an unconfigured
// location.
func WithoutLocationHours() LocationOption {
	return func(f *LocationFixture) {
		f.WeeklyHours = nil
	}
}

// WithLocationTimestamps sets both created and updated timestamps.
func WithLocationTimestamps(created, updated time.Time) LocationOption {
	return func(f *LocationFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Location value.
func (f LocationFixture) Application() application.Location {
	var hours map[time.Weekday]application.Hours
	if len(f.WeeklyHours) > 0 {
		hours = make(map[time.Weekday]application.Hours, len(f.WeeklyHours))
		for day, interval := range f.WeeklyHours {
			hours[day] = application.Hours{
				Start: timeutil.Clock(interval.StartClock),
				End:   timeutil.Clock(interval.EndClock),
			}
		}
	}
	return application.Location{
		ID:          f.ID,
		Name:        f.Name,
		WeeklyHours: hours,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Location value.
func (f LocationFixture) Persistence() persistence.Location {
	var hours map[time.Weekday]persistence.DayHours
	if len(f.WeeklyHours) > 0 {
		hours = make(map[time.Weekday]persistence.DayHours, len(f.WeeklyHours))
		for day, interval := range f.WeeklyHours {
			hours[day] = interval
		}
	}
	return persistence.Location{
		ID:          f.ID,
		Name:        f.Name,
		WeeklyHours: hours,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Availability returns the fixture as the engine's location snapshot.
func (f LocationFixture) Availability() availability.Location {
	var hours map[time.Weekday]availability.DayHours
	if len(f.WeeklyHours) > 0 {
		hours = make(map[time.Weekday]availability.DayHours, len(f.WeeklyHours))
		for day, interval := range f.WeeklyHours {
			hours[day] = availability.DayHours{
				Start: timeutil.Clock(interval.StartClock),
				End:   timeutil.Clock(interval.EndClock),
			}
		}
	}
	return availability.Location{ID: f.ID, Name: f.Name, WeeklyHours: hours}
}

// Input returns the fixture as an application.LocationInput.
func (f LocationFixture) Input() application.LocationInput {
	var hours map[time.Weekday]application.HoursInput
	if len(f.WeeklyHours) > 0 {
		hours = make(map[time.Weekday]application.HoursInput, len(f.WeeklyHours))
		for day, interval := range f.WeeklyHours {
			hours[day] = application.HoursInput{Start: interval.StartClock, End: interval.EndClock}
		}
	}
	return application.LocationInput{Name: f.Name, WeeklyHours: hours}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID               string
	LocationID       string
	Name             string
	MinCapacity      int
	MaxCapacity      int
	ApprovalRequired bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:          id,
		LocationID:  "location-001",
		Name:        fmt.Sprintf("Room %03d", idx),
		MinCapacity: 0,
		MaxCapacity: int(4 + idx%4),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomLocationID sets the owning location reference.
func WithRoomLocationID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.LocationID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity sets the capacity bounds.
func WithRoomCapacity(min, max int) RoomOption {
	return func(f *RoomFixture) {
		f.MinCapacity = min
		f.MaxCapacity = max
	}
}

// WithRoomApprovalRequired sets the approval workflow flag.
func WithRoomApprovalRequired(required bool) RoomOption {
	return func(f *RoomFixture) {
		f.ApprovalRequired = required
	}
}

// WithRoomTimestamps sets both created and updated timestamps.
func WithRoomTimestamps(created, updated time.Time) RoomOption {
	return func(f *RoomFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:               f.ID,
		LocationID:       f.LocationID,
		Name:             f.Name,
		MinCapacity:      f.MinCapacity,
		MaxCapacity:      f.MaxCapacity,
		ApprovalRequired: f.ApprovalRequired,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:               f.ID,
		LocationID:       f.LocationID,
		Name:             f.Name,
		MinCapacity:      f.MinCapacity,
		MaxCapacity:      f.MaxCapacity,
		ApprovalRequired: f.ApprovalRequired,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Availability returns the fixture as the engine's room snapshot.
func (f RoomFixture) Availability() availability.Room {
	return availability.Room{
		ID:               f.ID,
		LocationID:       f.LocationID,
		Name:             f.Name,
		Capacity:         availability.Capacity{Min: f.MinCapacity, Max: f.MaxCapacity},
		ApprovalRequired: f.ApprovalRequired,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		LocationID:       f.LocationID,
		Name:             f.Name,
		MinCapacity:      f.MinCapacity,
		MaxCapacity:      f.MaxCapacity,
		ApprovalRequired: f.ApprovalRequired,
	}
}

// -------------------------- Reservation fixtures -------------------------

// ReservationFixture represents a deterministic reservation record.
type ReservationFixture struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Status    availability.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a deterministic approved one-hour reservation
// with optional overrides. Fixtures stagger by day so they never collide by
// accident.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	id := fmt.Sprintf("reservation-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	fixture := ReservationFixture{
		ID:        id,
		RoomID:    "room-001",
		UserID:    fmt.Sprintf("user-%03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    availability.StatusApproved,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationRoomID sets the room reference.
func WithReservationRoomID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.RoomID = id
	}
}

// WithReservationUserID sets the owning user.
func WithReservationUserID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.UserID = id
	}
}

// WithReservationInterval sets the start and end instants.
func WithReservationInterval(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationStatus sets the workflow status.
func WithReservationStatus(status availability.Status) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithReservationTimestamps sets both created and updated timestamps.
func WithReservationTimestamps(created, updated time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:        f.ID,
		RoomID:    f.RoomID,
		UserID:    f.UserID,
		Start:     f.Start,
		End:       f.End,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:        f.ID,
		RoomID:    f.RoomID,
		UserID:    f.UserID,
		Start:     f.Start,
		End:       f.End,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Availability returns the fixture as the engine's reservation snapshot.
func (f ReservationFixture) Availability() availability.Reservation {
	return availability.Reservation{
		ID:        f.ID,
		RoomID:    f.RoomID,
		Start:     f.Start,
		End:       f.End,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
	}
}

// Input returns the fixture as an application.ReservationInput.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		RoomID: f.RoomID,
		UserID: f.UserID,
		Start:  f.Start,
		End:    f.End,
	}
}

// --------------------------- Recurrence fixtures -------------------------

// RecurrenceFixture represents a deterministic recurrence rule.
type RecurrenceFixture struct {
	ID        string
	SeriesID  string
	Frequency recurrence.Frequency
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecurrenceOption configures the generated recurrence fixture.
type RecurrenceOption func(*RecurrenceFixture)

// NewRecurrenceFixture returns a deterministic weekly Monday recurrence with
// optional overrides.
func NewRecurrenceFixture(opts ...RecurrenceOption) RecurrenceFixture {
	idx := atomic.AddUint64(&recurrenceCounter, 1)
	id := fmt.Sprintf("recurrence-%03d", idx)
	startsOn := referenceTime.Truncate(24 * time.Hour)
	fixture := RecurrenceFixture{
		ID:        id,
		SeriesID:  fmt.Sprintf("series-%03d", idx),
		Frequency: recurrence.FrequencyWeekly,
		Weekdays:  []time.Weekday{time.Monday},
		StartsOn:  startsOn,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRecurrenceID overrides the recurrence ID.
func WithRecurrenceID(id string) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.ID = id
	}
}

// WithRecurrenceSeriesID sets the associated series ID.
func WithRecurrenceSeriesID(id string) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.SeriesID = id
	}
}

// WithRecurrenceFrequency sets the recurrence frequency.
func WithRecurrenceFrequency(freq recurrence.Frequency) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.Frequency = freq
	}
}

// WithRecurrenceWeekdays sets the recurrence weekdays.
func WithRecurrenceWeekdays(days ...time.Weekday) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.Weekdays = append([]time.Weekday(nil), days...)
	}
}

// WithRecurrenceStartsOn sets the start date for the recurrence.
func WithRecurrenceStartsOn(t time.Time) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.StartsOn = t
	}
}

// WithRecurrenceEndsOn sets the optional end date.
func WithRecurrenceEndsOn(t time.Time) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		end := t
		f.EndsOn = &end
	}
}

// WithoutRecurrenceEndsOn clears any end date on the fixture.
func WithoutRecurrenceEndsOn() RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.EndsOn = nil
	}
}

// WithRecurrenceTimestamps sets both created and updated timestamps.
func WithRecurrenceTimestamps(created, updated time.Time) RecurrenceOption {
	return func(f *RecurrenceFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.RecurrenceRule value.
func (f RecurrenceFixture) Persistence() persistence.RecurrenceRule {
	var endsOn *time.Time
	if f.EndsOn != nil {
		end := *f.EndsOn
		endsOn = &end
	}
	return persistence.RecurrenceRule{
		ID:        f.ID,
		SeriesID:  f.SeriesID,
		Frequency: int(f.Frequency),
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartsOn:  f.StartsOn,
		EndsOn:    endsOn,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Rule returns the fixture as a recurrence.Rule ready for candidate
// generation.
func (f RecurrenceFixture) Rule() recurrence.Rule {
	var endsOn *time.Time
	if f.EndsOn != nil {
		end := *f.EndsOn
		endsOn = &end
	}
	return recurrence.Rule{
		ID:        f.ID,
		SeriesID:  f.SeriesID,
		Frequency: f.Frequency,
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartsOn:  f.StartsOn,
		EndsOn:    endsOn,
	}
}
