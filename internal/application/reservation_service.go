package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/persistence"
)

// ReservationRepository captures the persistence operations needed by the service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	ListReservations(ctx context.Context, params ListReservationsParams) ([]Reservation, error)
	CountActiveForUser(ctx context.Context, userID string, reference time.Time) (int, error)
	DeleteReservation(ctx context.Context, id string) error
}

// RoomCatalog resolves room references during reservation validation.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// AvailabilityChecker answers whether an exact interval is free in a room.
// Edit flows pass the reservation's own id as excludeID so it does not
// conflict with itself.
type AvailabilityChecker interface {
	CheckInterval(ctx context.Context, roomID string, start, end time.Time, excludeID string) (availability.Result, error)
}

// ScheduleInvalidator drops cached availability after reservation writes.
type ScheduleInvalidator interface {
	Invalidate()
}

// ReservationService orchestrates validation, availability gating, and the
// status workflow for reservations.
type ReservationService struct {
	reservations ReservationRepository
	rooms        RoomCatalog
	checker      AvailabilityChecker
	invalidator  ScheduleInvalidator
	// reservationLimit caps active reservations per user; 0 disables the cap.
	reservationLimit int
	idGenerator      func() string
	now              func() time.Time
	logger           *slog.Logger
}

// NewReservationService constructs a reservation service with the provided dependencies.
func NewReservationService(reservations ReservationRepository, rooms RoomCatalog, checker AvailabilityChecker, reservationLimit int, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, checker, reservationLimit, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, rooms RoomCatalog, checker AvailabilityChecker, reservationLimit int, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if reservationLimit < 0 {
		reservationLimit = 0
	}
	return &ReservationService{
		reservations:     reservations,
		rooms:            rooms,
		checker:          checker,
		reservationLimit: reservationLimit,
		idGenerator:      idGenerator,
		now:              now,
		logger:           defaultLogger(logger),
	}
}

// SetInvalidator wires a schedule cache that must be dropped after writes.
func (s *ReservationService) SetInvalidator(invalidator ScheduleInvalidator) {
	if s != nil {
		s.invalidator = invalidator
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation validates input, verifies availability, applies the
// approval default, and persists a new reservation.
func (s *ReservationService) CreateReservation(ctx context.Context, input ReservationInput) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"room_id", input.RoomID,
		"user_id", input.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID, "status", string(reservation.Status)).InfoContext(ctx, "reservation created")
	}()

	vErr := validateReservationInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var room Room
	room, err = s.lookupRoom(ctx, input.RoomID)
	if err != nil {
		return
	}

	if err = s.checkUserLimit(ctx, input.UserID); err != nil {
		return
	}

	if err = s.checkAvailable(ctx, input.RoomID, input.Start, input.End, ""); err != nil {
		return
	}

	status := availability.StatusRequested
	if !room.ApprovalRequired {
		status = availability.StatusApproved
	}

	reservation = Reservation{
		ID:        s.idGenerator(),
		RoomID:    strings.TrimSpace(input.RoomID),
		UserID:    strings.TrimSpace(input.UserID),
		Start:     input.Start,
		End:       input.End,
		Status:    status,
		CreatedAt: s.now(),
	}
	reservation.UpdatedAt = reservation.CreatedAt

	var persisted Reservation
	persisted, err = s.reservations.CreateReservation(ctx, reservation)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	reservation = persisted
	s.invalidate()
	return
}

// UpdateReservation reschedules an existing reservation, verifying the new
// interval against the calendar with the reservation excluded.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateReservation",
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation updated")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	if !existing.Status.OccupiesCalendar() {
		err = ErrInvalidTransition
		return
	}

	input := params.Input
	if input.RoomID == "" {
		input.RoomID = existing.RoomID
	}
	input.UserID = existing.UserID

	vErr := validateReservationInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.lookupRoom(ctx, input.RoomID); err != nil {
		return
	}

	if err = s.checkAvailable(ctx, input.RoomID, input.Start, input.End, existing.ID); err != nil {
		return
	}

	updated := existing
	updated.RoomID = strings.TrimSpace(input.RoomID)
	updated.Start = input.Start
	updated.End = input.End
	updated.UpdatedAt = s.now()

	reservation, err = s.reservations.UpdateReservation(ctx, updated)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.invalidate()
	return
}

// Approve confirms a requested reservation.
func (s *ReservationService) Approve(ctx context.Context, reservationID string) (Reservation, error) {
	return s.transition(ctx, "Approve", reservationID, availability.StatusApproved, availability.StatusRequested)
}

// Deny rejects a requested reservation.
func (s *ReservationService) Deny(ctx context.Context, reservationID string) (Reservation, error) {
	return s.transition(ctx, "Deny", reservationID, availability.StatusDenied, availability.StatusRequested)
}

// Cancel withdraws a requested or approved reservation.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) (Reservation, error) {
	return s.transition(ctx, "Cancel", reservationID, availability.StatusCanceled, availability.StatusRequested, availability.StatusApproved)
}

// Request re-submits a denied or canceled reservation, re-verifying the
// calendar and the user's reservation cap first.
func (s *ReservationService) Request(ctx context.Context, reservationID string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Request",
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to re-request reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation re-requested")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	if existing.Status != availability.StatusDenied && existing.Status != availability.StatusCanceled {
		err = ErrInvalidTransition
		return
	}

	if err = s.checkUserLimit(ctx, existing.UserID); err != nil {
		return
	}

	if err = s.checkAvailable(ctx, existing.RoomID, existing.Start, existing.End, existing.ID); err != nil {
		return
	}

	updated := existing
	updated.Status = availability.StatusRequested
	updated.UpdatedAt = s.now()

	reservation, err = s.reservations.UpdateReservation(ctx, updated)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.invalidate()
	return
}

// GetReservation returns a single reservation by id.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, ErrNotFound
	}

	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the given filters.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListReservations",
		"room_id", params.RoomID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	reservations, err = s.reservations.ListReservations(ctx, params)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	return
}

// DeleteReservation removes a reservation entirely.
func (s *ReservationService) DeleteReservation(ctx context.Context, reservationID string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteReservation",
		"reservation_id", reservationID,
	)

	if err := s.reservations.DeleteReservation(ctx, reservationID); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "reservation deleted")
	s.invalidate()
	return nil
}

func (s *ReservationService) transition(ctx context.Context, operation, reservationID string, to availability.Status, from ...availability.Status) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change reservation status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID, "status", string(reservation.Status)).InfoContext(ctx, "reservation status changed")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	allowed := false
	for _, status := range from {
		if existing.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		err = ErrInvalidTransition
		return
	}

	updated := existing
	updated.Status = to
	updated.UpdatedAt = s.now()

	reservation, err = s.reservations.UpdateReservation(ctx, updated)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.invalidate()
	return
}

func (s *ReservationService) lookupRoom(ctx context.Context, roomID string) (Room, error) {
	if s.rooms == nil {
		return Room{}, nil
	}
	room, err := s.rooms.GetRoom(ctx, strings.TrimSpace(roomID))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("room_id", "room does not exist")
			return Room{}, vErr
		}
		return Room{}, err
	}
	return room, nil
}

func (s *ReservationService) checkUserLimit(ctx context.Context, userID string) error {
	if s.reservationLimit == 0 {
		return nil
	}

	active, err := s.reservations.CountActiveForUser(ctx, userID, s.now())
	if err != nil {
		return mapReservationRepoError(err)
	}
	if active >= s.reservationLimit {
		return fmt.Errorf("%w: user has %d active reservations", ErrLimitExceeded, active)
	}
	return nil
}

func (s *ReservationService) checkAvailable(ctx context.Context, roomID string, start, end time.Time, excludeID string) error {
	if s.checker == nil {
		return nil
	}

	result, err := s.checker.CheckInterval(ctx, roomID, start, end, excludeID)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRequest) {
			vErr := &ValidationError{}
			vErr.add("interval", "requested interval is invalid")
			return vErr
		}
		return err
	}

	vErr := &ValidationError{}
	if result.HasReservationConflict {
		vErr.add("interval", "requested time conflicts with an existing reservation")
	}
	if result.HasOpenHoursConflict {
		vErr.add("open_hours", "requested time falls outside the location's open hours")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *ReservationService) invalidate() {
	if s != nil && s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if strings.TrimSpace(input.UserID) == "" {
		vErr.add("user_id", "user is required")
	}
	if input.Start.IsZero() || input.End.IsZero() {
		vErr.add("interval", "start and end are required")
	} else if !input.Start.Before(input.End) {
		vErr.add("interval", "start must be before end")
	}

	return vErr
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("interval", "start must be before end")
		return vErr
	}
	return err
}
