package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/persistence"
)

type reservationRepoStub struct {
	createErr error
	created   Reservation

	byID   map[string]Reservation
	getErr error

	updateErr error
	updated   Reservation

	list    []Reservation
	listErr error

	activeCount int
	countErr    error

	deleteErr error
	deletedID string
}

func (r *reservationRepoStub) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if r.createErr != nil {
		return Reservation{}, r.createErr
	}
	r.created = reservation
	return reservation, nil
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if r.getErr != nil {
		return Reservation{}, r.getErr
	}
	reservation, ok := r.byID[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

func (r *reservationRepoStub) UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if r.updateErr != nil {
		return Reservation{}, r.updateErr
	}
	r.updated = reservation
	return reservation, nil
}

func (r *reservationRepoStub) ListReservations(ctx context.Context, params ListReservationsParams) ([]Reservation, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Reservation, len(r.list))
	copy(out, r.list)
	return out, nil
}

func (r *reservationRepoStub) CountActiveForUser(ctx context.Context, userID string, reference time.Time) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.activeCount, nil
}

func (r *reservationRepoStub) DeleteReservation(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedID = id
	return nil
}

type roomCatalogStub struct {
	room Room
	err  error
}

func (r *roomCatalogStub) GetRoom(ctx context.Context, id string) (Room, error) {
	if r.err != nil {
		return Room{}, r.err
	}
	return r.room, nil
}

type checkerStub struct {
	result availability.Result
	err    error

	lastRoomID    string
	lastStart     time.Time
	lastEnd       time.Time
	lastExcludeID string
}

func (c *checkerStub) CheckInterval(ctx context.Context, roomID string, start, end time.Time, excludeID string) (availability.Result, error) {
	c.lastRoomID = roomID
	c.lastStart = start
	c.lastEnd = end
	c.lastExcludeID = excludeID
	if c.err != nil {
		return availability.Result{}, c.err
	}
	return c.result, nil
}

type invalidatorStub struct {
	calls int
}

func (i *invalidatorStub) Invalidate() { i.calls++ }

func reservationTestTimes() (time.Time, time.Time) {
	start := time.Date(2026, time.June, 10, 10, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestReservationService_CreateReservation(t *testing.T) {
	t.Run("validates required attributes", func(t *testing.T) {
		repo := &reservationRepoStub{}
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		_, err := svc.CreateReservation(context.Background(), ReservationInput{})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"room_id", "user_id", "interval"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects inverted intervals", func(t *testing.T) {
		repo := &reservationRepoStub{}
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)
		start, end := reservationTestTimes()

		_, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "room-1",
			UserID: "user-1",
			Start:  end,
			End:    start,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["interval"]; !ok {
			t.Fatalf("expected interval validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects unknown rooms", func(t *testing.T) {
		repo := &reservationRepoStub{}
		rooms := &roomCatalogStub{err: persistence.ErrNotFound}
		svc := NewReservationService(repo, rooms, nil, 0, nil, nil)
		start, end := reservationTestTimes()

		_, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "missing",
			UserID: "user-1",
			Start:  start,
			End:    end,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["room_id"]; !ok {
			t.Fatalf("expected room_id validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("enforces the per-user reservation cap", func(t *testing.T) {
		repo := &reservationRepoStub{activeCount: 3}
		rooms := &roomCatalogStub{room: Room{ID: "room-1"}}
		svc := NewReservationService(repo, rooms, nil, 3, nil, nil)
		start, end := reservationTestTimes()

		_, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "room-1",
			UserID: "user-1",
			Start:  start,
			End:    end,
		})

		if !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("expected ErrLimitExceeded, got %v", err)
		}
	})

	t.Run("ignores the cap when disabled", func(t *testing.T) {
		repo := &reservationRepoStub{activeCount: 99}
		rooms := &roomCatalogStub{room: Room{ID: "room-1"}}
		svc := NewReservationService(repo, rooms, nil, 0, func() string { return "res-1" }, nil)
		start, end := reservationTestTimes()

		if _, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "room-1",
			UserID: "user-1",
			Start:  start,
			End:    end,
		}); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("rejects conflicting intervals", func(t *testing.T) {
		repo := &reservationRepoStub{}
		rooms := &roomCatalogStub{room: Room{ID: "room-1"}}
		checker := &checkerStub{result: availability.Result{HasReservationConflict: true}}
		svc := NewReservationService(repo, rooms, checker, 0, nil, nil)
		start, end := reservationTestTimes()

		_, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "room-1",
			UserID: "user-1",
			Start:  start,
			End:    end,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["interval"]; !ok {
			t.Fatalf("expected interval conflict error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects intervals outside open hours", func(t *testing.T) {
		repo := &reservationRepoStub{}
		rooms := &roomCatalogStub{room: Room{ID: "room-1"}}
		checker := &checkerStub{result: availability.Result{HasOpenHoursConflict: true}}
		svc := NewReservationService(repo, rooms, checker, 0, nil, nil)
		start, end := reservationTestTimes()

		_, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "room-1",
			UserID: "user-1",
			Start:  start,
			End:    end,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["open_hours"]; !ok {
			t.Fatalf("expected open_hours conflict error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("auto-approves rooms that do not require approval", func(t *testing.T) {
		repo := &reservationRepoStub{}
		rooms := &roomCatalogStub{room: Room{ID: "room-1", ApprovalRequired: false}}
		checker := &checkerStub{}
		invalidator := &invalidatorStub{}
		now := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
		svc := NewReservationService(repo, rooms, checker, 0, func() string { return "res-1" }, func() time.Time { return now })
		svc.SetInvalidator(invalidator)
		start, end := reservationTestTimes()

		created, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: " room-1 ",
			UserID: " user-1 ",
			Start:  start,
			End:    end,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if created.Status != availability.StatusApproved {
			t.Fatalf("expected auto-approved reservation, got %s", created.Status)
		}
		if repo.created.RoomID != "room-1" || repo.created.UserID != "user-1" {
			t.Fatalf("expected identifiers to be trimmed, got %+v", repo.created)
		}
		if !repo.created.CreatedAt.Equal(now) {
			t.Fatalf("expected timestamps to use injected clock, got %v", repo.created.CreatedAt)
		}
		if checker.lastExcludeID != "" {
			t.Fatalf("expected no exclusion on create, got %q", checker.lastExcludeID)
		}
		if invalidator.calls != 1 {
			t.Fatalf("expected one cache invalidation, got %d", invalidator.calls)
		}
	})

	t.Run("requests approval-required rooms", func(t *testing.T) {
		repo := &reservationRepoStub{}
		rooms := &roomCatalogStub{room: Room{ID: "room-1", ApprovalRequired: true}}
		svc := NewReservationService(repo, rooms, nil, 0, func() string { return "res-1" }, nil)
		start, end := reservationTestTimes()

		created, err := svc.CreateReservation(context.Background(), ReservationInput{
			RoomID: "room-1",
			UserID: "user-1",
			Start:  start,
			End:    end,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if created.Status != availability.StatusRequested {
			t.Fatalf("expected requested reservation, got %s", created.Status)
		}
	})
}

func TestReservationService_UpdateReservation(t *testing.T) {
	start, end := reservationTestTimes()
	existing := Reservation{
		ID:     "res-1",
		RoomID: "room-1",
		UserID: "user-1",
		Start:  start,
		End:    end,
		Status: availability.StatusApproved,
	}

	t.Run("propagates ErrNotFound for missing reservations", func(t *testing.T) {
		repo := &reservationRepoStub{byID: map[string]Reservation{}}
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		_, err := svc.UpdateReservation(context.Background(), UpdateReservationParams{
			ReservationID: "missing",
			Input:         ReservationInput{Start: start, End: end},
		})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects edits on settled reservations", func(t *testing.T) {
		canceled := existing
		canceled.Status = availability.StatusCanceled
		repo := &reservationRepoStub{byID: map[string]Reservation{"res-1": canceled}}
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		_, err := svc.UpdateReservation(context.Background(), UpdateReservationParams{
			ReservationID: "res-1",
			Input:         ReservationInput{Start: start, End: end},
		})

		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("excludes the reservation from its own conflict check", func(t *testing.T) {
		repo := &reservationRepoStub{byID: map[string]Reservation{"res-1": existing}}
		rooms := &roomCatalogStub{room: Room{ID: "room-1"}}
		checker := &checkerStub{}
		now := time.Date(2026, time.June, 2, 8, 0, 0, 0, time.UTC)
		svc := NewReservationService(repo, rooms, checker, 0, nil, func() time.Time { return now })

		newStart := start.Add(2 * time.Hour)
		newEnd := end.Add(2 * time.Hour)
		updated, err := svc.UpdateReservation(context.Background(), UpdateReservationParams{
			ReservationID: "res-1",
			Input:         ReservationInput{Start: newStart, End: newEnd},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if checker.lastExcludeID != "res-1" {
			t.Fatalf("expected own id to be excluded, got %q", checker.lastExcludeID)
		}
		if !repo.updated.Start.Equal(newStart) || !repo.updated.End.Equal(newEnd) {
			t.Fatalf("expected interval to be rescheduled, got %+v", repo.updated)
		}
		if repo.updated.RoomID != "room-1" {
			t.Fatalf("expected room to default to existing, got %q", repo.updated.RoomID)
		}
		if repo.updated.UserID != "user-1" {
			t.Fatalf("expected owner to be preserved, got %q", repo.updated.UserID)
		}
		if updated.Status != availability.StatusApproved {
			t.Fatalf("expected status to be preserved, got %s", updated.Status)
		}
	})
}

func TestReservationService_StatusWorkflow(t *testing.T) {
	start, end := reservationTestTimes()
	base := Reservation{ID: "res-1", RoomID: "room-1", UserID: "user-1", Start: start, End: end}

	withStatus := func(status availability.Status) *reservationRepoStub {
		reservation := base
		reservation.Status = status
		return &reservationRepoStub{byID: map[string]Reservation{"res-1": reservation}}
	}

	t.Run("approves requested reservations", func(t *testing.T) {
		repo := withStatus(availability.StatusRequested)
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		approved, err := svc.Approve(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if approved.Status != availability.StatusApproved {
			t.Fatalf("expected approved status, got %s", approved.Status)
		}
	})

	t.Run("refuses to approve settled reservations", func(t *testing.T) {
		repo := withStatus(availability.StatusCanceled)
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		if _, err := svc.Approve(context.Background(), "res-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("denies requested reservations", func(t *testing.T) {
		repo := withStatus(availability.StatusRequested)
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		denied, err := svc.Deny(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if denied.Status != availability.StatusDenied {
			t.Fatalf("expected denied status, got %s", denied.Status)
		}
	})

	t.Run("refuses to deny approved reservations", func(t *testing.T) {
		repo := withStatus(availability.StatusApproved)
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		if _, err := svc.Deny(context.Background(), "res-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("cancels requested and approved reservations", func(t *testing.T) {
		for _, status := range []availability.Status{availability.StatusRequested, availability.StatusApproved} {
			repo := withStatus(status)
			svc := NewReservationService(repo, nil, nil, 0, nil, nil)

			canceled, err := svc.Cancel(context.Background(), "res-1")
			if err != nil {
				t.Fatalf("expected success for %s, got %v", status, err)
			}
			if canceled.Status != availability.StatusCanceled {
				t.Fatalf("expected canceled status, got %s", canceled.Status)
			}
		}
	})

	t.Run("refuses to cancel twice", func(t *testing.T) {
		repo := withStatus(availability.StatusCanceled)
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		if _, err := svc.Cancel(context.Background(), "res-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("re-requests denied reservations after re-verifying the calendar", func(t *testing.T) {
		repo := withStatus(availability.StatusDenied)
		checker := &checkerStub{}
		svc := NewReservationService(repo, nil, checker, 0, nil, nil)

		requested, err := svc.Request(context.Background(), "res-1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if requested.Status != availability.StatusRequested {
			t.Fatalf("expected requested status, got %s", requested.Status)
		}
		if checker.lastExcludeID != "res-1" {
			t.Fatalf("expected own id to be excluded, got %q", checker.lastExcludeID)
		}
	})

	t.Run("re-requesting honors the user cap", func(t *testing.T) {
		repo := withStatus(availability.StatusCanceled)
		repo.activeCount = 3
		svc := NewReservationService(repo, nil, nil, 3, nil, nil)

		if _, err := svc.Request(context.Background(), "res-1"); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("expected ErrLimitExceeded, got %v", err)
		}
	})

	t.Run("re-requesting fails when the slot was taken meanwhile", func(t *testing.T) {
		repo := withStatus(availability.StatusDenied)
		checker := &checkerStub{result: availability.Result{HasReservationConflict: true}}
		svc := NewReservationService(repo, nil, checker, 0, nil, nil)

		_, err := svc.Request(context.Background(), "res-1")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("refuses to re-request active reservations", func(t *testing.T) {
		repo := withStatus(availability.StatusRequested)
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		if _, err := svc.Request(context.Background(), "res-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestReservationService_DeleteReservation(t *testing.T) {
	t.Run("invalidates caches after deletion", func(t *testing.T) {
		repo := &reservationRepoStub{}
		invalidator := &invalidatorStub{}
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)
		svc.SetInvalidator(invalidator)

		if err := svc.DeleteReservation(context.Background(), "res-1"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if repo.deletedID != "res-1" {
			t.Fatalf("expected repository to receive reservation ID, got %q", repo.deletedID)
		}
		if invalidator.calls != 1 {
			t.Fatalf("expected one cache invalidation, got %d", invalidator.calls)
		}
	})

	t.Run("propagates ErrNotFound", func(t *testing.T) {
		repo := &reservationRepoStub{deleteErr: persistence.ErrNotFound}
		svc := NewReservationService(repo, nil, nil, 0, nil, nil)

		if err := svc.DeleteReservation(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
