package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
)

type locationRepoStub struct {
	createErr error
	created   Location

	getLocation Location
	getErr      error

	updateErr error
	updated   Location

	deleteErr error
	deletedID string

	list    []Location
	listErr error
}

func (l *locationRepoStub) CreateLocation(ctx context.Context, location Location) (Location, error) {
	if l.createErr != nil {
		return Location{}, l.createErr
	}
	l.created = location
	return location, nil
}

func (l *locationRepoStub) GetLocation(ctx context.Context, id string) (Location, error) {
	if l.getErr != nil {
		return Location{}, l.getErr
	}
	if l.getLocation.ID == "" {
		return Location{}, ErrNotFound
	}
	return l.getLocation, nil
}

func (l *locationRepoStub) UpdateLocation(ctx context.Context, location Location) (Location, error) {
	if l.updateErr != nil {
		return Location{}, l.updateErr
	}
	l.updated = location
	return location, nil
}

func (l *locationRepoStub) DeleteLocation(ctx context.Context, id string) error {
	if l.deleteErr != nil {
		return l.deleteErr
	}
	l.deletedID = id
	return nil
}

func (l *locationRepoStub) ListLocations(ctx context.Context) ([]Location, error) {
	if l.listErr != nil {
		return nil, l.listErr
	}
	out := make([]Location, len(l.list))
	copy(out, l.list)
	return out, nil
}

func TestLocationService_CreateLocation(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		svc := NewLocationService(nil, nil, nil)

		_, err := svc.CreateLocation(context.Background(), LocationInput{Name: "   "})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["name"]; !ok {
			t.Fatalf("expected name validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects malformed clocks", func(t *testing.T) {
		svc := NewLocationService(nil, nil, nil)

		_, err := svc.CreateLocation(context.Background(), LocationInput{
			Name: "Main Campus",
			WeeklyHours: map[time.Weekday]HoursInput{
				time.Monday:  {Start: 960, End: 1700},
				time.Tuesday: {Start: 900, End: 2475},
			},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["weekly_hours.1"]; !ok {
			t.Fatalf("expected Monday validation error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["weekly_hours.2"]; !ok {
			t.Fatalf("expected Tuesday validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects inverted hours", func(t *testing.T) {
		svc := NewLocationService(nil, nil, nil)

		_, err := svc.CreateLocation(context.Background(), LocationInput{
			Name: "Main Campus",
			WeeklyHours: map[time.Weekday]HoursInput{
				time.Friday: {Start: 1700, End: 900},
			},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if msg := vErr.FieldErrors["weekly_hours.5"]; msg != "start must be before end" {
			t.Fatalf("expected ordering error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("persists parsed weekly hours", func(t *testing.T) {
		repo := &locationRepoStub{}
		now := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
		svc := NewLocationService(repo, func() string { return "loc-1" }, func() time.Time { return now })

		created, err := svc.CreateLocation(context.Background(), LocationInput{
			Name: "  Main Campus  ",
			WeeklyHours: map[time.Weekday]HoursInput{
				time.Monday:   {Start: 900, End: 1700},
				time.Saturday: {Start: 1000, End: 1400},
			},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if repo.created.ID != "loc-1" {
			t.Fatalf("expected repository to receive generated ID, got %q", repo.created.ID)
		}
		if repo.created.Name != "Main Campus" {
			t.Fatalf("expected name to be trimmed, got %q", repo.created.Name)
		}
		monday, ok := repo.created.WeeklyHours[time.Monday]
		if !ok || monday.Start != 900 || monday.End != 1700 {
			t.Fatalf("expected Monday hours to be parsed, got %+v", repo.created.WeeklyHours)
		}
		if _, ok := repo.created.WeeklyHours[time.Sunday]; ok {
			t.Fatalf("expected absent weekdays to stay closed, got %+v", repo.created.WeeklyHours)
		}
		if !repo.created.CreatedAt.Equal(now) || !repo.created.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps to use injected clock")
		}

		if created.ID != "loc-1" {
			t.Fatalf("expected returned location to include generated ID, got %q", created.ID)
		}
	})

	t.Run("allows a location with no hours at all", func(t *testing.T) {
		repo := &locationRepoStub{}
		svc := NewLocationService(repo, func() string { return "loc-1" }, nil)

		created, err := svc.CreateLocation(context.Background(), LocationInput{Name: "Warehouse"})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(created.WeeklyHours) != 0 {
			t.Fatalf("expected empty weekly hours, got %+v", created.WeeklyHours)
		}
	})
}

func TestLocationService_UpdateLocation(t *testing.T) {
	t.Run("propagates ErrNotFound when the location is missing", func(t *testing.T) {
		repo := &locationRepoStub{getErr: persistence.ErrNotFound}
		svc := NewLocationService(repo, nil, nil)

		_, err := svc.UpdateLocation(context.Background(), UpdateLocationParams{
			LocationID: "missing",
			Input:      LocationInput{Name: "Main Campus"},
		})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("replaces the weekly hours wholesale", func(t *testing.T) {
		createdAt := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)
		existing := Location{
			ID:   "loc-1",
			Name: "Main Campus",
			WeeklyHours: map[time.Weekday]Hours{
				time.Monday:  {Start: 900, End: 1700},
				time.Tuesday: {Start: 900, End: 1700},
			},
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		repo := &locationRepoStub{getLocation: existing}
		now := time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC)
		svc := NewLocationService(repo, nil, func() time.Time { return now })

		updated, err := svc.UpdateLocation(context.Background(), UpdateLocationParams{
			LocationID: "loc-1",
			Input: LocationInput{
				Name: "Main Campus",
				WeeklyHours: map[time.Weekday]HoursInput{
					time.Wednesday: {Start: 800, End: 1200},
				},
			},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if len(repo.updated.WeeklyHours) != 1 {
			t.Fatalf("expected hours to be replaced, got %+v", repo.updated.WeeklyHours)
		}
		if _, ok := repo.updated.WeeklyHours[time.Wednesday]; !ok {
			t.Fatalf("expected Wednesday hours, got %+v", repo.updated.WeeklyHours)
		}
		if !repo.updated.UpdatedAt.Equal(now) {
			t.Fatalf("expected updated timestamp to use injected clock, got %v", repo.updated.UpdatedAt)
		}
		if !repo.updated.CreatedAt.Equal(createdAt) {
			t.Fatalf("expected created timestamp to remain unchanged")
		}
		if updated.ID != "loc-1" {
			t.Fatalf("expected returned location to include ID, got %q", updated.ID)
		}
	})
}

func TestLocationService_ListLocations(t *testing.T) {
	repo := &locationRepoStub{list: []Location{
		{ID: "loc-2", Name: "Beta"},
		{ID: "loc-3", Name: "alpha"},
		{ID: "loc-1", Name: "Alpha"},
	}}
	svc := NewLocationService(repo, nil, nil)

	got, err := svc.ListLocations(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected three locations, got %d", len(got))
	}
	if got[0].ID != "loc-1" || got[1].ID != "loc-3" || got[2].ID != "loc-2" {
		t.Fatalf("expected case-insensitive ordering, got %+v", got)
	}
}

func TestLocationService_DeleteLocation(t *testing.T) {
	t.Run("propagates ErrNotFound when the location is missing", func(t *testing.T) {
		repo := &locationRepoStub{deleteErr: persistence.ErrNotFound}
		svc := NewLocationService(repo, nil, nil)

		if err := svc.DeleteLocation(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("deletes existing locations", func(t *testing.T) {
		repo := &locationRepoStub{}
		svc := NewLocationService(repo, nil, nil)

		if err := svc.DeleteLocation(context.Background(), "loc-1"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if repo.deletedID != "loc-1" {
			t.Fatalf("expected repository to receive location ID, got %q", repo.deletedID)
		}
	})
}
