package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
	"github.com/example/facility-reservations/internal/timeutil"
)

// LocationRepository captures the persistence operations needed by the service.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) (Location, error)
	GetLocation(ctx context.Context, id string) (Location, error)
	UpdateLocation(ctx context.Context, location Location) (Location, error)
	DeleteLocation(ctx context.Context, id string) error
	ListLocations(ctx context.Context) ([]Location, error)
}

// LocationService orchestrates validation and persistence for locations and
// their weekly operating hours.
type LocationService struct {
	locations   LocationRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewLocationService constructs a location service with the provided dependencies.
func NewLocationService(locations LocationRepository, idGenerator func() string, now func() time.Time) *LocationService {
	return NewLocationServiceWithLogger(locations, idGenerator, now, nil)
}

// NewLocationServiceWithLogger constructs a location service with a specified logger.
func NewLocationServiceWithLogger(locations LocationRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LocationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LocationService{locations: locations, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *LocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LocationService", operation, attrs...)
}

// CreateLocation validates input and persists a new location.
func (s *LocationService) CreateLocation(ctx context.Context, input LocationInput) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateLocation")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create location", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("location_id", location.ID).InfoContext(ctx, "location created")
	}()

	var hours map[time.Weekday]Hours
	hours, err = parseLocationInput(input)
	if err != nil {
		return
	}

	location = Location{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(input.Name),
		WeeklyHours: hours,
		CreatedAt:   s.now(),
	}
	location.UpdatedAt = location.CreatedAt

	if s.locations == nil {
		return
	}

	var persisted Location
	persisted, err = s.locations.CreateLocation(ctx, location)
	if err != nil {
		err = mapLocationRepoError(err)
		return
	}

	location = persisted
	return
}

// UpdateLocation validates input and updates an existing location, replacing
// its weekly hours.
func (s *LocationService) UpdateLocation(ctx context.Context, params UpdateLocationParams) (location Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		err = fmt.Errorf("location repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateLocation",
		"location_id", params.LocationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update location", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("location_id", location.ID).InfoContext(ctx, "location updated")
	}()

	var existing Location
	existing, err = s.locations.GetLocation(ctx, params.LocationID)
	if err != nil {
		err = mapLocationRepoError(err)
		return
	}

	var hours map[time.Weekday]Hours
	hours, err = parseLocationInput(params.Input)
	if err != nil {
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.WeeklyHours = hours
	updated.UpdatedAt = s.now()

	location, err = s.locations.UpdateLocation(ctx, updated)
	if err != nil {
		err = mapLocationRepoError(err)
		return
	}

	return
}

// GetLocation returns a single location by id.
func (s *LocationService) GetLocation(ctx context.Context, locationID string) (Location, error) {
	if s == nil {
		return Location{}, fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return Location{}, ErrNotFound
	}

	location, err := s.locations.GetLocation(ctx, locationID)
	if err != nil {
		return Location{}, mapLocationRepoError(err)
	}
	return location, nil
}

// DeleteLocation removes an existing location.
func (s *LocationService) DeleteLocation(ctx context.Context, locationID string) error {
	if s == nil {
		return fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return fmt.Errorf("location repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteLocation",
		"location_id", locationID,
	)

	if err := s.locations.DeleteLocation(ctx, locationID); err != nil {
		err = mapLocationRepoError(err)
		logger.ErrorContext(ctx, "failed to delete location", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "location deleted")
	return nil
}

// ListLocations returns the location catalog ordered by name.
func (s *LocationService) ListLocations(ctx context.Context) (locations []Location, err error) {
	if s == nil {
		err = fmt.Errorf("LocationService is nil")
		return
	}
	if s.locations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListLocations")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list locations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(locations)).InfoContext(ctx, "locations listed")
	}()

	var raw []Location
	raw, err = s.locations.ListLocations(ctx)
	if err != nil {
		err = mapLocationRepoError(err)
		return
	}

	locations = make([]Location, len(raw))
	copy(locations, raw)

	sort.Slice(locations, func(i, j int) bool {
		if strings.EqualFold(locations[i].Name, locations[j].Name) {
			return locations[i].ID < locations[j].ID
		}
		return strings.ToLower(locations[i].Name) < strings.ToLower(locations[j].Name)
	})

	return
}

func parseLocationInput(input LocationInput) (map[time.Weekday]Hours, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}

	hours := make(map[time.Weekday]Hours, len(input.WeeklyHours))
	for weekday, day := range input.WeeklyHours {
		if weekday < time.Sunday || weekday > time.Saturday {
			vErr.add("weekly_hours", "weekday must be between 0 and 6")
			continue
		}

		field := fmt.Sprintf("weekly_hours.%d", int(weekday))
		start, startErr := timeutil.ParseClock(day.Start)
		if startErr != nil {
			vErr.add(field, "start must be a 24-hour HHMM clock")
			continue
		}
		end, endErr := timeutil.ParseClock(day.End)
		if endErr != nil {
			vErr.add(field, "end must be a 24-hour HHMM clock")
			continue
		}
		if start >= end {
			vErr.add(field, "start must be before end")
			continue
		}

		hours[weekday] = Hours{Start: start, End: end}
	}

	if vErr.HasErrors() {
		return nil, vErr
	}
	return hours, nil
}

func mapLocationRepoError(err error) error {
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
		vErr.add("weekly_hours", "start must be before end")
		return vErr
	}
	return err
}
