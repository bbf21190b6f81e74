package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/persistence"
	"github.com/example/facility-reservations/internal/recurrence"
	"github.com/example/facility-reservations/internal/timeutil"
)

// ReservationFinder loads the reservation snapshot the engine computes over.
type ReservationFinder interface {
	ListOverlapping(ctx context.Context, roomID string, windowStart, windowEnd time.Time, excludeID string) ([]Reservation, error)
}

// ReportStore is an optional cross-process cache for computed reports. A miss
// is (zero, false, nil); errors are logged and treated as misses.
type ReportStore interface {
	GetReport(ctx context.Context, key string) (AvailabilityReport, bool, error)
	StoreReport(ctx context.Context, key string, report AvailabilityReport) error
}

// RecurrenceStore persists series recurrence rules so later series checks can
// replay them by series id alone.
type RecurrenceStore interface {
	UpsertRule(ctx context.Context, rule recurrence.Rule) error
	RulesForSeries(ctx context.Context, seriesID string) ([]recurrence.Rule, error)
}

// AvailabilityService loads room, location, and reservation snapshots and
// runs the availability engine over them.
type AvailabilityService struct {
	rooms        RoomCatalog
	locations    LocationDirectory
	reservations ReservationFinder
	engine       *availability.Engine
	series       *recurrence.Engine
	conv         *timeutil.Converter
	displayZone  *time.Location
	cache        *scheduleCache
	remote       ReportStore
	rules        RecurrenceStore
	idGenerator  func() string
	logger       *slog.Logger
}

// AvailabilityServiceConfig collects the service dependencies.
type AvailabilityServiceConfig struct {
	Rooms        RoomCatalog
	Locations    LocationDirectory
	Reservations ReservationFinder
	Converter    *timeutil.Converter
	// DefaultHours is the institution fallback window for locations with no
	// configured hours; the engine default applies when invalid.
	DefaultHours availability.DayHours
	// DisplayZone is the zone reports render in when a request names none.
	// Nil falls back to the storage zone.
	DisplayZone *time.Location
	CacheTTL    time.Duration
	Remote      ReportStore
	// Rules is an optional store for series recurrence rules. When set,
	// CheckSeries persists the supplied rule under its series id and can
	// replay a stored rule for requests naming only the series.
	Rules       RecurrenceStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAvailabilityService constructs an availability service.
func NewAvailabilityService(cfg AvailabilityServiceConfig) *AvailabilityService {
	conv := cfg.Converter
	if conv == nil {
		conv = timeutil.NewConverter(nil)
	}
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &AvailabilityService{
		rooms:        cfg.Rooms,
		locations:    cfg.Locations,
		reservations: cfg.Reservations,
		engine:       availability.NewEngine(conv, cfg.DefaultHours),
		series:       recurrence.NewEngine(conv),
		conv:         conv,
		displayZone:  cfg.DisplayZone,
		cache:        newScheduleCache(cfg.CacheTTL, 0, cfg.Now),
		remote:       cfg.Remote,
		rules:        cfg.Rules,
		idGenerator:  idGenerator,
		logger:       defaultLogger(cfg.Logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Invalidate drops every cached report. The reservation service calls it
// after each write.
func (s *AvailabilityService) Invalidate() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

// Check answers one availability question. Results are served from the
// in-process cache, then the optional remote store, before the snapshot is
// loaded and the engine runs.
func (s *AvailabilityService) Check(ctx context.Context, params AvailabilityParams) (report AvailabilityReport, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Check",
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"reservation_conflict", report.Result.HasReservationConflict,
			"open_hours_conflict", report.Result.HasOpenHoursConflict,
		).InfoContext(ctx, "availability computed")
	}()

	key := buildScheduleCacheKey(params)
	if cached, ok := s.cache.Get(key); ok {
		report = cached
		return
	}
	if s.remote != nil {
		cached, ok, remoteErr := s.remote.GetReport(ctx, key)
		if remoteErr != nil {
			logger.WarnContext(ctx, "report store read failed", "error", remoteErr)
		} else if ok {
			s.cache.Store(key, cached)
			report = cached
			return
		}
	}

	report, err = s.compute(ctx, params)
	if err != nil {
		return
	}

	if report.Result.HoursFellBack {
		logger.WarnContext(ctx, "location has no operating hours configured, default window applied",
			"location_id", report.LocationID)
	}

	s.cache.Store(key, report)
	if s.remote != nil {
		if storeErr := s.remote.StoreReport(ctx, key, report); storeErr != nil {
			logger.WarnContext(ctx, "report store write failed", "error", storeErr)
		}
	}
	return
}

// CheckInterval answers whether the exact interval is free, for reservation
// gating. The window is the interval itself.
func (s *AvailabilityService) CheckInterval(ctx context.Context, roomID string, start, end time.Time, excludeID string) (availability.Result, error) {
	if s == nil {
		return availability.Result{}, fmt.Errorf("AvailabilityService is nil")
	}

	duration := int(end.Sub(start).Minutes())
	if duration <= 0 {
		duration = 1
	}

	report, err := s.Check(ctx, AvailabilityParams{
		RoomID:               roomID,
		WindowStart:          start,
		WindowEnd:            end,
		DurationMinutes:      duration,
		ExcludeReservationID: excludeID,
	})
	if err != nil {
		return availability.Result{}, err
	}
	return report.Result, nil
}

// CheckSeries evaluates a recurrence rule's candidates across the given
// rooms. Each room/candidate pair runs in its own goroutine; the engine
// computes over immutable snapshots, so the fan-out needs no locking beyond
// result collection.
func (s *AvailabilityService) CheckSeries(ctx context.Context, params SeriesAvailabilityParams) (results []CandidateAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CheckSeries",
		"series_id", params.Rule.SeriesID,
		"room_count", len(params.RoomIDs),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute series availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("candidate_count", len(results)).InfoContext(ctx, "series availability computed")
	}()

	rule := params.Rule
	persistRule := false
	if rule.SeriesID != "" && s.rules != nil {
		if rule.Frequency == recurrence.FrequencyUnspecified {
			var stored []recurrence.Rule
			stored, err = s.rules.RulesForSeries(ctx, rule.SeriesID)
			if err != nil {
				return
			}
			if len(stored) == 0 {
				vErr := &ValidationError{}
				vErr.add("series_id", "no stored recurrence rule for this series")
				err = vErr
				return
			}
			// The most recently created rule wins.
			rule = stored[len(stored)-1]
		} else {
			persistRule = true
		}
	}

	opts := recurrence.GenerateOptions{}
	if !params.RangeStart.IsZero() {
		rangeStart := params.RangeStart
		opts.RangeStart = &rangeStart
	}
	if !params.RangeEnd.IsZero() {
		rangeEnd := params.RangeEnd
		opts.RangeEnd = &rangeEnd
	}

	var candidates []recurrence.Candidate
	candidates, err = s.series.GenerateCandidates(rule, params.BaseStart, params.BaseEnd, opts)
	if err != nil {
		return
	}

	if persistRule {
		if rule.ID == "" {
			rule.ID = s.idGenerator()
		}
		if storeErr := s.rules.UpsertRule(ctx, rule); storeErr != nil {
			err = fmt.Errorf("failed to persist series rule: %w", storeErr)
			return
		}
	}
	if len(candidates) == 0 || len(params.RoomIDs) == 0 {
		return nil, nil
	}

	duration := params.DurationMinutes
	if duration <= 0 {
		duration = int(params.BaseEnd.Sub(params.BaseStart).Minutes())
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, roomID := range params.RoomIDs {
		for _, candidate := range candidates {
			wg.Add(1)
			go func(roomID string, candidate recurrence.Candidate) {
				defer wg.Done()

				report, checkErr := s.Check(ctx, AvailabilityParams{
					RoomID:          roomID,
					WindowStart:     candidate.Start,
					WindowEnd:       candidate.End,
					DurationMinutes: duration,
					DisplayZone:     params.DisplayZone,
				})

				mu.Lock()
				results = append(results, CandidateAvailability{
					RoomID:    roomID,
					Candidate: candidate,
					Report:    report,
					Err:       checkErr,
				})
				mu.Unlock()
			}(roomID, candidate)
		}
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].RoomID != results[j].RoomID {
			return results[i].RoomID < results[j].RoomID
		}
		return results[i].Candidate.Start.Before(results[j].Candidate.Start)
	})

	return results, nil
}

// compute loads the snapshot and runs the engine without consulting caches.
func (s *AvailabilityService) compute(ctx context.Context, params AvailabilityParams) (AvailabilityReport, error) {
	if s.rooms == nil || s.locations == nil || s.reservations == nil {
		return AvailabilityReport{}, fmt.Errorf("availability service is missing repositories")
	}

	room, err := s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return AvailabilityReport{}, fmt.Errorf("%w: room does not exist", availability.ErrInvalidRequest)
		}
		return AvailabilityReport{}, err
	}

	location, err := s.locations.GetLocation(ctx, room.LocationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			// A dangling location reference behaves like one with no hours.
			location = Location{ID: room.LocationID}
		} else {
			return AvailabilityReport{}, err
		}
	}

	reservations, err := s.reservations.ListOverlapping(ctx, params.RoomID, params.WindowStart, params.WindowEnd, params.ExcludeReservationID)
	if err != nil {
		return AvailabilityReport{}, err
	}

	displayZone, err := s.resolveDisplayZone(params.DisplayZone)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("timezone", "unknown timezone")
		return AvailabilityReport{}, vErr
	}

	request := availability.Request{
		RoomID:          params.RoomID,
		WindowStart:     params.WindowStart,
		WindowEnd:       params.WindowEnd,
		DurationMinutes: params.DurationMinutes,
		DisplayZone:     displayZone,
	}
	if params.Start != nil {
		request.Start = *params.Start
	}
	if params.End != nil {
		request.End = *params.End
	}

	result, err := s.engine.Compute(
		toAvailabilityRoom(room),
		toAvailabilityLocation(location),
		request,
		toAvailabilityReservations(reservations),
	)
	if err != nil {
		return AvailabilityReport{}, err
	}

	report := AvailabilityReport{
		RoomID:       room.ID,
		RoomName:     room.Name,
		LocationID:   location.ID,
		LocationName: location.Name,
		Result:       result,
	}

	if params.Debug {
		for row := range availability.ScheduleRows(result, displayZone) {
			report.Rows = append(report.Rows, row)
		}
		for row := range availability.OpenHoursRows(result, displayZone) {
			report.OpenHoursRows = append(report.OpenHoursRows, row)
		}
	}

	return report, nil
}

func (s *AvailabilityService) resolveDisplayZone(name string) (*time.Location, error) {
	if name == "" {
		if s.displayZone != nil {
			return s.displayZone, nil
		}
		return s.conv.StorageZone(), nil
	}
	return timeutil.LoadZone(name)
}

func toAvailabilityRoom(room Room) availability.Room {
	return availability.Room{
		ID:               room.ID,
		LocationID:       room.LocationID,
		Name:             room.Name,
		Capacity:         availability.Capacity{Min: room.MinCapacity, Max: room.MaxCapacity},
		ApprovalRequired: room.ApprovalRequired,
	}
}

func toAvailabilityLocation(location Location) availability.Location {
	var hours map[time.Weekday]availability.DayHours
	if len(location.WeeklyHours) > 0 {
		hours = make(map[time.Weekday]availability.DayHours, len(location.WeeklyHours))
		for weekday, day := range location.WeeklyHours {
			hours[weekday] = availability.DayHours{Start: day.Start, End: day.End}
		}
	}
	return availability.Location{
		ID:          location.ID,
		Name:        location.Name,
		WeeklyHours: hours,
	}
}

func toAvailabilityReservations(reservations []Reservation) []availability.Reservation {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]availability.Reservation, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, availability.Reservation{
			ID:        reservation.ID,
			RoomID:    reservation.RoomID,
			Start:     reservation.Start,
			End:       reservation.End,
			Status:    reservation.Status,
			CreatedAt: reservation.CreatedAt,
		})
	}
	return out
}
