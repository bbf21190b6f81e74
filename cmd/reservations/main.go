package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/example/facility-reservations/internal/application"
	"github.com/example/facility-reservations/internal/availability"
	"github.com/example/facility-reservations/internal/cache"
	"github.com/example/facility-reservations/internal/config"
	httptransport "github.com/example/facility-reservations/internal/http"
	"github.com/example/facility-reservations/internal/persistence"
	"github.com/example/facility-reservations/internal/persistence/sqlite"
	"github.com/example/facility-reservations/internal/recurrence"
	"github.com/example/facility-reservations/internal/timeutil"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	storageZone, err := timeutil.LoadZone(cfg.StorageTimezone)
	if err != nil {
		logger.Error("failed to load storage timezone", "error", err, "zone", cfg.StorageTimezone)
		os.Exit(1)
	}
	converter := timeutil.NewConverter(storageZone)

	displayZone, err := timeutil.LoadZone(cfg.DisplayTimezone)
	if err != nil {
		logger.Error("failed to load display timezone", "error", err, "zone", cfg.DisplayTimezone)
		os.Exit(1)
	}

	locations := newLocationRepositoryAdapter(sqlite.NewLocationRepository(pool))
	rooms := newRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	reservations := newReservationRepositoryAdapter(sqlite.NewReservationRepository(pool))
	recurrences := newRecurrenceStoreAdapter(sqlite.NewRecurrenceRepository(pool))

	var remote application.ReportStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := cache.NewRedisStore(client)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("report cache unreachable, continuing without guarantees", "error", err, "addr", cfg.RedisAddr)
		} else {
			logger.Info("report cache connected", "addr", cfg.RedisAddr)
		}
		cancel()

		remote = cache.NewReportStore(store, cfg.ReportCacheTTL)
	}

	idGenerator := uuid.NewString
	now := time.Now

	availabilityService := application.NewAvailabilityService(application.AvailabilityServiceConfig{
		Rooms:        rooms,
		Locations:    locations,
		Reservations: reservations,
		Converter:    converter,
		DefaultHours: availability.DayHours{
			Start: timeutil.Clock(cfg.DefaultOpenStart),
			End:   timeutil.Clock(cfg.DefaultOpenEnd),
		},
		DisplayZone: displayZone,
		CacheTTL:    cfg.ScheduleCacheTTL,
		Remote:      remote,
		Rules:       recurrences,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	})

	locationService := application.NewLocationServiceWithLogger(locations, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(rooms, locations, idGenerator, now, logger)
	reservationService := application.NewReservationServiceWithLogger(reservations, rooms, availabilityService, cfg.ReservationLimit, idGenerator, now, logger)
	reservationService.SetInvalidator(availabilityService)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Locations:    httptransport.NewLocationHandler(locationService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservations API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type locationRepositoryAdapter struct {
	repo persistence.LocationRepository
}

func newLocationRepositoryAdapter(repo persistence.LocationRepository) *locationRepositoryAdapter {
	return &locationRepositoryAdapter{repo: repo}
}

func (a *locationRepositoryAdapter) CreateLocation(ctx context.Context, location application.Location) (application.Location, error) {
	if err := a.repo.CreateLocation(ctx, toPersistenceLocation(location)); err != nil {
		return application.Location{}, err
	}
	stored, err := a.repo.GetLocation(ctx, location.ID)
	if err != nil {
		return application.Location{}, err
	}
	return toApplicationLocation(stored), nil
}

func (a *locationRepositoryAdapter) GetLocation(ctx context.Context, id string) (application.Location, error) {
	stored, err := a.repo.GetLocation(ctx, id)
	if err != nil {
		return application.Location{}, err
	}
	return toApplicationLocation(stored), nil
}

func (a *locationRepositoryAdapter) UpdateLocation(ctx context.Context, location application.Location) (application.Location, error) {
	if err := a.repo.UpdateLocation(ctx, toPersistenceLocation(location)); err != nil {
		return application.Location{}, err
	}
	stored, err := a.repo.GetLocation(ctx, location.ID)
	if err != nil {
		return application.Location{}, err
	}
	return toApplicationLocation(stored), nil
}

func (a *locationRepositoryAdapter) DeleteLocation(ctx context.Context, id string) error {
	return a.repo.DeleteLocation(ctx, id)
}

func (a *locationRepositoryAdapter) ListLocations(ctx context.Context) ([]application.Location, error) {
	models, err := a.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	locations := make([]application.Location, 0, len(models))
	for _, model := range models {
		locations = append(locations, toApplicationLocation(model))
	}
	return locations, nil
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationRooms(models), nil
}

func (a *roomRepositoryAdapter) ListRoomsForLocation(ctx context.Context, locationID string) ([]application.Room, error) {
	models, err := a.repo.ListRoomsForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return toApplicationRooms(models), nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, toReservationFilter(params))
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models), nil
}

func (a *reservationRepositoryAdapter) ListOverlapping(ctx context.Context, roomID string, windowStart, windowEnd time.Time, excludeID string) ([]application.Reservation, error) {
	models, err := a.repo.ListOverlapping(ctx, roomID, windowStart, windowEnd, excludeID)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models), nil
}

func (a *reservationRepositoryAdapter) CountActiveForUser(ctx context.Context, userID string, reference time.Time) (int, error) {
	return a.repo.CountActiveForUser(ctx, userID, reference)
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.repo.DeleteReservation(ctx, id)
}

type recurrenceStoreAdapter struct {
	repo persistence.RecurrenceRepository
}

func newRecurrenceStoreAdapter(repo persistence.RecurrenceRepository) *recurrenceStoreAdapter {
	return &recurrenceStoreAdapter{repo: repo}
}

func (a *recurrenceStoreAdapter) UpsertRule(ctx context.Context, rule recurrence.Rule) error {
	return a.repo.UpsertRecurrence(ctx, toPersistenceRecurrenceRule(rule))
}

func (a *recurrenceStoreAdapter) RulesForSeries(ctx context.Context, seriesID string) ([]recurrence.Rule, error) {
	models, err := a.repo.ListRecurrencesForSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rules := make([]recurrence.Rule, 0, len(models))
	for _, model := range models {
		rules = append(rules, toRecurrenceRule(model))
	}
	return rules, nil
}

func toPersistenceRecurrenceRule(rule recurrence.Rule) persistence.RecurrenceRule {
	return persistence.RecurrenceRule{
		ID:        rule.ID,
		SeriesID:  rule.SeriesID,
		Frequency: int(rule.Frequency),
		Weekdays:  rule.Weekdays,
		StartsOn:  rule.StartsOn,
		EndsOn:    rule.EndsOn,
	}
}

func toRecurrenceRule(model persistence.RecurrenceRule) recurrence.Rule {
	return recurrence.Rule{
		ID:        model.ID,
		SeriesID:  model.SeriesID,
		Frequency: recurrence.Frequency(model.Frequency),
		Weekdays:  model.Weekdays,
		StartsOn:  model.StartsOn,
		EndsOn:    model.EndsOn,
	}
}

func toPersistenceLocation(location application.Location) persistence.Location {
	model := persistence.Location{
		ID:        location.ID,
		Name:      location.Name,
		CreatedAt: location.CreatedAt,
		UpdatedAt: location.UpdatedAt,
	}
	if len(location.WeeklyHours) > 0 {
		model.WeeklyHours = make(map[time.Weekday]persistence.DayHours, len(location.WeeklyHours))
		for day, hours := range location.WeeklyHours {
			model.WeeklyHours[day] = persistence.DayHours{
				StartClock: int(hours.Start),
				EndClock:   int(hours.End),
			}
		}
	}
	return model
}

func toApplicationLocation(model persistence.Location) application.Location {
	location := application.Location{
		ID:        model.ID,
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if len(model.WeeklyHours) > 0 {
		location.WeeklyHours = make(map[time.Weekday]application.Hours, len(model.WeeklyHours))
		for day, hours := range model.WeeklyHours {
			location.WeeklyHours[day] = application.Hours{
				Start: timeutil.Clock(hours.StartClock),
				End:   timeutil.Clock(hours.EndClock),
			}
		}
	}
	return location
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:               room.ID,
		LocationID:       room.LocationID,
		Name:             room.Name,
		MinCapacity:      room.MinCapacity,
		MaxCapacity:      room.MaxCapacity,
		ApprovalRequired: room.ApprovalRequired,
		CreatedAt:        room.CreatedAt,
		UpdatedAt:        room.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:               model.ID,
		LocationID:       model.LocationID,
		Name:             model.Name,
		MinCapacity:      model.MinCapacity,
		MaxCapacity:      model.MaxCapacity,
		ApprovalRequired: model.ApprovalRequired,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func toApplicationRooms(models []persistence.Room) []application.Room {
	if len(models) == 0 {
		return nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms
}

func toReservationFilter(params application.ListReservationsParams) persistence.ReservationFilter {
	filter := persistence.ReservationFilter{
		RoomID:      params.RoomID,
		UserID:      params.UserID,
		StartsAfter: params.StartsAfter,
		EndsBefore:  params.EndsBefore,
	}
	for _, status := range params.Statuses {
		filter.Statuses = append(filter.Statuses, string(status))
	}
	return filter
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:        reservation.ID,
		RoomID:    reservation.RoomID,
		UserID:    reservation.UserID,
		Start:     reservation.Start,
		End:       reservation.End,
		Status:    string(reservation.Status),
		CreatedAt: reservation.CreatedAt,
		UpdatedAt: reservation.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:        model.ID,
		RoomID:    model.RoomID,
		UserID:    model.UserID,
		Start:     model.Start,
		End:       model.End,
		Status:    availability.Status(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toApplicationReservations(models []persistence.Reservation) []application.Reservation {
	if len(models) == 0 {
		return nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations
}
