package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
)

// LocationRepository implements persistence.LocationRepository using SQLite
type LocationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewLocationRepository creates a new SQLite location repository
func NewLocationRepository(pool *ConnectionPool) *LocationRepository {
	return &LocationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateLocation inserts a location and its weekly hours in one transaction
func (r *LocationRepository) CreateLocation(ctx context.Context, location persistence.Location) error {
	if location.ID == "" || location.Name == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	location.CreatedAt = now
	location.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO locations (id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`
		if _, err := r.helper.ExecTx(tx, query,
			location.ID,
			location.Name,
			location.CreatedAt.Format(time.RFC3339),
			location.UpdatedAt.Format(time.RFC3339),
		); err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertHours(tx, location.ID, location.WeeklyHours)
	})
}

// UpdateLocation updates a location and replaces its weekly hours
func (r *LocationRepository) UpdateLocation(ctx context.Context, location persistence.Location) error {
	if location.ID == "" || location.Name == "" {
		return persistence.ErrConstraintViolation
	}

	location.UpdatedAt = time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx,
			`UPDATE locations SET name = ?, updated_at = ? WHERE id = ?`,
			location.Name,
			location.UpdatedAt.Format(time.RFC3339),
			location.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx,
			`DELETE FROM location_hours WHERE location_id = ?`, location.ID); err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertHours(tx, location.ID, location.WeeklyHours)
	})
}

// GetLocation retrieves a location and its weekly hours by ID
func (r *LocationRepository) GetLocation(ctx context.Context, id string) (persistence.Location, error) {
	if id == "" {
		return persistence.Location{}, persistence.ErrNotFound
	}

	var location persistence.Location
	var createdAtStr, updatedAtStr string

	err := r.helper.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM locations WHERE id = ?`, id,
	).Scan(&location.ID, &location.Name, &createdAtStr, &updatedAtStr)
	if err != nil {
		return persistence.Location{}, r.mapper.MapError(err)
	}

	location.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	location.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)

	hours, err := r.loadHours(ctx, id)
	if err != nil {
		return persistence.Location{}, err
	}
	location.WeeklyHours = hours

	return location, nil
}

// ListLocations retrieves all locations ordered by name
func (r *LocationRepository) ListLocations(ctx context.Context) ([]persistence.Location, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM locations ORDER BY name, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var locations []persistence.Location
	for rows.Next() {
		var location persistence.Location
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&location.ID, &location.Name, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		location.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
		location.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locations: %w", err)
	}

	for i := range locations {
		hours, err := r.loadHours(ctx, locations[i].ID)
		if err != nil {
			return nil, err
		}
		locations[i].WeeklyHours = hours
	}

	return locations, nil
}

// DeleteLocation removes a location; its hours cascade
func (r *LocationRepository) DeleteLocation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *LocationRepository) insertHours(tx *sql.Tx, locationID string, hours map[time.Weekday]persistence.DayHours) error {
	for weekday, day := range hours {
		if _, err := r.helper.ExecTx(tx,
			`INSERT INTO location_hours (location_id, weekday, start_clock, end_clock) VALUES (?, ?, ?, ?)`,
			locationID, int(weekday), day.StartClock, day.EndClock,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *LocationRepository) loadHours(ctx context.Context, locationID string) (map[time.Weekday]persistence.DayHours, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT weekday, start_clock, end_clock FROM location_hours WHERE location_id = ? ORDER BY weekday`,
		locationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	hours := make(map[time.Weekday]persistence.DayHours)
	for rows.Next() {
		var weekday, startClock, endClock int
		if err := rows.Scan(&weekday, &startClock, &endClock); err != nil {
			return nil, fmt.Errorf("failed to scan location hours: %w", err)
		}
		hours[time.Weekday(weekday)] = persistence.DayHours{StartClock: startClock, EndClock: endClock}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location hours: %w", err)
	}

	return hours, nil
}
