package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. Instants are stored as UTC RFC3339 strings, so range predicates
// compare lexicographically.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateReservation inserts a new reservation into the database
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.RoomID == "" || reservation.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := validateReservationTimes(reservation); err != nil {
		return err
	}

	// Zero timestamps fall back to the wall clock.
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = now
	}

	query := `
		INSERT INTO reservations (id, room_id, user_id, start_time, end_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		reservation.ID,
		reservation.RoomID,
		reservation.UserID,
		reservation.Start.UTC().Format(time.RFC3339),
		reservation.End.UTC().Format(time.RFC3339),
		reservation.Status,
		reservation.CreatedAt.Format(time.RFC3339),
		reservation.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapReservationError(err)
	}

	return nil
}

// UpdateReservation updates an existing reservation. The owning user is
// immutable once the reservation exists.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.RoomID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := validateReservationTimes(reservation); err != nil {
		return err
	}

	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = time.Now().UTC()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var currentUserID string
		err := r.helper.QueryRowTx(tx, "SELECT user_id FROM reservations WHERE id = ?", reservation.ID).Scan(&currentUserID)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		query := `
			UPDATE reservations
			SET room_id = ?, start_time = ?, end_time = ?, status = ?, updated_at = ?
			WHERE id = ?
		`

		result, err := r.helper.ExecTx(tx, query,
			reservation.RoomID,
			reservation.Start.UTC().Format(time.RFC3339),
			reservation.End.UTC().Format(time.RFC3339),
			reservation.Status,
			reservation.UpdatedAt.Format(time.RFC3339),
			reservation.ID,
		)
		if err != nil {
			return r.mapReservationError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// GetReservation retrieves a reservation by ID from the database
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM reservations
		WHERE id = ?
	`

	row := r.helper.QueryRow(ctx, query, id)
	reservation, err := scanReservation(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}

	return reservation, nil
}

// ListReservations lists reservations matching the provided filter
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query, args := r.buildListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// ListOverlapping returns calendar-occupying reservations (requested or
// approved) whose half-open interval intersects the window, ordered by start
// time then id. A reservation ending exactly at the window start, or starting
// exactly at the window end, does not intersect. When excludeID is non-empty
// that reservation is skipped.
func (r *ReservationRepository) ListOverlapping(ctx context.Context, roomID string, windowStart, windowEnd time.Time, excludeID string) ([]persistence.Reservation, error) {
	if roomID == "" {
		return nil, persistence.ErrNotFound
	}
	if !windowStart.Before(windowEnd) {
		return nil, persistence.ErrConstraintViolation
	}

	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM reservations
		WHERE room_id = ? AND status IN ('requested', 'approved') AND start_time < ? AND end_time > ?
	`
	args := []any{
		roomID,
		windowEnd.UTC().Format(time.RFC3339),
		windowStart.UTC().Format(time.RFC3339),
	}

	if excludeID != "" {
		query += " AND id != ?"
		args = append(args, excludeID)
	}

	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// CountActiveForUser counts requested or approved reservations for the user
// that have not yet ended at the reference instant.
func (r *ReservationRepository) CountActiveForUser(ctx context.Context, userID string, reference time.Time) (int, error) {
	if userID == "" {
		return 0, persistence.ErrNotFound
	}

	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE user_id = ? AND status IN ('requested', 'approved') AND end_time > ?
	`

	var count int
	err := r.helper.QueryRow(ctx, query, userID, reference.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	return count, nil
}

// DeleteReservation removes a reservation by ID from the database
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func validateReservationTimes(reservation persistence.Reservation) error {
	if !reservation.Start.Before(reservation.End) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func scanReservation(scan func(dest ...any) error) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var startTimeStr, endTimeStr, createdAtStr, updatedAtStr string

	err := scan(
		&reservation.ID,
		&reservation.RoomID,
		&reservation.UserID,
		&startTimeStr,
		&endTimeStr,
		&reservation.Status,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	if reservation.Start, err = time.Parse(time.RFC3339, startTimeStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if reservation.End, err = time.Parse(time.RFC3339, endTimeStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if reservation.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return reservation, nil
}

func collectReservations(rows *sql.Rows) ([]persistence.Reservation, error) {
	var reservations []persistence.Reservation

	for rows.Next() {
		reservation, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

// buildListQuery builds the SQL query for listing reservations with filters
func (r *ReservationRepository) buildListQuery(filter persistence.ReservationFilter) (string, []any) {
	baseQuery := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM reservations
	`

	var conditions []string
	var args []any

	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	if filter.StartsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}

	if filter.EndsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY start_time ASC, id ASC"

	return baseQuery, args
}

// mapReservationError maps SQLite errors to appropriate persistence errors
// for reservation operations
func (r *ReservationRepository) mapReservationError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if containsAny(errStr, "UNIQUE constraint failed") {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, "FOREIGN KEY constraint failed") {
		return persistence.ErrConstraintViolation
	}
	if containsAny(errStr, "CHECK constraint failed") {
		return persistence.ErrConstraintViolation
	}

	return r.mapper.MapError(err)
}
