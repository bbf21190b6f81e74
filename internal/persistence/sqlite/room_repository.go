package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a new room into the database
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.LocationID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.MaxCapacity <= 0 || room.MinCapacity < 0 || room.MinCapacity > room.MaxCapacity {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	query := `
		INSERT INTO rooms (id, location_id, name, min_capacity, max_capacity, approval_required, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.LocationID,
		room.Name,
		room.MinCapacity,
		room.MaxCapacity,
		boolToInt(room.ApprovalRequired),
		room.CreatedAt.Format(time.RFC3339),
		room.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapRoomError(err)
	}

	return nil
}

// UpdateRoom updates an existing room in the database
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.LocationID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.MaxCapacity <= 0 || room.MinCapacity < 0 || room.MinCapacity > room.MaxCapacity {
		return persistence.ErrConstraintViolation
	}

	room.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE rooms
		SET location_id = ?, name = ?, min_capacity = ?, max_capacity = ?, approval_required = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		room.LocationID,
		room.Name,
		room.MinCapacity,
		room.MaxCapacity,
		boolToInt(room.ApprovalRequired),
		room.UpdatedAt.Format(time.RFC3339),
		room.ID,
	)
	if err != nil {
		return r.mapRoomError(err)
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

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, location_id, name, min_capacity, max_capacity, approval_required, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`

	row := r.helper.QueryRow(ctx, query, id)
	room, err := scanRoom(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}

	return room, nil
}

// ListRooms returns all rooms ordered by name then ID
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	query := `
		SELECT id, location_id, name, min_capacity, max_capacity, approval_required, created_at, updated_at
		FROM rooms
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

// ListRoomsForLocation returns the rooms belonging to a location
func (r *RoomRepository) ListRoomsForLocation(ctx context.Context, locationID string) ([]persistence.Room, error) {
	if locationID == "" {
		return nil, persistence.ErrNotFound
	}

	query := `
		SELECT id, location_id, name, min_capacity, max_capacity, approval_required, created_at, updated_at
		FROM rooms
		WHERE location_id = ?
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, locationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

// DeleteRoom removes a room by ID from the database
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Reservations for the room go with it
		_, err := r.helper.ExecTx(tx, "DELETE FROM reservations WHERE room_id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM rooms WHERE id = ?", id)
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
	})
}

func scanRoom(scan func(dest ...any) error) (persistence.Room, error) {
	var room persistence.Room
	var approvalRequired int
	var createdAtStr, updatedAtStr string

	err := scan(
		&room.ID,
		&room.LocationID,
		&room.Name,
		&room.MinCapacity,
		&room.MaxCapacity,
		&approvalRequired,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	room.ApprovalRequired = approvalRequired != 0

	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mapRoomError maps SQLite errors to appropriate persistence errors for room operations
func (r *RoomRepository) mapRoomError(err error) error {
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
