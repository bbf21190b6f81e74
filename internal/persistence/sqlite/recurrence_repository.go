package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/facility-reservations/internal/persistence"
)

// RecurrenceRepository implements persistence.RecurrenceRepository using SQLite
type RecurrenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRecurrenceRepository creates a new SQLite recurrence repository
func NewRecurrenceRepository(pool *ConnectionPool) *RecurrenceRepository {
	return &RecurrenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertRecurrence creates or updates a recurrence rule
func (r *RecurrenceRepository) UpsertRecurrence(ctx context.Context, rule persistence.RecurrenceRule) error {
	if rule.ID == "" || rule.SeriesID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := r.validateRecurrence(rule); err != nil {
		return err
	}

	rule.StartsOn = rule.StartsOn.UTC()
	if rule.EndsOn != nil {
		endsOn := rule.EndsOn.UTC()
		rule.EndsOn = &endsOn
	}

	now := time.Now().UTC()
	rule.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Updates keep the original created_at
		var existingCreatedAt sql.NullString
		err := r.helper.QueryRowTx(tx, "SELECT created_at FROM recurrence_rules WHERE id = ?", rule.ID).Scan(&existingCreatedAt)
		if err != nil && err != sql.ErrNoRows {
			return r.mapper.MapError(err)
		}

		if existingCreatedAt.Valid {
			if rule.CreatedAt, err = time.Parse(time.RFC3339, existingCreatedAt.String); err != nil {
				return fmt.Errorf("failed to parse existing created_at: %w", err)
			}
		} else {
			rule.CreatedAt = now
		}

		var endsOn sql.NullString
		if rule.EndsOn != nil {
			endsOn.String = rule.EndsOn.Format(time.RFC3339)
			endsOn.Valid = true
		}

		query := `
			INSERT OR REPLACE INTO recurrence_rules
			(id, series_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err = r.helper.ExecTx(tx, query,
			rule.ID,
			rule.SeriesID,
			rule.Frequency,
			encodeWeekdays(rule.Weekdays),
			rule.StartsOn.Format(time.RFC3339),
			endsOn,
			rule.CreatedAt.Format(time.RFC3339),
			rule.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapRecurrenceError(err)
		}

		return nil
	})
}

// ListRecurrencesForSeries lists recurrence rules attached to a reservation
// series, ordered by creation time
func (r *RecurrenceRepository) ListRecurrencesForSeries(ctx context.Context, seriesID string) ([]persistence.RecurrenceRule, error) {
	if seriesID == "" {
		return []persistence.RecurrenceRule{}, nil
	}

	query := `
		SELECT id, series_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at
		FROM recurrence_rules
		WHERE series_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, seriesID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rules []persistence.RecurrenceRule

	for rows.Next() {
		var rule persistence.RecurrenceRule
		var startsOnStr, createdAtStr, updatedAtStr string
		var endsOn sql.NullString
		var weekdayMask int64

		err := rows.Scan(
			&rule.ID,
			&rule.SeriesID,
			&rule.Frequency,
			&weekdayMask,
			&startsOnStr,
			&endsOn,
			&createdAtStr,
			&updatedAtStr,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		rule.Weekdays = decodeWeekdays(weekdayMask)

		if endsOn.Valid {
			if rule.EndsOn, err = parseTimePtr(endsOn.String); err != nil {
				return nil, fmt.Errorf("failed to parse ends_on: %w", err)
			}
		}

		if rule.StartsOn, err = time.Parse(time.RFC3339, startsOnStr); err != nil {
			return nil, fmt.Errorf("failed to parse starts_on: %w", err)
		}
		if rule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if rule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rules, nil
}

// DeleteRecurrence deletes a recurrence by ID
func (r *RecurrenceRepository) DeleteRecurrence(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM recurrence_rules WHERE id = ?", id)
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

// DeleteRecurrencesForSeries deletes all recurrences attached to a series
func (r *RecurrenceRepository) DeleteRecurrencesForSeries(ctx context.Context, seriesID string) error {
	if seriesID == "" {
		return nil
	}

	_, err := r.helper.Exec(ctx, "DELETE FROM recurrence_rules WHERE series_id = ?", seriesID)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

func (r *RecurrenceRepository) validateRecurrence(rule persistence.RecurrenceRule) error {
	if rule.EndsOn != nil && rule.EndsOn.Before(rule.StartsOn) {
		return persistence.ErrConstraintViolation
	}
	if rule.Frequency <= 0 {
		return persistence.ErrConstraintViolation
	}
	return nil
}

// mapRecurrenceError maps SQLite errors to appropriate persistence errors for
// recurrence operations
func (r *RecurrenceRepository) mapRecurrenceError(err error) error {
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

// parseTimePtr parses a time string and returns a pointer to the time
func parseTimePtr(timeStr string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// encodeWeekdays encodes weekdays as a bitmask for storage
func encodeWeekdays(weekdays []time.Weekday) int64 {
	var mask int64
	for _, day := range weekdays {
		if day >= time.Sunday && day <= time.Saturday {
			mask |= 1 << uint(day)
		}
	}
	return mask
}

// decodeWeekdays decodes weekdays from a bitmask
func decodeWeekdays(mask int64) []time.Weekday {
	var weekdays []time.Weekday
	for day := time.Sunday; day <= time.Saturday; day++ {
		if mask&(1<<uint(day)) != 0 {
			weekdays = append(weekdays, day)
		}
	}
	return weekdays
}
