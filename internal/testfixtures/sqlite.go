package testfixtures

import (
	"context"
	"testing"

	"github.com/example/facility-reservations/internal/persistence"
	"github.com/example/facility-reservations/internal/persistence/sqlite"
)

// StorageHarness provides repository access backed by an in-memory storage
// instance for integration-style persistence tests.
type StorageHarness struct {
	Locations    persistence.LocationRepository
	Rooms        persistence.RoomRepository
	Reservations persistence.ReservationRepository
	Recurrences  persistence.RecurrenceRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *StorageHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewStorageHarness constructs a StorageHarness over the in-memory storage,
// migrated and ready to use. A cleanup callback is registered with the
// provided testing.TB; callers may also invoke Close explicitly.
func NewStorageHarness(tb testing.TB) *StorageHarness {
	tb.Helper()

	storage, err := sqlite.Open("")
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &StorageHarness{
		Locations:    storage,
		Rooms:        storage,
		Reservations: storage,
		Recurrences:  storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
