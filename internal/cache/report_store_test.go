package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-reservations/internal/application"
	"github.com/example/facility-reservations/internal/availability"
)

type failingStore struct {
	getErr error
	setErr error
}

func (f *failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.setErr
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, f.getErr
}

func (f *failingStore) Del(ctx context.Context, key string) error { return nil }

func (f *failingStore) Ping(ctx context.Context) error { return nil }

func sampleReport() application.AvailabilityReport {
	start := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	return application.AvailabilityReport{
		RoomID:       "room-1",
		RoomName:     "Boardroom",
		LocationID:   "loc-1",
		LocationName: "Main Campus",
		Result: availability.Result{
			RequestedDurationMins: 60,
			Schedule: []availability.ScheduleSegment{{
				Start:           start,
				End:             start.Add(8 * time.Hour),
				Kind:            availability.SegmentOpenFree,
				DurationMinutes: 480,
			}},
		},
	}
}

func TestReportStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore(NewMemoryStore(nil), time.Minute)
	report := sampleReport()

	require.NoError(t, store.StoreReport(ctx, "question-1", report))

	got, ok, err := store.GetReport(ctx, "question-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.RoomID, got.RoomID)
	assert.Equal(t, report.LocationName, got.LocationName)
	require.Len(t, got.Result.Schedule, 1)
	assert.Equal(t, availability.SegmentOpenFree, got.Result.Schedule[0].Kind)
	assert.Equal(t, 480, got.Result.Schedule[0].DurationMinutes)
}

func TestReportStore_MissForUnknownKey(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore(NewMemoryStore(nil), time.Minute)

	_, ok, err := store.GetReport(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportStore_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	kv := NewMemoryStore(func() time.Time { return current })
	store := NewReportStore(kv, time.Minute)

	require.NoError(t, store.StoreReport(ctx, "question-1", sampleReport()))

	current = current.Add(2 * time.Minute)
	_, ok, err := store.GetReport(ctx, "question-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportStore_DropsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore(nil)
	store := NewReportStore(kv, time.Minute)

	require.NoError(t, kv.Set(ctx, "availability_report_v1:question-1", "{not json", 0))

	_, ok, err := store.GetReport(ctx, "question-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := kv.Get(ctx, "availability_report_v1:question-1")
	require.NoError(t, err)
	assert.False(t, found, "expected corrupt entry to be deleted")
}

func TestReportStore_PropagatesBackendErrors(t *testing.T) {
	ctx := context.Background()
	backend := &failingStore{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}
	store := NewReportStore(backend, time.Minute)

	_, _, err := store.GetReport(ctx, "question-1")
	assert.Error(t, err)

	err = store.StoreReport(ctx, "question-1", sampleReport())
	assert.Error(t, err)
}
