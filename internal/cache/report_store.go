package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/facility-reservations/internal/application"
)

// reportKeyFormat versions the cached report encoding so that incompatible
// releases do not read each other's entries.
const reportKeyFormat = "availability_report_v1:%s"

// ReportStore persists computed availability reports as JSON in a key-value
// store. It satisfies the application layer's report store interface.
type ReportStore struct {
	kv  KeyValueStore
	ttl time.Duration
}

// NewReportStore constructs a report store. A non-positive TTL defaults to
// one minute.
func NewReportStore(kv KeyValueStore, ttl time.Duration) *ReportStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReportStore{kv: kv, ttl: ttl}
}

// GetReport retrieves a cached report. A missing or undecodable entry is a
// miss; undecodable entries are dropped so they are recomputed.
func (s *ReportStore) GetReport(ctx context.Context, key string) (application.AvailabilityReport, bool, error) {
	raw, ok, err := s.kv.Get(ctx, fmt.Sprintf(reportKeyFormat, key))
	if err != nil {
		return application.AvailabilityReport{}, false, fmt.Errorf("failed to get report from cache: %w", err)
	}
	if !ok {
		return application.AvailabilityReport{}, false, nil
	}

	var report application.AvailabilityReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		_ = s.kv.Del(ctx, fmt.Sprintf(reportKeyFormat, key))
		return application.AvailabilityReport{}, false, nil
	}
	return report, true, nil
}

// StoreReport caches a report under the given key for the configured TTL.
func (s *ReportStore) StoreReport(ctx context.Context, key string, report application.AvailabilityReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := s.kv.Set(ctx, fmt.Sprintf(reportKeyFormat, key), string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to store report in cache: %w", err)
	}
	return nil
}
