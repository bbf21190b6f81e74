package application

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// scheduleCache stores recently computed availability reports to avoid
// repeated snapshot loading and engine runs for identical questions while
// reservations remain unchanged.
type scheduleCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]scheduleCacheEntry
}

type scheduleCacheEntry struct {
	report    AvailabilityReport
	expiresAt time.Time
}

func newScheduleCache(ttl time.Duration, maxEntries int, now func() time.Time) *scheduleCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &scheduleCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]scheduleCacheEntry),
	}
}

func (c *scheduleCache) Get(key string) (AvailabilityReport, bool) {
	if c == nil {
		return AvailabilityReport{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return AvailabilityReport{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return AvailabilityReport{}, false
	}
	return entry.report, true
}

func (c *scheduleCache) Store(key string, report AvailabilityReport) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = scheduleCacheEntry{report: report, expiresAt: expiry}
}

func (c *scheduleCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]scheduleCacheEntry)
	c.mu.Unlock()
}

func (c *scheduleCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *scheduleCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func buildScheduleCacheKey(params AvailabilityParams) string {
	builder := strings.Builder{}
	builder.WriteString(params.RoomID)
	builder.WriteString("|")
	builder.WriteString(params.WindowStart.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(params.WindowEnd.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	if params.Start != nil {
		builder.WriteString(params.Start.UTC().Format(time.RFC3339Nano))
	}
	builder.WriteString("|")
	if params.End != nil {
		builder.WriteString(params.End.UTC().Format(time.RFC3339Nano))
	}
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(params.DurationMinutes))
	builder.WriteString("|")
	builder.WriteString(params.DisplayZone)
	builder.WriteString("|")
	builder.WriteString(params.ExcludeReservationID)
	builder.WriteString("|")
	builder.WriteString(strconv.FormatBool(params.Debug))
	return builder.String()
}
