// Package timeutil centralizes conversions between the canonical storage
// timezone and display timezones so that zone logic is not duplicated across
// the availability engine, formatters, and HTTP handlers.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidClock indicates an HHMM clock value outside 0000-2359.
var ErrInvalidClock = errors.New("timeutil: invalid HHMM clock value")

// Clock is a 24-hour wall clock time encoded as an HHMM integer, e.g. 900 for
// 09:00 and 2130 for 21:30.
type Clock int

// ParseClock validates an HHMM integer and returns it as a Clock.
func ParseClock(v int) (Clock, error) {
	c := Clock(v)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %04d", ErrInvalidClock, v)
	}
	return c, nil
}

// ClockFromMinutes converts minutes since midnight into a Clock.
func ClockFromMinutes(minutes int) Clock {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 24*60-1 {
		minutes = 24*60 - 1
	}
	return Clock(minutes/60*100 + minutes%60)
}

// Hour returns the hour component (0-23).
func (c Clock) Hour() int { return int(c) / 100 }

// Minute returns the minute component (0-59).
func (c Clock) Minute() int { return int(c) % 100 }

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int { return c.Hour()*60 + c.Minute() }

// Valid reports whether the clock encodes a real wall time.
func (c Clock) Valid() bool {
	return c >= 0 && c.Hour() <= 23 && c.Minute() <= 59
}

// String renders the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Converter maps instants between the storage timezone and display timezones.
// Instants are preserved exactly; only wall-clock renderings change. A nil or
// zero Converter operates in UTC.
type Converter struct {
	storage *time.Location
}

// NewConverter constructs a Converter bound to the given storage timezone.
// When loc is nil, UTC is used.
func NewConverter(loc *time.Location) *Converter {
	if loc == nil {
		loc = time.UTC
	}
	return &Converter{storage: loc}
}

// LoadZone resolves a zone name from the system zone database. An empty name
// resolves to UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// StorageZone returns the canonical storage timezone.
func (c *Converter) StorageZone() *time.Location {
	if c == nil || c.storage == nil {
		return time.UTC
	}
	return c.storage
}

// ToStorage re-expresses an instant in the storage timezone.
func (c *Converter) ToStorage(t time.Time) time.Time {
	return t.In(c.StorageZone())
}

// ToZone re-expresses an instant in the given timezone. The mapping is
// reversible at instant precision; clock strings are not round-trip stable
// across DST transitions.
func (c *Converter) ToZone(t time.Time, zone *time.Location) time.Time {
	if zone == nil {
		zone = c.StorageZone()
	}
	return t.In(zone)
}

// DayIndex returns the weekday (Sunday=0) of the instant as observed on the
// local calendar of the given zone, not the storage zone's.
func (c *Converter) DayIndex(t time.Time, zone *time.Location) time.Weekday {
	return c.ToZone(t, zone).Weekday()
}

// NormalizeToDay strips the time of day, returning midnight of the instant's
// calendar day in the given zone.
func (c *Converter) NormalizeToDay(t time.Time, zone *time.Location) time.Time {
	if zone == nil {
		zone = c.StorageZone()
	}
	local := t.In(zone)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, zone)
}

// CombineDateClock places a wall clock on the calendar day of the given
// instant in the given zone. Nonexistent spring-forward times resolve to the
// zone library's forward convention; ambiguous fall-back times resolve to the
// earliest occurrence.
func (c *Converter) CombineDateClock(day time.Time, clock Clock, zone *time.Location) time.Time {
	if zone == nil {
		zone = c.StorageZone()
	}
	local := day.In(zone)
	y, m, d := local.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, zone)
}
