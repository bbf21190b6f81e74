package availability

import (
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

// HoursResolver turns a location's weekly operating hours into concrete open
// intervals for specific calendar days.
type HoursResolver struct {
	conv *timeutil.Converter
}

// NewHoursResolver constructs a resolver bound to the given converter. A nil
// converter operates in UTC.
func NewHoursResolver(conv *timeutil.Converter) *HoursResolver {
	if conv == nil {
		conv = timeutil.NewConverter(nil)
	}
	return &HoursResolver{conv: conv}
}

// Resolve returns the open interval for the calendar day containing the given
// instant. The weekday is determined in displayZone when provided, otherwise
// in the storage timezone; the interval's instants are always anchored in the
// storage timezone, where the HHMM clocks are defined.
//
// The second return value is false when the location is closed that day.
// ErrNoHoursConfigured is returned when the location has no weekly hours at
// all, so callers can apply an institution-wide default instead of treating
// the room as permanently unavailable.
func (r *HoursResolver) Resolve(location Location, day time.Time, displayZone *time.Location) (OpenInterval, bool, error) {
	if len(location.WeeklyHours) == 0 {
		return OpenInterval{}, false, ErrNoHoursConfigured
	}

	weekday := r.conv.DayIndex(day, displayZone)
	hours, ok := location.WeeklyHours[weekday]
	if !ok || !hours.Valid() {
		return OpenInterval{}, false, nil
	}

	return r.intervalFor(day, hours), true, nil
}

// intervalFor anchors a day's HHMM clocks on the storage-zone calendar day.
func (r *HoursResolver) intervalFor(day time.Time, hours DayHours) OpenInterval {
	zone := r.conv.StorageZone()
	return OpenInterval{
		Start: r.conv.CombineDateClock(day, hours.Start, zone),
		End:   r.conv.CombineDateClock(day, hours.End, zone),
	}
}
