// Package recurrence expands series rules into candidate reservation slots.
// The availability engine is invoked once per candidate; this package only
// produces the dates.
package recurrence

import (
	"errors"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates candidates for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates candidates for the selected weekdays.
	FrequencyWeekly
)

// Rule describes a recurrence configuration for a reservation series.
type Rule struct {
	ID        string
	SeriesID  string
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
}

// GenerateOptions defines optional range bounds for candidate generation.
type GenerateOptions struct {
	RangeStart *time.Time
	RangeEnd   *time.Time
}

// Candidate is one generated slot of a series, ready to be checked for
// availability.
type Candidate struct {
	SeriesID string
	RuleID   string
	Start    time.Time
	End      time.Time
}

// Engine expands recurrence rules into candidate slots, normalizing every
// timestamp to the storage timezone.
type Engine struct {
	conv *timeutil.Converter
}

// NewEngine constructs an Engine bound to the given converter. A nil
// converter operates in UTC.
func NewEngine(conv *timeutil.Converter) *Engine {
	if conv == nil {
		conv = timeutil.NewConverter(nil)
	}
	return &Engine{conv: conv}
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the generation window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// ErrInvalidDuration indicates the base slot duration is invalid.
var ErrInvalidDuration = errors.New("recurrence: slot duration must be positive")

// GenerateCandidates produces series slots within the configured window.
//
// Semantics:
//   - All timestamps are normalized to the storage timezone.
//   - The window is bounded by the rule's EndsOn and the optional range end;
//     an entirely unbounded window is rejected.
//   - Weekday selections are respected for weekly rules; daily rules may
//     optionally filter by weekdays when provided.
func (e *Engine) GenerateCandidates(rule Rule, baseStart, baseEnd time.Time, opts GenerateOptions) ([]Candidate, error) {
	zone := e.conv.StorageZone()

	baseStart = baseStart.In(zone)
	baseEnd = baseEnd.In(zone)
	if !baseEnd.After(baseStart) {
		return nil, ErrInvalidDuration
	}
	duration := baseEnd.Sub(baseStart)

	ruleStart := rule.StartsOn.In(zone)
	var ruleEnd time.Time
	if rule.EndsOn != nil {
		ruleEnd = rule.EndsOn.In(zone)
	}

	var rangeStart time.Time
	if opts.RangeStart != nil {
		rangeStart = opts.RangeStart.In(zone)
	}
	var rangeEnd time.Time
	if opts.RangeEnd != nil {
		rangeEnd = opts.RangeEnd.In(zone)
	}

	// Inclusive upper bound of the generation window.
	var upperBound time.Time
	hasUpper := false
	if !ruleEnd.IsZero() {
		upperBound = ruleEnd
		hasUpper = true
	}
	if !rangeEnd.IsZero() {
		if !hasUpper || rangeEnd.Before(upperBound) {
			upperBound = rangeEnd
		}
		hasUpper = true
	}
	if !hasUpper {
		return nil, ErrInvalidWindow
	}

	lowerBound := ruleStart
	if !rangeStart.IsZero() && rangeStart.After(lowerBound) {
		lowerBound = rangeStart
	}
	if lowerBound.After(upperBound) {
		return nil, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	current := firstCandidate(ruleStart, lowerBound, baseStart, zone)
	candidates := make([]Candidate, 0)

	for !current.After(upperBound) {
		include, err := shouldInclude(rule.Frequency, weekdaySet, current.Weekday())
		if err != nil {
			return nil, err
		}

		if include {
			candidates = append(candidates, Candidate{
				SeriesID: rule.SeriesID,
				RuleID:   rule.ID,
				Start:    current,
				End:      current.Add(duration),
			})
		}

		current = current.Add(24 * time.Hour)
	}

	return candidates, nil
}

func firstCandidate(ruleStart, lowerBound, template time.Time, zone *time.Location) time.Time {
	target := lowerBound
	if target.Before(ruleStart) {
		target = ruleStart
	}

	candidate := combineDateTime(target, template, zone)
	for candidate.Before(target) || candidate.Before(ruleStart) {
		candidate = candidate.Add(24 * time.Hour)
	}

	return candidate
}

func combineDateTime(dateSource, template time.Time, zone *time.Location) time.Time {
	y, m, d := dateSource.In(zone).Date()
	local := template.In(zone)
	return time.Date(y, m, d, local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), zone)
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyWeekly:
		if len(weekdaySet) == 0 {
			return false, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}
