package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

func TestGenerateCandidatesWeekly(t *testing.T) {
	t.Parallel()

	engine := NewEngine(timeutil.NewConverter(time.UTC))

	baseStart := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC) // Monday
	baseEnd := baseStart.Add(time.Hour)
	endsOn := baseStart.AddDate(0, 0, 14)

	rule := Rule{
		ID:        "rule-1",
		SeriesID:  "series-1",
		Frequency: FrequencyWeekly,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		StartsOn:  baseStart,
		EndsOn:    &endsOn,
	}

	candidates, err := engine.GenerateCandidates(rule, baseStart, baseEnd, GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 7 {
		t.Fatalf("expected 7 candidates over 15 days, got %d", len(candidates))
	}
	for i, candidate := range candidates {
		day := candidate.Start.Weekday()
		if day != time.Monday && day != time.Wednesday && day != time.Friday {
			t.Fatalf("candidate %d falls on %v", i, day)
		}
		if candidate.SeriesID != "series-1" || candidate.RuleID != "rule-1" {
			t.Fatalf("candidate %d lost its series linkage: %+v", i, candidate)
		}
		if got := candidate.End.Sub(candidate.Start); got != time.Hour {
			t.Fatalf("candidate %d duration = %v", i, got)
		}
		if i > 0 && !candidates[i-1].Start.Before(candidate.Start) {
			t.Fatalf("candidates out of order at %d", i)
		}
	}
}

func TestGenerateCandidatesClippedToRange(t *testing.T) {
	t.Parallel()

	engine := NewEngine(timeutil.NewConverter(time.UTC))

	baseStart := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	baseEnd := baseStart.Add(30 * time.Minute)
	endsOn := baseStart.AddDate(0, 0, 30)

	rangeStart := baseStart.AddDate(0, 0, 3)
	rangeEnd := baseStart.AddDate(0, 0, 10)

	rule := Rule{
		ID:        "rule-2",
		SeriesID:  "series-2",
		Frequency: FrequencyDaily,
		StartsOn:  baseStart,
		EndsOn:    &endsOn,
	}

	candidates, err := engine.GenerateCandidates(rule, baseStart, baseEnd, GenerateOptions{
		RangeStart: &rangeStart,
		RangeEnd:   &rangeEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) == 0 {
		t.Fatal("expected candidates within the range")
	}
	if candidates[0].Start.Before(rangeStart) {
		t.Fatalf("first candidate %v precedes range start %v", candidates[0].Start, rangeStart)
	}
	if last := candidates[len(candidates)-1]; last.Start.After(rangeEnd) {
		t.Fatalf("last candidate %v exceeds range end %v", last.Start, rangeEnd)
	}
}

func TestGenerateCandidatesNormalizesToStorageZone(t *testing.T) {
	t.Parallel()

	engine := NewEngine(timeutil.NewConverter(time.UTC))

	eastern := time.FixedZone("EST", -5*60*60)
	baseStart := time.Date(2024, time.January, 8, 20, 0, 0, 0, eastern) // Tue 01:00 UTC
	baseEnd := baseStart.Add(time.Hour)
	endsOn := baseStart.AddDate(0, 0, 7)

	rule := Rule{
		ID:        "rule-3",
		SeriesID:  "series-3",
		Frequency: FrequencyDaily,
		StartsOn:  baseStart,
		EndsOn:    &endsOn,
	}

	candidates, err := engine.GenerateCandidates(rule, baseStart, baseEnd, GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, candidate := range candidates {
		if candidate.Start.Location() != time.UTC {
			t.Fatalf("candidate %d not normalized to storage zone: %v", i, candidate.Start.Location())
		}
	}
}

func TestGenerateCandidatesErrors(t *testing.T) {
	t.Parallel()

	engine := NewEngine(timeutil.NewConverter(time.UTC))
	baseStart := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	endsOn := baseStart.AddDate(0, 0, 7)

	tests := []struct {
		name    string
		rule    Rule
		baseEnd time.Time
		want    error
	}{
		{
			name:    "unspecified frequency",
			rule:    Rule{StartsOn: baseStart, EndsOn: &endsOn},
			baseEnd: baseStart.Add(time.Hour),
			want:    ErrInvalidFrequency,
		},
		{
			name:    "unbounded window",
			rule:    Rule{Frequency: FrequencyDaily, StartsOn: baseStart},
			baseEnd: baseStart.Add(time.Hour),
			want:    ErrInvalidWindow,
		},
		{
			name:    "non-positive duration",
			rule:    Rule{Frequency: FrequencyDaily, StartsOn: baseStart, EndsOn: &endsOn},
			baseEnd: baseStart,
			want:    ErrInvalidDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := engine.GenerateCandidates(tt.rule, baseStart, tt.baseEnd, GenerateOptions{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGenerateCandidatesWeeklyWithoutWeekdays(t *testing.T) {
	t.Parallel()

	engine := NewEngine(timeutil.NewConverter(time.UTC))
	baseStart := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	endsOn := baseStart.AddDate(0, 0, 7)

	rule := Rule{
		ID:        "rule-4",
		Frequency: FrequencyWeekly,
		StartsOn:  baseStart,
		EndsOn:    &endsOn,
	}

	candidates, err := engine.GenerateCandidates(rule, baseStart, baseStart.Add(time.Hour), GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("weekly rule without weekdays should generate nothing, got %d", len(candidates))
	}
}
