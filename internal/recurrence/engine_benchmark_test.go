package recurrence

import (
	"testing"
	"time"
)

func BenchmarkEngineGenerateCandidates(b *testing.B) {
	engine := NewEngine(nil)
	baseStart := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	baseEnd := baseStart.Add(90 * time.Minute)

	until := baseStart.AddDate(0, 3, 0)
	rule := Rule{
		ID:        "rule-1",
		SeriesID:  "series-1",
		Frequency: FrequencyWeekly,
		Weekdays: []time.Weekday{
			time.Monday,
			time.Tuesday,
			time.Wednesday,
			time.Thursday,
			time.Friday,
		},
		StartsOn: baseStart,
		EndsOn:   &until,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		candidates, err := engine.GenerateCandidates(rule, baseStart, baseEnd, GenerateOptions{})
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(candidates) == 0 {
			b.Fatal("expected candidates to be generated")
		}
	}
}
