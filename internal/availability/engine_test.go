package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/facility-reservations/internal/timeutil"
)

var testDay = time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC) // a Monday

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func weekdayHours(start, end timeutil.Clock) map[time.Weekday]DayHours {
	hours := make(map[time.Weekday]DayHours, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours[day] = DayHours{Start: start, End: end}
	}
	return hours
}

func testLocation() Location {
	return Location{
		ID:          "loc-1",
		Name:        "Main Branch",
		WeeklyHours: weekdayHours(timeutil.Clock(900), timeutil.Clock(1700)),
	}
}

func testRoom() Room {
	return Room{
		ID:         "room-1",
		LocationID: "loc-1",
		Name:       "Community Room A",
		Capacity:   Capacity{Min: 2, Max: 40},
	}
}

func reservation(id string, start, end time.Time, status Status) Reservation {
	return Reservation{ID: id, RoomID: "room-1", Start: start, End: end, Status: status}
}

func windowRequest(start, end time.Time, duration int) Request {
	return Request{
		RoomID:          "room-1",
		WindowStart:     start,
		WindowEnd:       end,
		DurationMinutes: duration,
	}
}

func assertPartitionCoversWindow(t *testing.T, result Result, windowStart, windowEnd time.Time) {
	t.Helper()

	if len(result.Schedule) == 0 {
		t.Fatal("partition is empty")
	}
	if !result.Schedule[0].Start.Equal(windowStart) {
		t.Fatalf("partition starts at %v, want %v", result.Schedule[0].Start, windowStart)
	}
	last := result.Schedule[len(result.Schedule)-1]
	if !last.End.Equal(windowEnd) {
		t.Fatalf("partition ends at %v, want %v", last.End, windowEnd)
	}
	for i := 1; i < len(result.Schedule); i++ {
		if !result.Schedule[i].Start.Equal(result.Schedule[i-1].End) {
			t.Fatalf("gap or overlap between segment %d and %d: %v != %v",
				i-1, i, result.Schedule[i-1].End, result.Schedule[i].Start)
		}
	}
	for i, segment := range result.Schedule {
		if !segment.Start.Before(segment.End) {
			t.Fatalf("segment %d is empty or inverted: %v..%v", i, segment.Start, segment.End)
		}
	}
}

func TestComputeEmptyOpenDay(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 60)
	result, err := engine.Compute(testRoom(), testLocation(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasReservationConflict || result.HasOpenHoursConflict {
		t.Fatalf("expected no conflicts, got reservation=%v hours=%v",
			result.HasReservationConflict, result.HasOpenHoursConflict)
	}
	if len(result.Schedule) != 1 {
		t.Fatalf("expected a single segment, got %d", len(result.Schedule))
	}
	segment := result.Schedule[0]
	if segment.Kind != SegmentOpenFree || segment.DurationMinutes != 480 {
		t.Fatalf("expected 480 min open segment, got %v %d min", segment.Kind, segment.DurationMinutes)
	}
	assertPartitionCoversWindow(t, result, req.WindowStart, req.WindowEnd)
}

func TestComputeReservationConflictInsideOpenHours(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 15)
	req.Start = at(10, 30)
	req.End = at(10, 45)

	reservations := []Reservation{
		reservation("res-1", at(10, 0), at(11, 0), StatusApproved),
	}

	result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.HasReservationConflict {
		t.Fatal("expected a reservation conflict")
	}
	if result.HasOpenHoursConflict {
		t.Fatal("did not expect an open hours conflict")
	}

	wantKinds := []SegmentKind{SegmentOpenFree, SegmentReservationBusy, SegmentOpenFree}
	if len(result.Schedule) != len(wantKinds) {
		t.Fatalf("expected %d segments, got %d", len(wantKinds), len(result.Schedule))
	}
	for i, kind := range wantKinds {
		if result.Schedule[i].Kind != kind {
			t.Fatalf("segment %d: expected %v, got %v", i, kind, result.Schedule[i].Kind)
		}
	}
	busy := result.Schedule[1]
	if !busy.Start.Equal(at(10, 0)) || !busy.End.Equal(at(11, 0)) {
		t.Fatalf("busy segment spans %v..%v", busy.Start, busy.End)
	}
	if !reflect.DeepEqual(busy.ReservationIDs, []string{"res-1"}) {
		t.Fatalf("busy segment ids = %v", busy.ReservationIDs)
	}
	assertPartitionCoversWindow(t, result, req.WindowStart, req.WindowEnd)
}

func TestComputeWindowBeforeOpening(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(7, 0), at(9, 0), 30)
	result, err := engine.Compute(testRoom(), testLocation(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.HasOpenHoursConflict {
		t.Fatal("expected an open hours conflict")
	}
	if result.HasReservationConflict {
		t.Fatal("did not expect a reservation conflict")
	}
	if len(result.Schedule) != 1 || result.Schedule[0].Kind != SegmentClosed {
		t.Fatalf("expected a single closed segment, got %+v", result.Schedule)
	}
	if len(result.ScheduleByOpenHours) != 0 {
		t.Fatalf("open hours schedule should be empty, got %d segments", len(result.ScheduleByOpenHours))
	}
}

func TestComputeMergesAdjacentReservations(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 60)
	reservations := []Reservation{
		reservation("res-b", at(11, 0), at(12, 0), StatusRequested),
		reservation("res-a", at(10, 0), at(11, 0), StatusApproved),
	}

	result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var busy []ScheduleSegment
	for _, segment := range result.Schedule {
		if segment.Kind == SegmentReservationBusy {
			busy = append(busy, segment)
		}
	}
	if len(busy) != 1 {
		t.Fatalf("expected a single contiguous busy segment, got %d", len(busy))
	}
	if !busy[0].Start.Equal(at(10, 0)) || !busy[0].End.Equal(at(12, 0)) {
		t.Fatalf("busy segment spans %v..%v", busy[0].Start, busy[0].End)
	}
	if !reflect.DeepEqual(busy[0].ReservationIDs, []string{"res-a", "res-b"}) {
		t.Fatalf("merged ids = %v", busy[0].ReservationIDs)
	}
}

func TestComputeOverlappingReservationsRetainAllIDs(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 60)
	reservations := []Reservation{
		reservation("res-a", at(10, 0), at(11, 30), StatusApproved),
		reservation("res-b", at(11, 0), at(12, 0), StatusApproved),
	}

	result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, segment := range result.Schedule {
		if segment.Kind != SegmentReservationBusy {
			continue
		}
		if !segment.Start.Equal(at(10, 0)) || !segment.End.Equal(at(12, 0)) {
			t.Fatalf("busy segment spans %v..%v", segment.Start, segment.End)
		}
		if !reflect.DeepEqual(segment.ReservationIDs, []string{"res-a", "res-b"}) {
			t.Fatalf("merged ids = %v", segment.ReservationIDs)
		}
		return
	}
	t.Fatal("no busy segment found")
}

func TestComputeFallsBackWhenNoHoursConfigured(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	location := Location{ID: "loc-2", Name: "Annex"}
	req := windowRequest(at(8, 0), at(22, 0), 60)

	result, err := engine.Compute(testRoom(), location, req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.HoursFellBack {
		t.Fatal("expected the institution default window to apply")
	}
	if result.OpenInterval == nil {
		t.Fatal("expected a resolved open interval")
	}
	if !result.OpenInterval.Start.Equal(at(9, 0)) || !result.OpenInterval.End.Equal(at(21, 0)) {
		t.Fatalf("fallback interval spans %v..%v", result.OpenInterval.Start, result.OpenInterval.End)
	}
	assertPartitionCoversWindow(t, result, req.WindowStart, req.WindowEnd)
}

func TestComputeConflictFlagsAreIndependent(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})
	location := testLocation()
	room := testRoom()

	occupied := []Reservation{
		reservation("res-1", at(10, 0), at(11, 0), StatusApproved),
	}
	// A reservation sitting in closed time is still stored data.
	afterHours := []Reservation{
		reservation("res-2", at(17, 30), at(18, 30), StatusApproved),
	}

	tests := []struct {
		name             string
		reqStart, reqEnd time.Time
		reservations     []Reservation
		wantReservation  bool
		wantHours        bool
	}{
		{
			name:     "neither",
			reqStart: at(12, 0), reqEnd: at(13, 0),
			reservations: occupied,
		},
		{
			name:     "reservation only",
			reqStart: at(10, 30), reqEnd: at(10, 45),
			reservations:    occupied,
			wantReservation: true,
		},
		{
			name:     "hours only",
			reqStart: at(8, 0), reqEnd: at(9, 30),
			reservations: occupied,
			wantHours:    true,
		},
		{
			name:     "both",
			reqStart: at(17, 30), reqEnd: at(18, 0),
			reservations:    afterHours,
			wantReservation: true,
			wantHours:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := windowRequest(at(8, 0), at(19, 0), 30)
			req.Start = tt.reqStart
			req.End = tt.reqEnd

			result, err := engine.Compute(room, location, req, tt.reservations)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.HasReservationConflict != tt.wantReservation {
				t.Fatalf("reservation conflict = %v, want %v", result.HasReservationConflict, tt.wantReservation)
			}
			if result.HasOpenHoursConflict != tt.wantHours {
				t.Fatalf("open hours conflict = %v, want %v", result.HasOpenHoursConflict, tt.wantHours)
			}
		})
	}
}

func TestComputeAdjacencyIsNotAConflict(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 60)
	req.Start = at(11, 0)
	req.End = at(12, 0)

	reservations := []Reservation{
		reservation("res-1", at(10, 0), at(11, 0), StatusApproved),
	}

	result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasReservationConflict {
		t.Fatal("a reservation ending exactly at the requested start must not conflict")
	}
}

func TestComputeIgnoresInactiveReservations(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 60)
	reservations := []Reservation{
		reservation("res-1", at(10, 0), at(11, 0), StatusDenied),
		reservation("res-2", at(12, 0), at(13, 0), StatusCanceled),
	}

	result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasReservationConflict {
		t.Fatal("denied and canceled reservations must not occupy the calendar")
	}
	if len(result.Schedule) != 1 || result.Schedule[0].Kind != SegmentOpenFree {
		t.Fatalf("expected a single open segment, got %+v", result.Schedule)
	}
}

func TestComputeIdempotent(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(17, 0), 45)
	reservations := []Reservation{
		reservation("res-1", at(10, 0), at(11, 0), StatusApproved),
		reservation("res-2", at(14, 0), at(15, 30), StatusRequested),
	}

	first, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different results")
	}
}

func TestComputeDurationMonotonicity(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	reservations := []Reservation{
		reservation("res-1", at(10, 0), at(11, 0), StatusApproved),
		reservation("res-2", at(13, 0), at(13, 30), StatusApproved),
	}

	previous := -1
	for _, duration := range []int{15, 30, 60, 120, 240, 480} {
		req := windowRequest(at(9, 0), at(17, 0), duration)
		result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		eligible := len(result.EligibleSlots())
		if previous >= 0 && eligible > previous {
			t.Fatalf("eligible slots grew from %d to %d as duration rose to %d", previous, eligible, duration)
		}
		previous = eligible
	}
}

func TestComputeInvalidRequests(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})
	location := testLocation()

	tests := []struct {
		name string
		room Room
		req  Request
	}{
		{
			name: "inverted window",
			room: testRoom(),
			req:  windowRequest(at(17, 0), at(9, 0), 60),
		},
		{
			name: "zero duration",
			room: testRoom(),
			req:  windowRequest(at(9, 0), at(17, 0), 0),
		},
		{
			name: "negative duration",
			room: testRoom(),
			req:  windowRequest(at(9, 0), at(17, 0), -30),
		},
		{
			name: "missing room",
			room: Room{},
			req:  windowRequest(at(9, 0), at(17, 0), 60),
		},
		{
			name: "room mismatch",
			room: Room{ID: "room-9"},
			req:  windowRequest(at(9, 0), at(17, 0), 60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Compute(tt.room, location, tt.req, nil); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestComputeClipsReservationToOpenHours(t *testing.T) {
	engine := NewEngine(timeutil.NewConverter(time.UTC), DayHours{})

	req := windowRequest(at(9, 0), at(18, 0), 60)
	reservations := []Reservation{
		reservation("res-1", at(16, 30), at(17, 30), StatusApproved),
	}

	result, err := engine.Compute(testRoom(), testLocation(), req, reservations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertPartitionCoversWindow(t, result, req.WindowStart, req.WindowEnd)

	last := result.Schedule[len(result.Schedule)-1]
	if last.Kind != SegmentClosed || !last.Start.Equal(at(17, 0)) {
		t.Fatalf("closed tail should start at closing time, got %v from %v", last.Kind, last.Start)
	}

	var busy *ScheduleSegment
	for i := range result.Schedule {
		if result.Schedule[i].Kind == SegmentReservationBusy {
			busy = &result.Schedule[i]
		}
	}
	if busy == nil {
		t.Fatal("expected a busy segment")
	}
	if !busy.End.Equal(at(17, 0)) {
		t.Fatalf("busy segment should be clipped at closing time, ends %v", busy.End)
	}
}
