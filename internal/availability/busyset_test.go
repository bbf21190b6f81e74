package availability

import (
	"reflect"
	"testing"
)

func TestActiveOverlappingFiltersAndOrders(t *testing.T) {
	reservations := []Reservation{
		reservation("res-c", at(14, 0), at(15, 0), StatusApproved),
		reservation("res-a", at(10, 0), at(11, 0), StatusRequested),
		reservation("res-d", at(10, 0), at(12, 0), StatusCanceled),
		reservation("res-b", at(10, 0), at(11, 30), StatusApproved),
		reservation("res-e", at(18, 0), at(19, 0), StatusApproved), // outside window
	}

	got := ActiveOverlapping(reservations, at(9, 0), at(17, 0), "")

	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	want := []string{"res-a", "res-b", "res-c"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}

func TestActiveOverlappingExcludesEditedReservation(t *testing.T) {
	reservations := []Reservation{
		reservation("res-a", at(10, 0), at(11, 0), StatusApproved),
		reservation("res-b", at(12, 0), at(13, 0), StatusApproved),
	}

	got := ActiveOverlapping(reservations, at(9, 0), at(17, 0), "res-a")
	if len(got) != 1 || got[0].ID != "res-b" {
		t.Fatalf("expected only res-b, got %+v", got)
	}
}

func TestActiveOverlappingHalfOpenWindow(t *testing.T) {
	reservations := []Reservation{
		// Ends exactly at window start and starts exactly at window end:
		// neither intersects a half-open window.
		reservation("res-before", at(8, 0), at(9, 0), StatusApproved),
		reservation("res-after", at(17, 0), at(18, 0), StatusApproved),
		reservation("res-in", at(16, 30), at(17, 30), StatusApproved),
	}

	got := ActiveOverlapping(reservations, at(9, 0), at(17, 0), "")
	if len(got) != 1 || got[0].ID != "res-in" {
		t.Fatalf("expected only res-in, got %+v", got)
	}
}

func TestMergeBusySetClipsAndMerges(t *testing.T) {
	reservations := []Reservation{
		reservation("res-a", at(8, 30), at(10, 0), StatusApproved),  // clipped at window start
		reservation("res-b", at(10, 0), at(11, 0), StatusApproved),  // adjacent to res-a
		reservation("res-c", at(13, 0), at(14, 0), StatusRequested), // separate
	}

	busy := mergeBusySet(reservations, at(9, 0), at(17, 0))

	if len(busy) != 2 {
		t.Fatalf("expected 2 merged spans, got %d", len(busy))
	}
	if !busy[0].Start.Equal(at(9, 0)) || !busy[0].End.Equal(at(11, 0)) {
		t.Fatalf("first span %v..%v", busy[0].Start, busy[0].End)
	}
	if !reflect.DeepEqual(busy[0].ReservationIDs, []string{"res-a", "res-b"}) {
		t.Fatalf("first span ids = %v", busy[0].ReservationIDs)
	}
	if !busy[1].Start.Equal(at(13, 0)) || !busy[1].End.Equal(at(14, 0)) {
		t.Fatalf("second span %v..%v", busy[1].Start, busy[1].End)
	}
}

func TestMergeBusySetContainedReservation(t *testing.T) {
	reservations := []Reservation{
		reservation("res-outer", at(10, 0), at(13, 0), StatusApproved),
		reservation("res-inner", at(11, 0), at(12, 0), StatusApproved),
	}

	busy := mergeBusySet(reservations, at(9, 0), at(17, 0))
	if len(busy) != 1 {
		t.Fatalf("expected 1 span, got %d", len(busy))
	}
	if !busy[0].Start.Equal(at(10, 0)) || !busy[0].End.Equal(at(13, 0)) {
		t.Fatalf("span %v..%v", busy[0].Start, busy[0].End)
	}
	if !reflect.DeepEqual(busy[0].ReservationIDs, []string{"res-outer", "res-inner"}) {
		t.Fatalf("ids = %v", busy[0].ReservationIDs)
	}
}
