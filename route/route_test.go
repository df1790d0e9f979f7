// route/route_test.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"testing"

	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/nav"
)

// testDatabase is shared by the route and controller tests: two
// airports bracketing a west-to-east chain of radio navaids, plus a SID
// at the departure and a STAR and approach at the destination.
func testDatabase(t *testing.T) *nav.Database {
	t.Helper()

	data := []byte(`{
  "airports": [
    {"ident": "KJFK", "name": "Kennedy", "location": "40.64,-73.78",
     "runways": [{"id": "4", "heading": 40, "length": 11000},
                 {"id": "22", "heading": 220, "length": 11000}]},
    {"ident": "KLAX", "name": "Los Angeles", "location": "33.94,-118.41",
     "runways": [{"id": "25", "heading": 250, "length": 12000}]},
    {"ident": "KAAA", "name": "West Field", "location": "40,-79.3",
     "runways": [{"id": "9", "heading": 90, "length": 8000}],
     "sids": {"AAA1": {"name": "AAA1", "fixes": [{"fix": "DEP1"}, {"fix": "DEP2"}]}}},
    {"ident": "KCCC", "name": "East Field", "location": "40,-68.7",
     "runways": [{"id": "27", "heading": 270, "length": 8000},
                 {"id": "9", "heading": 90, "length": 8000}],
     "stars": {"STR1": {"name": "STR1", "runway": "9", "fixes": [{"fix": "STF1"}]}},
     "approaches": {"I27": {"name": "I27", "runway": "27",
       "fixes": [{"fix": "APF1"}, {"fix": "APF2", "altitude": 3000}, {"fix": "APF3"}, {"fix": "APF4"}]}}},
    {"ident": "KZZZ", "name": "Nowhere", "location": "10,10"}
  ],
  "navaids": [
    {"ident": "AAA", "name": "A", "type": 0, "frequency": 110000, "range": 130, "location": "40,-79"},
    {"ident": "BBB", "name": "B", "type": 0, "frequency": 111000, "range": 130, "location": "40,-74"},
    {"ident": "CCC", "name": "C", "type": 3, "frequency": 350, "range": 130, "location": "40,-69"}
  ],
  "fixes": [
    {"ident": "WAYPT1", "location": "37,-96"},
    {"ident": "DEP1", "location": "40.2,-79.0"},
    {"ident": "DEP2", "location": "40.4,-78.6"},
    {"ident": "APF1", "location": "40.5,-69.5"},
    {"ident": "APF2", "location": "40.4,-69.3"},
    {"ident": "APF3", "location": "40.2,-69.1"},
    {"ident": "APF4", "location": "40.1,-68.9"},
    {"ident": "STF1", "location": "41,-70"}
  ],
  "airways": []
}`)
	db, err := nav.LoadJSONBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.Checksum = ""
	return db
}

func entry(ident string) FlightplanEntry {
	return FlightplanEntry{Ident: ident}
}

func idents(r *Route) []string {
	var ids []string
	for _, e := range r.Plan.Entries {
		ids = append(ids, e.Ident)
	}
	return ids
}

func identsEqual(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkInvariants verifies the structural route invariants: procedure
// ranges are contiguous and airway names only appear on free legs with a
// free predecessor.
func checkInvariants(t *testing.T, r *Route) {
	t.Helper()

	for _, mask := range []ProcedureType{ProcedureDeparture, ProcedureSTARAll, ProcedureApproachAll} {
		first, last := -1, -1
		for i, e := range r.Plan.Entries {
			if e.Procedure&mask != 0 {
				if first == -1 {
					first = i
				}
				last = i
			}
		}
		for i := first; first != -1 && i <= last; i++ {
			if r.Plan.Entries[i].Procedure&mask == 0 {
				t.Errorf("procedure range %s not contiguous at %d: %v", mask, i, idents(r))
			}
		}
	}

	for i, e := range r.Plan.Entries {
		if e.Airway == "" {
			continue
		}
		if i == 0 {
			t.Errorf("first entry carries airway %s", e.Airway)
		} else if e.Procedure != ProcedureNone || r.Plan.Entries[i-1].Procedure != ProcedureNone {
			t.Errorf("airway %s on a procedure adjacency at %d", e.Airway, i)
		}
	}

	if len(r.Legs) != len(r.Plan.Entries) {
		t.Errorf("%d legs for %d entries", len(r.Legs), len(r.Plan.Entries))
	}
}

func TestInsertTwoAirports(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)

	if err := r.InsertEntry(entry("KAAA"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.InsertEntry(entry("KCCC"), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Size() != 2 {
		t.Fatalf("route size %d, expected 2", r.Size())
	}
	if r.Legs[0].Entry.Kind != KindAirport || r.Legs[0].Entry.Ident != "KAAA" {
		t.Errorf("leg 0 is %v", r.Legs[0].Entry)
	}
	if r.Legs[1].Entry.Kind != KindAirport || r.Legs[1].Entry.Ident != "KCCC" {
		t.Errorf("leg 1 is %v", r.Legs[1].Entry)
	}
	if r.Plan.DepartureIdent != "KAAA" || r.Plan.DestinationIdent != "KCCC" {
		t.Errorf("metadata %s -> %s", r.Plan.DepartureIdent, r.Plan.DestinationIdent)
	}

	direct := math.NMDistance2LL(r.Plan.Entries[0].Location, r.Plan.Entries[1].Location)
	if math.Abs(r.TotalDistance-direct) > 0.01 {
		t.Errorf("total distance %f, expected %f", r.TotalDistance, direct)
	}
	// The departure faces east toward the destination.
	if r.Plan.StartPosition != "RW9" {
		t.Errorf("start position %q, expected RW9", r.Plan.StartPosition)
	}
	checkInvariants(t, r)
}

func TestInsertInvalidIndex(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	if err := r.InsertEntry(entry("KAAA"), -1); err != ErrInvalidIndex {
		t.Errorf("got %v, expected ErrInvalidIndex", err)
	}
	if err := r.InsertEntry(entry("KAAA"), 1); err != ErrInvalidIndex {
		t.Errorf("got %v, expected ErrInvalidIndex", err)
	}
	if r.Size() != 0 {
		t.Errorf("failed insert mutated the route")
	}
	if err := r.RemoveEntry(0); err != ErrEmptyRoute {
		t.Errorf("got %v, expected ErrEmptyRoute", err)
	}
}

func TestUnresolvableEntryKept(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.InsertEntry(entry("KAAA"), 0)
	if err := r.InsertEntry(entry("XYZZY"), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != 2 {
		t.Fatalf("route size %d", r.Size())
	}
	if r.Legs[1].IsValid() {
		t.Errorf("unresolvable leg not marked invalid")
	}
	if r.Errors() != 1 {
		t.Errorf("Errors() = %d, expected 1", r.Errors())
	}
}

func TestRemoveEntryClearsAirway(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.InsertEntry(entry("KJFK"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KLAX"), 2)
	r.Plan.Entries[2].Airway = "J60"
	r.UpdateAll()

	if err := r.RemoveEntry(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KJFK", "KLAX") {
		t.Fatalf("route is %v", idents(r))
	}
	if r.Plan.Entries[1].Airway != "" {
		t.Errorf("stale airway %s survived the removal", r.Plan.Entries[1].Airway)
	}
	checkInvariants(t, r)
}

func TestMoveEntry(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	for i, id := range []string{"KAAA", "DEP1", "DEP2", "KCCC"} {
		r.InsertEntry(entry(id), i)
	}
	r.Plan.Entries[1].Airway = "V1"
	r.Plan.Entries[2].Airway = "V1"
	r.UpdateAll()

	if err := r.MoveEntry(1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KAAA", "DEP2", "DEP1", "KCCC") {
		t.Fatalf("route is %v", idents(r))
	}
	for _, i := range []int{1, 2} {
		if r.Plan.Entries[i].Airway != "" {
			t.Errorf("stale airway at %d after move", i)
		}
	}

	if err := r.MoveEntry(0, 2); err != ErrNotAdjacent {
		t.Errorf("got %v, expected ErrNotAdjacent", err)
	}
	if err := r.MoveEntry(3, 4); err != ErrInvalidIndex {
		t.Errorf("got %v, expected ErrInvalidIndex", err)
	}
	checkInvariants(t, r)
}

func TestMoveAcrossProcedureDisallowed(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	pl, err := db.ResolveProcedure("KAAA", nav.ProcSID, "AAA1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Entries 1 and 2 are SID-owned now.
	if err := r.MoveEntry(1, 2); err != ErrProcedureLeg {
		t.Errorf("got %v, expected ErrProcedureLeg", err)
	}
}

func TestReverseShiftsAirways(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KCCC"), 2)
	r.Plan.Entries[1].Airway = "V1"
	r.Plan.Entries[2].Airway = "V2"
	r.UpdateAll()

	if err := r.Reverse(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KCCC", "WAYPT1", "KAAA") {
		t.Fatalf("route is %v", idents(r))
	}
	// The airway that led into KCCC now leads into WAYPT1 from the
	// other side, and similarly one further down.
	if r.Plan.Entries[1].Airway != "V2" || r.Plan.Entries[2].Airway != "V1" {
		t.Errorf("airways after reverse: %q %q", r.Plan.Entries[1].Airway, r.Plan.Entries[2].Airway)
	}
	if r.Plan.DepartureIdent != "KCCC" || r.Plan.DestinationIdent != "KAAA" {
		t.Errorf("metadata %s -> %s", r.Plan.DepartureIdent, r.Plan.DestinationIdent)
	}

	// Double reverse restores the leg order (though not in general the
	// airway annotations).
	if err := r.Reverse(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KAAA", "WAYPT1", "KCCC") {
		t.Fatalf("route after double reverse is %v", idents(r))
	}
	checkInvariants(t, r)
}

func TestReverseDiscardsProcedures(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	pl, _ := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Reverse(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range r.Plan.Entries {
		if e.Procedure != ProcedureNone {
			t.Errorf("procedure entry %s survived reverse", e.Ident)
		}
	}
	if r.Plan.Approach.IsSet() {
		t.Errorf("approach spec survived reverse")
	}
	checkInvariants(t, r)
}

func TestAttachApproach(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	pl, err := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	warning, err := r.AttachProcedure(pl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %s", warning)
	}

	if r.Size() != 6 {
		t.Fatalf("route size %d, expected 6: %v", r.Size(), idents(r))
	}
	for i := 1; i <= 4; i++ {
		if r.Plan.Entries[i].Procedure != ProcedureApproach {
			t.Errorf("entry %d tag %s, expected approach", i, r.Plan.Entries[i].Procedure)
		}
	}
	if last := r.Plan.Entries[5]; last.Ident != "KCCC" {
		t.Errorf("destination is %s", last.Ident)
	}
	// Crossing restrictions carry over.
	if r.Plan.Entries[2].Altitude != 3000 {
		t.Errorf("altitude restriction lost: %+v", r.Plan.Entries[2])
	}
	if !r.Plan.Approach.IsSet() || r.Plan.Approach.Runway != "27" {
		t.Errorf("approach spec %+v", r.Plan.Approach)
	}
	checkInvariants(t, r)
}

func TestAttachKeepsEnrouteAirways(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KCCC"), 2)
	r.Plan.Entries[1].Airway = "V1"
	r.Plan.Entries[2].Airway = "V2"
	r.UpdateAll()

	pl, err := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The leg into WAYPT1 is untouched by the splice; the destination's
	// predecessor is now the approach.
	if r.Plan.Entries[1].Airway != "V1" {
		t.Errorf("airway into WAYPT1 lost: %+v", r.Plan.Entries[1])
	}
	if last := r.Plan.Entries[r.Size()-1]; last.Ident != "KCCC" || last.Airway != "" {
		t.Errorf("destination airway not cleared: %+v", last)
	}
	checkInvariants(t, r)
}

func TestSetEntriesKeepsAirways(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.SetEntries([]FlightplanEntry{
		{Ident: "KAAA", Airway: "V9"},
		{Ident: "WAYPT1", Airway: "V1"},
		{Ident: "KCCC"},
	})

	if !identsEqual(idents(r), "KAAA", "WAYPT1", "KCCC") {
		t.Fatalf("route: %v", idents(r))
	}
	if r.Plan.Entries[0].Airway != "" {
		t.Errorf("airway kept on the departure entry: %+v", r.Plan.Entries[0])
	}
	if r.Plan.Entries[1].Airway != "V1" {
		t.Errorf("airway lost: %+v", r.Plan.Entries[1])
	}
	if r.Plan.Entries[0].Kind != KindAirport || r.Plan.DepartureIdent != "KAAA" {
		t.Errorf("entries not resolved: %+v", r.Plan.Entries[0])
	}
	checkInvariants(t, r)
}

func TestAttachDetachRoundTrip(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KCCC"), 2)
	before := idents(r)

	pl, _ := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RemoveProcedureLegs(ProcedureApproachAll); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !identsEqual(idents(r), before...) {
		t.Errorf("detach did not restore the free legs: %v vs %v", idents(r), before)
	}
	if r.Plan.Approach.IsSet() {
		t.Errorf("approach spec survived detach")
	}
	checkInvariants(t, r)
}

func TestAttachReplacesSameCategory(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	pl, _ := db.ResolveProcedure("KAAA", nav.ProcSID, "AAA1", "", "")
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	size := r.Size()
	// Attaching the same SID again must replace, not accumulate.
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != size {
		t.Errorf("route size %d after re-attach, expected %d", r.Size(), size)
	}
	checkInvariants(t, r)
}

func TestAttachSIDInsertsAirport(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("WAYPT1"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	// The first entry is not an airport, so attaching a SID inserts its
	// airport as the departure.
	pl, _ := db.ResolveProcedure("KAAA", nav.ProcSID, "AAA1", "", "")
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KAAA", "DEP1", "DEP2", "WAYPT1", "KCCC") {
		t.Fatalf("route is %v", idents(r))
	}
	if r.Plan.DepartureIdent != "KAAA" {
		t.Errorf("departure metadata %s, expected KAAA", r.Plan.DepartureIdent)
	}
	checkInvariants(t, r)
}

func TestAttachSIDReplacesAirport(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KJFK"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	// A differing departure airport is replaced by the SID's airport.
	pl, _ := db.ResolveProcedure("KAAA", nav.ProcSID, "AAA1", "", "")
	if _, err := r.AttachProcedure(pl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KAAA", "DEP1", "DEP2", "KCCC") {
		t.Fatalf("route is %v", idents(r))
	}
	checkInvariants(t, r)
}

func TestSTARApproachOrderAndMismatch(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)

	apch, _ := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	if _, err := r.AttachProcedure(apch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	star, err := db.ResolveProcedure("KCCC", nav.ProcSTAR, "STR1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	warning, err := r.AttachProcedure(star)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// STAR runway 9 conflicts with approach runway 27: reported, both
	// stay attached.
	if warning == "" {
		t.Errorf("no runway mismatch warning")
	}
	if !r.Plan.STAR.IsSet() || !r.Plan.Approach.IsSet() {
		t.Errorf("specs after mismatch: %+v %+v", r.Plan.STAR, r.Plan.Approach)
	}

	// STAR legs come before the approach legs.
	if !identsEqual(idents(r), "KAAA", "STF1", "APF1", "APF2", "APF3", "APF4", "KCCC") {
		t.Errorf("route is %v", idents(r))
	}
	checkInvariants(t, r)
}

func TestRemoveProcedureEntryRemovesRange(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)
	pl, _ := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	r.AttachProcedure(pl)

	// Deleting one approach leg removes the whole range.
	if err := r.RemoveEntry(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KAAA", "KCCC") {
		t.Errorf("route is %v", idents(r))
	}
	checkInvariants(t, r)
}

func TestStartDestinationIndices(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KCCC"), 2)

	if i := r.StartIndexAfterProcedure(); i != 0 {
		t.Errorf("start index %d, expected 0", i)
	}
	if i := r.DestinationIndexBeforeProcedure(); i != 2 {
		t.Errorf("destination index %d, expected 2", i)
	}

	sid, _ := db.ResolveProcedure("KAAA", nav.ProcSID, "AAA1", "", "")
	r.AttachProcedure(sid)
	apch, _ := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	r.AttachProcedure(apch)

	// [KAAA, DEP1, DEP2, WAYPT1, APF1..APF4, KCCC]
	if i := r.StartIndexAfterProcedure(); i != 2 {
		t.Errorf("start index %d, expected 2: %v", i, idents(r))
	}
	if i := r.DestinationIndexBeforeProcedure(); i != 4 {
		t.Errorf("destination index %d, expected 4: %v", i, idents(r))
	}
}

func TestSetDepartureDestination(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KCCC"), 2)

	sid, _ := db.ResolveProcedure("KAAA", nav.ProcSID, "AAA1", "", "")
	r.AttachProcedure(sid)

	if err := r.SetDeparture("KJFK"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Plan.Entries[0].Ident != "KJFK" {
		t.Errorf("departure is %s", r.Plan.Entries[0].Ident)
	}
	// The SID belonged to the old departure.
	if r.Plan.SID.IsSet() {
		t.Errorf("SID survived departure change")
	}
	if err := r.SetDestination("KLAX"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last := r.Plan.Entries[r.Size()-1]; last.Ident != "KLAX" {
		t.Errorf("destination is %s", last.Ident)
	}
	if err := r.SetDeparture("XXXX"); err != ErrUnknownWaypoint {
		t.Errorf("got %v, expected ErrUnknownWaypoint", err)
	}
	checkInvariants(t, r)
}

func TestReplaceEntry(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.InsertEntry(entry("KJFK"), 0)
	r.InsertEntry(entry("WAYPT1"), 1)
	r.InsertEntry(entry("KLAX"), 2)
	r.Plan.Entries[2].Airway = "J60"
	r.UpdateAll()

	if err := r.ReplaceEntry(entry("DEP1"), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identsEqual(idents(r), "KJFK", "DEP1", "KLAX") {
		t.Fatalf("route is %v", idents(r))
	}
	if r.Plan.Entries[2].Airway != "" {
		t.Errorf("stale airway after replace")
	}
	if err := r.ReplaceEntry(entry("DEP1"), 5); err != ErrInvalidIndex {
		t.Errorf("got %v, expected ErrInvalidIndex", err)
	}
	checkInvariants(t, r)
}

func TestApplySnapshotReloadsProcedures(t *testing.T) {
	db := testDatabase(t)
	r := NewRoute(db, nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("KCCC"), 1)
	pl, _ := db.ResolveProcedure("KCCC", nav.ProcApproach, "I27", "", "")
	r.AttachProcedure(pl)

	snapshot := r.Plan.RemoveProcedureEntries()
	other := NewRoute(db, nil)
	other.ApplySnapshot(snapshot)

	if !identsEqual(idents(other), idents(r)...) {
		t.Errorf("snapshot restore gave %v, expected %v", idents(other), idents(r))
	}
	if !other.Plan.Approach.IsSet() {
		t.Errorf("approach spec lost in snapshot restore")
	}
	checkInvariants(t, other)
}

func TestRemoveDuplicateLegs(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("DEP1"), 1)
	r.InsertEntry(entry("KCCC"), 2)
	// Simulate the splice boundary case: a free duplicate next to a
	// procedure-owned entry.
	r.Plan.Entries[1].Procedure = ProcedureApproach
	r.Plan.Entries = append(r.Plan.Entries[:2],
		append([]FlightplanEntry{{Ident: "DEP1", Kind: KindWaypoint}}, r.Plan.Entries[2:]...)...)

	r.RemoveDuplicateLegs()
	if !identsEqual(idents(r), "KAAA", "DEP1", "KCCC") {
		t.Errorf("route is %v", idents(r))
	}
	// The procedure-owned entry survived.
	if r.Plan.Entries[1].Procedure != ProcedureApproach {
		t.Errorf("wrong duplicate removed: %+v", r.Plan.Entries[1])
	}
}

func TestActiveLeg(t *testing.T) {
	r := NewRoute(testDatabase(t), nil)
	r.InsertEntry(entry("KAAA"), 0)
	r.InsertEntry(entry("BBB"), 1)
	r.InsertEntry(entry("KCCC"), 2)

	if r.ActiveLeg() != -1 {
		t.Errorf("active leg %d before any position", r.ActiveLeg())
	}
	// Between KAAA and BBB.
	if active := r.SetPosition(math.Point2LL{-77, 40}); active != 1 {
		t.Errorf("active leg %d, expected 1", active)
	}
	// Between BBB and KCCC.
	if active := r.SetPosition(math.Point2LL{-71, 40}); active != 2 {
		t.Errorf("active leg %d, expected 2", active)
	}
}
