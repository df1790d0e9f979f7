// route/route.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"time"

	"github.com/brunoga/deep"
	"github.com/flyplan/flyplan/log"
	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/nav"
)

// Route is the ordered, mutable leg sequence of one flight plan. The
// entry sequence in Plan is the ground truth; Legs and all derived state
// are recomputed by UpdateAll after every structural change. Index 0 is
// the departure, the last index the destination; procedure-owned ranges
// are contiguous, departure procedures right after index 0 and arrival
// procedures right before the last index.
//
// All methods run to completion on the caller's goroutine; a Route is
// not safe for concurrent mutation.
type Route struct {
	Plan Flightplan
	Legs []RouteLeg

	TotalDistance float32
	Extent        [2]math.Point2LL // min/max corners of all valid legs

	db        *nav.Database
	lg        *log.Logger
	activeLeg int
	position  math.Point2LL
	havePos   bool
}

func NewRoute(db *nav.Database, lg *log.Logger) *Route {
	return &Route{db: db, lg: lg, activeLeg: -1}
}

func (r *Route) Size() int { return len(r.Plan.Entries) }

// Errors returns the number of legs whose entries no longer resolve.
func (r *Route) Errors() int {
	n := 0
	for i := range r.Legs {
		if !r.Legs[i].IsValid() {
			n++
		}
	}
	return n
}

// procedureCategory widens a procedure tag to the category mask that is
// attached and removed as a unit.
func procedureCategory(p ProcedureType) ProcedureType {
	switch {
	case p&ProcedureDeparture != 0:
		return ProcedureDeparture
	case p&ProcedureSTARAll != 0:
		return ProcedureSTARAll
	case p&ProcedureApproachAll != 0:
		return ProcedureApproachAll
	}
	return ProcedureNone
}

// resolveEntry binds an entry to the database: kind, location, and region
// are refreshed from the named object. Entries with a position but no
// database object become user waypoints; everything else unresolvable is
// marked invalid and kept.
func (r *Route) resolveEntry(e *FlightplanEntry) {
	if e.Kind == KindUser {
		return
	}
	if _, ref, ok := r.db.Locate(e.Ident); ok {
		loc, _ := r.db.LocationOf(ref)
		e.Location = loc
		switch ref.Type {
		case nav.RefAirport:
			e.Kind = KindAirport
		case nav.RefVOR:
			e.Kind = KindVOR
		case nav.RefNDB:
			e.Kind = KindNDB
		case nav.RefWaypoint:
			e.Kind = KindWaypoint
		}
		return
	}
	if e.Location.IsZero() {
		e.Kind = KindInvalid
	} else {
		e.Kind = KindUser
	}
}

func (r *Route) clearAirway(index int) {
	if index >= 0 && index < len(r.Plan.Entries) {
		r.Plan.Entries[index].Airway = ""
	}
}

// InsertEntry inserts an entry at index, between 0 and Size inclusive.
// Airway names at the new adjacencies are cleared. Inserting at index 0
// or at the end demotes the old departure/destination and drops the
// procedures anchored to it; inserting inside a procedure-owned range
// drops that procedure.
func (r *Route) InsertEntry(e FlightplanEntry, index int) error {
	n := len(r.Plan.Entries)
	if index < 0 || index > n {
		return ErrInvalidIndex
	}

	// An insertion point strictly inside a procedure range splits it.
	if index > 0 && index < n {
		prev := procedureCategory(r.Plan.Entries[index-1].Procedure)
		next := procedureCategory(r.Plan.Entries[index].Procedure)
		if prev != ProcedureNone && prev == next {
			r.removeProcedureEntries(prev)
			index = min(index, len(r.Plan.Entries))
		}
	}
	if index == 0 && n > 0 {
		r.removeProcedureEntries(ProcedureDeparture)
	}
	if index == n && n > 0 {
		r.removeProcedureEntries(ProcedureArrivalAll)
		index = len(r.Plan.Entries)
	}

	e.Procedure = ProcedureNone
	r.resolveEntry(&e)

	entries := r.Plan.Entries
	entries = append(entries[:index], append([]FlightplanEntry{e}, entries[index:]...)...)
	r.Plan.Entries = entries

	r.clearAirway(index)
	r.clearAirway(index + 1)

	r.updateEndpointMetadata()
	r.UpdateAll()
	return nil
}

// RemoveEntry removes the entry at index. Removing a procedure-owned leg
// removes its whole procedure range instead; removing an endpoint drops
// the procedures anchored to it.
func (r *Route) RemoveEntry(index int) error {
	n := len(r.Plan.Entries)
	if n == 0 {
		return ErrEmptyRoute
	}
	if index < 0 || index >= n {
		return ErrInvalidIndex
	}

	if cat := procedureCategory(r.Plan.Entries[index].Procedure); cat != ProcedureNone {
		return r.RemoveProcedureLegs(cat)
	}

	wasLast := index == n-1
	r.Plan.Entries = append(r.Plan.Entries[:index], r.Plan.Entries[index+1:]...)

	if index == 0 {
		r.removeProcedureEntries(ProcedureDeparture)
	}
	if wasLast {
		r.removeProcedureEntries(ProcedureArrivalAll)
	}
	// The entry that collapsed into this position lost its predecessor.
	r.clearAirway(index)

	r.updateEndpointMetadata()
	r.UpdateAll()
	return nil
}

// ReplaceEntry replaces the entry at index wholesale. Replacing an
// endpoint with a different ident drops the procedures anchored to it.
func (r *Route) ReplaceEntry(e FlightplanEntry, index int) error {
	n := len(r.Plan.Entries)
	if index < 0 || index >= n {
		return ErrInvalidIndex
	}
	if r.Plan.Entries[index].Procedure != ProcedureNone {
		return ErrProcedureLeg
	}

	identChanged := r.Plan.Entries[index].Ident != e.Ident
	e.Procedure = ProcedureNone
	r.resolveEntry(&e)
	r.Plan.Entries[index] = e

	r.clearAirway(index)
	r.clearAirway(index + 1)

	if identChanged {
		if index == 0 {
			r.removeProcedureEntries(ProcedureDeparture)
		}
		if index == len(r.Plan.Entries)-1 {
			r.removeProcedureEntries(ProcedureArrivalAll)
		}
	}

	r.updateEndpointMetadata()
	r.UpdateAll()
	return nil
}

// MoveEntry swaps the entry at from with its neighbor at to. Moves
// across procedure-owned legs are disallowed; airway names at both the
// old and the new adjacencies are cleared.
func (r *Route) MoveEntry(from, to int) error {
	n := len(r.Plan.Entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrInvalidIndex
	}
	if math.Abs(from-to) != 1 {
		return ErrNotAdjacent
	}
	if r.Plan.Entries[from].Procedure != ProcedureNone ||
		r.Plan.Entries[to].Procedure != ProcedureNone {
		return ErrProcedureLeg
	}

	entries := r.Plan.Entries
	entries[from], entries[to] = entries[to], entries[from]

	lo := min(from, to)
	r.clearAirway(lo)
	r.clearAirway(lo + 1)
	r.clearAirway(lo + 2)

	r.updateEndpointMetadata()
	r.UpdateAll()
	return nil
}

// Reverse swaps the departure and destination roles. All procedures are
// discarded; airway names shift by one entry so that the airway recorded
// departing a fix becomes the airway recorded arriving at it in the new
// direction. Applying Reverse twice restores the leg order but not
// necessarily the airway annotations.
func (r *Route) Reverse() error {
	if len(r.Plan.Entries) == 0 {
		return ErrEmptyRoute
	}

	r.removeProcedureEntries(ProcedureAll)

	entries := r.Plan.Entries
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	for i := len(entries) - 1; i >= 1; i-- {
		entries[i].Airway = entries[i-1].Airway
	}
	entries[0].Airway = ""

	r.Plan.DepartureIdent, r.Plan.DestinationIdent =
		r.Plan.DestinationIdent, r.Plan.DepartureIdent
	r.Plan.DepartureName, r.Plan.DestinationName =
		r.Plan.DestinationName, r.Plan.DepartureName
	r.Plan.StartPosition = ""

	r.updateEndpointMetadata()
	r.UpdateAll()
	return nil
}

// SetDeparture makes the named airport the departure: the first entry is
// replaced if it is an airport, otherwise the airport is prepended.
// Departure procedures are dropped if the airport changed.
func (r *Route) SetDeparture(ident string) error {
	ap, ok := r.db.Airports[ident]
	if !ok {
		return ErrUnknownWaypoint
	}

	e := FlightplanEntry{Ident: ap.Ident, Kind: KindAirport, Location: ap.Location}
	if len(r.Plan.Entries) > 0 && r.Plan.Entries[0].Kind == KindAirport {
		if r.Plan.Entries[0].Ident != ident {
			r.removeProcedureEntries(ProcedureDeparture)
		}
		r.Plan.Entries[0] = e
		r.clearAirway(1)
		r.updateEndpointMetadata()
		r.UpdateAll()
		return nil
	}
	return r.InsertEntry(e, 0)
}

// SetDestination makes the named airport the destination, analogously to
// SetDeparture.
func (r *Route) SetDestination(ident string) error {
	ap, ok := r.db.Airports[ident]
	if !ok {
		return ErrUnknownWaypoint
	}

	e := FlightplanEntry{Ident: ap.Ident, Kind: KindAirport, Location: ap.Location}
	n := len(r.Plan.Entries)
	if n > 0 && r.Plan.Entries[n-1].Kind == KindAirport {
		if r.Plan.Entries[n-1].Ident != ident {
			r.removeProcedureEntries(ProcedureArrivalAll)
			n = len(r.Plan.Entries)
		}
		r.Plan.Entries[n-1] = e
		r.clearAirway(n - 1)
		r.updateEndpointMetadata()
		r.UpdateAll()
		return nil
	}
	return r.InsertEntry(e, n)
}

// updateEndpointMetadata refreshes the plan-level departure/destination
// fields from the current endpoint entries, including the best-runway
// start position for the departure.
func (r *Route) updateEndpointMetadata() {
	entries := r.Plan.Entries
	if len(entries) == 0 {
		r.Plan.DepartureIdent, r.Plan.DepartureName = "", ""
		r.Plan.DestinationIdent, r.Plan.DestinationName = "", ""
		r.Plan.StartPosition = ""
		return
	}

	if dep := entries[0]; dep.Kind == KindAirport {
		if dep.Ident != r.Plan.DepartureIdent {
			r.Plan.StartPosition = ""
		}
		r.Plan.DepartureIdent = dep.Ident
		if ap, ok := r.db.Airports[dep.Ident]; ok {
			r.Plan.DepartureName = ap.Name
			if r.Plan.StartPosition == "" {
				r.updateStartPositionBestRunway(ap)
			}
		}
	} else {
		r.Plan.DepartureIdent, r.Plan.DepartureName, r.Plan.StartPosition = "", "", ""
	}

	if dest := entries[len(entries)-1]; dest.Kind == KindAirport {
		r.Plan.DestinationIdent = dest.Ident
		if ap, ok := r.db.Airports[dest.Ident]; ok {
			r.Plan.DestinationName = ap.Name
		}
	} else {
		r.Plan.DestinationIdent, r.Plan.DestinationName = "", ""
	}
}

// updateStartPositionBestRunway picks the departure start runway: the
// best runway facing the first leg after the airport, or the longest
// runway if the plan has no second point yet.
func (r *Route) updateStartPositionBestRunway(ap *nav.Airport) {
	prefer := float32(-1)
	if len(r.Plan.Entries) > 1 {
		next := r.Plan.Entries[1].Location
		if !next.IsZero() {
			prefer = math.Heading2LL(ap.Location, next, math.NMPerLongitude(ap.Location), 0)
		}
	}
	if rwy, ok := ap.BestRunway(prefer); ok {
		r.Plan.StartPosition = "RW" + rwy.Id
	}
}

// StartIndexAfterProcedure returns the index of the last entry of the
// departure procedure range, or 0 if none is attached. It is the anchor
// the free enroute span starts from.
func (r *Route) StartIndexAfterProcedure() int {
	i := 0
	for i+1 < len(r.Plan.Entries) && r.Plan.Entries[i+1].Procedure&ProcedureDeparture != 0 {
		i++
	}
	return i
}

// DestinationIndexBeforeProcedure returns the index of the first entry
// of the arrival procedure range, or the last index if none is attached.
// It is the anchor the free enroute span ends at.
func (r *Route) DestinationIndexBeforeProcedure() int {
	j := len(r.Plan.Entries) - 1
	for j > 0 && r.Plan.Entries[j-1].Procedure&ProcedureArrivalAll != 0 {
		j--
	}
	return j
}

// RemoveDuplicateLegs collapses consecutive entries with the same ident,
// as left behind at splice boundaries after a calculation or a procedure
// attach. The procedure-owned entry of a pair survives.
func (r *Route) RemoveDuplicateLegs() {
	entries := r.Plan.Entries
	for i := len(entries) - 1; i >= 1; i-- {
		a, b := &entries[i-1], &entries[i]
		if a.Ident == "" || a.Ident != b.Ident {
			continue
		}
		switch {
		case a.Procedure == ProcedureNone && b.Procedure != ProcedureNone:
			entries = append(entries[:i-1], entries[i:]...)
		case b.Procedure == ProcedureNone:
			entries = append(entries[:i], entries[i+1:]...)
		}
	}
	r.Plan.Entries = entries
}

// SetEntries replaces the entry sequence wholesale, keeping the airway
// annotations on the incoming entries. Bulk construction (route-string
// parsing) goes through here rather than entry-by-entry insertion, which
// clears the airway name at every new adjacency. Attached procedures are
// dropped.
func (r *Route) SetEntries(entries []FlightplanEntry) {
	for i := range entries {
		entries[i].Procedure = ProcedureNone
		r.resolveEntry(&entries[i])
	}
	if len(entries) > 0 {
		entries[0].Airway = ""
	}
	r.Plan.Entries = entries
	r.clearSpecs(ProcedureAll)

	r.updateEndpointMetadata()
	r.UpdateAll()
}

// ApplySnapshot replaces the whole flight plan value and rebuilds the
// route, re-resolving procedures from the plan's procedure specs. It is
// the sole entry point for undo/redo replay and plan loading.
func (r *Route) ApplySnapshot(fp Flightplan) {
	r.Plan = deep.MustCopy(fp).RemoveProcedureEntries()
	r.reloadProcedures()
	r.updateEndpointMetadata()
	r.UpdateAll()
}

// UpdateAll recomputes every derived value: leg resolution, courses,
// distances, total distance, bounding extent, and the active leg. Called
// after every structural change before the route is considered
// consistent.
func (r *Route) UpdateAll() {
	entries := r.Plan.Entries
	r.Legs = make([]RouteLeg, len(entries))
	r.TotalDistance = 0

	now := time.Now()
	for i := range entries {
		e := &entries[i]
		if e.Procedure == ProcedureNone {
			r.resolveEntry(e)
		}
		var ref nav.Ref
		if e.Kind != KindUser {
			if _, rf, ok := r.db.Locate(e.Ident); ok {
				ref = rf
			}
		}
		leg := RouteLeg{Entry: *e, Ref: ref}

		if i > 0 {
			prev := entries[i-1].Location
			if !prev.IsZero() || !e.Location.IsZero() {
				leg.Distance = math.NMDistance2LL(prev, e.Location)
				leg.CourseTrue = math.Heading2LL(prev, e.Location, math.NMPerLongitude(prev), 0)
				leg.CourseMag = math.NormalizeHeading(
					leg.CourseTrue - nav.MagneticVariation(prev, now))
			}
			leg.CumDist = r.Legs[i-1].CumDist + leg.Distance
			r.TotalDistance += leg.Distance
		}
		r.Legs[i] = leg
	}

	r.updateExtent()
	if r.havePos {
		r.updateActiveLeg()
	} else if r.activeLeg >= len(r.Legs) {
		r.activeLeg = -1
	}
}

func (r *Route) updateExtent() {
	first := true
	for i := range r.Legs {
		loc := r.Legs[i].Entry.Location
		if loc.IsZero() && !r.Legs[i].IsValid() {
			continue
		}
		if first {
			r.Extent = [2]math.Point2LL{loc, loc}
			first = false
			continue
		}
		for j := 0; j < 2; j++ {
			r.Extent[0][j] = min(r.Extent[0][j], loc[j])
			r.Extent[1][j] = max(r.Extent[1][j], loc[j])
		}
	}
	if first {
		r.Extent = [2]math.Point2LL{}
	}
}

// SetPosition updates the tracked aircraft position and returns the new
// active leg index, -1 if the route is too short to have one.
func (r *Route) SetPosition(p math.Point2LL) int {
	r.position = p
	r.havePos = true
	r.updateActiveLeg()
	return r.activeLeg
}

// ActiveLeg returns the index of the leg nearest the tracked position,
// -1 if no position has been set or the route has fewer than two legs.
func (r *Route) ActiveLeg() int { return r.activeLeg }

// updateActiveLeg picks the leg whose segment the tracked position is
// nearest, measured by the detour through the position relative to the
// leg's own length.
func (r *Route) updateActiveLeg() {
	r.activeLeg = -1
	if len(r.Legs) < 2 {
		return
	}

	best := float32(0)
	for i := 1; i < len(r.Legs); i++ {
		from := r.Legs[i-1].Entry.Location
		to := r.Legs[i].Entry.Location
		detour := math.NMDistance2LL(r.position, from) +
			math.NMDistance2LL(r.position, to) - r.Legs[i].Distance
		if r.activeLeg == -1 || detour < best {
			r.activeLeg, best = i, detour
		}
	}
}
