// route/splice.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"fmt"

	"github.com/flyplan/flyplan/nav"
	"github.com/flyplan/flyplan/util"
)

// procedureTag maps one resolved procedure leg to the range tag it is
// owned by.
func procedureTag(kind nav.ProcKind, leg nav.ProcedureLeg) ProcedureType {
	switch kind {
	case nav.ProcSID:
		return util.Select(leg.Transition, ProcedureSIDTransition, ProcedureSID)
	case nav.ProcSTAR:
		return util.Select(leg.Transition, ProcedureSTARTransition, ProcedureSTAR)
	case nav.ProcApproach:
		if leg.Missed {
			return ProcedureMissed
		}
		return util.Select(leg.Transition, ProcedureApproachTransition, ProcedureApproach)
	}
	return ProcedureNone
}

func entryKindForRef(t nav.RefType) EntryKind {
	switch t {
	case nav.RefAirport:
		return KindAirport
	case nav.RefVOR:
		return KindVOR
	case nav.RefNDB:
		return KindNDB
	case nav.RefWaypoint:
		return KindWaypoint
	}
	return KindInvalid
}

// AttachProcedure splices the resolved procedure into its contiguous
// region: departure legs right after index 0, arrival legs (STAR, then
// approach and missed) right before the last index. A previously
// attached range of the same category is replaced, and the adjoining
// airport entry is updated if it does not match the procedure's airport.
// The returned warning is non-empty for reported-but-not-fatal
// conditions such as a STAR/approach runway mismatch.
func (r *Route) AttachProcedure(pl *nav.ProcedureLegs) (warning string, err error) {
	ap, ok := r.db.Airports[pl.Airport]
	if !ok {
		return "", ErrUnknownWaypoint
	}

	switch pl.Kind {
	case nav.ProcSID:
		r.ensureEndpointAirport(ap, true)
		r.removeProcedureEntries(ProcedureDeparture)
	case nav.ProcSTAR:
		r.ensureEndpointAirport(ap, false)
		r.removeProcedureEntries(ProcedureSTARAll)
		warning = r.runwayMismatch(pl, r.Plan.Approach)
	case nav.ProcApproach:
		r.ensureEndpointAirport(ap, false)
		r.removeProcedureEntries(ProcedureApproachAll)
		warning = r.runwayMismatch(pl, r.Plan.STAR)
	}

	index := r.spliceIndex(pl.Kind)
	procEntries := util.MapSlice(pl.Legs, func(l nav.ProcedureLeg) FlightplanEntry {
		return FlightplanEntry{
			Ident:     l.Fix,
			Kind:      entryKindForRef(l.Ref.Type),
			Location:  l.Location,
			Altitude:  l.Altitude,
			Procedure: procedureTag(pl.Kind, l),
		}
	})

	entries := r.Plan.Entries
	entries = append(entries[:index],
		append(procEntries, entries[index:]...)...)
	r.Plan.Entries = entries

	// The entry that now follows the procedure range lost its previous
	// predecessor; the leg into the entry before the range is unchanged.
	r.clearAirway(index + len(procEntries))

	spec := ProcedureSpec{Name: pl.Name, Transition: pl.Transition}
	if pl.HasRunway {
		spec.Runway = pl.Runway.Id
	}
	switch pl.Kind {
	case nav.ProcSID:
		r.Plan.SID = spec
	case nav.ProcSTAR:
		r.Plan.STAR = spec
	case nav.ProcApproach:
		r.Plan.Approach = spec
	}

	r.updateEndpointMetadata()
	r.UpdateAll()
	return warning, nil
}

// spliceIndex returns the entry index a procedure of the given kind is
// inserted at: after the departure airport for SIDs, before the approach
// range for STARs, before the destination for approaches.
func (r *Route) spliceIndex(kind nav.ProcKind) int {
	entries := r.Plan.Entries
	switch kind {
	case nav.ProcSID:
		return min(1, len(entries))
	case nav.ProcSTAR:
		for i, e := range entries {
			if e.Procedure&ProcedureApproachAll != 0 {
				return i
			}
		}
	}
	return max(len(entries)-1, 0)
}

// ensureEndpointAirport makes the departure (or destination) entry the
// given airport, replacing a differing airport entry or inserting one if
// the endpoint is not an airport.
func (r *Route) ensureEndpointAirport(ap *nav.Airport, departure bool) {
	e := FlightplanEntry{Ident: ap.Ident, Kind: KindAirport, Location: ap.Location}
	entries := r.Plan.Entries

	idx := util.Select(departure, 0, len(entries)-1)
	if len(entries) > 0 && entries[idx].Kind == KindAirport {
		if entries[idx].Ident != ap.Ident {
			entries[idx] = e
			r.clearAirway(idx)
			r.clearAirway(idx + 1)
		}
		return
	}

	at := util.Select(departure, 0, len(entries))
	r.Plan.Entries = append(entries[:at],
		append([]FlightplanEntry{e}, entries[at:]...)...)
	r.clearAirway(at)
	r.clearAirway(at + 1)
}

// runwayMismatch reports a STAR/approach runway conflict. Both ranges
// stay attached; the condition is surfaced, not rolled back.
func (r *Route) runwayMismatch(pl *nav.ProcedureLegs, other ProcedureSpec) string {
	if !pl.HasRunway || !other.IsSet() || other.Runway == "" {
		return ""
	}
	if pl.Runway.Id != other.Runway {
		return fmt.Sprintf("%s runway %s does not match runway %s of %s",
			pl.Kind, pl.Runway.Id, other.Runway, other.Name)
	}
	return ""
}

// RemoveProcedureLegs deletes all legs whose procedure tag matches the
// mask, collapses the gap, and clears the airway name at the new
// adjacency.
func (r *Route) RemoveProcedureLegs(mask ProcedureType) error {
	r.removeProcedureEntries(mask)
	r.updateEndpointMetadata()
	r.UpdateAll()
	return nil
}

// removeProcedureEntries is the structural half of RemoveProcedureLegs:
// it edits the entry sequence and procedure specs without recomputing.
func (r *Route) removeProcedureEntries(mask ProcedureType) {
	entries := r.Plan.Entries
	first := -1
	for i, e := range entries {
		if e.Procedure&mask != 0 {
			first = i
			break
		}
	}
	if first == -1 {
		r.clearSpecs(mask)
		return
	}

	r.Plan.Entries = util.FilterSlice(entries,
		func(e FlightplanEntry) bool { return e.Procedure&mask == 0 })
	// The entry that collapsed into the gap lost its predecessor.
	r.clearAirway(first)
	r.clearSpecs(mask)
}

func (r *Route) clearSpecs(mask ProcedureType) {
	if mask&ProcedureDeparture != 0 {
		r.Plan.SID = ProcedureSpec{}
	}
	if mask&ProcedureSTARAll != 0 {
		r.Plan.STAR = ProcedureSpec{}
	}
	if mask&ProcedureApproachAll != 0 {
		r.Plan.Approach = ProcedureSpec{}
	}
}

// reloadProcedures re-resolves and re-attaches the procedures named by
// the plan's procedure specs, after a snapshot restore or a plan load.
// A spec that no longer resolves is dropped with a warning.
func (r *Route) reloadProcedures() {
	attach := func(spec *ProcedureSpec, kind nav.ProcKind, airport string) {
		if !spec.IsSet() || airport == "" {
			*spec = ProcedureSpec{}
			return
		}
		s := *spec
		pl, err := r.db.ResolveProcedure(airport, kind, s.Name, s.Transition, s.Runway)
		if err != nil {
			r.lg.Warnf("%s: dropping %s: %v", airport, s.Name, err)
			*spec = ProcedureSpec{}
			return
		}
		if _, err := r.AttachProcedure(pl); err != nil {
			r.lg.Warnf("%s: dropping %s: %v", airport, s.Name, err)
			*spec = ProcedureSpec{}
		}
	}

	var depIdent, destIdent string
	if n := len(r.Plan.Entries); n > 0 {
		if r.Plan.Entries[0].Kind == KindAirport {
			depIdent = r.Plan.Entries[0].Ident
		}
		if r.Plan.Entries[n-1].Kind == KindAirport {
			destIdent = r.Plan.Entries[n-1].Ident
		}
	}

	attach(&r.Plan.SID, nav.ProcSID, depIdent)
	attach(&r.Plan.STAR, nav.ProcSTAR, destIdent)
	attach(&r.Plan.Approach, nav.ProcApproach, destIdent)
}
