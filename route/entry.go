// route/entry.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/util"
)

// EntryKind distinguishes what a flight plan entry resolves to. Every
// consumer switches exhaustively over it; KindInvalid is a real state
// (the ident no longer resolves), not an error.
type EntryKind int

const (
	KindInvalid EntryKind = iota
	KindAirport
	KindVOR
	KindNDB
	KindWaypoint
	KindUser // user-defined position, not in the database
)

func (k EntryKind) String() string {
	return []string{"invalid", "airport", "VOR", "NDB", "waypoint", "user"}[k]
}

// ProcedureType tags a leg with the procedure range that owns it; zero
// means a free enroute leg.
type ProcedureType int

const (
	ProcedureSID ProcedureType = 1 << iota
	ProcedureSIDTransition
	ProcedureSTAR
	ProcedureSTARTransition
	ProcedureApproach
	ProcedureApproachTransition
	ProcedureMissed
)

const (
	ProcedureNone        ProcedureType = 0
	ProcedureDeparture                 = ProcedureSID | ProcedureSIDTransition
	ProcedureSTARAll                   = ProcedureSTAR | ProcedureSTARTransition
	ProcedureApproachAll               = ProcedureApproach | ProcedureApproachTransition | ProcedureMissed
	ProcedureArrivalAll                = ProcedureSTARAll | ProcedureApproachAll
	ProcedureAll                       = ProcedureDeparture | ProcedureArrivalAll
)

func (p ProcedureType) String() string {
	if p == ProcedureNone {
		return "none"
	}
	var s []string
	for _, pt := range []struct {
		t ProcedureType
		n string
	}{
		{ProcedureSID, "SID"},
		{ProcedureSIDTransition, "SID transition"},
		{ProcedureSTAR, "STAR"},
		{ProcedureSTARTransition, "STAR transition"},
		{ProcedureApproach, "approach"},
		{ProcedureApproachTransition, "approach transition"},
		{ProcedureMissed, "missed"},
	} {
		if p&pt.t != 0 {
			s = append(s, pt.n)
		}
	}
	var r string
	for i, n := range s {
		if i > 0 {
			r += "+"
		}
		r += n
	}
	return r
}

// FlightplanEntry is one requested point of the plan. Entries are value
// types: edits replace them wholesale, never mutate them in place.
// Procedure-generated entries carry a non-zero Procedure tag and are
// filtered out of snapshots and saved plans, since procedures are
// regenerated from the plan's procedure specs.
type FlightplanEntry struct {
	Ident     string        `json:"ident"`
	Region    string        `json:"region,omitempty"`
	Kind      EntryKind     `json:"kind"`
	Location  math.Point2LL `json:"location"`
	Airway    string        `json:"airway,omitempty"` // airway flown to reach this entry
	Altitude  int           `json:"altitude,omitempty"` // crossing override, feet; 0 if none
	Procedure ProcedureType `json:"-"`
}

// NoSave reports whether the entry is regenerated rather than stored.
func (e FlightplanEntry) NoSave() bool { return e.Procedure != ProcedureNone }

// PlanType is the flight rules of the plan; it drives the hemispheric
// cruise altitude rule.
type PlanType int

const (
	PlanIFR PlanType = iota
	PlanVFR
)

func (t PlanType) String() string {
	return []string{"IFR", "VFR"}[t]
}

// ProcedureSpec names an attached procedure so that it can be re-resolved
// after a snapshot restore or a recalculation.
type ProcedureSpec struct {
	Name       string `json:"name"`
	Transition string `json:"transition,omitempty"`
	Runway     string `json:"runway,omitempty"`
}

func (s ProcedureSpec) IsSet() bool { return s.Name != "" }

// Flightplan is the stored flight plan value: the entry sequence plus
// plan-level metadata. It is the unit of undo snapshots and of file
// save/load.
type Flightplan struct {
	Entries []FlightplanEntry `json:"entries"`

	DepartureIdent   string `json:"departure_ident,omitempty"`
	DepartureName    string `json:"departure_name,omitempty"`
	DestinationIdent string `json:"destination_ident,omitempty"`
	DestinationName  string `json:"destination_name,omitempty"`
	StartPosition    string `json:"start_position,omitempty"` // parking or runway at the departure

	CruiseAltitude int      `json:"cruise_altitude,omitempty"` // feet
	Type           PlanType `json:"type"`

	SID      ProcedureSpec `json:"sid,omitzero"`
	STAR     ProcedureSpec `json:"star,omitzero"`
	Approach ProcedureSpec `json:"approach,omitzero"`
}

// RemoveProcedureEntries returns a copy of the plan without the
// procedure-generated entries.
func (fp Flightplan) RemoveProcedureEntries() Flightplan {
	fp.Entries = util.FilterSlice(fp.Entries, func(e FlightplanEntry) bool { return !e.NoSave() })
	return fp
}
