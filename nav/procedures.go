// nav/procedures.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"

	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/util"

	lru "github.com/hashicorp/golang-lru/v2"
)

type ProcKind int

const (
	ProcSID ProcKind = iota
	ProcSTAR
	ProcApproach
)

func (k ProcKind) String() string {
	return []string{"SID", "STAR", "approach"}[k]
}

// ProcedureFix is one fix in a stored procedure definition. Altitude is a
// crossing restriction in feet, 0 if none.
type ProcedureFix struct {
	Fix      string `json:"fix"`
	Altitude int    `json:"altitude,omitempty"`
	FlyOver  bool   `json:"fly_over,omitempty"`
}

// Procedure is the stored form of a SID, STAR, or approach: the common
// fix sequence plus named transitions. Approaches may carry a missed
// segment. Procedures are resolved on demand into ProcedureLegs.
type Procedure struct {
	Name        string                    `json:"name"`
	Runway      string                    `json:"runway,omitempty"` // empty for multi-runway SID/STAR
	Fixes       []ProcedureFix            `json:"fixes"`
	Transitions map[string][]ProcedureFix `json:"transitions,omitempty"`
	Missed      []ProcedureFix            `json:"missed,omitempty"`
}

func (p *Procedure) check(db *Database, ap *Airport, e *util.ErrorLogger) {
	checkFixes := func(fixes []ProcedureFix) {
		for _, pf := range fixes {
			if _, _, ok := db.Locate(pf.Fix); !ok {
				e.ErrorString("fix %s not found in navaid database", pf.Fix)
			}
		}
	}
	checkFixes(p.Fixes)
	for _, tr := range util.SortedMapKeys(p.Transitions) {
		checkFixes(p.Transitions[tr])
	}
	checkFixes(p.Missed)

	if p.Runway != "" {
		if _, ok := ap.Runway(p.Runway); !ok {
			e.ErrorString("runway %s not found at %s", p.Runway, ap.Ident)
		}
	}
}

// ProcedureLeg is one resolved leg of a procedure, bound to a database
// object and a position.
type ProcedureLeg struct {
	Fix        string
	Location   math.Point2LL
	Ref        Ref
	Altitude   int  // crossing restriction, feet; 0 if none
	FlyOver    bool
	Missed     bool // part of the missed approach segment
	Transition bool // part of the selected transition
}

// ProcedureLegs is a resolved, ordered procedure leg range ready to be
// spliced into a route, together with its bounding region and runway.
type ProcedureLegs struct {
	AirportID  int
	Airport    string
	Kind       ProcKind
	Name       string
	Transition string
	Runway     Runway // bound runway end; zero value if none resolved
	HasRunway  bool
	Legs       []ProcedureLeg
	Extent     [2]math.Point2LL // min/max corners, lat-long
}

func (pl *ProcedureLegs) FullName() string {
	if pl.Transition != "" {
		return pl.Name + "." + pl.Transition
	}
	return pl.Name
}

type procKey struct {
	airport    string
	kind       ProcKind
	name       string
	transition string
	runway     string
}

// procedureCache memoizes resolved procedures; resolution walks the fix
// maps and recomputes the extent, so repeat attachments (undo/redo,
// procedure reload after a snapshot) hit the cache.
type procedureCache struct {
	cache *lru.Cache[procKey, *ProcedureLegs]
}

func newProcedureCache() *procedureCache {
	c, err := lru.New[procKey, *ProcedureLegs](64)
	if err != nil {
		panic(err) // only fails for size <= 0
	}
	return &procedureCache{cache: c}
}

// ResolveProcedure resolves the named procedure at the given airport into
// an ordered leg range. kind selects which procedure map is consulted;
// transition may be empty; runwayHint overrides the procedure's stored
// runway for multi-runway SIDs/STARs.
func (db *Database) ResolveProcedure(airport string, kind ProcKind, name, transition, runwayHint string) (*ProcedureLegs, error) {
	ap, ok := db.Airports[airport]
	if !ok {
		return nil, fmt.Errorf("%s: unknown airport", airport)
	}

	var procs map[string]*Procedure
	switch kind {
	case ProcSID:
		procs = ap.SIDs
	case ProcSTAR:
		procs = ap.STARs
	case ProcApproach:
		procs = ap.Approaches
	}
	proc, ok := procs[name]
	if !ok {
		return nil, fmt.Errorf("%s: no %s at %s", name, kind, airport)
	}

	key := procKey{airport: airport, kind: kind, name: name, transition: transition, runway: runwayHint}
	if legs, ok := db.procCache.cache.Get(key); ok {
		return legs, nil
	}

	legs, err := db.resolveProcedure(ap, kind, proc, transition, runwayHint)
	if err != nil {
		return nil, err
	}
	db.procCache.cache.Add(key, legs)
	return legs, nil
}

func (db *Database) resolveProcedure(ap *Airport, kind ProcKind, proc *Procedure, transition, runwayHint string) (*ProcedureLegs, error) {
	pl := &ProcedureLegs{
		AirportID:  ap.ID,
		Airport:    ap.Ident,
		Kind:       kind,
		Name:       proc.Name,
		Transition: transition,
	}

	var trFixes []ProcedureFix
	if transition != "" {
		var ok bool
		if trFixes, ok = proc.Transitions[transition]; !ok {
			return nil, fmt.Errorf("%s: no transition %s", proc.Name, transition)
		}
	}

	resolve := func(fixes []ProcedureFix, isTransition, isMissed bool) error {
		for _, pf := range fixes {
			loc, ref, ok := db.Locate(pf.Fix)
			if !ok {
				return fmt.Errorf("%s: fix not found in navaid database", pf.Fix)
			}
			pl.Legs = append(pl.Legs, ProcedureLeg{
				Fix:        pf.Fix,
				Location:   loc,
				Ref:        ref,
				Altitude:   pf.Altitude,
				FlyOver:    pf.FlyOver,
				Missed:     isMissed,
				Transition: isTransition,
			})
		}
		return nil
	}

	// SIDs fly common fixes first, then the transition outward; STARs and
	// approaches fly the transition inward first.
	var err error
	switch kind {
	case ProcSID:
		if err = resolve(proc.Fixes, false, false); err == nil {
			err = resolve(trFixes, true, false)
		}
	case ProcSTAR, ProcApproach:
		if err = resolve(trFixes, true, false); err == nil {
			if err = resolve(proc.Fixes, false, false); err == nil {
				err = resolve(proc.Missed, false, true)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if len(pl.Legs) == 0 {
		return nil, fmt.Errorf("%s: procedure has no fixes", proc.Name)
	}

	// Bind the runway: an explicit hint wins, then the stored runway,
	// then the best runway facing the first/last leg.
	rwyName := util.Select(runwayHint != "", runwayHint, proc.Runway)
	if rwyName != "" {
		if rwy, ok := ap.Runway(rwyName); ok {
			pl.Runway, pl.HasRunway = rwy, true
		} else {
			return nil, fmt.Errorf("%s: runway %s not found at %s", proc.Name, rwyName, ap.Ident)
		}
	} else {
		var anchor math.Point2LL
		if kind == ProcSID {
			anchor = pl.Legs[0].Location
		} else {
			anchor = pl.Legs[len(pl.Legs)-1].Location
		}
		hdg := math.Heading2LL(ap.Location, anchor, math.NMPerLongitude(ap.Location), 0)
		if kind == ProcSID {
			// Departures want the runway pointing at the first fix;
			// arrivals fly from the last fix toward the airport.
			pl.Runway, pl.HasRunway = ap.BestRunway(hdg)
		} else {
			pl.Runway, pl.HasRunway = ap.BestRunway(math.OppositeHeading(hdg))
		}
	}

	pl.Extent = legsExtent(pl.Legs, ap.Location)
	return pl, nil
}

func legsExtent(legs []ProcedureLeg, p0 math.Point2LL) [2]math.Point2LL {
	ext := [2]math.Point2LL{p0, p0}
	for _, l := range legs {
		for i := 0; i < 2; i++ {
			ext[0][i] = min(ext[0][i], l.Location[i])
			ext[1][i] = max(ext[1][i], l.Location[i])
		}
	}
	return ext
}
