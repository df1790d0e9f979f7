// route/controller.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/flyplan/flyplan/log"
	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/nav"
	"github.com/flyplan/flyplan/routing"
)

// DefaultMaxDistanceDirectRatio rejects found routes longer than this
// multiple of the direct great-circle distance.
const DefaultMaxDistanceDirectRatio = 2.0

type Options struct {
	// MaxDistanceDirectRatio overrides the acceptance threshold for
	// found routes; 0 selects the default.
	MaxDistanceDirectRatio float32
	PreferVORToAirway      bool
	PreferNDBToAirway      bool
	// UndoLimit bounds the undo history; 0 selects the default.
	UndoLimit int
}

// Controller is the mutation façade over one Route: every user-level
// operation goes through it so that undo recording, event posting, and
// route recomputation stay consistent. All methods are synchronous and
// run to completion before the next operation is accepted; the
// controller is not safe for concurrent use.
type Controller struct {
	db     *nav.Database
	lg     *log.Logger
	route  *Route
	undo   *UndoStack
	events *EventStream

	network *routing.Network
	finder  *routing.Finder

	maxRatio  float32
	preferVOR bool
	preferNDB bool
}

func NewController(db *nav.Database, events *EventStream, lg *log.Logger, opts Options) *Controller {
	ratio := opts.MaxDistanceDirectRatio
	if ratio <= 0 {
		ratio = DefaultMaxDistanceDirectRatio
	}

	nw := routing.NewNetwork(lg)
	c := &Controller{
		db:        db,
		lg:        lg,
		route:     NewRoute(db, lg),
		undo:      NewUndoStack(opts.UndoLimit),
		events:    events,
		network:   nw,
		finder:    routing.NewFinder(nw),
		maxRatio:  ratio,
		preferVOR: opts.PreferVORToAirway,
		preferNDB: opts.PreferNDBToAirway,
	}
	return c
}

// Route returns the live route for read-only inspection. Mutations must
// go through the controller.
func (c *Controller) Route() *Route    { return c.route }
func (c *Controller) Legs() []RouteLeg { return c.route.Legs }
func (c *Controller) CanUndo() bool    { return c.undo.CanUndo() }
func (c *Controller) CanRedo() bool    { return c.undo.CanRedo() }
func (c *Controller) UndoText() string { return c.undo.UndoText() }
func (c *Controller) RedoText() string { return c.undo.RedoText() }
func (c *Controller) HasChanged() bool { return c.undo.HasChanged() }

// Plan returns a detached copy of the flight plan; mutating it does not
// affect the route.
func (c *Controller) Plan() Flightplan {
	fp := c.route.Plan
	fp.Entries = slices.Clone(fp.Entries)
	return fp
}

func (c *Controller) post(ev Event) {
	if c.events != nil {
		c.events.Post(ev)
	}
}

func (c *Controller) postChanged(geometry bool, status string) {
	c.post(Event{Type: RouteChangedEvent, GeometryChanged: geometry})
	if status != "" {
		c.post(Event{Type: StatusMessageEvent, Message: status})
	}
}

// transact wraps one mutator in an undo transaction; the command is only
// recorded if the mutator succeeds.
func (c *Controller) transact(text string, typ CommandType, geometry bool, mutate func() error) (string, error) {
	cmd := c.undo.PreChange(text, typ, c.route.Plan)
	if err := mutate(); err != nil {
		c.lg.Debugf("%s: %v", text, err)
		return "", err
	}
	c.undo.PostChange(cmd, c.route.Plan)
	c.postChanged(geometry, text)
	return text, nil
}

// NewFlightplan discards the current plan and history.
func (c *Controller) NewFlightplan() {
	c.route = NewRoute(c.db, c.lg)
	c.undo.Clear()
	c.postChanged(true, "new flight plan")
}

func (c *Controller) InsertEntry(e FlightplanEntry, index int) (string, error) {
	return c.transact(fmt.Sprintf("add %s", e.Ident), CommandEdit, true,
		func() error { return c.route.InsertEntry(e, index) })
}

func (c *Controller) RemoveEntry(index int) (string, error) {
	if index < 0 || index >= c.route.Size() {
		return "", ErrInvalidIndex
	}
	ident := c.route.Plan.Entries[index].Ident
	return c.transact(fmt.Sprintf("delete %s", ident), CommandEdit, true,
		func() error { return c.route.RemoveEntry(index) })
}

// SetEntries replaces the plan's entries wholesale as a single undo
// step, keeping airway annotations on the incoming entries.
func (c *Controller) SetEntries(entries []FlightplanEntry, text string) (string, error) {
	return c.transact(text, CommandEdit, true,
		func() error {
			c.route.SetEntries(entries)
			return nil
		})
}

func (c *Controller) ReplaceEntry(e FlightplanEntry, index int) (string, error) {
	return c.transact(fmt.Sprintf("change to %s", e.Ident), CommandEdit, true,
		func() error { return c.route.ReplaceEntry(e, index) })
}

func (c *Controller) MoveEntry(from, to int) (string, error) {
	return c.transact("move waypoint", CommandEdit, true,
		func() error { return c.route.MoveEntry(from, to) })
}

func (c *Controller) Reverse() (string, error) {
	return c.transact("reverse route", CommandReverse, true,
		func() error { return c.route.Reverse() })
}

func (c *Controller) SetDeparture(ident string) (string, error) {
	return c.transact(fmt.Sprintf("set departure %s", ident), CommandEdit, true,
		func() error { return c.route.SetDeparture(ident) })
}

func (c *Controller) SetDestination(ident string) (string, error) {
	return c.transact(fmt.Sprintf("set destination %s", ident), CommandEdit, true,
		func() error { return c.route.SetDestination(ident) })
}

// AttachProcedure resolves the named procedure at the airport and
// splices it into the route. The returned status carries any
// runway-mismatch warning.
func (c *Controller) AttachProcedure(airport string, kind nav.ProcKind, name, transition, runway string) (string, error) {
	pl, err := c.db.ResolveProcedure(airport, kind, name, transition, runway)
	if err != nil {
		return "", err
	}

	var warning string
	status, err := c.transact(fmt.Sprintf("attach %s %s", kind, pl.FullName()),
		CommandProcedure, true,
		func() error {
			var err error
			warning, err = c.route.AttachProcedure(pl)
			return err
		})
	if err != nil {
		return "", err
	}
	if warning != "" {
		c.post(Event{Type: StatusMessageEvent, Message: warning})
		status += "; " + warning
	}
	return status, nil
}

func (c *Controller) RemoveProcedureLegs(mask ProcedureType) (string, error) {
	return c.transact(fmt.Sprintf("remove %s", mask), CommandProcedure, true,
		func() error { return c.route.RemoveProcedureLegs(mask) })
}

// SetCruiseAltitude changes the plan cruise altitude; consecutive
// changes merge into one undo step.
func (c *Controller) SetCruiseAltitude(altitude int) (string, error) {
	return c.transact(fmt.Sprintf("cruise altitude %d", altitude), CommandAltitude, false,
		func() error {
			c.route.Plan.CruiseAltitude = altitude
			return nil
		})
}

// HemisphericAltitude rounds an altitude up to the hemispheric cruising
// level for the given true course: odd thousands eastbound, even
// thousands westbound, plus 500 ft under VFR.
func HemisphericAltitude(altitude int, courseTrue float32, vfr bool) int {
	if altitude <= 0 {
		return altitude
	}
	add := 0
	if vfr {
		add = 500
	}

	east := math.NormalizeHeading(courseTrue) < 180
	level := 1000
	if !east {
		level = 2000
	}
	for level+add < altitude {
		level += 2000
	}
	return level + add
}

// AdjustAltitude rounds the cruise altitude up per the hemispheric rule
// using the overall route course.
func (c *Controller) AdjustAltitude() (string, error) {
	entries := c.route.Plan.Entries
	if len(entries) < 2 {
		return "", ErrEmptyRoute
	}

	dep, dest := entries[0].Location, entries[len(entries)-1].Location
	course := math.Heading2LL(dep, dest, math.NMPerLongitude(dep), 0)
	adjusted := HemisphericAltitude(c.route.Plan.CruiseAltitude, course,
		c.route.Plan.Type == PlanVFR)
	if adjusted == c.route.Plan.CruiseAltitude {
		return "", nil
	}
	return c.SetCruiseAltitude(adjusted)
}

// SetPosition updates the tracked aircraft position and posts an event
// if the active leg changed.
func (c *Controller) SetPosition(p math.Point2LL) {
	prev := c.route.ActiveLeg()
	if active := c.route.SetPosition(p); active != prev {
		c.post(Event{Type: ActiveLegChangedEvent, ActiveLeg: active})
	}
}

// Undo reverts the most recent operation by replaying its before
// snapshot. Undo itself is not recorded.
func (c *Controller) Undo() (string, error) {
	fp, text, err := c.undo.Undo()
	if err != nil {
		return "", err
	}
	c.route.ApplySnapshot(fp)
	status := "undo " + text
	c.postChanged(true, status)
	return status, nil
}

// Redo reapplies the most recently undone operation.
func (c *Controller) Redo() (string, error) {
	fp, text, err := c.undo.Redo()
	if err != nil {
		return "", err
	}
	c.route.ApplySnapshot(fp)
	status := "redo " + text
	c.postChanged(true, status)
	return status, nil
}

///////////////////////////////////////////////////////////////////////////
// Calculation

// CalculateDirect removes all free enroute waypoints in the given span
// so that the route flies direct. from and to select a sub-span by
// entry index; pass -1 for the full free span.
func (c *Controller) CalculateDirect(from, to int) (string, error) {
	return c.transact("calculate direct", CommandCalculate, true,
		func() error {
			start, end, err := c.enrouteSpan(from, to)
			if err != nil {
				return err
			}
			entries := c.route.Plan.Entries
			c.route.Plan.Entries = append(entries[:start+1], entries[end:]...)
			c.route.clearAirway(start + 1)
			c.route.updateEndpointMetadata()
			c.route.UpdateAll()
			return nil
		})
}

// CalculateRadionav finds a route along direct legs between radio
// navaids.
func (c *Controller) CalculateRadionav(from, to int) (string, error) {
	return c.calculate(routing.ModeRadionav, 0, from, to)
}

// CalculateLowAlt finds a route along low-altitude (victor) airways.
func (c *Controller) CalculateLowAlt(from, to int) (string, error) {
	return c.calculate(routing.ModeVictor|routing.ModeRadionav, 0, from, to)
}

// CalculateHighAlt finds a route along high-altitude (jet) airways.
func (c *Controller) CalculateHighAlt(from, to int) (string, error) {
	return c.calculate(routing.ModeJet|routing.ModeRadionav, 0, from, to)
}

// CalculateSetAlt finds a route along all airways usable at the plan's
// cruise altitude.
func (c *Controller) CalculateSetAlt(from, to int) (string, error) {
	return c.calculate(routing.ModeAirway|routing.ModeRadionav,
		c.route.Plan.CruiseAltitude, from, to)
}

// enrouteSpan clamps the requested range to the free enroute span
// between the attached procedures. The returned start and end are the
// anchor entries the calculation connects.
func (c *Controller) enrouteSpan(from, to int) (start, end int, err error) {
	start = c.route.StartIndexAfterProcedure()
	end = c.route.DestinationIndexBeforeProcedure()
	if from >= 0 {
		start = max(start, from)
	}
	if to >= 0 {
		end = min(end, to)
	}
	if start >= end || end >= c.route.Size() {
		return 0, 0, ErrInvalidIndex
	}
	return start, end, nil
}

func (c *Controller) calculate(mode routing.Mode, altitude, from, to int) (string, error) {
	start, end, err := c.enrouteSpan(from, to)
	if err != nil {
		return "", err
	}
	depPos := c.route.Plan.Entries[start].Location
	destPos := c.route.Plan.Entries[end].Location

	if !c.network.Initialized() {
		if err := c.network.Init(c.db, mode); err != nil {
			return "", err
		}
	} else if err := c.network.SetMode(mode); err != nil {
		return "", err
	}
	c.finder.SetPreferVORToAirway(c.preferVOR)
	c.finder.SetPreferNDBToAirway(c.preferNDB)

	// The route is left unchanged on any failure below.
	if !c.finder.Calculate(depPos, destPos, altitude) {
		c.post(Event{Type: StatusMessageEvent, Message: "no route found"})
		return "", ErrNoRouteFound
	}
	path, pathDist := c.finder.ExtractRoute()

	// Reject degenerate solutions: a path much longer than the direct
	// great-circle connection is operationally useless even though the
	// search succeeded.
	direct := math.NMDistance2LL(depPos, destPos)
	if direct > 0 && pathDist/direct >= c.maxRatio {
		c.lg.Debugf("route rejected: %.0f nm vs %.0f nm direct", pathDist, direct)
		c.post(Event{Type: StatusMessageEvent, Message: "no route found"})
		return "", ErrRouteTooIndirect
	}

	return c.transact(fmt.Sprintf("calculate route (%.0f nm)", pathDist),
		CommandCalculate, true,
		func() error {
			c.replaceEnrouteSpan(start, end, path)
			return nil
		})
}

// replaceEnrouteSpan swaps the free entries between the two anchors for
// the found path, sets airway names from the traversed edges, and
// collapses duplicates at the splice boundaries.
func (c *Controller) replaceEnrouteSpan(start, end int, path []routing.RouteEntry) {
	newEntries := make([]FlightplanEntry, 0, len(path))
	for _, pe := range path {
		e := FlightplanEntry{Ident: c.identFor(pe.Ref), Kind: entryKindForRef(pe.Ref.Type)}
		if loc, ok := c.db.LocationOf(pe.Ref); ok {
			e.Location = loc
		}
		if aw, ok := c.db.AirwayByID(pe.AirwayID); ok {
			e.Airway = aw.Name
		}
		newEntries = append(newEntries, e)
	}

	entries := c.route.Plan.Entries
	tail := append(newEntries, entries[end:]...)
	c.route.Plan.Entries = append(entries[:start+1], tail...)

	// The legs into the first path entry and into the destination anchor
	// are direct.
	c.route.clearAirway(start + 1)
	c.route.clearAirway(start + 1 + len(newEntries))

	c.route.RemoveDuplicateLegs()
	c.route.updateEndpointMetadata()
	c.route.UpdateAll()
}

func (c *Controller) identFor(r nav.Ref) string {
	switch r.Type {
	case nav.RefAirport:
		if ap, ok := c.db.AirportByID(r.ID); ok {
			return ap.Ident
		}
	case nav.RefVOR, nav.RefNDB:
		if n, ok := c.db.NavaidByID(r.ID); ok {
			return n.Ident
		}
	case nav.RefWaypoint:
		if f, ok := c.db.FixByID(r.ID); ok {
			return f.Ident
		}
	}
	return ""
}

///////////////////////////////////////////////////////////////////////////
// Plan file I/O

// SaveFlightplan writes the plan as JSON, without procedure-generated
// entries, and marks the undo state clean.
func (c *Controller) SaveFlightplan(path string) error {
	b, err := json.MarshalIndent(c.route.Plan.RemoveProcedureEntries(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	c.undo.SetClean()
	return nil
}

// LoadFlightplan reads a JSON plan and replaces the current route. The
// route is untouched if decoding fails; the undo history is cleared on
// success.
func (c *Controller) LoadFlightplan(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fp Flightplan
	if err := json.Unmarshal(b, &fp); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.route.ApplySnapshot(fp)
	c.undo.Clear()
	c.postChanged(true, fmt.Sprintf("loaded %s", path))
	return nil
}
