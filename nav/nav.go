// nav/nav.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/util"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// RefType identifies the kind of navigation database object a Ref points
// to.
type RefType int

const (
	RefNone RefType = iota
	RefAirport
	RefVOR
	RefNDB
	RefWaypoint
	RefAirway
)

func (t RefType) String() string {
	return []string{"none", "airport", "VOR", "NDB", "waypoint", "airway"}[t]
}

// Ref is a stable reference to a navigation database object: integer id
// plus object kind. Ids are assigned at load time and remain valid until
// the database is replaced.
type Ref struct {
	ID   int
	Type RefType
}

func (r Ref) IsValid() bool { return r.Type != RefNone && r.ID > 0 }

type NavaidType int

const (
	NavaidVOR NavaidType = iota
	NavaidVORDME
	NavaidDME
	NavaidNDB
)

func (t NavaidType) String() string {
	return []string{"VOR", "VORDME", "DME", "NDB"}[t]
}

func (t NavaidType) IsVOR() bool { return t == NavaidVOR || t == NavaidVORDME }
func (t NavaidType) IsNDB() bool { return t == NavaidNDB }

// Navaid is a radio navigation aid. Frequency is stored in kHz so that
// both VOR (108.0-117.95 MHz) and NDB (190-1750 kHz) fit in an int.
type Navaid struct {
	ID        int           `json:"-"`
	Ident     string        `json:"ident"`
	Name      string        `json:"name"`
	Type      NavaidType    `json:"type"`
	Frequency int           `json:"frequency"`
	Range     float32       `json:"range"` // service volume, nm
	Location  math.Point2LL `json:"location"`
}

// Fix is a named enroute waypoint without a radio component.
type Fix struct {
	ID       int           `json:"-"`
	Ident    string        `json:"ident"`
	Location math.Point2LL `json:"location"`
}

type AirwayLevel int

const (
	AirwayLevelBoth AirwayLevel = iota
	AirwayLevelLow              // victor
	AirwayLevelHigh             // jet
)

func (l AirwayLevel) String() string {
	return []string{"both", "low", "high"}[l]
}

// AirwayFix is one fix along an airway. MinAltitude applies to the
// segment from this fix to the next one, feet; 0 if unrestricted.
type AirwayFix struct {
	Fix         string `json:"fix"`
	MinAltitude int    `json:"min_altitude,omitempty"`
}

type Airway struct {
	ID    int         `json:"-"`
	Name  string      `json:"name"`
	Level AirwayLevel `json:"level"`
	Fixes []AirwayFix `json:"fixes"`
}

// FixesBetween returns the airway fixes strictly between wp0 and wp1,
// ordered in the direction of travel. The second result is false if
// either fix is not on the airway.
func (a *Airway) FixesBetween(wp0, wp1 string) ([]AirwayFix, bool) {
	start := slices.IndexFunc(a.Fixes, func(f AirwayFix) bool { return f.Fix == wp0 })
	end := slices.IndexFunc(a.Fixes, func(f AirwayFix) bool { return f.Fix == wp1 })
	if start == -1 || end == -1 {
		return nil, false
	}

	var fixes []AirwayFix
	delta := util.Select(start < end, 1, -1)
	for i := start + delta; i != end; i += delta {
		fixes = append(fixes, a.Fixes[i])
	}
	return fixes, true
}

type Runway struct {
	Id        string        `json:"id"` // e.g. "22L"
	Heading   float32       `json:"heading"`
	Threshold math.Point2LL `json:"threshold"`
	Elevation int           `json:"elevation"`
	Length    float32       `json:"length"` // feet
}

type Airport struct {
	ID         int                   `json:"-"`
	Ident      string                `json:"ident"` // ICAO-style
	Name       string                `json:"name"`
	Location   math.Point2LL         `json:"location"`
	Elevation  int                   `json:"elevation"`
	Runways    []Runway              `json:"runways,omitempty"`
	SIDs       map[string]*Procedure `json:"sids,omitempty"`
	STARs      map[string]*Procedure `json:"stars,omitempty"`
	Approaches map[string]*Procedure `json:"approaches,omitempty"`
}

// BestRunway returns the runway that best matches the preferred heading:
// the longest runway wins, with ties (within 500 feet) broken by the
// smallest heading difference. preferHeading < 0 disables the heading
// preference. Returns false if the airport has no runways.
func (ap *Airport) BestRunway(preferHeading float32) (Runway, bool) {
	if len(ap.Runways) == 0 {
		return Runway{}, false
	}

	best := ap.Runways[0]
	for _, rwy := range ap.Runways[1:] {
		if rwy.Length > best.Length {
			best = rwy
		}
	}
	if preferHeading < 0 {
		return best, true
	}

	longest := best.Length
	for _, rwy := range ap.Runways {
		if longest-rwy.Length <= 500 &&
			math.HeadingDifference(rwy.Heading, preferHeading) <
				math.HeadingDifference(best.Heading, preferHeading) {
			best = rwy
		}
	}
	return best, true
}

func (ap *Airport) Runway(id string) (Runway, bool) {
	id = strings.TrimPrefix(strings.TrimSpace(id), "RW")
	for _, rwy := range ap.Runways {
		if rwy.Id == id {
			return rwy, true
		}
	}
	return Runway{}, false
}

///////////////////////////////////////////////////////////////////////////
// Database

// Database is the static navigation database: airports, radio navaids,
// enroute fixes, airways, and procedures, loaded once and read-only
// afterwards. All route-engine components take an explicit *Database;
// there is no package-level current database.
type Database struct {
	Airports map[string]*Airport
	Navaids  map[string]*Navaid
	Fixes    map[string]*Fix
	Airways  map[string]*Airway

	// Dense id tables; id 0 is reserved as invalid.
	airportsByID []*Airport
	navaidsByID  []*Navaid
	fixesByID    []*Fix
	airwaysByID  []*Airway

	// Fingerprint of the loaded data, used to key derived caches.
	Checksum string

	procCache *procedureCache
}

func newDatabase() *Database {
	return &Database{
		Airports:     make(map[string]*Airport),
		Navaids:      make(map[string]*Navaid),
		Fixes:        make(map[string]*Fix),
		Airways:      make(map[string]*Airway),
		airportsByID: []*Airport{nil},
		navaidsByID:  []*Navaid{nil},
		fixesByID:    []*Fix{nil},
		airwaysByID:  []*Airway{nil},
		procCache:    newProcedureCache(),
	}
}

// assignIDs gives every object a stable integer id; must be called once
// after the maps are populated. Iteration is over sorted idents so that
// ids are reproducible for a given data set.
func (db *Database) assignIDs() {
	for _, ident := range util.SortedMapKeys(db.Airports) {
		ap := db.Airports[ident]
		ap.ID = len(db.airportsByID)
		db.airportsByID = append(db.airportsByID, ap)
	}
	for _, ident := range util.SortedMapKeys(db.Navaids) {
		n := db.Navaids[ident]
		n.ID = len(db.navaidsByID)
		db.navaidsByID = append(db.navaidsByID, n)
	}
	for _, ident := range util.SortedMapKeys(db.Fixes) {
		f := db.Fixes[ident]
		f.ID = len(db.fixesByID)
		db.fixesByID = append(db.fixesByID, f)
	}
	for _, name := range util.SortedMapKeys(db.Airways) {
		a := db.Airways[name]
		a.ID = len(db.airwaysByID)
		db.airwaysByID = append(db.airwaysByID, a)
	}
}

func (db *Database) AirportByID(id int) (*Airport, bool) {
	if id <= 0 || id >= len(db.airportsByID) {
		return nil, false
	}
	return db.airportsByID[id], true
}

func (db *Database) NavaidByID(id int) (*Navaid, bool) {
	if id <= 0 || id >= len(db.navaidsByID) {
		return nil, false
	}
	return db.navaidsByID[id], true
}

func (db *Database) FixByID(id int) (*Fix, bool) {
	if id <= 0 || id >= len(db.fixesByID) {
		return nil, false
	}
	return db.fixesByID[id], true
}

func (db *Database) AirwayByID(id int) (*Airway, bool) {
	if id <= 0 || id >= len(db.airwaysByID) {
		return nil, false
	}
	return db.airwaysByID[id], true
}

// Locate resolves an ident to a position, checking navaids, then fixes,
// then airports (the priority matters: "SEA" should resolve to the VOR,
// not the airport).
func (db *Database) Locate(ident string) (math.Point2LL, Ref, bool) {
	if n, ok := db.Navaids[ident]; ok {
		return n.Location, Ref{ID: n.ID, Type: util.Select(n.Type.IsNDB(), RefNDB, RefVOR)}, true
	}
	if f, ok := db.Fixes[ident]; ok {
		return f.Location, Ref{ID: f.ID, Type: RefWaypoint}, true
	}
	if ap, ok := db.Airports[ident]; ok {
		return ap.Location, Ref{ID: ap.ID, Type: RefAirport}, true
	}
	return math.Point2LL{}, Ref{}, false
}

// LocationOf returns the position of the object a Ref points to.
func (db *Database) LocationOf(r Ref) (math.Point2LL, bool) {
	switch r.Type {
	case RefAirport:
		if ap, ok := db.AirportByID(r.ID); ok {
			return ap.Location, true
		}
	case RefVOR, RefNDB:
		if n, ok := db.NavaidByID(r.ID); ok {
			return n.Location, true
		}
	case RefWaypoint:
		if f, ok := db.FixByID(r.ID); ok {
			return f.Location, true
		}
	}
	return math.Point2LL{}, false
}

// Check cross-references the loaded data and accumulates any problems:
// airway fixes and procedure fixes must resolve.
func (db *Database) Check(e *util.ErrorLogger) {
	for _, name := range util.SortedMapKeys(db.Airways) {
		e.Push("airway " + name)
		for _, af := range db.Airways[name].Fixes {
			if _, _, ok := db.Locate(af.Fix); !ok {
				e.ErrorString("fix %s not found in navaid database", af.Fix)
			}
		}
		e.Pop()
	}

	for _, ident := range util.SortedMapKeys(db.Airports) {
		ap := db.Airports[ident]
		e.Push("airport " + ident)
		checkProcs := func(kind string, procs map[string]*Procedure) {
			for _, name := range util.SortedMapKeys(procs) {
				e.Push(kind + " " + name)
				procs[name].check(db, ap, e)
				e.Pop()
			}
		}
		checkProcs("SID", ap.SIDs)
		checkProcs("STAR", ap.STARs)
		checkProcs("approach", ap.Approaches)
		e.Pop()
	}
}

// MagneticVariation returns the WMM magnetic declination at the given
// position (+east, -west), in degrees.
func MagneticVariation(p math.Point2LL, t time.Time) float32 {
	loc := egm96.NewLocationGeodetic(float64(p.Latitude()), float64(p.Longitude()), 0)
	mag, err := wmm.CalculateWMMMagneticField(loc, t)
	if err != nil {
		// Out-of-model dates and positions degrade to true course.
		return 0
	}
	return float32(mag.D())
}

func (db *Database) String() string {
	return fmt.Sprintf("%d airports, %d navaids, %d fixes, %d airways",
		len(db.Airports), len(db.Navaids), len(db.Fixes), len(db.Airways))
}
