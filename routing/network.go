// routing/network.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package routing

import (
	"fmt"
	"sort"

	"github.com/flyplan/flyplan/log"
	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/nav"
	"github.com/flyplan/flyplan/util"
)

// Mode selects which parts of the navigation network are searchable.
type Mode int

const (
	ModeRadionav Mode = 1 << iota // direct legs between radio navaids
	ModeVictor                    // low-altitude airways
	ModeJet                       // high-altitude airways
)

const ModeAirway = ModeVictor | ModeJet

func (m Mode) String() string {
	var s []string
	if m&ModeRadionav != 0 {
		s = append(s, "radionav")
	}
	if m&ModeVictor != 0 {
		s = append(s, "victor")
	}
	if m&ModeJet != 0 {
		s = append(s, "jet")
	}
	if len(s) == 0 {
		return "none"
	}
	return fmt.Sprintf("%v", s)
}

// Node is one searchable navigation point: a radio navaid or an airway
// fix.
type Node struct {
	Ref      nav.Ref
	Ident    string
	Location math.Point2LL
	Range    float32 // navaid service volume; 0 for fixes
}

// Edge connects two nodes. AirwayID is 0 for direct radio legs;
// MinAltitude is the minimum usable altitude in feet for airway edges, 0
// if unrestricted.
type Edge struct {
	To          int32
	AirwayID    int32
	MinAltitude int32
	Distance    float32
}

// Limits how many direct links each radio navaid gets; without it the
// radio graph degree grows quadratically in dense coverage areas.
const maxRadioNeighbors = 12

// Network is the searchable graph over the navigation database for one
// mode. It must be initialized against the active database before the
// first search and deinitialized before the database is swapped; the
// mode-dependent adjacency is rebuilt on SetMode.
type Network struct {
	db    *nav.Database
	lg    *log.Logger
	mode  Mode
	nodes []Node
	edges [][]Edge
	byRef map[nav.Ref]int32
}

func NewNetwork(lg *log.Logger) *Network {
	return &Network{lg: lg}
}

func (nw *Network) Mode() Mode { return nw.mode }
func (nw *Network) NumNodes() int { return len(nw.nodes) }

func (nw *Network) Initialized() bool { return nw.db != nil && nw.nodes != nil }

// Init builds the network for the given database and mode, using the
// disk cache when the database checksum matches a previous build.
func (nw *Network) Init(db *nav.Database, mode Mode) error {
	nw.db = db
	return nw.SetMode(mode)
}

// Deinit drops all indices; the network is unusable until the next Init.
// Must be called before the underlying navigation database is swapped.
func (nw *Network) Deinit() {
	nw.db = nil
	nw.nodes = nil
	nw.edges = nil
	nw.byRef = nil
}

// cachedNetwork is the msgpack disk-cache form of a built adjacency.
type cachedNetwork struct {
	Nodes []Node
	Edges [][]Edge
}

// SetMode invalidates the current adjacency and rebuilds it for the
// given mode.
func (nw *Network) SetMode(mode Mode) error {
	if nw.db == nil {
		return fmt.Errorf("network not initialized")
	}
	if nw.nodes != nil && nw.mode == mode {
		return nil
	}

	nw.mode = mode
	nw.nodes = nil
	nw.edges = nil

	// Databases without a checksum (hand-assembled ones) skip the disk
	// cache entirely.
	cachePath := fmt.Sprintf("network-%d-%s.msgpack", mode, nw.db.Checksum)
	if nw.db.Checksum != "" {
		var cached cachedNetwork
		if _, err := util.CacheRetrieveObject(cachePath, &cached); err == nil {
			nw.nodes = cached.Nodes
			nw.edges = cached.Edges
			nw.buildRefIndex()
			nw.lg.Debugf("loaded cached network: %d nodes", len(nw.nodes))
			return nil
		}
	}

	nw.byRef = make(map[nav.Ref]int32)
	if mode&ModeRadionav != 0 {
		nw.buildRadioLinks()
	}
	if mode&ModeAirway != 0 {
		nw.buildAirwayLinks(mode)
	}

	if nw.db.Checksum != "" {
		if err := util.CacheStoreObject(cachePath, cachedNetwork{Nodes: nw.nodes, Edges: nw.edges}); err != nil {
			nw.lg.Warnf("unable to cache network: %v", err)
		}
	}
	nw.lg.Infof("built %s network: %d nodes", mode, len(nw.nodes))
	return nil
}

func (nw *Network) buildRefIndex() {
	nw.byRef = make(map[nav.Ref]int32, len(nw.nodes))
	for i, n := range nw.nodes {
		nw.byRef[n.Ref] = int32(i)
	}
}

func (nw *Network) addNode(n Node) int32 {
	if idx, ok := nw.byRef[n.Ref]; ok {
		return idx
	}
	idx := int32(len(nw.nodes))
	nw.nodes = append(nw.nodes, n)
	nw.edges = append(nw.edges, nil)
	nw.byRef[n.Ref] = idx
	return idx
}

func (nw *Network) addEdge(from, to int32, airwayID, minAlt int32) {
	d := math.NMDistance2LL(nw.nodes[from].Location, nw.nodes[to].Location)
	nw.edges[from] = append(nw.edges[from], Edge{To: to, AirwayID: airwayID, MinAltitude: minAlt, Distance: d})
	nw.edges[to] = append(nw.edges[to], Edge{To: from, AirwayID: airwayID, MinAltitude: minAlt, Distance: d})
}

// buildRadioLinks creates direct links between radio navaids that are
// within each other's service volumes, capped at maxRadioNeighbors per
// navaid.
func (nw *Network) buildRadioLinks() {
	for _, ident := range util.SortedMapKeys(nw.db.Navaids) {
		n := nw.db.Navaids[ident]
		if n.Type == nav.NavaidDME {
			// DME-only stations give distance but no bearing; useless as
			// enroute waypoints.
			continue
		}
		nw.addNode(Node{
			Ref:      nav.Ref{ID: n.ID, Type: util.Select(n.Type.IsNDB(), nav.RefNDB, nav.RefVOR)},
			Ident:    n.Ident,
			Location: n.Location,
			Range:    n.Range,
		})
	}

	type neighbor struct {
		idx  int32
		dist float32
	}
	for i := range nw.nodes {
		var near []neighbor
		for j := range nw.nodes {
			if i == j {
				continue
			}
			d := math.NMDistance2LL(nw.nodes[i].Location, nw.nodes[j].Location)
			if d <= nw.nodes[i].Range+nw.nodes[j].Range {
				near = append(near, neighbor{idx: int32(j), dist: d})
			}
		}
		sort.Slice(near, func(a, b int) bool { return near[a].dist < near[b].dist })
		if len(near) > maxRadioNeighbors {
			near = near[:maxRadioNeighbors]
		}
		for _, nb := range near {
			// One direction only; the reverse link is added when (or if)
			// the neighbor reaches back.
			nw.edges[i] = append(nw.edges[i], Edge{To: nb.idx, Distance: nb.dist})
		}
	}
}

// buildAirwayLinks creates edges along each airway whose level matches
// the mode.
func (nw *Network) buildAirwayLinks(mode Mode) {
	levelOK := func(l nav.AirwayLevel) bool {
		switch l {
		case nav.AirwayLevelBoth:
			return true
		case nav.AirwayLevelLow:
			return mode&ModeVictor != 0
		case nav.AirwayLevelHigh:
			return mode&ModeJet != 0
		}
		return false
	}

	for _, name := range util.SortedMapKeys(nw.db.Airways) {
		aw := nw.db.Airways[name]
		if !levelOK(aw.Level) {
			continue
		}

		prev, prevMinAlt := int32(-1), int32(0)
		for _, af := range aw.Fixes {
			loc, ref, ok := nw.db.Locate(af.Fix)
			if !ok {
				nw.lg.Warnf("%s: airway %s fix not found", af.Fix, aw.Name)
				prev = -1
				continue
			}
			idx := nw.addNode(Node{Ref: ref, Ident: af.Fix, Location: loc})
			if prev != -1 {
				// The minimum altitude of the segment is stored with the
				// fix it leaves from.
				nw.addEdge(prev, idx, int32(aw.ID), prevMinAlt)
			}
			prev, prevMinAlt = idx, int32(af.MinAltitude)
		}
	}
}

// nearestNodes returns up to count node indices within radius nm of p,
// closest first.
func (nw *Network) nearestNodes(p math.Point2LL, radius float32, count int) []int32 {
	type cand struct {
		idx  int32
		dist float32
	}
	var near []cand
	for i := range nw.nodes {
		if d := math.NMDistance2LL(p, nw.nodes[i].Location); d <= radius {
			near = append(near, cand{idx: int32(i), dist: d})
		}
	}
	sort.Slice(near, func(a, b int) bool { return near[a].dist < near[b].dist })
	if len(near) > count {
		near = near[:count]
	}
	return util.MapSlice(near, func(c cand) int32 { return c.idx })
}
