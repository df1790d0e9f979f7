// routing/finder.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package routing

import (
	"container/heap"

	"github.com/flyplan/flyplan/math"
	"github.com/flyplan/flyplan/nav"
)

// How far from the departure/destination positions the search will look
// for entry/exit nodes, and how many candidates it connects.
const (
	entryNodeRadius = 200 // nm
	entryNodeCount  = 8
)

// Cost multipliers biasing the search; they affect tie-breaking between
// comparable paths, not correctness.
const (
	costFactorDirect      = 1.05 // direct radio legs vs. airways
	costFactorPreferVOR   = 0.8
	costFactorPreferNDB   = 0.9
	costFactorForceAirway = 2.0 // penalize direct legs when airways are preferred
)

// RouteEntry is one node of a found route: the database object plus the
// airway followed to reach it (0 for a direct leg).
type RouteEntry struct {
	Ref      nav.Ref
	AirwayID int
}

// Finder computes shortest paths over a Network. A Finder is good for
// any number of sequential searches; it is not safe for concurrent use.
type Finder struct {
	network *Network

	preferVOR bool
	preferNDB bool

	// Result of the last Calculate.
	found    bool
	entries  []RouteEntry
	distance float32
}

func NewFinder(nw *Network) *Finder {
	return &Finder{network: nw}
}

// SetPreferVORToAirway biases the search toward direct VOR-to-VOR legs
// over airway segments.
func (f *Finder) SetPreferVORToAirway(prefer bool) { f.preferVOR = prefer }

// SetPreferNDBToAirway biases the search toward direct NDB-to-NDB legs
// over airway segments.
func (f *Finder) SetPreferNDBToAirway(prefer bool) { f.preferNDB = prefer }

// searchNode covers the network nodes plus two virtual endpoints for the
// departure and destination positions.
const (
	virtualStart = -1
	virtualDest  = -2
)

type pqItem struct {
	node int32
	cost float32
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)        { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}

// Calculate runs a shortest-path search from the departure position to
// the destination position. If altitude is non-zero, airway edges whose
// minimum usable altitude exceeds it are excluded. Returns false if no
// path connects the two positions under the current mode and altitude
// constraints; that is a normal negative result, not an error.
func (f *Finder) Calculate(departure, destination math.Point2LL, altitude int) bool {
	f.found = false
	f.entries = nil
	f.distance = 0

	nw := f.network
	if !nw.Initialized() {
		return false
	}

	startNodes := nw.nearestNodes(departure, entryNodeRadius, entryNodeCount)
	destNodes := nw.nearestNodes(destination, entryNodeRadius, entryNodeCount)
	if len(startNodes) == 0 || len(destNodes) == 0 {
		return false
	}

	// Destination links, looked up during edge relaxation.
	destLink := make(map[int32]float32, len(destNodes))
	for _, idx := range destNodes {
		destLink[idx] = math.NMDistance2LL(nw.nodes[idx].Location, destination)
	}

	type visit struct {
		cost     float32
		dist     float32
		prev     int32
		prevEdge Edge
		done     bool
		seen     bool
	}
	visits := make([]visit, len(nw.nodes))
	var destVisit visit
	destVisit.cost = -1

	pq := priorityQueue{}
	for _, idx := range startNodes {
		d := math.NMDistance2LL(departure, nw.nodes[idx].Location)
		visits[idx] = visit{cost: d, dist: d, prev: virtualStart, seen: true}
		heap.Push(&pq, pqItem{node: idx, cost: d})
	}

	for pq.Len() > 0 {
		it := heap.Pop(&pq).(pqItem)
		if it.node == virtualDest {
			break
		}
		v := &visits[it.node]
		if v.done || it.cost > v.cost {
			continue
		}
		v.done = true

		// Try to close out at the destination.
		if d, ok := destLink[it.node]; ok {
			cost := v.cost + d
			if destVisit.cost < 0 || cost < destVisit.cost {
				destVisit = visit{cost: cost, dist: v.dist + d, prev: it.node, seen: true}
				heap.Push(&pq, pqItem{node: virtualDest, cost: cost})
			}
		}

		for _, e := range nw.edges[it.node] {
			if altitude > 0 && e.MinAltitude > 0 && int(e.MinAltitude) > altitude {
				continue
			}

			cost := v.cost + e.Distance*f.edgeCostFactor(e)
			to := &visits[e.To]
			if to.done || (to.seen && cost >= to.cost) {
				continue
			}
			*to = visit{cost: cost, dist: v.dist + e.Distance, prev: it.node, prevEdge: e, seen: true}
			heap.Push(&pq, pqItem{node: e.To, cost: cost})
		}
	}

	if !destVisit.seen {
		return false
	}

	// Walk predecessors back from the destination.
	var rev []RouteEntry
	for n := destVisit.prev; n != virtualStart; n = visits[n].prev {
		rev = append(rev, RouteEntry{
			Ref:      nw.nodes[n].Ref,
			AirwayID: int(visits[n].prevEdge.AirwayID),
		})
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}

	f.found = true
	f.entries = rev
	f.distance = destVisit.dist
	return true
}

func (f *Finder) edgeCostFactor(e Edge) float32 {
	if e.AirwayID != 0 {
		return 1
	}

	to := f.network.nodes[e.To]
	switch to.Ref.Type {
	case nav.RefVOR:
		if f.preferVOR {
			return costFactorPreferVOR
		}
	case nav.RefNDB:
		if f.preferNDB {
			return costFactorPreferNDB
		}
	}
	if f.network.mode&ModeAirway != 0 {
		// Mixed-mode search without a preference: stay on airways.
		return costFactorForceAirway
	}
	return costFactorDirect
}

// ExtractRoute returns the node sequence of the last successful
// Calculate, ordered from departure to destination, and the total path
// distance in nautical miles. The departure and destination positions
// themselves are not included.
func (f *Finder) ExtractRoute() ([]RouteEntry, float32) {
	if !f.found {
		return nil, 0
	}
	return f.entries, f.distance
}
