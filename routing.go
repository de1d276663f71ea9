package aanet

// routing.go defines the routing plug-in interface the pipeline consumes,
// the neighbor table fed by overheard traffic, and two plug-ins: a global
// shortest-path router computed over the connectivity graph, and a static
// table router.  Protocol suites (DSDV, OPAR and friends) live outside
// this module; they implement the same interface

import (
	"sort"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// RoutingProtocol is the variation point for next-hop selection.  The
// pipeline queries NextHop and the node feeds back hop-by-hop outcomes
type RoutingProtocol interface {
	// NextHop names the drone the packet should be transmitted to next,
	// or noDrone when no route is currently known
	NextHop(pckt *Packet, now float64) int

	// OnNeighborHeard reports a decodable transmission overheard from a
	// neighbor, with its received power in watts
	OnNeighborHeard(nbrID int, rxPower float64, now float64)

	// hop-by-hop feedback from the MAC and the far end
	OnAck(pcktID int, now float64)
	OnAckTimeout(pcktID int, now float64)
	OnDelivered(pcktID int, now float64)
}

// routingTicker is implemented by plug-ins that need a recurring tick
type routingTicker interface {
	startRouting(evtMgr *evtm.EventManager)
}

// A nbrRecord is one entry of the neighbor table
type nbrRecord struct {
	nbrID    int
	lastSeen float64
	rxPower  float64
}

// A neighborTable keeps track of nearby drones heard on the air.  Entries
// expire when nothing has been heard for the configured timeout
type neighborTable struct {
	expiry  float64
	entries map[int]*nbrRecord
}

// createNeighborTable is a constructor
func createNeighborTable(expiry float64) *neighborTable {
	nt := new(neighborTable)
	nt.expiry = expiry
	nt.entries = make(map[int]*nbrRecord)
	return nt
}

// heard adds a new neighbor or refreshes an existing one
func (nt *neighborTable) heard(nbrID int, rxPower, now float64) {
	rec, present := nt.entries[nbrID]
	if present {
		rec.lastSeen = now
		rec.rxPower = rxPower
		return
	}
	nt.entries[nbrID] = &nbrRecord{nbrID: nbrID, lastSeen: now, rxPower: rxPower}
}

// active reports whether the neighbor has been heard within the expiry window
func (nt *neighborTable) active(nbrID int, now float64) bool {
	rec, present := nt.entries[nbrID]
	return present && now-rec.lastSeen < nt.expiry
}

// sweep removes expired entries and returns how many were dropped
func (nt *neighborTable) sweep(now float64) int {
	expired := []int{}
	for nbrID, rec := range nt.entries {
		if now-rec.lastSeen >= nt.expiry {
			expired = append(expired, nbrID)
		}
	}
	for _, nbrID := range expired {
		delete(nt.entries, nbrID)
	}
	return len(expired)
}

// ------------------------------------------------------------------
// global shortest-path routing
// ------------------------------------------------------------------

// spfRouting computes minimum-hop routes over the current connectivity
// graph: two drones are linked when their distance is within communication
// range.  The table refreshes on a tick; when a refresh changes the table
// the plug-in raises the routing-changed notification so parked packets
// get another look
type spfRouting struct {
	selfID  int
	cfg     *Config
	channel radioChannel
	nbrs    *neighborTable
	nxtHop  map[int]int // destination id -> next hop id
	notify  func(*evtm.EventManager)
}

// createSpfRouting is a constructor
func createSpfRouting(drone *droneNode, cfg *Config) *spfRouting {
	sr := new(spfRouting)
	sr.selfID = drone.droneID
	sr.cfg = cfg
	sr.channel = drone.channel
	sr.nbrs = createNeighborTable(10.0)
	sr.nxtHop = make(map[int]int)
	sr.notify = drone.routingChanged
	return sr
}

func (sr *spfRouting) NextHop(pckt *Packet, now float64) int {
	nxt, present := sr.nxtHop[pckt.DstID]
	if present {
		return nxt
	}
	// no computed route yet; a destination we can hear directly is one hop away
	if sr.nbrs.active(pckt.DstID, now) {
		return pckt.DstID
	}
	return noDrone
}

func (sr *spfRouting) OnNeighborHeard(nbrID int, rxPower float64, now float64) {
	sr.nbrs.heard(nbrID, rxPower, now)
}

func (sr *spfRouting) OnAck(pcktID int, now float64)        {}
func (sr *spfRouting) OnDelivered(pcktID int, now float64)  {}

func (sr *spfRouting) OnAckTimeout(pcktID int, now float64) {
	// repeated timeouts suggest the graph moved; the next refresh rebuilds it
}

// refresh rebuilds the connectivity graph and recomputes the shortest-path
// tree rooted at this drone.  The graph package wants int64 node ids, and
// the drone ids serve directly
func (sr *spfRouting) refresh(evtMgr *evtm.EventManager) {
	ids := make([]int, 0, len(DroneByID))
	for id := range DroneByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	maxRange := sr.channel.maxRange()

	connGraph := simple.NewWeightedUndirectedGraph(0, 0)
	gNodes := make(map[int]simple.Node)
	for _, id := range ids {
		gNodes[id] = simple.Node(id)
		connGraph.AddNode(gNodes[id])
	}

	// weight each in-range link 1 so that a shortest path minimizes hop count
	for i, idA := range ids {
		for _, idB := range ids[i+1:] {
			dist := euclidean3d(DroneByID[idA].position, DroneByID[idB].position)
			if dist <= maxRange {
				connGraph.SetWeightedEdge(simple.WeightedEdge{F: gNodes[idA], T: gNodes[idB], W: 1.0})
			}
		}
	}

	spTree := path.DijkstraFrom(gNodes[sr.selfID], connGraph)

	changed := false
	nxtHop := make(map[int]int)
	for _, dstID := range ids {
		if dstID == sr.selfID {
			continue
		}
		nodeSeq, _ := spTree.To(int64(dstID))
		if len(nodeSeq) < 2 {
			continue
		}
		nxtHop[dstID] = nextDevOnPath(nodeSeq)
		if sr.nxtHop[dstID] != nxtHop[dstID] {
			changed = true
		}
	}
	if len(nxtHop) != len(sr.nxtHop) {
		changed = true
	}
	sr.nxtHop = nxtHop

	if changed {
		sr.notify(evtMgr)
	}
}

// nextDevOnPath extracts the drone id of the second node on a path
func nextDevOnPath(nodeSeq []graph.Node) int {
	return int(nodeSeq[1].ID())
}

// spfRefreshEvt is the event handler for the periodic table rebuild
func spfRefreshEvt(evtMgr *evtm.EventManager, context any, data any) any {
	sr := context.(*spfRouting)
	sr.nbrs.sweep(evtMgr.CurrentSeconds())
	sr.refresh(evtMgr)
	evtMgr.Schedule(sr, nil, spfRefreshEvt, vrtime.SecondsToTime(sr.cfg.PosUpdate))
	return nil
}

func (sr *spfRouting) startRouting(evtMgr *evtm.EventManager) {
	// first refresh happens at time zero so initial routes exist before traffic
	evtMgr.Schedule(sr, nil, spfRefreshEvt, vrtime.SecondsToTime(0.0))
}

// ------------------------------------------------------------------
// static table routing
// ------------------------------------------------------------------

// staticRouting answers from a fixed table.  SetRoute installs entries at
// any virtual time and raises the routing-changed notification, which is
// how tests and scripted scenarios model late route discovery
type staticRouting struct {
	nbrs   *neighborTable
	table  map[int]int
	notify func(*evtm.EventManager)
}

// createStaticRouting is a constructor
func createStaticRouting(drone *droneNode) *staticRouting {
	st := new(staticRouting)
	st.nbrs = createNeighborTable(10.0)
	st.table = make(map[int]int)
	st.notify = drone.routingChanged
	return st
}

// SetRoute installs (or overwrites) the next hop toward a destination
func (st *staticRouting) SetRoute(evtMgr *evtm.EventManager, dstID, nxtHopID int) {
	st.table[dstID] = nxtHopID
	st.notify(evtMgr)
}

func (st *staticRouting) NextHop(pckt *Packet, now float64) int {
	nxt, present := st.table[pckt.DstID]
	if !present {
		return noDrone
	}
	return nxt
}

func (st *staticRouting) OnNeighborHeard(nbrID int, rxPower float64, now float64) {
	st.nbrs.heard(nbrID, rxPower, now)
}

func (st *staticRouting) OnAck(pcktID int, now float64)        {}
func (st *staticRouting) OnAckTimeout(pcktID int, now float64) {}
func (st *staticRouting) OnDelivered(pcktID int, now float64)  {}

// createRouting selects the routing plug-in named in the desc
func createRouting(desc *DroneDesc, drone *droneNode, cfg *Config) RoutingProtocol {
	if desc.Routing == "static" {
		return createStaticRouting(drone)
	}
	return createSpfRouting(drone, cfg)
}
