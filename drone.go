package aanet

// drone.go composes a drone node from its pluggable parts: mobility,
// routing, energy, the MAC, and the transmit pipeline.  The node owns its
// inbox and all pipeline state.  Mobility and energy see the node only
// through the arguments of the calls made on them; the MAC keeps a pointer
// back to its drone, and the routing plug-ins keep the drone's
// routing-changed hook

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// A droneNode is the run-time representation of one drone
type droneNode struct {
	droneName string
	droneID   int
	cfg       *Config
	position  pos

	channel  radioChannel
	metrics  *MetricsManager
	traceMgr *TraceManager

	mobility mobilityModel
	routing  RoutingProtocol
	energy   EnergyModel
	mac      macProtocol

	// pipeline state
	transmitQueue []*Packet
	waitingList   map[int]*Packet
	slot          *bufferSlot
	feeding       bool

	// per-receiver log of in-flight transmissions
	inbox map[int]*xmitRecord

	// ids of data packets already accepted here, for duplicate suppression
	seen map[int]bool
}

// createDroneNode is a constructor, building the run-time drone from its
// desc description and wiring in the plug-ins the desc selects
func createDroneNode(desc *DroneDesc, cfg *Config, channel radioChannel,
	metrics *MetricsManager, traceMgr *TraceManager) *droneNode {

	drone := new(droneNode)
	drone.droneName = desc.Name
	drone.droneID = nxtID()
	drone.cfg = cfg
	drone.position = pos{x: desc.X, y: desc.Y, z: desc.Z}
	drone.channel = channel
	drone.metrics = metrics
	drone.traceMgr = traceMgr

	drone.transmitQueue = []*Packet{}
	drone.waitingList = make(map[int]*Packet)
	drone.slot = createBufferSlot()
	drone.inbox = make(map[int]*xmitRecord)
	drone.seen = make(map[int]bool)

	drone.mobility = createMobility(desc, cfg, drone.position)
	drone.energy = createLinearEnergy(desc.Energy, cfg.Profile)
	drone.mac = createMac(drone, cfg)
	drone.routing = createRouting(desc, drone, cfg)

	addDroneLookup(drone.droneID, drone.droneName, drone)
	traceMgr.AddName(drone.droneID, drone.droneName, "drone")
	return drone
}

// logEvent adds a trace record for the packet at this drone, when tracing is on
func (drone *droneNode) logEvent(vrt vrtime.Time, pckt *Packet, op string) {
	drone.traceMgr.AddTrace(vrt, pckt.PcktID, drone.droneID, op, pcktTypeToStr(pckt.PcktType))
}

// inject is the application-layer entry point: a freshly generated data
// packet joins the transmitting queue
func (drone *droneNode) inject(evtMgr *evtm.EventManager, pckt *Packet) {
	drone.metrics.Generated(pckt, evtMgr.CurrentSeconds())
	drone.logEvent(evtMgr.CurrentTime(), pckt, "inject")
	drone.enqueuePckt(evtMgr, pckt)
}

// receive accepts a packet the resolver judged decodable.  Every receipt
// doubles as evidence the sender is in range
func (drone *droneNode) receive(evtMgr *evtm.EventManager, rec *xmitRecord) {
	pckt := rec.pckt
	now := evtMgr.CurrentSeconds()

	rxPower := drone.channel.rcvdPower(rec.power, rec.senderPos, drone.position)
	drone.routing.OnNeighborHeard(rec.senderID, rxPower, now)

	drone.logEvent(evtMgr.CurrentTime(), pckt, "rcv")

	switch pckt.PcktType {
	case ackPckt:
		if pckt.AckTarget == drone.droneID {
			drone.mac.ackArrived(evtMgr, pckt)
		}
	case controlPckt:
		// beacons carry no payload beyond the neighbor evidence above
	case dataPckt:
		drone.receiveData(evtMgr, pckt, now)
	}
}

// receiveData handles a delivered data packet: terminal delivery at the
// destination, forwarding at an intermediate hop, or nothing when merely overheard
func (drone *droneNode) receiveData(evtMgr *evtm.EventManager, pckt *Packet, now float64) {
	if pckt.DstID == drone.droneID {
		// terminal receiver: ack every copy (the sender may have missed an
		// earlier ack), record the delivery once
		if pckt.Mode == Unicast {
			drone.scheduleAck(evtMgr, pckt)
		}
		if !drone.seen[pckt.PcktID] {
			drone.seen[pckt.PcktID] = true
			drone.routing.OnDelivered(pckt.PcktID, now)
			drone.metrics.Delivered(pckt, now)
		}
		return
	}

	if pckt.NxtHopID != drone.droneID {
		// overheard a transmission addressed elsewhere
		return
	}

	if pckt.Mode == Unicast {
		drone.scheduleAck(evtMgr, pckt)
	}

	// intermediate hop: duplicate and TTL checks before re-enqueue.  The
	// node forwards its own copy; the upstream sender may retransmit the
	// original if the ack it is waiting on was lost
	if drone.seen[pckt.PcktID] {
		return
	}
	drone.seen[pckt.PcktID] = true

	fwd := *pckt
	fwd.TTL -= 1
	if fwd.TTL <= 0 {
		drone.metrics.DropTTL(&fwd, now)
		return
	}

	fwd.NxtHopID = noDrone
	drone.metrics.Hop(&fwd, drone.droneID, now)
	drone.enqueuePckt(evtMgr, &fwd)
}

// mobilityTickEvt advances the drone along its mobility model and debits
// the flight energy spent over the elapsed interval
func mobilityTickEvt(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	dt := drone.cfg.PosUpdate

	drone.position = drone.mobility.advance(evtMgr.CurrentSeconds(), dt)
	drone.energy.DebitFlight(dt)

	evtMgr.Schedule(drone, nil, mobilityTickEvt, vrtime.SecondsToTime(dt))
	return nil
}

// beaconEvt enqueues a periodic hello beacon announcing this drone's presence
func beaconEvt(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)

	beacon := createControlPckt(drone.droneID, 400, drone.cfg.Mcs, evtMgr.CurrentSeconds())
	drone.enqueuePckt(evtMgr, beacon)

	evtMgr.Schedule(drone, nil, beaconEvt, vrtime.SecondsToTime(drone.cfg.BeaconInterval))
	return nil
}

// startDrone schedules the node's recurring activities: the feed loop,
// the resolver tick, the mobility tick, and (when enabled) beaconing
func (drone *droneNode) startDrone(evtMgr *evtm.EventManager) {
	evtMgr.Schedule(drone, nil, feedTick, vrtime.SecondsToTime(drone.cfg.FeedInterval))
	evtMgr.Schedule(drone, nil, resolverTick, vrtime.SecondsToTime(drone.cfg.ResolverTick))
	evtMgr.Schedule(drone, nil, mobilityTickEvt, vrtime.SecondsToTime(drone.cfg.PosUpdate))
	if drone.cfg.BeaconInterval > 0.0 {
		evtMgr.Schedule(drone, nil, beaconEvt, vrtime.SecondsToTime(drone.cfg.BeaconInterval))
	}
	if ticker, ok := drone.routing.(routingTicker); ok {
		ticker.startRouting(evtMgr)
	}
}
