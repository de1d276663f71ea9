package aanet

// pipeline.go implements the per-node transmit pipeline: the transmitting
// queue, the waiting list for packets with no known next hop, the feed
// loop that moves work into the MAC through the one-slot buffer, and the
// SIFS acknowledgement fast path

import (
	"sort"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// enqueuePckt appends a packet to the tail of the transmitting queue.
// With a queue cap configured, the oldest entry is dropped to make room,
// which ends that packet's lifetime
func (drone *droneNode) enqueuePckt(evtMgr *evtm.EventManager, pckt *Packet) {
	if drone.cfg.QueueCap > 0 && len(drone.transmitQueue) >= drone.cfg.QueueCap {
		oldest := drone.transmitQueue[0]
		drone.transmitQueue = drone.transmitQueue[1:]
		drone.metrics.DropMac(oldest, evtMgr.CurrentSeconds(), "queue-overflow")
	}
	drone.transmitQueue = append(drone.transmitQueue, pckt)
}

// feedTick is the event handler for one pass of the feed loop.  The
// context is the drone.  The loop inspects the queue head; control
// packets go straight for the buffer slot, data packets first need a
// next hop from routing and park on the waiting list when there is none.
// The handler reschedules itself on the configured interval
func feedTick(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	now := evtMgr.CurrentSeconds()

	if !drone.feeding {
		for len(drone.transmitQueue) > 0 {
			head := drone.transmitQueue[0]

			if head.PcktType == dataPckt {
				nxtHop := drone.routing.NextHop(head, now)
				if nxtHop == noDrone {
					// no route yet; park and look at the next head
					drone.transmitQueue = drone.transmitQueue[1:]
					drone.waitingList[head.PcktID] = head
					continue
				}
				head.NxtHopID = nxtHop
			}

			drone.transmitQueue = drone.transmitQueue[1:]
			drone.feeding = true
			drone.slot.acquire(evtMgr, drone, head, slotGrantedEvt, false)
			break
		}
	}

	evtMgr.Schedule(drone, nil, feedTick, vrtime.SecondsToTime(drone.cfg.FeedInterval))
	return nil
}

// slotGrantedEvt runs when the feed loop's packet obtains the buffer
// slot; holding the slot, the packet begins MAC contention
func slotGrantedEvt(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	pckt := data.(*Packet)
	drone.mac.start(evtMgr, pckt)
	return nil
}

// macDone is called by the MAC when a transaction ends, successfully or
// with its retransmit budget exhausted.  Either way the buffer slot is
// released and the feed loop may move again
func (drone *droneNode) macDone(evtMgr *evtm.EventManager, pckt *Packet, success bool) {
	if !success && pckt.PcktType == dataPckt {
		drone.metrics.DropMac(pckt, evtMgr.CurrentSeconds(), "retry-exhausted")
	}
	drone.logEvent(evtMgr.CurrentTime(), pckt, "mac-done")

	drone.feeding = false
	drone.slot.release(evtMgr)
}

// routingChanged is the notification hook routing plug-ins call when new
// route information becomes known.  Waiting-list entries whose next hop
// resolves now rejoin the tail of the transmitting queue, in packet-id
// order so replays are identical
func (drone *droneNode) routingChanged(evtMgr *evtm.EventManager) {
	if len(drone.waitingList) == 0 {
		return
	}
	now := evtMgr.CurrentSeconds()

	ids := make([]int, 0, len(drone.waitingList))
	for id := range drone.waitingList {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		pckt := drone.waitingList[id]
		if drone.routing.NextHop(pckt, now) == noDrone {
			continue
		}
		delete(drone.waitingList, id)
		drone.transmitQueue = append(drone.transmitQueue, pckt)
	}
}

// scheduleAck arranges the acknowledgement of a received data packet:
// after SIFS the ack claims the buffer slot at the head of the line and
// transmits without sensing or backoff.  SIFS being shorter than DIFS,
// the ack wins the channel over any station still counting down
func (drone *droneNode) scheduleAck(evtMgr *evtm.EventManager, dataPckt *Packet) {
	ack := createAckPckt(drone, dataPckt, drone.cfg.Profile.AckLenBits, evtMgr.CurrentSeconds())
	evtMgr.Schedule(drone, ack, ackSifsEvt, vrtime.SecondsToTime(drone.cfg.Sifs))
}

// ackSifsEvt fires at the end of the short inter-frame space
func ackSifsEvt(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	ack := data.(*Packet)
	drone.slot.acquire(evtMgr, drone, ack, ackSlotGrantedEvt, true)
	return nil
}

// ackSlotGrantedEvt transmits the acknowledgement immediately upon grant
func ackSlotGrantedEvt(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	ack := data.(*Packet)
	airTime := transmitPckt(evtMgr, drone, ack)
	evtMgr.Schedule(drone, nil, ackTxDoneEvt, vrtime.SecondsToTime(airTime))
	return nil
}

// ackTxDoneEvt returns the buffer slot once the ack has cleared the air
func ackTxDoneEvt(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	drone.slot.release(evtMgr)
	return nil
}
