package aanet

// inbox.go implements the per-node resolver that turns raw transmission
// records into delivered packets.  The resolver runs on a short periodic
// tick; on each tick it prunes stale records and judges every newly
// completed record against the set of records whose air-time overlaps it

import (
	"math"
	"sort"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// sinrAt computes the signal-to-interference-plus-noise ratio in dB for
// record rec at the receiving drone, treating every overlapping record
// from a different sender as interference.  Records that have not yet
// completed still interfere
func sinrAt(rcvr *droneNode, rec *xmitRecord) float64 {
	channel := rcvr.channel
	cfg := rcvr.cfg

	signal := channel.rcvdPower(rec.power, rec.senderPos, rcvr.position)

	interference := 0.0
	for _, other := range rcvr.inboxRecords() {
		if other.recID == rec.recID || other.senderID == rec.senderID {
			continue
		}
		if rec.overlaps(other) {
			interference += channel.rcvdPower(other.power, other.senderPos, rcvr.position)
		}
	}

	return 10.0 * math.Log10(signal/(cfg.NoisePower+interference))
}

// inboxRecords returns the drone's transmission records ordered by record
// id, so that every run visits them in the same order
func (drone *droneNode) inboxRecords() []*xmitRecord {
	ids := make([]int, 0, len(drone.inbox))
	for id := range drone.inbox {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	recs := make([]*xmitRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, drone.inbox[id])
	}
	return recs
}

// inboxInsert appends a transmission record, and lets the MAC know the
// medium just turned busy so a running backoff countdown can freeze
func (drone *droneNode) inboxInsert(evtMgr *evtm.EventManager, rec *xmitRecord) {
	drone.inbox[rec.recID] = rec
	drone.mac.mediumBusy(evtMgr)
}

// mediumBusyAt reports whether any record in the inbox is on the air at
// virtual time now.  A record occupies [srtTime, endTime)
func (drone *droneNode) mediumBusyAt(now float64) bool {
	for _, rec := range drone.inbox {
		if rec.srtTime <= now && now < rec.endTime {
			return true
		}
	}
	return false
}

// mediumClearsAt returns the latest end-time among records on the air at
// now; the medium cannot become idle before that instant
func (drone *droneNode) mediumClearsAt(now float64) float64 {
	clear := now
	for _, rec := range drone.inbox {
		if rec.srtTime <= now && now < rec.endTime && rec.endTime > clear {
			clear = rec.endTime
		}
	}
	return clear
}

// resolverTick is the event handler for one resolver pass over a drone's
// inbox.  The context is the drone; the handler reschedules itself
func resolverTick(evtMgr *evtm.EventManager, context any, data any) any {
	drone := context.(*droneNode)
	cfg := drone.cfg
	now := evtMgr.CurrentSeconds()

	retention := 2.0 * cfg.Profile.maxAirTime()

	for _, rec := range drone.inboxRecords() {
		// retire records old enough that no live record can overlap them
		if rec.resolved && now-rec.endTime > retention {
			delete(drone.inbox, rec.recID)
			continue
		}
		if rec.resolved || rec.endTime > now {
			continue
		}

		// newly completed record: judge it against the full overlap set
		rec.resolved = true
		sinrDb := sinrAt(drone, rec)
		threshDb := cfg.Profile.mcs(rec.pckt.MCSIndex).SinrThreshDb

		if sinrDb >= threshDb {
			drone.receive(evtMgr, rec)
		}
		// below threshold the packet is corrupted by interference and
		// silently dropped; the sender learns of it only by ack timeout
	}

	evtMgr.Schedule(drone, nil, resolverTick, vrtime.SecondsToTime(cfg.ResolverTick))
	return nil
}
