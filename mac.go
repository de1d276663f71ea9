package aanet

// mac.go implements the medium-access state machines.  Two protocols are
// provided: CSMA/CA without RTS/CTS, and pure ALOHA.  Each runs one
// transaction at a time; exclusivity is guaranteed by the buffer slot.
// Continuations are scheduled events that carry the transaction epoch;
// a continuation whose epoch is stale returns without effect, which is
// how waits are cancelled on a callback scheduler

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

// macProtocol is the variation point for medium access
type macProtocol interface {
	// start begins a transmission transaction for the packet; the caller
	// must hold the drone's buffer slot
	start(evtMgr *evtm.EventManager, pckt *Packet)

	// mediumBusy tells the MAC that a transmission record just landed in
	// the drone's inbox
	mediumBusy(evtMgr *evtm.EventManager)

	// ackArrived hands the MAC an acknowledgement delivered by the resolver
	ackArrived(evtMgr *evtm.EventManager, ack *Packet)
}

// macState is the base type for the transaction states
type macState int

const (
	macSensing macState = iota
	macCountdown
	macAwaitAck
	macRetryWait
)

// A macTrans records the progress of one packet through the MAC
type macTrans struct {
	pckt         *Packet
	state        macState
	attempts     int     // completed (unacknowledged) transmission attempts
	remaining    float64 // frozen countdown remainder; <0 means draw fresh
	countdownSrt float64 // virtual time the current countdown began
	epoch        int     // invalidates continuations scheduled for superseded states
}

// bump invalidates every continuation scheduled so far for this transaction
func (trans *macTrans) bump() int {
	trans.epoch += 1
	return trans.epoch
}

// live reports whether a continuation scheduled with the given epoch
// still speaks for the transaction
func (trans *macTrans) live(epoch int) bool {
	return trans != nil && trans.epoch == epoch
}

// transmitPckt pushes the packet onto the air and debits the battery.
// A drone whose battery is exhausted goes send-mute: the motions of the
// protocol continue but nothing reaches any inbox
func transmitPckt(evtMgr *evtm.EventManager, drone *droneNode, pckt *Packet) float64 {
	airTime := drone.cfg.airTime(pckt)

	if drone.energy.Remaining() <= 0.0 {
		return airTime
	}

	pckt.PrevHopID = drone.droneID
	drone.channel.broadcastPut(evtMgr, pckt, drone, drone.cfg.TxPower, airTime)
	drone.energy.DebitTransmit(pckt.LenBits, drone.cfg.TxPower, airTime)
	drone.logEvent(evtMgr.CurrentTime(), pckt, "tx")
	return airTime
}

// awaitsAck reports whether the protocol must hold for an acknowledgement
// after sending this packet.  Control and broadcast traffic is not acked
func awaitsAck(pckt *Packet) bool {
	return pckt.PcktType == dataPckt && pckt.Mode == Unicast
}

// ------------------------------------------------------------------
// CSMA/CA
// ------------------------------------------------------------------

// csmaMac implements carrier sensing with DIFS plus binary-exponential
// backoff, countdown freezing, and ack-timeout driven retransmission
type csmaMac struct {
	drone   *droneNode
	cfg     *Config
	rngstrm *rngstream.RngStream
	trans   *macTrans
}

// createCsmaMac is a constructor
func createCsmaMac(drone *droneNode, cfg *Config) *csmaMac {
	cm := new(csmaMac)
	cm.drone = drone
	cm.cfg = cfg
	cm.rngstrm = rngstream.New("mac-" + drone.droneName)
	return cm
}

func (cm *csmaMac) start(evtMgr *evtm.EventManager, pckt *Packet) {
	if cm.trans != nil {
		panic("CSMA transaction started while another is active")
	}
	cm.trans = &macTrans{pckt: pckt, state: macSensing, remaining: -1.0}
	cm.sense(evtMgr)
}

// sense suspends until the medium is idle, then starts (or resumes) the
// DIFS+backoff countdown
func (cm *csmaMac) sense(evtMgr *evtm.EventManager) {
	trans := cm.trans
	now := evtMgr.CurrentSeconds()

	if cm.drone.mediumBusyAt(now) {
		// wake when the last record now on the air ends; if the medium is
		// busy again by then the re-fired sense just re-arms
		trans.state = macSensing
		clearAt := cm.drone.mediumClearsAt(now)
		evtMgr.Schedule(cm, trans.bump(), csmaSenseEvt, vrtime.SecondsToTime(clearAt-now))
		return
	}

	if trans.remaining < 0.0 {
		// fresh attempt: draw backoff slots from the current contention window
		cw := cm.cfg.CWMin << trans.attempts
		if cw > cm.cfg.CWMax {
			cw = cm.cfg.CWMax
		}
		slots := int(cm.rngstrm.RandU01() * float64(cw))
		trans.remaining = cm.cfg.Difs + float64(slots)*cm.cfg.SlotTime
	}

	trans.state = macCountdown
	trans.countdownSrt = now
	evtMgr.Schedule(cm, trans.bump(), csmaCountdownEvt, vrtime.SecondsToTime(trans.remaining))
}

// csmaSenseEvt re-enters the sensing step when the medium was expected to clear
func csmaSenseEvt(evtMgr *evtm.EventManager, context any, data any) any {
	cm := context.(*csmaMac)
	if !cm.trans.live(data.(int)) {
		return nil
	}
	cm.sense(evtMgr)
	return nil
}

// csmaCountdownEvt fires when the DIFS+backoff countdown ran to zero uninterrupted
func csmaCountdownEvt(evtMgr *evtm.EventManager, context any, data any) any {
	cm := context.(*csmaMac)
	trans := cm.trans
	if !trans.live(data.(int)) {
		return nil
	}

	now := evtMgr.CurrentSeconds()
	if cm.drone.mediumBusyAt(now) {
		// a same-instant insertion beat us; freeze and go back to sensing
		cm.mediumBusy(evtMgr)
		return nil
	}

	trans.remaining = -1.0
	airTime := transmitPckt(evtMgr, cm.drone, trans.pckt)

	if awaitsAck(trans.pckt) {
		trans.state = macAwaitAck
		wait := airTime + cm.cfg.ackTimeout()
		evtMgr.Schedule(cm, trans.bump(), csmaAckTimeoutEvt, vrtime.SecondsToTime(wait))
		return nil
	}

	// control and broadcast packets complete at end of air-time
	evtMgr.Schedule(cm, trans.bump(), csmaTxDoneEvt, vrtime.SecondsToTime(airTime))
	return nil
}

// csmaTxDoneEvt completes an unacknowledged transmission
func csmaTxDoneEvt(evtMgr *evtm.EventManager, context any, data any) any {
	cm := context.(*csmaMac)
	if !cm.trans.live(data.(int)) {
		return nil
	}
	cm.finish(evtMgr, true)
	return nil
}

// csmaAckTimeoutEvt fires when the acknowledgement window closed unanswered
func csmaAckTimeoutEvt(evtMgr *evtm.EventManager, context any, data any) any {
	cm := context.(*csmaMac)
	trans := cm.trans
	if !trans.live(data.(int)) {
		return nil
	}

	now := evtMgr.CurrentSeconds()
	cm.drone.routing.OnAckTimeout(trans.pckt.PcktID, now)

	trans.attempts += 1
	trans.pckt.Retransmits += 1
	if trans.attempts > cm.cfg.MaxRetries {
		cm.finish(evtMgr, false)
		return nil
	}

	// contend again; attempts grew, so the next draw uses a wider window
	trans.remaining = -1.0
	cm.sense(evtMgr)
	return nil
}

func (cm *csmaMac) mediumBusy(evtMgr *evtm.EventManager) {
	trans := cm.trans
	if trans == nil || trans.state != macCountdown {
		return
	}

	// freeze the countdown remainder; do not redraw the backoff
	now := evtMgr.CurrentSeconds()
	trans.remaining -= now - trans.countdownSrt
	if trans.remaining < 0.0 {
		trans.remaining = 0.0
	}
	trans.bump()
	cm.sense(evtMgr)
}

func (cm *csmaMac) ackArrived(evtMgr *evtm.EventManager, ack *Packet) {
	trans := cm.trans
	if trans == nil || trans.state != macAwaitAck {
		return
	}
	if ack.AckForID != trans.pckt.PcktID || ack.AckTarget != cm.drone.droneID {
		return
	}

	trans.bump()
	cm.drone.routing.OnAck(trans.pckt.PcktID, evtMgr.CurrentSeconds())
	cm.finish(evtMgr, true)
}

// finish closes the transaction and reports the outcome to the node
func (cm *csmaMac) finish(evtMgr *evtm.EventManager, success bool) {
	pckt := cm.trans.pckt
	cm.trans = nil
	cm.drone.macDone(evtMgr, pckt, success)
}

// ------------------------------------------------------------------
// pure ALOHA
// ------------------------------------------------------------------

// alohaMac transmits immediately, without sensing or backoff, and
// retries after a randomized wait whose range grows with the attempt count
type alohaMac struct {
	drone   *droneNode
	cfg     *Config
	rngstrm *rngstream.RngStream
	trans   *macTrans
}

// createAlohaMac is a constructor
func createAlohaMac(drone *droneNode, cfg *Config) *alohaMac {
	am := new(alohaMac)
	am.drone = drone
	am.cfg = cfg
	am.rngstrm = rngstream.New("mac-" + drone.droneName)
	return am
}

func (am *alohaMac) start(evtMgr *evtm.EventManager, pckt *Packet) {
	if am.trans != nil {
		panic("ALOHA transaction started while another is active")
	}
	am.trans = &macTrans{pckt: pckt, remaining: -1.0}
	am.transmit(evtMgr)
}

func (am *alohaMac) transmit(evtMgr *evtm.EventManager) {
	trans := am.trans
	airTime := transmitPckt(evtMgr, am.drone, trans.pckt)

	if awaitsAck(trans.pckt) {
		trans.state = macAwaitAck
		wait := airTime + am.cfg.ackTimeout()
		evtMgr.Schedule(am, trans.bump(), alohaAckTimeoutEvt, vrtime.SecondsToTime(wait))
		return
	}

	evtMgr.Schedule(am, trans.bump(), alohaTxDoneEvt, vrtime.SecondsToTime(airTime))
}

func alohaTxDoneEvt(evtMgr *evtm.EventManager, context any, data any) any {
	am := context.(*alohaMac)
	if !am.trans.live(data.(int)) {
		return nil
	}
	am.finish(evtMgr, true)
	return nil
}

func alohaAckTimeoutEvt(evtMgr *evtm.EventManager, context any, data any) any {
	am := context.(*alohaMac)
	trans := am.trans
	if !trans.live(data.(int)) {
		return nil
	}

	now := evtMgr.CurrentSeconds()
	am.drone.routing.OnAckTimeout(trans.pckt.PcktID, now)

	trans.attempts += 1
	trans.pckt.Retransmits += 1
	if trans.attempts > am.cfg.MaxRetries {
		am.finish(evtMgr, false)
		return nil
	}

	// randomized retry wait over a range that widens with each attempt
	trans.state = macRetryWait
	span := am.cfg.AlohaK * float64(trans.attempts) * am.cfg.SlotTime
	wait := am.rngstrm.RandU01() * span
	evtMgr.Schedule(am, trans.bump(), alohaRetryEvt, vrtime.SecondsToTime(wait))
	return nil
}

func alohaRetryEvt(evtMgr *evtm.EventManager, context any, data any) any {
	am := context.(*alohaMac)
	if !am.trans.live(data.(int)) {
		return nil
	}
	am.transmit(evtMgr)
	return nil
}

func (am *alohaMac) mediumBusy(evtMgr *evtm.EventManager) {
	// ALOHA does not sense the medium
}

func (am *alohaMac) ackArrived(evtMgr *evtm.EventManager, ack *Packet) {
	trans := am.trans
	if trans == nil || trans.state != macAwaitAck {
		return
	}
	if ack.AckForID != trans.pckt.PcktID || ack.AckTarget != am.drone.droneID {
		return
	}

	trans.bump()
	am.drone.routing.OnAck(trans.pckt.PcktID, evtMgr.CurrentSeconds())
	am.finish(evtMgr, true)
}

func (am *alohaMac) finish(evtMgr *evtm.EventManager, success bool) {
	pckt := am.trans.pckt
	am.trans = nil
	am.drone.macDone(evtMgr, pckt, success)
}

// createMac selects the MAC protocol named by the configuration
func createMac(drone *droneNode, cfg *Config) macProtocol {
	if cfg.MacProtocol == "aloha" {
		return createAlohaMac(drone, cfg)
	}
	return createCsmaMac(drone, cfg)
}
