package aanet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// freezeFixture builds a two-drone simulator and returns the first
// drone's CSMA state machine without starting the run
func freezeFixture(t *testing.T) (*Simulator, *droneNode, *csmaMac) {
	sim, err := CreateSimulator(twoDroneCfg("los", 0, 100))
	require.NoError(t, err)
	drone := DroneByName["a"]
	cm, ok := drone.mac.(*csmaMac)
	require.True(t, ok)
	return sim, drone, cm
}

// TestBackoffFreezeKeepsRemainder checks that when the medium turns busy
// during the countdown, the resumed countdown equals the frozen
// remainder, with no redraw
func TestBackoffFreezeKeepsRemainder(t *testing.T) {
	sim, drone, cm := freezeFixture(t)

	// a transmission on the air makes the medium busy at time zero
	other := DroneByName["b"]
	rec := &xmitRecord{
		recID:     nxtID(),
		pckt:      createControlPckt(other.droneID, 400, sim.Cfg.Mcs, 0.0),
		senderID:  other.droneID,
		power:     sim.Cfg.TxPower,
		srtTime:   0.0,
		endTime:   100e-6,
		senderPos: other.position,
	}
	drone.inbox[rec.recID] = rec

	// transaction mid-countdown: it began 40us ago with 100us to go
	pckt := createDataPckt(drone.droneID, other.droneID, 1, 0, 1000, 5, sim.Cfg.Mcs, 0.0)
	pckt.NxtHopID = other.droneID
	cm.trans = &macTrans{pckt: pckt, state: macCountdown, remaining: 100e-6, countdownSrt: -40e-6}

	cm.mediumBusy(sim.EvtMgr)

	require.Equal(t, macSensing, cm.trans.state)
	require.InDelta(t, 60e-6, cm.trans.remaining, 1e-12)
}

// TestContentionWindowGrowth checks CW = min(CWmin * 2^attempts, CWmax)
// as realized by the backoff draw bounds
func TestContentionWindowGrowth(t *testing.T) {
	sim, drone, cm := freezeFixture(t)
	cfg := sim.Cfg
	other := DroneByName["b"]

	pckt := createDataPckt(drone.droneID, other.droneID, 1, 0, 1000, 5, cfg.Mcs, 0.0)
	pckt.NxtHopID = other.droneID

	for attempts := 0; attempts < 12; attempts++ {
		cw := cfg.CWMin << attempts
		if cw > cfg.CWMax {
			cw = cfg.CWMax
		}
		require.LessOrEqual(t, cw, cfg.CWMax)
		require.GreaterOrEqual(t, cw, cfg.CWMin)

		// a fresh draw on an idle medium lands in DIFS + [0, cw-1] slots
		cm.trans = &macTrans{pckt: pckt, state: macSensing, attempts: attempts, remaining: -1.0}
		cm.sense(sim.EvtMgr)
		require.Equal(t, macCountdown, cm.trans.state)
		require.GreaterOrEqual(t, cm.trans.remaining, cfg.Difs)
		require.LessOrEqual(t, cm.trans.remaining, cfg.Difs+float64(cw-1)*cfg.SlotTime+1e-12)
	}

	// the longest possible fresh countdown is DIFS + (CWmax-1) slots
	maxWait := cfg.Difs + float64(cfg.CWMax-1)*cfg.SlotTime
	require.Greater(t, maxWait, cfg.Difs)
}

// TestAckMatching checks that only an acknowledgement naming this packet
// and this drone closes the transaction
func TestAckMatching(t *testing.T) {
	sim, drone, cm := freezeFixture(t)
	other := DroneByName["b"]

	pckt := createDataPckt(drone.droneID, other.droneID, 1, 0, 1000, 5, sim.Cfg.Mcs, 0.0)
	pckt.NxtHopID = other.droneID
	pckt.PrevHopID = drone.droneID
	cm.trans = &macTrans{pckt: pckt, state: macAwaitAck}

	// ack for a different data packet is ignored
	wrong := createAckPckt(other, pckt, sim.Cfg.Profile.AckLenBits, 0.0)
	wrong.AckForID = pckt.PcktID + 999
	cm.ackArrived(sim.EvtMgr, wrong)
	require.NotNil(t, cm.trans)

	// the matching ack completes the transaction; completion releases the
	// buffer slot, so pretend the feed loop holds it
	drone.feeding = true
	drone.slot.held = true

	right := createAckPckt(other, pckt, sim.Cfg.Profile.AckLenBits, 0.0)
	cm.ackArrived(sim.EvtMgr, right)
	require.Nil(t, cm.trans)
	require.False(t, drone.feeding)
}

// TestMediumBusyPredicate checks the carrier-sense rule: busy iff some
// record satisfies start <= now < end
func TestMediumBusyPredicate(t *testing.T) {
	sim, drone, _ := freezeFixture(t)
	other := DroneByName["b"]

	rec := &xmitRecord{
		recID:     nxtID(),
		pckt:      createControlPckt(other.droneID, 400, sim.Cfg.Mcs, 0.0),
		senderID:  other.droneID,
		power:     sim.Cfg.TxPower,
		srtTime:   10e-6,
		endTime:   20e-6,
		senderPos: other.position,
	}
	drone.inbox[rec.recID] = rec

	require.False(t, drone.mediumBusyAt(5e-6))
	require.True(t, drone.mediumBusyAt(10e-6))
	require.True(t, drone.mediumBusyAt(15e-6))
	require.False(t, drone.mediumBusyAt(20e-6))

	require.InDelta(t, 20e-6, drone.mediumClearsAt(15e-6), 1e-12)
	_ = sim
}
