package aanet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// threeDroneFixture builds a, b at equal distance from receiver c
func threeDroneFixture(t *testing.T) *Simulator {
	scfg := &SimCfg{
		Name:    "resolver-test",
		Seed:    3,
		SimTime: 1.0,
		Profile: "802.11n",
		Channel: ChannelDesc{Class: "los"},
		Drones: []DroneDesc{
			{Name: "a", X: 0, Y: 0, Z: 10, Routing: "static"},
			{Name: "b", X: 100, Y: 0, Z: 10, Routing: "static"},
			{Name: "c", X: 50, Y: 86.6, Z: 10, Routing: "static"},
		},
	}
	sim, err := CreateSimulator(scfg)
	require.NoError(t, err)
	return sim
}

// record fabricates a transmission from one drone into the inbox of
// another, with the given start and end times
func record(sim *Simulator, from, to *droneNode, srt, end float64) *xmitRecord {
	pckt := createDataPckt(from.droneID, to.droneID, 1, 0, 1000, 5, sim.Cfg.Mcs, srt)
	pckt.NxtHopID = to.droneID
	pckt.PrevHopID = from.droneID
	rec := &xmitRecord{
		recID:     nxtID(),
		pckt:      pckt,
		senderID:  from.droneID,
		power:     sim.Cfg.TxPower,
		srtTime:   srt,
		endTime:   end,
		senderPos: from.position,
	}
	to.inbox[rec.recID] = rec
	return rec
}

// TestResolverCollision: two equal-power records with intersecting
// air-time corrupt each other; neither is delivered
func TestResolverCollision(t *testing.T) {
	sim := threeDroneFixture(t)
	a := DroneByName["a"]
	b := DroneByName["b"]
	c := DroneByName["c"]

	recA := record(sim, a, c, -200e-6, -50e-6)
	recB := record(sim, b, c, -180e-6, -30e-6)

	resolverTick(sim.EvtMgr, c, nil)

	require.True(t, recA.resolved)
	require.True(t, recB.resolved)
	require.Equal(t, 0, len(sim.Metrics.delivered))
}

// TestResolverCleanReception: an uncontested record clears the SINR
// threshold and reaches the node's upper layers
func TestResolverCleanReception(t *testing.T) {
	sim := threeDroneFixture(t)
	a := DroneByName["a"]
	c := DroneByName["c"]

	rec := record(sim, a, c, -200e-6, -50e-6)
	resolverTick(sim.EvtMgr, c, nil)

	require.True(t, rec.resolved)
	require.Equal(t, 1, len(sim.Metrics.delivered))
	require.True(t, c.seen[rec.pckt.PcktID])
}

// TestResolverOverlapIsInclusive: records sharing exactly one instant interfere
func TestResolverOverlapIsInclusive(t *testing.T) {
	sim := threeDroneFixture(t)
	a := DroneByName["a"]
	b := DroneByName["b"]
	c := DroneByName["c"]

	recA := record(sim, a, c, -200e-6, -100e-6)
	recB := record(sim, b, c, -100e-6, -20e-6)
	require.True(t, recA.overlaps(recB))
	require.True(t, recB.overlaps(recA))

	resolverTick(sim.EvtMgr, c, nil)
	require.Equal(t, 0, len(sim.Metrics.delivered))
}

// TestResolverPrune: records linger for twice the maximum air-time after
// completion, then disappear
func TestResolverPrune(t *testing.T) {
	sim := threeDroneFixture(t)
	a := DroneByName["a"]
	c := DroneByName["c"]

	retention := 2.0 * sim.Cfg.Profile.maxAirTime()
	old := record(sim, a, c, -retention-2e-3, -retention-1e-3)
	old.resolved = true
	fresh := record(sim, a, c, -100e-6, -50e-6)

	resolverTick(sim.EvtMgr, c, nil)

	_, present := c.inbox[old.recID]
	require.False(t, present)
	_, present = c.inbox[fresh.recID]
	require.True(t, present)
}

// TestUnfinishedRecordInterferes: a record still on the air corrupts one
// that completes inside it
func TestUnfinishedRecordInterferes(t *testing.T) {
	sim := threeDroneFixture(t)
	a := DroneByName["a"]
	b := DroneByName["b"]
	c := DroneByName["c"]

	record(sim, a, c, -150e-6, -10e-6)
	// b's record has not completed yet at virtual time zero
	record(sim, b, c, -100e-6, 500e-6)

	resolverTick(sim.EvtMgr, c, nil)
	require.Equal(t, 0, len(sim.Metrics.delivered))
}
