package aanet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// twoDroneCfg builds a minimal two-drone configuration for channel tests
func twoDroneCfg(channelClass string, lossProb float64, sep float64) *SimCfg {
	return &SimCfg{
		Name:    "channel-test",
		Seed:    7,
		SimTime: 1.0,
		Profile: "802.11n",
		Channel: ChannelDesc{Class: channelClass, LossProb: lossProb},
		Drones: []DroneDesc{
			{Name: "a", X: 0, Y: 0, Z: 10, Routing: "static"},
			{Name: "b", X: sep, Y: 0, Z: 10, Routing: "static"},
		},
	}
}

func TestPathLossDecreasesWithDistance(t *testing.T) {
	sim, err := CreateSimulator(twoDroneCfg("los", 0, 100))
	require.NoError(t, err)
	cfg := sim.Cfg

	near := generalPathLoss(cfg, pos{0, 0, 10}, pos{50, 0, 10})
	far := generalPathLoss(cfg, pos{0, 0, 10}, pos{500, 0, 10})
	require.Greater(t, near, far)
	require.Equal(t, 1.0, generalPathLoss(cfg, pos{1, 2, 3}, pos{1, 2, 3}))

	nearP := probabilisticLosPathLoss(cfg, pos{0, 0, 10}, pos{50, 0, 10})
	farP := probabilisticLosPathLoss(cfg, pos{0, 0, 10}, pos{500, 0, 10})
	require.Greater(t, nearP, farP)
}

// TestMaxCommRange checks the derived range against the fading model: just
// inside the range the SNR clears the threshold, just outside it does not
func TestMaxCommRange(t *testing.T) {
	sim, err := CreateSimulator(twoDroneCfg("los", 0, 100))
	require.NoError(t, err)
	cfg := sim.Cfg

	maxRange := maximumCommRange(cfg)
	require.Greater(t, maxRange, 0.0)

	thresh := cfg.Profile.mcs(cfg.Mcs).SinrThreshDb
	snrDb := func(d float64) float64 {
		rx := cfg.TxPower * generalPathLoss(cfg, pos{0, 0, 0}, pos{d, 0, 0})
		return 10.0 * math.Log10(rx/cfg.NoisePower)
	}

	require.GreaterOrEqual(t, snrDb(maxRange*0.99), thresh)
	require.Less(t, snrDb(maxRange*1.01), thresh)
}

// TestLosChannelInsertsUnconditionally checks the LoS channel writes a
// record into every recipient inbox
func TestLosChannelInsertsUnconditionally(t *testing.T) {
	sim, err := CreateSimulator(twoDroneCfg("los", 0, 100))
	require.NoError(t, err)

	a := DroneByName["a"]
	b := DroneByName["b"]

	pckt := createDataPckt(a.droneID, b.droneID, 1, 0, 1000, 5, sim.Cfg.Mcs, 0.0)
	pckt.NxtHopID = b.droneID
	sim.channel.broadcastPut(sim.EvtMgr, pckt, a, sim.Cfg.TxPower, 1e-4)

	require.Len(t, b.inbox, 1)
	require.Len(t, a.inbox, 0)
	for _, rec := range b.inbox {
		require.Equal(t, a.droneID, rec.senderID)
		require.InDelta(t, 1e-4, rec.endTime-rec.srtTime, 1e-12)
	}
}

// TestProbChannelCertainLoss checks that loss probability 1.0 suppresses
// every insertion and leaves a phy-drop record behind
func TestProbChannelCertainLoss(t *testing.T) {
	sim, err := CreateSimulator(twoDroneCfg("prob", 1.0, 100))
	require.NoError(t, err)

	a := DroneByName["a"]
	b := DroneByName["b"]

	pckt := createDataPckt(a.droneID, b.droneID, 1, 0, 1000, 5, sim.Cfg.Mcs, 0.0)
	pckt.NxtHopID = b.droneID
	sim.channel.broadcastPut(sim.EvtMgr, pckt, a, sim.Cfg.TxPower, 1e-4)

	require.Len(t, b.inbox, 0)
	require.Len(t, sim.Metrics.Records, 1)
	require.Equal(t, MetricDroppedPhy, sim.Metrics.Records[0].Kind)
}

// TestRangeChannelSuppression checks the range channel's
// sensitivity gate in both directions
func TestRangeChannelSuppression(t *testing.T) {
	sim, err := CreateSimulator(twoDroneCfg("range", 0, 100))
	require.NoError(t, err)

	a := DroneByName["a"]
	b := DroneByName["b"]
	maxRange := sim.channel.maxRange()

	// well inside range: inserted
	pckt := createDataPckt(a.droneID, b.droneID, 1, 0, 1000, 5, sim.Cfg.Mcs, 0.0)
	pckt.NxtHopID = b.droneID
	sim.channel.broadcastPut(sim.EvtMgr, pckt, a, sim.Cfg.TxPower, 1e-4)
	require.Len(t, b.inbox, 1)

	// move b beyond range: suppressed
	b.position = pos{x: maxRange * 2.0, y: 0, z: 10}
	pckt2 := createDataPckt(a.droneID, b.droneID, 1, 1, 1000, 5, sim.Cfg.Mcs, 0.0)
	pckt2.NxtHopID = b.droneID
	sim.channel.broadcastPut(sim.EvtMgr, pckt2, a, sim.Cfg.TxPower, 1e-4)
	require.Len(t, b.inbox, 1)
}

// TestBroadcastReachesAll checks broadcast mode fans out to every other drone
func TestBroadcastReachesAll(t *testing.T) {
	scfg := twoDroneCfg("los", 0, 100)
	scfg.Drones = append(scfg.Drones, DroneDesc{Name: "c", X: 50, Y: 50, Z: 10, Routing: "static"})
	sim, err := CreateSimulator(scfg)
	require.NoError(t, err)

	a := DroneByName["a"]
	beacon := createControlPckt(a.droneID, 400, sim.Cfg.Mcs, 0.0)
	sim.channel.broadcastPut(sim.EvtMgr, beacon, a, sim.Cfg.TxPower, 1e-4)

	require.Len(t, a.inbox, 0)
	require.Len(t, DroneByName["b"].inbox, 1)
	require.Len(t, DroneByName["c"].inbox, 1)
}
