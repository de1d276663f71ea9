package aanet

// channel.go implements the shared radio medium.  The channel is the
// system's broadcast primitive: a transmission becomes a transmission
// record in the inbox of every receiver the channel decides can hear it.
// The channel never judges collisions; that is the resolver's job.
// Three channel variants differ only in their insertion policy

import (
	"math"
	"sort"

	"github.com/iti/evt/evtm"
	"github.com/iti/rngstream"
)

// radioChannel is the variation point for the medium model
type radioChannel interface {
	// broadcastPut places a transmission record in the inbox of every
	// receiver selected by the packet's transmission mode, subject to
	// the variant's insertion policy
	broadcastPut(evtMgr *evtm.EventManager, pckt *Packet, sender *droneNode, power, duration float64)

	// rcvdPower computes the large-scale-faded receive power in watts
	rcvdPower(txPower float64, txPos, rxPos pos) float64

	// maxRange returns the distance beyond which a transmission at the
	// configured power cannot clear the SNR threshold
	maxRange() float64
}

// channelCore holds state common to all channel variants
type channelCore struct {
	cfg     *Config
	metrics *MetricsManager
	rngstrm *rngstream.RngStream
}

// euclidean3d returns the distance between two positions
func euclidean3d(a, b pos) float64 {
	dx := a.x - b.x
	dy := a.y - b.y
	dz := a.z - b.z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// euclidean2d returns the horizontal distance between two positions
func euclidean2d(a, b pos) float64 {
	dx := a.x - b.x
	dy := a.y - b.y
	return math.Sqrt(dx*dx + dy*dy)
}

// generalPathLoss is the free-space large-scale fading model for
// line-of-sight links, (c / 4 pi fc d)^alpha
func generalPathLoss(cfg *Config, txPos, rxPos pos) float64 {
	distance := euclidean3d(txPos, rxPos)
	if distance == 0.0 {
		return 1.0
	}
	return math.Pow(lightSpeed/(4.0*math.Pi*cfg.CarrierFreq*distance), cfg.PathLossExponent)
}

// probabilisticLosPathLoss mixes LoS and NLoS excess losses, with the LoS
// probability driven by the elevation angle between the two drones
func probabilisticLosPathLoss(cfg *Config, txPos, rxPos pos) float64 {
	const etaLosDb = 0.1
	const etaNlosDb = 21.0
	const a = 4.88
	const b = 0.429

	distance := euclidean3d(txPos, rxPos)
	horizontal := euclidean2d(txPos, rxPos)
	vertical := math.Max(txPos.z, rxPos.z)
	if vertical == 0.0 {
		vertical = 1.0
	}

	elevationAngle := math.Atan(horizontal/vertical) * 180.0 / math.Pi

	losProb := 1.0 / (1.0 + a*math.Exp(-b*(elevationAngle-a)))
	nlosProb := 1.0 - losProb

	if distance == 0.0 {
		return 1.0
	}

	fspl := math.Pow(lightSpeed/(4.0*math.Pi*cfg.CarrierFreq*distance), cfg.PathLossExponent)
	pathLossLos := fspl * math.Pow(10.0, etaLosDb/10.0)
	pathLossNlos := fspl * math.Pow(10.0, etaNlosDb/10.0)

	return losProb*pathLossLos + nlosProb*pathLossNlos
}

// maximumCommRange derives the farthest distance at which the received
// power still clears the configured SNR threshold over noise
func maximumCommRange(cfg *Config) float64 {
	txPowerDb := 10.0 * math.Log10(cfg.TxPower)
	noisePowerDb := 10.0 * math.Log10(cfg.NoisePower)
	snrThresholdDb := cfg.Profile.mcs(cfg.Mcs).SinrThreshDb

	pathLossDb := txPowerDb - noisePowerDb - snrThresholdDb

	return (lightSpeed * math.Pow(10.0, pathLossDb/(cfg.PathLossExponent*10.0))) /
		(4.0 * math.Pi * cfg.CarrierFreq)
}

func (cc *channelCore) rcvdPower(txPower float64, txPos, rxPos pos) float64 {
	if cc.cfg.ProbLoS {
		return txPower * probabilisticLosPathLoss(cc.cfg, txPos, rxPos)
	}
	return txPower * generalPathLoss(cc.cfg, txPos, rxPos)
}

func (cc *channelCore) maxRange() float64 {
	return maximumCommRange(cc.cfg)
}

// recipients resolves the set of drone ids a transmission reaches,
// given its mode.  Order is ascending id so runs are reproducible
func (cc *channelCore) recipients(pckt *Packet, senderID int) []int {
	switch pckt.Mode {
	case Unicast:
		if pckt.PcktType == ackPckt {
			return []int{pckt.AckTarget}
		}
		return []int{pckt.NxtHopID}
	case Multicast:
		return pckt.Recipients
	}

	ids := make([]int, 0, len(DroneByID))
	for id := range DroneByID {
		if id != senderID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// insert appends a transmission record to the receiver's inbox
func (cc *channelCore) insert(evtMgr *evtm.EventManager, pckt *Packet, sender *droneNode,
	rcvrID int, power, duration float64) {

	rcvr, present := DroneByID[rcvrID]
	if !present {
		panic("transmission offered to unknown receiver")
	}

	now := evtMgr.CurrentSeconds()
	rec := &xmitRecord{
		recID:     nxtID(),
		pckt:      pckt,
		senderID:  sender.droneID,
		power:     power,
		srtTime:   now,
		endTime:   now + duration,
		senderPos: sender.position,
	}
	rcvr.inboxInsert(evtMgr, rec)
}

// losChannel always inserts; the resolver alone decides reception
type losChannel struct {
	channelCore
}

func (lc *losChannel) broadcastPut(evtMgr *evtm.EventManager, pckt *Packet, sender *droneNode,
	power, duration float64) {
	for _, rcvrID := range lc.recipients(pckt, sender.droneID) {
		lc.insert(evtMgr, pckt, sender, rcvrID, power, duration)
	}
}

// probChannel drops the insertion independently per receiver with the
// configured loss probability
type probChannel struct {
	channelCore
}

func (pc *probChannel) broadcastPut(evtMgr *evtm.EventManager, pckt *Packet, sender *droneNode,
	power, duration float64) {
	for _, rcvrID := range pc.recipients(pckt, sender.droneID) {
		if pc.rngstrm.RandU01() < pc.cfg.LossProb {
			pc.metrics.DropPhy(pckt, evtMgr.CurrentSeconds(), "loss-prob")
			continue
		}
		pc.insert(evtMgr, pckt, sender, rcvrID, power, duration)
	}
}

// rangeChannel suppresses insertion when the faded receive power falls
// below the receiver sensitivity
type rangeChannel struct {
	channelCore
	sensitivity float64
}

func (rc *rangeChannel) broadcastPut(evtMgr *evtm.EventManager, pckt *Packet, sender *droneNode,
	power, duration float64) {
	for _, rcvrID := range rc.recipients(pckt, sender.droneID) {
		rcvr := DroneByID[rcvrID]
		if rc.rcvdPower(power, sender.position, rcvr.position) < rc.sensitivity {
			rc.metrics.DropPhy(pckt, evtMgr.CurrentSeconds(), "out-of-range")
			continue
		}
		rc.insert(evtMgr, pckt, sender, rcvrID, power, duration)
	}
}

// createChannel is a constructor selecting the channel variant named by
// the configuration
func createChannel(cfg *Config, metrics *MetricsManager) radioChannel {
	core := channelCore{cfg: cfg, metrics: metrics, rngstrm: rngstream.New("channel")}

	switch cfg.ChannelClass {
	case "prob":
		return &probChannel{channelCore: core}
	case "range":
		sensitivity := cfg.Sensitivity
		if sensitivity == 0.0 {
			// derive from the SINR threshold over the noise floor
			threshDb := cfg.Profile.mcs(cfg.Mcs).SinrThreshDb
			sensitivity = cfg.NoisePower * math.Pow(10.0, threshDb/10.0)
		}
		return &rangeChannel{channelCore: core, sensitivity: sensitivity}
	}
	return &losChannel{channelCore: core}
}
