package aanet

// metrics.go implements the append-only metrics sink and the summary
// statistics computed from it.  Every record carries the packet and flow
// identities and the virtual time it was emitted; records are never
// rewritten, so the stream doubles as the reproducibility witness: two
// runs agree iff their streams agree

import (
	"encoding/json"
	"os"
	"path"
	"sort"

	"github.com/rs/xid"
	"gopkg.in/yaml.v3"
)

// metric record kinds
const (
	MetricGenerated  = "generated"
	MetricDelivered  = "delivered"
	MetricDroppedTTL = "dropped_ttl"
	MetricDroppedMac = "dropped_mac"
	MetricDroppedPhy = "dropped_phy"
	MetricHop        = "hop"
)

// A MetricRecord is one entry of the metrics stream
type MetricRecord struct {
	Kind   string  `json:"kind" yaml:"kind"`
	PcktID int     `json:"pcktid" yaml:"pcktid"`
	FlowID int     `json:"flowid" yaml:"flowid"`
	Time   float64 `json:"time" yaml:"time"`
	Extra  string  `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// A MetricsManager gathers the stream and the aggregates derived from it
type MetricsManager struct {
	// unique identity of this run
	RunID string `json:"runid" yaml:"runid"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	Records []MetricRecord `json:"records" yaml:"records"`

	// per-packet bookkeeping for the summary, keyed by packet id
	genTime   map[int]float64
	hopCount  map[int]int
	delivered map[int]float64
	lenBits   map[int]int
	terminal  map[int]bool
	pckts     map[int]*Packet
}

// CreateMetricsManager is a constructor
func CreateMetricsManager(expName string) *MetricsManager {
	mm := new(MetricsManager)
	mm.RunID = xid.New().String()
	mm.ExpName = expName
	mm.Records = []MetricRecord{}
	mm.genTime = make(map[int]float64)
	mm.hopCount = make(map[int]int)
	mm.delivered = make(map[int]float64)
	mm.lenBits = make(map[int]int)
	mm.terminal = make(map[int]bool)
	mm.pckts = make(map[int]*Packet)
	return mm
}

func (mm *MetricsManager) add(kind string, pckt *Packet, now float64, extra string) {
	mm.Records = append(mm.Records,
		MetricRecord{Kind: kind, PcktID: pckt.PcktID, FlowID: pckt.FlowID, Time: now, Extra: extra})
}

// Generated records the creation of a data packet at the application layer
func (mm *MetricsManager) Generated(pckt *Packet, now float64) {
	mm.genTime[pckt.PcktID] = now
	mm.lenBits[pckt.PcktID] = pckt.LenBits
	mm.pckts[pckt.PcktID] = pckt
	mm.add(MetricGenerated, pckt, now, "")
}

// Delivered records terminal delivery at the packet's destination
func (mm *MetricsManager) Delivered(pckt *Packet, now float64) {
	mm.delivered[pckt.PcktID] = now
	mm.terminal[pckt.PcktID] = true
	mm.add(MetricDelivered, pckt, now, "")
}

// DropTTL records a packet discarded at a forwarding node with no hops left
func (mm *MetricsManager) DropTTL(pckt *Packet, now float64) {
	mm.terminal[pckt.PcktID] = true
	mm.add(MetricDroppedTTL, pckt, now, "")
}

// DropMac records a terminal MAC failure: the retransmit budget ran out
// (or the packet was pushed off a capped queue)
func (mm *MetricsManager) DropMac(pckt *Packet, now float64, reason string) {
	mm.terminal[pckt.PcktID] = true
	mm.add(MetricDroppedMac, pckt, now, reason)
}

// DropPhy records a channel-policy suppression.  The sender cannot see
// these; they surface on its side as ack timeouts
func (mm *MetricsManager) DropPhy(pckt *Packet, now float64, reason string) {
	mm.add(MetricDroppedPhy, pckt, now, reason)
}

// Hop records acceptance of a packet at an intermediate forwarding node
func (mm *MetricsManager) Hop(pckt *Packet, nodeID int, now float64) {
	mm.hopCount[pckt.PcktID] += 1
	mm.add(MetricHop, pckt, now, "")
}

// FlushInFlight closes out generated packets still in motion when the
// simulation terminates; they are accounted as in-air drops
func (mm *MetricsManager) FlushInFlight(now float64) {
	ids := make([]int, 0, len(mm.genTime))
	for pcktID := range mm.genTime {
		if !mm.terminal[pcktID] {
			ids = append(ids, pcktID)
		}
	}
	sort.Ints(ids)
	for _, pcktID := range ids {
		mm.terminal[pcktID] = true
		mm.add(MetricDroppedPhy, mm.pckts[pcktID], now, "sim-end")
	}
}

// TerminalOutcome reports whether the packet's lifetime has closed
func (mm *MetricsManager) TerminalOutcome(pcktID int) bool {
	return mm.terminal[pcktID]
}

// A MetricsSummary is the cross-layer metrics vector computed at run end
type MetricsSummary struct {
	RunID      string  `json:"runid" yaml:"runid"`
	Generated  int     `json:"generated" yaml:"generated"`
	Delivered  int     `json:"delivered" yaml:"delivered"`
	DroppedMac int     `json:"droppedmac" yaml:"droppedmac"`
	DroppedTTL int     `json:"droppedttl" yaml:"droppedttl"`
	Pdr        float64 `json:"pdr" yaml:"pdr"`

	// mean end-to-end delay over delivered packets, seconds
	MeanDelay float64 `json:"meandelay" yaml:"meandelay"`

	// delivered application bits per second of virtual time
	Throughput float64 `json:"throughput" yaml:"throughput"`

	// mean forwarding hops over delivered packets
	MeanHops float64 `json:"meanhops" yaml:"meanhops"`

	// residual energy per drone name
	ResidualEnergy map[string]float64 `json:"residualenergy" yaml:"residualenergy"`
}

// Summary computes the aggregate metrics vector over the stream
func (mm *MetricsManager) Summary(simTime float64) *MetricsSummary {
	sum := new(MetricsSummary)
	sum.RunID = mm.RunID
	sum.ResidualEnergy = make(map[string]float64)

	for _, rec := range mm.Records {
		switch rec.Kind {
		case MetricGenerated:
			sum.Generated += 1
		case MetricDelivered:
			sum.Delivered += 1
		case MetricDroppedMac:
			sum.DroppedMac += 1
		case MetricDroppedTTL:
			sum.DroppedTTL += 1
		}
	}

	if sum.Generated > 0 {
		sum.Pdr = float64(sum.Delivered) / float64(sum.Generated)
	}

	dlvIds := make([]int, 0, len(mm.delivered))
	for pcktID := range mm.delivered {
		dlvIds = append(dlvIds, pcktID)
	}
	sort.Ints(dlvIds)

	totalDelay := 0.0
	totalHops := 0
	totalBits := 0
	for _, pcktID := range dlvIds {
		totalDelay += mm.delivered[pcktID] - mm.genTime[pcktID]
		totalHops += mm.hopCount[pcktID] + 1
		totalBits += mm.lenBits[pcktID]
	}
	if sum.Delivered > 0 {
		sum.MeanDelay = totalDelay / float64(sum.Delivered)
		sum.MeanHops = float64(totalHops) / float64(sum.Delivered)
	}
	if simTime > 0.0 {
		sum.Throughput = float64(totalBits) / simTime
	}

	for _, name := range droneNames() {
		sum.ResidualEnergy[name] = DroneByName[name].energy.Remaining()
	}

	return sum
}

// droneNames returns the names of all drones in a fixed order
func droneNames() []string {
	names := make([]string, 0, len(DroneByName))
	for name := range DroneByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteToFile stores the metrics stream to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (mm *MetricsManager) WriteToFile(filename string) bool {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*mm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*mm, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()
	return true
}
