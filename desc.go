package aanet

// desc.go holds the serializable description of an experiment.  Following
// the convention used throughout, the 'Desc' structs are pointer-free and
// carry yaml/json tags; run-time structures are built from them at load time

import (
	"encoding/json"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// A ChannelDesc selects and parameterizes the channel model
type ChannelDesc struct {
	// one of "los", "prob", "range"
	Class string `json:"class" yaml:"class"`

	// per-receiver Bernoulli loss probability, "prob" class only
	LossProb float64 `json:"lossprob" yaml:"lossprob"`

	// receiver sensitivity in watts, "range" class; 0 derives it from the SINR threshold
	Sensitivity float64 `json:"sensitivity" yaml:"sensitivity"`

	// path loss exponent alpha
	PathLossExponent float64 `json:"pathlossexponent" yaml:"pathlossexponent"`

	// carrier frequency in Hz
	CarrierFreq float64 `json:"carrierfreq" yaml:"carrierfreq"`

	// thermal noise power in watts
	NoisePower float64 `json:"noisepower" yaml:"noisepower"`

	// transmit power in watts, applied uniformly
	TxPower float64 `json:"txpower" yaml:"txpower"`

	// when true, large-scale fading uses the probabilistic LoS model
	ProbLoS bool `json:"problos" yaml:"problos"`
}

// A MacDesc selects and parameterizes the MAC protocol
type MacDesc struct {
	// one of "csma", "aloha"
	Protocol string `json:"protocol" yaml:"protocol"`

	Difs       float64 `json:"difs" yaml:"difs"`
	Sifs       float64 `json:"sifs" yaml:"sifs"`
	SlotTime   float64 `json:"slottime" yaml:"slottime"`
	CWMin      int     `json:"cwmin" yaml:"cwmin"`
	CWMax      int     `json:"cwmax" yaml:"cwmax"`
	MaxRetries int     `json:"maxretries" yaml:"maxretries"`

	// extra wait beyond SIFS + ack air-time before declaring ack timeout
	AckSlack float64 `json:"ackslack" yaml:"ackslack"`

	// pure ALOHA: retry wait is uniform over [0, AlohaK * attempts * slottime]
	AlohaK float64 `json:"alohak" yaml:"alohak"`
}

// A DroneDesc describes one drone in the topology
type DroneDesc struct {
	Name string  `json:"name" yaml:"name"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Z    float64 `json:"z" yaml:"z"`

	// one of "static", "waypoint", "gaussmarkov"
	Mobility string `json:"mobility" yaml:"mobility"`

	// mean speed in m/s for the moving mobility models
	Speed float64 `json:"speed" yaml:"speed"`

	// one of "spf", "static"
	Routing string `json:"routing" yaml:"routing"`

	// initial battery charge in joules
	Energy float64 `json:"energy" yaml:"energy"`
}

// A SessionDesc describes one application-layer traffic session
type SessionDesc struct {
	Src string `json:"src" yaml:"src"`
	Dst string `json:"dst" yaml:"dst"`

	// one of "uniform", "poisson"
	Arrival string `json:"arrival" yaml:"arrival"`

	// mean packet arrival rate in packets per second
	Rate float64 `json:"rate" yaml:"rate"`

	// number of packets the session generates
	Count int `json:"count" yaml:"count"`

	// payload length in bits
	LenBits int `json:"lenbits" yaml:"lenbits"`

	// virtual time the session starts
	SrtTime float64 `json:"srttime" yaml:"srttime"`
}

// A SimCfg gathers the complete description of an experiment
type SimCfg struct {
	Name    string  `json:"name" yaml:"name"`
	Seed    uint64  `json:"seed" yaml:"seed"`
	SimTime float64 `json:"simtime" yaml:"simtime"`

	// name of the radio tech profile, e.g. "802.11ac"
	Profile string `json:"profile" yaml:"profile"`

	// fixed MCS index used for all transmissions
	Mcs int `json:"mcs" yaml:"mcs"`

	Channel ChannelDesc `json:"channel" yaml:"channel"`
	Mac     MacDesc     `json:"mac" yaml:"mac"`

	// pipeline pacing
	FeedInterval   float64 `json:"feedinterval" yaml:"feedinterval"`
	ResolverTick   float64 `json:"resolvertick" yaml:"resolvertick"`
	PosUpdate      float64 `json:"posupdate" yaml:"posupdate"`

	// 0 leaves the transmitting queue unbounded
	QueueCap int `json:"queuecap" yaml:"queuecap"`

	// default TTL given to generated data packets
	TTL int `json:"ttl" yaml:"ttl"`

	// hello beacon period; 0 disables beacons
	BeaconInterval float64 `json:"beaconinterval" yaml:"beaconinterval"`

	Drones   []DroneDesc   `json:"drones" yaml:"drones"`
	Sessions []SessionDesc `json:"sessions" yaml:"sessions"`

	// bounds of the flight volume in meters, used by the mobility models
	AreaX float64 `json:"areax" yaml:"areax"`
	AreaY float64 `json:"areay" yaml:"areay"`
	AreaZ float64 `json:"areaz" yaml:"areaz"`

	// trace switch
	Trace bool `json:"trace" yaml:"trace"`
}

// WriteToFile stores the SimCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (scfg *SimCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*scfg)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*scfg, "", "\t")
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
	return werr
}

// ReadSimCfg deserializes a byte slice holding a representation of a SimCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given
// is read to acquire them.  A deserialized representation is returned, or an error
// if one is generated from a file read or the deserialization.
func ReadSimCfg(filename string, useYAML bool, dict []byte) (*SimCfg, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := SimCfg{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}
