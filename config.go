package aanet

// config.go turns a serialized SimCfg into the run-time Config value object.
// The Config is built once at simulation start, handed to each component at
// construction, and never mutated afterwards

import (
	"fmt"
)

// A Config carries every parameter the simulation core needs at run time
type Config struct {
	Name    string
	Seed    uint64
	SimTime float64

	Profile *TechProfile
	Mcs     int

	// channel
	ChannelClass     string
	LossProb         float64
	Sensitivity      float64
	PathLossExponent float64
	CarrierFreq      float64
	NoisePower       float64
	TxPower          float64
	ProbLoS          bool

	// mac
	MacProtocol string
	Difs        float64
	Sifs        float64
	SlotTime    float64
	CWMin       int
	CWMax       int
	MaxRetries  int
	AckSlack    float64
	AlohaK      float64

	// pacing
	FeedInterval float64
	ResolverTick float64
	PosUpdate    float64

	QueueCap       int
	TTL            int
	BeaconInterval float64

	AreaX, AreaY, AreaZ float64

	Trace bool
}

// speed of light in meters per second, used by the fading models
const lightSpeed float64 = 3.0e8

// BuildConfig validates a SimCfg and produces the immutable Config value,
// filling 802.11-flavored defaults for fields left at zero
func BuildConfig(scfg *SimCfg) (*Config, error) {
	if len(scfg.Drones) == 0 {
		return nil, fmt.Errorf("configuration declares no drones")
	}

	profileName := scfg.Profile
	if profileName == "" {
		profileName = "802.11n"
	}
	profile, err := GetTechProfile(profileName)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)
	cfg.Name = scfg.Name
	cfg.Seed = scfg.Seed
	cfg.SimTime = scfg.SimTime
	cfg.Profile = profile
	cfg.Mcs = scfg.Mcs

	// every MCS reference below panics on a bad index, so probe once here
	// to turn it into a reportable configuration error
	found := false
	for _, entry := range profile.McsTable {
		if entry.Index == cfg.Mcs {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("MCS index %d not defined by profile %s", cfg.Mcs, profile.Name)
	}

	cfg.ChannelClass = scfg.Channel.Class
	if cfg.ChannelClass == "" {
		cfg.ChannelClass = "los"
	}
	switch cfg.ChannelClass {
	case "los", "prob", "range":
	default:
		return nil, fmt.Errorf("unknown channel class %s", cfg.ChannelClass)
	}

	cfg.LossProb = scfg.Channel.LossProb
	if cfg.LossProb < 0.0 || cfg.LossProb > 1.0 {
		return nil, fmt.Errorf("loss probability %f outside [0,1]", cfg.LossProb)
	}
	cfg.Sensitivity = scfg.Channel.Sensitivity
	cfg.PathLossExponent = defaultFloat(scfg.Channel.PathLossExponent, 2.0)
	cfg.CarrierFreq = defaultFloat(scfg.Channel.CarrierFreq, 2.4e9)
	cfg.NoisePower = defaultFloat(scfg.Channel.NoisePower, 4.0e-11)
	cfg.TxPower = defaultFloat(scfg.Channel.TxPower, 0.1)
	cfg.ProbLoS = scfg.Channel.ProbLoS

	if cfg.TxPower < profile.TxPowerMinW || cfg.TxPower > profile.TxPowerMaxW {
		return nil, fmt.Errorf("transmit power %f outside profile %s range", cfg.TxPower, profile.Name)
	}

	cfg.MacProtocol = scfg.Mac.Protocol
	if cfg.MacProtocol == "" {
		cfg.MacProtocol = "csma"
	}
	switch cfg.MacProtocol {
	case "csma", "aloha":
	default:
		return nil, fmt.Errorf("unknown MAC protocol %s", cfg.MacProtocol)
	}

	cfg.Difs = defaultFloat(scfg.Mac.Difs, 34e-6)
	cfg.Sifs = defaultFloat(scfg.Mac.Sifs, 16e-6)
	cfg.SlotTime = defaultFloat(scfg.Mac.SlotTime, 9e-6)
	cfg.CWMin = defaultInt(scfg.Mac.CWMin, 16)
	cfg.CWMax = defaultInt(scfg.Mac.CWMax, 1024)
	cfg.MaxRetries = defaultInt(scfg.Mac.MaxRetries, 5)
	cfg.AckSlack = defaultFloat(scfg.Mac.AckSlack, 20e-6)
	cfg.AlohaK = defaultFloat(scfg.Mac.AlohaK, 4.0)

	if cfg.Sifs >= cfg.Difs {
		return nil, fmt.Errorf("SIFS %f must be shorter than DIFS %f", cfg.Sifs, cfg.Difs)
	}

	cfg.FeedInterval = defaultFloat(scfg.FeedInterval, 100e-6)
	cfg.ResolverTick = defaultFloat(scfg.ResolverTick, 50e-6)
	cfg.PosUpdate = defaultFloat(scfg.PosUpdate, 0.1)
	cfg.QueueCap = scfg.QueueCap
	cfg.TTL = defaultInt(scfg.TTL, 15)
	cfg.BeaconInterval = scfg.BeaconInterval
	cfg.AreaX = defaultFloat(scfg.AreaX, 1000.0)
	cfg.AreaY = defaultFloat(scfg.AreaY, 1000.0)
	cfg.AreaZ = defaultFloat(scfg.AreaZ, 200.0)
	cfg.Trace = scfg.Trace

	if cfg.SimTime <= 0.0 {
		cfg.SimTime = 10.0
	}

	return cfg, nil
}

// airTime returns the channel occupancy of a packet under this configuration
func (cfg *Config) airTime(pckt *Packet) float64 {
	return cfg.Profile.airTime(pckt.LenBits, pckt.MCSIndex)
}

// ackTimeout returns the wait after the end of a data transmission before
// the sender declares the acknowledgement lost.  The resolver inspects
// inboxes on a periodic tick, so the window covers two tick periods of
// detection latency (one at the receiver, one back at the sender) on top
// of SIFS, the ack air-time, and the configured slack
func (cfg *Config) ackTimeout() float64 {
	return cfg.Sifs + cfg.Profile.airTime(cfg.Profile.AckLenBits, cfg.Mcs) +
		2.0*cfg.ResolverTick + cfg.AckSlack
}

func defaultFloat(v, dflt float64) float64 {
	if v == 0.0 {
		return dflt
	}
	return v
}

func defaultInt(v, dflt int) int {
	if v == 0 {
		return dflt
	}
	return v
}
