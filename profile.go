package aanet

// profile.go defines radio technology profiles.  A profile bundles the
// MCS table (data rate and the SINR needed to decode at that rate),
// power limits, and the energy figures the energy model draws on

import "fmt"

// An McsEntry gives the characteristics of one modulation and coding scheme
type McsEntry struct {
	Index       int     // MCS index within the profile
	RateBps     float64 // data rate in bits per second
	SinrThreshDb float64 // minimum SINR (dB) at which reception succeeds
}

// A TechProfile describes one radio technology option
type TechProfile struct {
	Name          string
	McsTable      []McsEntry
	TxPowerMinW   float64 // watts
	TxPowerMaxW   float64
	EnergyTxW     float64 // power drawn while transmitting, watts
	EnergyRxW     float64
	EnergyIdleW   float64
	MaxPcktBits   int // largest frame the profile can carry
	AckLenBits    int // length of an acknowledgement frame
}

// mcs returns the MCS entry for the given index, panicking on an index
// outside the profile's table as that is a configuration error
func (tp *TechProfile) mcs(idx int) McsEntry {
	for _, entry := range tp.McsTable {
		if entry.Index == idx {
			return entry
		}
	}
	panic(fmt.Sprintf("MCS index %d not in profile %s", idx, tp.Name))
}

// airTime returns the virtual duration a transmission of lenBits occupies
// the channel when sent at the given MCS
func (tp *TechProfile) airTime(lenBits, mcsIdx int) float64 {
	return float64(lenBits) / tp.mcs(mcsIdx).RateBps
}

// maxAirTime returns the longest possible single-packet air-time under this
// profile, used to bound inbox record retention
func (tp *TechProfile) maxAirTime() float64 {
	slowest := tp.McsTable[0].RateBps
	for _, entry := range tp.McsTable[1:] {
		if entry.RateBps < slowest {
			slowest = entry.RateBps
		}
	}
	return float64(tp.MaxPcktBits) / slowest
}

// Wifi11n is an 802.11n-like profile with a reduced MCS table
var Wifi11n = TechProfile{
	Name: "802.11n",
	McsTable: []McsEntry{
		{Index: 0, RateBps: 6.5e6, SinrThreshDb: 5.0},
		{Index: 1, RateBps: 13.0e6, SinrThreshDb: 8.0},
		{Index: 2, RateBps: 26.0e6, SinrThreshDb: 12.0},
		{Index: 3, RateBps: 52.0e6, SinrThreshDb: 18.0},
	},
	TxPowerMinW: 0.001,
	TxPowerMaxW: 0.1,
	EnergyTxW:   1.0,
	EnergyRxW:   0.8,
	EnergyIdleW: 0.1,
	MaxPcktBits: 7935 * 8,
	AckLenBits:  240,
}

// Wifi11ac is an 802.11ac-like profile, higher rates and thresholds
var Wifi11ac = TechProfile{
	Name: "802.11ac",
	McsTable: []McsEntry{
		{Index: 0, RateBps: 29.3e6, SinrThreshDb: 6.0},
		{Index: 1, RateBps: 58.5e6, SinrThreshDb: 10.0},
		{Index: 2, RateBps: 117.0e6, SinrThreshDb: 15.0},
		{Index: 3, RateBps: 234.0e6, SinrThreshDb: 21.0},
	},
	TxPowerMinW: 0.001,
	TxPowerMaxW: 0.2,
	EnergyTxW:   1.2,
	EnergyRxW:   0.9,
	EnergyIdleW: 0.12,
	MaxPcktBits: 11454 * 8,
	AckLenBits:  240,
}

// profileByName maps a configuration string to a profile
var profileByName map[string]*TechProfile = map[string]*TechProfile{
	"802.11n":  &Wifi11n,
	"wifi11n":  &Wifi11n,
	"802.11ac": &Wifi11ac,
	"wifi11ac": &Wifi11ac,
}

// GetTechProfile returns the profile registered under the given name
func GetTechProfile(name string) (*TechProfile, error) {
	tp, present := profileByName[name]
	if !present {
		return nil, fmt.Errorf("unknown tech profile %s", name)
	}
	return tp, nil
}
