package aanet

// traffic.go generates the application-layer load.  Each configured
// session is an arrival process at a source drone addressed to one
// destination; arrivals are uniform or Poisson, each session drawing from
// its own seeded stream

import (
	"fmt"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// counter giving each session its flow id
var numberOfFlows int = 0

// A trafficSession drives one application-layer flow
type trafficSession struct {
	flowID  int
	src     *droneNode
	dst     *droneNode
	arrival string
	rate    float64
	count   int
	lenBits int
	cfg     *Config

	sent    int
	seq     int
	srtTime float64

	expo    *distuv.Exponential  // inter-arrival draw for Poisson sessions
	rngstrm *rngstream.RngStream // inter-arrival draw for uniform sessions
}

// createTrafficSession is a constructor.  The Poisson draw gets its own
// source seeded from the experiment seed and the flow id, so substituting
// one session's process leaves every other stream untouched
func createTrafficSession(desc *SessionDesc, cfg *Config) (*trafficSession, error) {
	src, present := DroneByName[desc.Src]
	if !present {
		return nil, fmt.Errorf("session source %s is not a drone", desc.Src)
	}
	dst, present := DroneByName[desc.Dst]
	if !present {
		return nil, fmt.Errorf("session destination %s is not a drone", desc.Dst)
	}
	if desc.Rate <= 0.0 {
		return nil, fmt.Errorf("session %s -> %s has no arrival rate", desc.Src, desc.Dst)
	}

	numberOfFlows += 1
	ts := new(trafficSession)
	ts.flowID = numberOfFlows
	ts.src = src
	ts.dst = dst
	ts.arrival = desc.Arrival
	ts.rate = desc.Rate
	ts.count = defaultInt(desc.Count, 1)
	ts.lenBits = defaultInt(desc.LenBits, 8192)
	ts.cfg = cfg

	if ts.arrival == "poisson" {
		rngSrc := rand.NewSource(cfg.Seed + uint64(ts.flowID))
		ts.expo = &distuv.Exponential{Rate: ts.rate, Src: rngSrc}
	} else {
		ts.rngstrm = rngstream.New(fmt.Sprintf("trf-%d", ts.flowID))
	}

	return ts, nil
}

// interArrival draws the wait before the session's next packet
func (ts *trafficSession) interArrival() float64 {
	if ts.expo != nil {
		return ts.expo.Rand()
	}
	// uniform over [0, 2/rate], mean 1/rate
	return ts.rngstrm.RandU01() * 2.0 / ts.rate
}

// sessionArrivalEvt injects the session's next data packet at its source
// and schedules the arrival after it
func sessionArrivalEvt(evtMgr *evtm.EventManager, context any, data any) any {
	ts := context.(*trafficSession)
	if ts.sent >= ts.count {
		return nil
	}

	now := evtMgr.CurrentSeconds()
	pckt := createDataPckt(ts.src.droneID, ts.dst.droneID, ts.flowID, ts.seq,
		ts.lenBits, ts.cfg.TTL, ts.cfg.Mcs, now)
	ts.sent += 1
	ts.seq += 1
	ts.src.inject(evtMgr, pckt)

	if ts.sent < ts.count {
		evtMgr.Schedule(ts, nil, sessionArrivalEvt, vrtime.SecondsToTime(ts.interArrival()))
	}
	return nil
}

// startSession schedules the first arrival
func (ts *trafficSession) startSession(evtMgr *evtm.EventManager, srtTime float64) {
	evtMgr.Schedule(ts, nil, sessionArrivalEvt, vrtime.SecondsToTime(srtTime))
}
