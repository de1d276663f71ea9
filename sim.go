package aanet

// sim.go assembles and runs an experiment: it builds the drones and their
// plug-ins from the configuration, schedules the application traffic, and
// advances virtual time until the configured end

import (
	"fmt"
	"path"

	"github.com/iti/evt/evtm"
	"github.com/iti/rngstream"
)

// A Simulator owns the event manager and the set of drones for one run
type Simulator struct {
	Cfg      *Config
	EvtMgr   *evtm.EventManager
	Metrics  *MetricsManager
	TraceMgr *TraceManager

	channel  radioChannel
	drones   []*droneNode
	sessions []*trafficSession
	running  bool
}

// CreateSimulator is a constructor.  It seeds the random streams, builds
// every drone named in the configuration, and prepares the traffic
// sessions, reporting configuration problems before any event runs
func CreateSimulator(scfg *SimCfg) (*Simulator, error) {
	cfg, err := BuildConfig(scfg)
	if err != nil {
		return nil, err
	}

	// all rngstream-backed draws in the run descend from this master seed
	rngstream.SetRngStreamMasterSeed(cfg.Seed)
	initLookupMaps()
	numberOfFlows = 0

	sim := new(Simulator)
	sim.Cfg = cfg
	sim.EvtMgr = evtm.New()
	sim.TraceMgr = CreateTraceManager(cfg.Name, cfg.Trace)
	sim.Metrics = CreateMetricsManager(cfg.Name)
	sim.channel = createChannel(cfg, sim.Metrics)

	var errs []error
	for idx := range scfg.Drones {
		desc := &scfg.Drones[idx]
		_, present := DroneByName[desc.Name]
		if present {
			errs = append(errs, fmt.Errorf("drone name %s declared twice", desc.Name))
			continue
		}
		drone := createDroneNode(desc, cfg, sim.channel, sim.Metrics, sim.TraceMgr)
		sim.drones = append(sim.drones, drone)
	}

	for idx := range scfg.Sessions {
		desc := &scfg.Sessions[idx]
		session, serr := createTrafficSession(desc, cfg)
		if serr != nil {
			errs = append(errs, serr)
			continue
		}
		session.srtTime = desc.SrtTime
		sim.sessions = append(sim.sessions, session)
	}

	err = ReportErrs(errs)
	if err != nil {
		return nil, err
	}

	return sim, nil
}

// Drone exposes a drone's routing plug-in for scripted scenarios and tests
func (sim *Simulator) Drone(name string) (RoutingProtocol, error) {
	drone, present := DroneByName[name]
	if !present {
		return nil, fmt.Errorf("no drone named %s", name)
	}
	return drone.routing, nil
}

// Run advances virtual time to the configured end, then closes out
// packets still in flight and returns the run's metrics vector
func (sim *Simulator) Run() *MetricsSummary {
	sim.Start()
	sim.EvtMgr.Run(sim.Cfg.SimTime)
	return sim.Finish()
}

// Start schedules every node's recurring activity and the traffic
// sessions, without advancing time.  Run calls it; tests that drive the
// event manager directly may call it themselves
func (sim *Simulator) Start() {
	if sim.running {
		return
	}
	sim.running = true

	for _, drone := range sim.drones {
		drone.startDrone(sim.EvtMgr)
	}
	for _, session := range sim.sessions {
		session.startSession(sim.EvtMgr, session.srtTime)
	}
}

// Finish accounts packets still in motion as in-air drops and produces
// the summary
func (sim *Simulator) Finish() *MetricsSummary {
	sim.Metrics.FlushInFlight(sim.EvtMgr.CurrentSeconds())
	return sim.Metrics.Summary(sim.Cfg.SimTime)
}

// BuildExperiment is called from the module that creates and runs a
// simulation; it reads the configuration file named (yaml or json,
// selected by extension) and assembles the simulator
func BuildExperiment(cfgFile string) (*Simulator, error) {
	ext := path.Ext(cfgFile)
	useYAML := (ext == ".yaml") || (ext == ".yml")

	scfg, err := ReadSimCfg(cfgFile, useYAML, []byte{})
	if err != nil {
		return nil, err
	}
	return CreateSimulator(scfg)
}
