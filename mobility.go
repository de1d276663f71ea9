package aanet

// mobility.go provides the mobility plug-ins.  A model owns its own seeded
// random stream, so trajectories are reproducible run to run and unaffected
// by any other component's draws

import (
	"math"

	"github.com/iti/rngstream"
)

// mobilityModel is the variation point for drone movement.  advance is
// called on the position-update tick and returns the new position
type mobilityModel interface {
	advance(now, dt float64) pos
}

// staticMobility keeps the drone where it started
type staticMobility struct {
	at pos
}

func (sm *staticMobility) advance(now, dt float64) pos {
	return sm.at
}

// waypointMobility implements random waypoint movement: fly straight at
// constant speed toward a uniformly drawn target, draw a new target on arrival
type waypointMobility struct {
	cfg     *Config
	rngstrm *rngstream.RngStream
	at      pos
	target  pos
	speed   float64
}

func (wm *waypointMobility) drawTarget() {
	wm.target = pos{
		x: wm.rngstrm.RandU01() * wm.cfg.AreaX,
		y: wm.rngstrm.RandU01() * wm.cfg.AreaY,
		z: wm.rngstrm.RandU01() * wm.cfg.AreaZ,
	}
}

func (wm *waypointMobility) advance(now, dt float64) pos {
	step := wm.speed * dt

	for step > 0.0 {
		dist := euclidean3d(wm.at, wm.target)
		if dist <= step {
			wm.at = wm.target
			step -= dist
			wm.drawTarget()
			continue
		}
		frac := step / dist
		wm.at = pos{
			x: wm.at.x + (wm.target.x-wm.at.x)*frac,
			y: wm.at.y + (wm.target.y-wm.at.y)*frac,
			z: wm.at.z + (wm.target.z-wm.at.z)*frac,
		}
		step = 0.0
	}
	return wm.at
}

// gaussMarkovMobility implements the Gauss-Markov model: each velocity
// component is an AR(1) process around the configured mean speed, giving
// smooth trajectories whose randomness has memory
type gaussMarkovMobility struct {
	cfg     *Config
	rngstrm *rngstream.RngStream
	at      pos
	vx, vy, vz float64
	meanSpeed  float64
	alpha      float64
}

// gaussian draws a standard normal variate by Box-Muller from the model's stream
func (gm *gaussMarkovMobility) gaussian() float64 {
	u1 := gm.rngstrm.RandU01()
	u2 := gm.rngstrm.RandU01()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

func (gm *gaussMarkovMobility) advance(now, dt float64) pos {
	a := gm.alpha
	noise := math.Sqrt(1.0 - a*a)
	sigma := gm.meanSpeed / 2.0

	gm.vx = a*gm.vx + (1.0-a)*gm.meanSpeed + noise*sigma*gm.gaussian()
	gm.vy = a*gm.vy + (1.0-a)*0.0 + noise*sigma*gm.gaussian()
	gm.vz = a*gm.vz + (1.0-a)*0.0 + noise*sigma*gm.gaussian()*0.1

	gm.at = pos{
		x: reflect1d(gm.at.x+gm.vx*dt, gm.cfg.AreaX, &gm.vx),
		y: reflect1d(gm.at.y+gm.vy*dt, gm.cfg.AreaY, &gm.vy),
		z: reflect1d(gm.at.z+gm.vz*dt, gm.cfg.AreaZ, &gm.vz),
	}
	return gm.at
}

// reflect1d bounces a coordinate off the walls of the flight volume,
// flipping the corresponding velocity component
func reflect1d(v, limit float64, vel *float64) float64 {
	if v < 0.0 {
		*vel = -*vel
		return -v
	}
	if v > limit {
		*vel = -*vel
		return 2.0*limit - v
	}
	return v
}

// createMobility is a constructor selecting the model named in the desc
func createMobility(desc *DroneDesc, cfg *Config, srt pos) mobilityModel {
	switch desc.Mobility {
	case "waypoint":
		wm := new(waypointMobility)
		wm.cfg = cfg
		wm.rngstrm = rngstream.New("mob-" + desc.Name)
		wm.at = srt
		wm.speed = defaultFloat(desc.Speed, 10.0)
		wm.drawTarget()
		return wm
	case "gaussmarkov":
		gm := new(gaussMarkovMobility)
		gm.cfg = cfg
		gm.rngstrm = rngstream.New("mob-" + desc.Name)
		gm.at = srt
		gm.meanSpeed = defaultFloat(desc.Speed, 10.0)
		gm.alpha = 0.85
		return gm
	}
	return &staticMobility{at: srt}
}
