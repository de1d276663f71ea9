package aanet

// energy.go provides the energy plug-in.  The node debits the model per
// transmitted bit and per elapsed flight interval; a drained battery makes
// the node send-mute while its inbox keeps accruing

// EnergyModel is the variation point for battery accounting
type EnergyModel interface {
	// DebitTransmit charges the battery for putting bits on the air
	DebitTransmit(bits int, power, duration float64)

	// DebitFlight charges the battery for dt seconds of flight
	DebitFlight(dt float64)

	// Remaining returns the residual charge in joules
	Remaining() float64
}

// linearEnergy debits the radio's transmit draw for the air-time of each
// transmission and the idle draw for elapsed flight time
type linearEnergy struct {
	residual float64
	txDrawW  float64
	idleDrawW float64
}

// createLinearEnergy is a constructor; a zero initial charge means the
// experiment does not model energy and the battery never drains
func createLinearEnergy(joules float64, profile *TechProfile) *linearEnergy {
	le := new(linearEnergy)
	if joules == 0.0 {
		joules = 1.0e12
	}
	le.residual = joules
	le.txDrawW = profile.EnergyTxW
	le.idleDrawW = profile.EnergyIdleW
	return le
}

func (le *linearEnergy) DebitTransmit(bits int, power, duration float64) {
	le.residual -= duration * (le.txDrawW + power)
}

func (le *linearEnergy) DebitFlight(dt float64) {
	le.residual -= dt * le.idleDrawW
}

func (le *linearEnergy) Remaining() float64 {
	return le.residual
}
