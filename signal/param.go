package signal

import "math"

const (
	gainTau      = 0.010
	frequencyTau = 0.005
	driveTau     = 0.010

	snapThreshold = 1e-7
)

// Param is a per-sample smoothed value. Set moves the target and the value
// follows with a one pole ramp, so live edits do not click.
type Param struct {
	cur    float64
	target float64
	coef   float64
}

func NewParam(v, tau, sampleRate float64) *Param {
	coef := 1.0
	if tau > 0 && sampleRate > 0 {
		coef = 1 - math.Exp(-1/(tau*sampleRate))
	}
	return &Param{cur: v, target: v, coef: coef}
}

func (p *Param) Set(v float64) {
	p.target = v
}

// Jump sets the value without ramping.
func (p *Param) Jump(v float64) {
	p.cur = v
	p.target = v
}

func (p *Param) Target() float64 {
	return p.target
}

func (p *Param) Value() float64 {
	return p.cur
}

func (p *Param) next() float64 {
	if p.cur != p.target {
		p.cur += (p.target - p.cur) * p.coef
		if math.Abs(p.target-p.cur) < snapThreshold {
			p.cur = p.target
		}
	}
	return p.cur
}
