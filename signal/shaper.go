package signal

import "math"

// ShapeCurve is the soft clipping transfer function (1+k)x / (1+k|x|) with
// k = 100*drive. It is odd and monotonic on [-1,1], identity at drive 0, and
// saturates harder as drive grows.
func ShapeCurve(x, drive float64) float64 {
	k := math.Max(0, drive) * 100
	x = clamp(x, -1, 1)
	return (1 + k) * x / (1 + k*math.Abs(x))
}

// MakeCurve samples ShapeCurve into an n point table over [-1,1].
func MakeCurve(drive float64, n int) []float64 {
	curve := make([]float64, n)
	for i := range curve {
		x := float64(i*2)/float64(n) - 1
		curve[i] = ShapeCurve(x, drive)
	}
	return curve
}

type Shaper struct {
	drive *Param
}

func NewShaper(drive, sampleRate float64) *Shaper {
	return &Shaper{drive: NewParam(drive, driveTau, sampleRate)}
}

func (s *Shaper) shape(x float64) float64 {
	return ShapeCurve(x, s.drive.next())
}
