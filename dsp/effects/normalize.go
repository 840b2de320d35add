package effects

import "github.com/cwbudde/algo-vecmath"

// Normalize scales buf in place so its peak absolute value lands on
// target. A silent buffer is left untouched, which also avoids the
// division by zero.
func Normalize(buf []float64, target float64) {
	peak := vecmath.MaxAbs(buf)
	if peak == 0 {
		return
	}
	vecmath.ScaleBlockInPlace(buf, target/peak)
}

// Peak returns the largest absolute sample value in buf.
func Peak(buf []float64) float64 {
	return vecmath.MaxAbs(buf)
}
