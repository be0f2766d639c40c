package prescription

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CenterFrequencies returns one center per band. Interior bands sit at the
// geometric mean of their edges; the outer bands lie half a log step beyond
// the first and last crossover.
func (s Side) CenterFrequencies() []float64 {
	return centers(s.Crossovers)
}

func centers(xo []float64) []float64 {
	n := len(xo) + 1
	out := make([]float64, n)
	switch len(xo) {
	case 0:
		return nil
	case 1:
		// No log step to extrapolate from; use one octave.
		out[0] = xo[0] / math.Sqrt2
		out[1] = xo[0] * math.Sqrt2
		return out
	}
	for i := 1; i < n-1; i++ {
		out[i] = math.Sqrt(xo[i-1] * xo[i])
	}
	last := len(xo) - 1
	out[0] = xo[0] / math.Sqrt(xo[1]/xo[0])
	out[n-1] = xo[last] * math.Sqrt(xo[last]/xo[last-1])
	return out
}

// LogUniformCrossovers returns n-1 crossovers spaced evenly in log frequency
// from lo to hi. The endpoints are exact.
func LogUniformCrossovers(lo, hi float64, n int) []float64 {
	if n < 2 {
		return nil
	}
	xo := make([]float64, n-1)
	if len(xo) == 1 {
		xo[0] = lo
		return xo
	}
	floats.LogSpan(xo, lo, hi)
	xo[0] = lo
	xo[len(xo)-1] = hi
	return xo
}

// Resample maps the side onto n bands. The new crossovers span the old first
// and last crossover log-uniformly. Each new band takes its parameters by
// linear interpolation between the two old bands whose centers bracket the
// new center in log frequency; outside the old centers the nearest band is
// used. Globals and the limiter are copied.
func (s Side) Resample(n, maxBands int) (Side, error) {
	if n < MinBands || n > maxBands {
		return Side{}, fmt.Errorf("%w: requested %d, allowed [%d, %d]", ErrBandCount, n, MinBands, maxBands)
	}
	if err := s.Validate(MaxBands); err != nil {
		return Side{}, err
	}

	xo := LogUniformCrossovers(s.Crossovers[0], s.Crossovers[len(s.Crossovers)-1], n)
	oldC := s.CenterFrequencies()
	newC := centers(xo)

	out := s.Clone()
	out.Crossovers = xo
	out.Bands = make([]Band, n)

	j := 0
	for i, fc := range newC {
		for j < len(oldC)-2 && oldC[j+1] <= fc {
			j++
		}
		frac := (math.Log(fc) - math.Log(oldC[j])) / (math.Log(oldC[j+1]) - math.Log(oldC[j]))
		frac = math.Max(0, math.Min(1, frac))
		out.Bands[i] = lerpBand(s.Bands[j], s.Bands[j+1], frac)
	}
	return out, nil
}

func lerp(a, b, frac float64) float64 {
	return (1-frac)*a + frac*b
}

func lerpBand(a, b Band, frac float64) Band {
	return Band{
		ExpansionRatio:   lerp(a.ExpansionRatio, b.ExpansionRatio, frac),
		ExpansionKnee:    lerp(a.ExpansionKnee, b.ExpansionKnee, frac),
		ThresholdGain:    lerp(a.ThresholdGain, b.ThresholdGain, frac),
		CompressionRatio: lerp(a.CompressionRatio, b.CompressionRatio, frac),
		CompressionKnee:  lerp(a.CompressionKnee, b.CompressionKnee, frac),
		Bolt:             lerp(a.Bolt, b.Bolt, frac),
	}
}

// Resample maps both sides onto n bands.
func (p *Prescription) Resample(n, maxBands int) (*Prescription, error) {
	left, err := p.Left.Resample(n, maxBands)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	right, err := p.Right.Resample(n, maxBands)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	out := *p
	out.Left, out.Right = left, right
	return &out, nil
}
