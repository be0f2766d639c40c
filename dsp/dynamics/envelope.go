package dynamics

import "math"

// Envelope is an asymmetric one-pole follower of block mean-square energy.
// It rises with the attack coefficient and decays with the release
// coefficient, both expressed as half-life times in blocks.
type Envelope struct {
	attackCoeff  float64
	releaseCoeff float64
	value        float64
}

// NewEnvelope returns a follower updated once per block of blockLen samples.
func NewEnvelope(attackMs, releaseMs, sampleRate float64, blockLen int) Envelope {
	e := Envelope{}
	e.SetTimes(attackMs, releaseMs, sampleRate, blockLen)
	return e
}

// SetTimes recomputes the coefficients and keeps the current value.
func (e *Envelope) SetTimes(attackMs, releaseMs, sampleRate float64, blockLen int) {
	blockRate := sampleRate / float64(max(blockLen, 1))
	e.attackCoeff = 1 - math.Exp(-math.Ln2/(attackMs*0.001*blockRate))
	e.releaseCoeff = math.Exp(-math.Ln2 / (releaseMs * 0.001 * blockRate))
}

// Update feeds one block's mean-square energy and returns the new value.
func (e *Envelope) Update(meanSquare float64) float64 {
	if meanSquare > e.value {
		e.value += (meanSquare - e.value) * e.attackCoeff
	} else {
		e.value = meanSquare + (e.value-meanSquare)*e.releaseCoeff
	}
	return e.value
}

// Value returns the current mean-square estimate.
func (e *Envelope) Value() float64 { return e.value }

// Reset returns the follower to silence.
func (e *Envelope) Reset() { e.value = 0 }
