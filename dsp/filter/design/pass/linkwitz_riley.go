package pass

import "github.com/cwbudde/algo-wdrc/dsp/filter/biquad"

// LinkwitzRileyLP designs an order-2N lowpass as two cascaded order-N
// Butterworth filters: -6.02 dB at freq. order must be positive and even.
func LinkwitzRileyLP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 || order%2 != 0 {
		return nil
	}
	return twice(ButterworthLP(freq, order/2, sampleRate))
}

// LinkwitzRileyHP designs the matching highpass. For orders that are 2 mod 4
// the highpass is in antiphase with the lowpass at freq; see
// LinkwitzRileyNeedsHPInvert.
func LinkwitzRileyHP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 || order%2 != 0 {
		return nil
	}
	return twice(ButterworthHP(freq, order/2, sampleRate))
}

// LinkwitzRileyNeedsHPInvert reports whether LP + HP of this order only sums
// to an allpass after flipping the highpass polarity.
func LinkwitzRileyNeedsHPInvert(order int) bool {
	return order > 0 && order%4 == 2
}

// LinkwitzRileyAP designs the allpass that equals LP + HP of the same
// Linkwitz-Riley crossover (with the polarity flip applied where needed). It is
// the order/2 Butterworth cascade with every denominator mirrored into its
// numerator. Chaining it behind a band aligns the band's phase with the bands
// that were split at freq.
func LinkwitzRileyAP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 || order%2 != 0 {
		return nil
	}
	bw := ButterworthLP(freq, order/2, sampleRate)
	if bw == nil {
		return nil
	}
	out := make([]biquad.Coefficients, len(bw))
	for i, c := range bw {
		out[i] = mirror(c)
	}
	return out
}

// mirror returns the allpass with c's poles.
func mirror(c biquad.Coefficients) biquad.Coefficients {
	if c.A2 == 0 && c.B2 == 0 {
		// first-order section
		return biquad.Coefficients{B0: c.A1, B1: 1, A1: c.A1}
	}
	return biquad.Coefficients{B0: c.A2, B1: c.A1, B2: 1, A1: c.A1, A2: c.A2}
}

func twice(bw []biquad.Coefficients) []biquad.Coefficients {
	if bw == nil {
		return nil
	}
	out := make([]biquad.Coefficients, 0, 2*len(bw))
	out = append(out, bw...)
	return append(out, bw...)
}
