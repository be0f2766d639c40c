package dynamics

// Curve is the static gain computer of one band.
type Curve struct {
	er, ek float64
	tkgain float64
	cr, tk float64
	bolt   float64
	tkgo   float64 // gain offset of the compression line
	pblt   float64 // input level where limiting starts
}

// NewCurve derives the knees of the gain curve from p. The compression knee
// is lowered when needed so that tk + tkgain never exceeds bolt, and the
// expansion knee never lies above the compression knee.
func NewCurve(p Params) Curve {
	c := Curve{
		er:     p.ExpansionRatio,
		ek:     p.ExpansionKnee,
		tkgain: p.ThresholdGain,
		cr:     p.CompressionRatio,
		tk:     p.CompressionKnee,
		bolt:   p.Bolt,
	}
	if c.tk+c.tkgain > c.bolt {
		c.tk = c.bolt - c.tkgain
	}
	if c.ek > c.tk {
		c.ek = c.tk
	}
	c.tkgo = c.tkgain + c.tk*(1-1/c.cr)
	c.pblt = c.cr * (c.bolt - c.tkgo)
	return c
}

// Gain returns the gain in dB for an input level in dB SPL.
func (c Curve) Gain(level float64) float64 {
	switch {
	case level < c.ek:
		return c.tkgain + (level-c.ek)*(1/c.er-1)
	case level <= c.tk:
		return c.tkgain
	case level <= c.pblt:
		return c.tkgo + level*(1/c.cr-1)
	default:
		return c.bolt + (level-c.pblt)*limitingSlope - level
	}
}

// Knees returns the effective expansion knee, compression knee and limiting
// threshold in dB SPL input level.
func (c Curve) Knees() (ek, tk, pblt float64) {
	return c.ek, c.tk, c.pblt
}
