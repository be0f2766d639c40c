package prescription

import (
	"math"

	"github.com/cwbudde/algo-wdrc/dsp/dynamics"
)

// Band is the per-band part of a fitting. Levels are dB SPL, gains dB.
type Band struct {
	ExpansionRatio   float64 `json:"er" yaml:"er" toml:"er"`
	ExpansionKnee    float64 `json:"ek" yaml:"ek" toml:"ek"`
	ThresholdGain    float64 `json:"tkgain" yaml:"tkgain" toml:"tkgain"`
	CompressionRatio float64 `json:"cr" yaml:"cr" toml:"cr"`
	CompressionKnee  float64 `json:"tk" yaml:"tk" toml:"tk"`
	Bolt             float64 `json:"bolt" yaml:"bolt" toml:"bolt"`
}

// Side is the fitting of one ear.
type Side struct {
	Crossovers      []float64 `json:"crossovers" yaml:"crossovers" toml:"crossovers"`
	Calibration     float64   `json:"calibration" yaml:"calibration" toml:"calibration"`
	AttackMs        float64   `json:"attack_ms" yaml:"attack_ms" toml:"attack_ms"`
	ReleaseMs       float64   `json:"release_ms" yaml:"release_ms" toml:"release_ms"`
	BroadbandGainDB float64   `json:"broadband_gain_db" yaml:"broadband_gain_db" toml:"broadband_gain_db"`
	Limiter         Band      `json:"limiter" yaml:"limiter" toml:"limiter"`
	Bands           []Band    `json:"bands" yaml:"bands" toml:"bands"`
}

// Prescription is a complete two-sided fitting.
type Prescription struct {
	Name    string  `json:"name" yaml:"name" toml:"name"`
	Ceiling float64 `json:"ceiling" yaml:"ceiling" toml:"ceiling"`
	Left    Side    `json:"left" yaml:"left" toml:"left"`
	Right   Side    `json:"right" yaml:"right" toml:"right"`
}

// EffectiveBolt returns the runtime limiting threshold of a band:
//
//	bolt' = min(bolt, ceiling) + min(0, thresholdGain)
func EffectiveBolt(bolt, ceiling, thresholdGain float64) float64 {
	return math.Min(bolt, ceiling) + math.Min(0, thresholdGain)
}

// Runtime converts the band into compressor parameters under ceiling.
func (b Band) Runtime(ceiling float64) dynamics.Params {
	return dynamics.Params{
		ExpansionRatio:   b.ExpansionRatio,
		ExpansionKnee:    b.ExpansionKnee,
		ThresholdGain:    b.ThresholdGain,
		CompressionRatio: b.CompressionRatio,
		CompressionKnee:  b.CompressionKnee,
		Bolt:             EffectiveBolt(b.Bolt, ceiling, b.ThresholdGain),
	}
}

func (b Band) raw() dynamics.Params {
	return dynamics.Params{
		ExpansionRatio:   b.ExpansionRatio,
		ExpansionKnee:    b.ExpansionKnee,
		ThresholdGain:    b.ThresholdGain,
		CompressionRatio: b.CompressionRatio,
		CompressionKnee:  b.CompressionKnee,
		Bolt:             b.Bolt,
	}
}

// NumBands returns the band count of the side.
func (s Side) NumBands() int { return len(s.Bands) }

// Globals returns the shared compressor parameters of the side.
func (s Side) Globals() dynamics.Globals {
	return dynamics.Globals{
		AttackMs:       s.AttackMs,
		ReleaseMs:      s.ReleaseMs,
		CalibrationSPL: s.Calibration,
	}
}

// SetGlobals copies the shared parameters into the side.
func (s *Side) SetGlobals(g dynamics.Globals) {
	s.AttackMs = g.AttackMs
	s.ReleaseMs = g.ReleaseMs
	s.Calibration = g.CalibrationSPL
}

// RuntimeBands converts every band under ceiling.
func (s Side) RuntimeBands(ceiling float64) []dynamics.Params {
	out := make([]dynamics.Params, len(s.Bands))
	for i, b := range s.Bands {
		out[i] = b.Runtime(ceiling)
	}
	return out
}

// Clone returns a deep copy.
func (s Side) Clone() Side {
	c := s
	c.Crossovers = append([]float64(nil), s.Crossovers...)
	c.Bands = append([]Band(nil), s.Bands...)
	return c
}

// Clone returns a deep copy.
func (p *Prescription) Clone() *Prescription {
	c := *p
	c.Left = p.Left.Clone()
	c.Right = p.Right.Clone()
	return &c
}

// Side returns the side for channel 0 (left) or 1 (right).
func (p *Prescription) Side(ch int) *Side {
	if ch == 0 {
		return &p.Left
	}
	return &p.Right
}

// NumBands returns the band count of the left side. Validation keeps both
// sides equal.
func (p *Prescription) NumBands() int { return p.Left.NumBands() }

// Default returns an eight-band fitting for a mild sloping loss, identical on
// both sides.
func Default() *Prescription {
	side := Side{
		Crossovers:      []float64{250, 500, 1000, 2000, 4000, 8000, 12000},
		Calibration:     115,
		AttackMs:        5,
		ReleaseMs:       300,
		BroadbandGainDB: 0,
		Limiter:         Band{ExpansionRatio: 1, CompressionRatio: 1, CompressionKnee: 105, Bolt: 105},
		Bands: []Band{
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 5, CompressionRatio: 1.3, CompressionKnee: 50, Bolt: 95},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 8, CompressionRatio: 1.5, CompressionKnee: 50, Bolt: 95},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 12, CompressionRatio: 1.7, CompressionKnee: 50, Bolt: 98},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 16, CompressionRatio: 2.0, CompressionKnee: 47, Bolt: 100},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 20, CompressionRatio: 2.2, CompressionKnee: 45, Bolt: 100},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 24, CompressionRatio: 2.4, CompressionKnee: 45, Bolt: 100},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 24, CompressionRatio: 2.4, CompressionKnee: 45, Bolt: 100},
			{ExpansionRatio: 0.57, ExpansionKnee: 30, ThresholdGain: 20, CompressionRatio: 2.0, CompressionKnee: 45, Bolt: 98},
		},
	}
	return &Prescription{
		Name:    "default",
		Ceiling: 105,
		Left:    side.Clone(),
		Right:   side.Clone(),
	}
}
