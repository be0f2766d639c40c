package dynamics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParam is returned for out-of-range parameters.
var ErrInvalidParam = errors.New("dynamics: invalid parameter")

// ErrNonFinite is returned when a block contains NaN or Inf samples.
var ErrNonFinite = errors.New("dynamics: non-finite input")

const (
	minRatio        = 1.0
	maxRatio        = 50.0
	minLevelSPL     = 0.0
	maxLevelSPL     = 150.0
	minGainDB       = -60.0
	maxGainDB       = 80.0
	minAttackMs     = 0.1
	maxAttackMs     = 1000.0
	minReleaseMs    = 1.0
	maxReleaseMs    = 5000.0
	minCalibration  = 60.0
	maxCalibration  = 150.0
	defaultAttackMs = 5.0
	defaultRelease  = 300.0
	defaultCalibSPL = 115.0
	limitingSlope   = 0.1
	envelopeFloor   = 1e-20
)

// Params are the per-band curve parameters. Levels are in dB SPL, gains in dB.
type Params struct {
	ExpansionRatio   float64
	ExpansionKnee    float64
	ThresholdGain    float64
	CompressionRatio float64
	CompressionKnee  float64
	// Bolt is the limiting threshold after any ceiling clamp.
	Bolt float64
}

// Validate checks every field against its allowed range.
func (p Params) Validate() error {
	switch {
	case !finite(p.ExpansionRatio) || p.ExpansionRatio <= 0 || p.ExpansionRatio > 1:
		return fmt.Errorf("%w: expansion ratio %v not in (0, 1]", ErrInvalidParam, p.ExpansionRatio)
	case !finite(p.CompressionRatio) || p.CompressionRatio < minRatio || p.CompressionRatio > maxRatio:
		return fmt.Errorf("%w: compression ratio %v not in [%v, %v]", ErrInvalidParam, p.CompressionRatio, minRatio, maxRatio)
	case !finite(p.ThresholdGain) || p.ThresholdGain < minGainDB || p.ThresholdGain > maxGainDB:
		return fmt.Errorf("%w: threshold gain %v dB not in [%v, %v]", ErrInvalidParam, p.ThresholdGain, minGainDB, maxGainDB)
	}
	for _, lv := range []struct {
		name string
		v    float64
	}{
		{"expansion knee", p.ExpansionKnee},
		{"compression knee", p.CompressionKnee},
		{"bolt", p.Bolt},
	} {
		if !finite(lv.v) || lv.v < minLevelSPL || lv.v > maxLevelSPL {
			return fmt.Errorf("%w: %s %v dB SPL not in [%v, %v]", ErrInvalidParam, lv.name, lv.v, minLevelSPL, maxLevelSPL)
		}
	}
	return nil
}

// Globals are the parameters shared by every band of one side.
type Globals struct {
	AttackMs       float64
	ReleaseMs      float64
	CalibrationSPL float64
}

// DefaultGlobals returns 5 ms attack, 300 ms release and 115 dB SPL at 0 dBFS.
func DefaultGlobals() Globals {
	return Globals{
		AttackMs:       defaultAttackMs,
		ReleaseMs:      defaultRelease,
		CalibrationSPL: defaultCalibSPL,
	}
}

// Validate checks the time constants and the calibration level.
func (g Globals) Validate() error {
	switch {
	case !finite(g.AttackMs) || g.AttackMs < minAttackMs || g.AttackMs > maxAttackMs:
		return fmt.Errorf("%w: attack %v ms not in [%v, %v]", ErrInvalidParam, g.AttackMs, minAttackMs, maxAttackMs)
	case !finite(g.ReleaseMs) || g.ReleaseMs < minReleaseMs || g.ReleaseMs > maxReleaseMs:
		return fmt.Errorf("%w: release %v ms not in [%v, %v]", ErrInvalidParam, g.ReleaseMs, minReleaseMs, maxReleaseMs)
	case !finite(g.CalibrationSPL) || g.CalibrationSPL < minCalibration || g.CalibrationSPL > maxCalibration:
		return fmt.Errorf("%w: calibration %v dB SPL not in [%v, %v]", ErrInvalidParam, g.CalibrationSPL, minCalibration, maxCalibration)
	}
	return nil
}

// LimiterParams returns parameters that leave the signal untouched up to bolt
// and limit 10:1 above it.
func LimiterParams(bolt float64) Params {
	return Params{
		ExpansionRatio:   1,
		ExpansionKnee:    0,
		ThresholdGain:    0,
		CompressionRatio: 1,
		CompressionKnee:  bolt,
		Bolt:             bolt,
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
