package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-wdrc/prescription"
)

// ErrUnknownParam is returned for names the control surface does not know.
var ErrUnknownParam = errors.New("device: unknown parameter")

// Ears.
const (
	Left  = 0
	Right = 1
)

var sideNames = [2]string{"left", "right"}

// Param selects one field of a band or of the limiter.
type Param int

// Band parameters.
const (
	ExpansionRatio Param = iota
	ExpansionKnee
	ThresholdGain
	CompressionRatio
	CompressionKnee
	Bolt
	numParams
)

var paramNames = [numParams]string{"er", "ek", "tkgain", "cr", "tk", "bolt"}

func (p Param) String() string {
	if p < 0 || p >= numParams {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return paramNames[p]
}

// ParseParam maps a short name such as "cr" to a Param.
func ParseParam(s string) (Param, error) {
	for i, n := range paramNames {
		if n == s {
			return Param(i), nil
		}
	}
	return 0, fmt.Errorf("%w: band parameter %q", ErrUnknownParam, s)
}

func (p Param) get(b prescription.Band) float64 {
	switch p {
	case ExpansionRatio:
		return b.ExpansionRatio
	case ExpansionKnee:
		return b.ExpansionKnee
	case ThresholdGain:
		return b.ThresholdGain
	case CompressionRatio:
		return b.CompressionRatio
	case CompressionKnee:
		return b.CompressionKnee
	default:
		return b.Bolt
	}
}

func (p Param) set(b *prescription.Band, v float64) {
	switch p {
	case ExpansionRatio:
		b.ExpansionRatio = v
	case ExpansionKnee:
		b.ExpansionKnee = v
	case ThresholdGain:
		b.ThresholdGain = v
	case CompressionRatio:
		b.CompressionRatio = v
	case CompressionKnee:
		b.CompressionKnee = v
	default:
		b.Bolt = v
	}
}

// Global selects a parameter shared by all bands of one ear.
type Global int

// Per-ear parameters.
const (
	Attack Global = iota
	Release
	Calibration
	BroadbandGain
	numGlobals
)

var globalNames = [numGlobals]string{"attack", "release", "calibration", "gain"}

func (g Global) String() string {
	if g < 0 || g >= numGlobals {
		return fmt.Sprintf("Global(%d)", int(g))
	}
	return globalNames[g]
}

// ParseGlobal maps a name such as "attack" to a Global.
func ParseGlobal(s string) (Global, error) {
	for i, n := range globalNames {
		if n == s {
			return Global(i), nil
		}
	}
	return 0, fmt.Errorf("%w: global %q", ErrUnknownParam, s)
}

func (g Global) get(s *prescription.Side) float64 {
	switch g {
	case Attack:
		return s.AttackMs
	case Release:
		return s.ReleaseMs
	case Calibration:
		return s.Calibration
	default:
		return s.BroadbandGainDB
	}
}

func (g Global) set(s *prescription.Side, v float64) {
	switch g {
	case Attack:
		s.AttackMs = v
	case Release:
		s.ReleaseMs = v
	case Calibration:
		s.Calibration = v
	default:
		s.BroadbandGainDB = v
	}
}

// Setting is one named value of the control surface.
type Setting struct {
	Name  string
	Value float64
}

// Top-level names.
const (
	nameCeiling = "ceiling"
	nameBands   = "bands"
)

// address is a parsed dotted name:
//
//	ceiling | bands
//	<side>.<global>
//	<side>.band.<i>.<param>
//	<side>.limiter.<param>
type address struct {
	top    string
	side   int
	global Global
	band   int // -1 for the limiter, -2 for a global
	param  Param
}

const (
	bandLimiter = -1
	bandNone    = -2
)

func parseName(name string) (address, error) {
	switch name {
	case nameCeiling, nameBands:
		return address{top: name}, nil
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return address{}, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}

	a := address{side: -1, band: bandNone}
	for i, s := range sideNames {
		if parts[0] == s {
			a.side = i
		}
	}
	if a.side < 0 {
		return address{}, fmt.Errorf("%w: %q: side must be left or right", ErrUnknownParam, name)
	}

	switch {
	case len(parts) == 2:
		g, err := ParseGlobal(parts[1])
		if err != nil {
			return address{}, err
		}
		a.global = g
	case len(parts) == 3 && parts[1] == "limiter":
		p, err := ParseParam(parts[2])
		if err != nil {
			return address{}, err
		}
		a.band, a.param = bandLimiter, p
	case len(parts) == 4 && parts[1] == "band":
		i, err := strconv.Atoi(parts[2])
		if err != nil || i < 0 {
			return address{}, fmt.Errorf("%w: %q: bad band index", ErrUnknownParam, name)
		}
		p, err := ParseParam(parts[3])
		if err != nil {
			return address{}, err
		}
		a.band, a.param = i, p
	default:
		return address{}, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return a, nil
}

func bandName(side, band int, p Param) string {
	return fmt.Sprintf("%s.band.%d.%s", sideNames[side], band, p)
}

func limiterName(side int, p Param) string {
	return fmt.Sprintf("%s.limiter.%s", sideNames[side], p)
}

func globalName(side int, g Global) string {
	return sideNames[side] + "." + g.String()
}
