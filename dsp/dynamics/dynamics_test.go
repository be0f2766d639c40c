package dynamics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-wdrc/dsp/core"
	"github.com/cwbudde/algo-wdrc/internal/testutil"
)

const (
	sr    = 32000.0
	block = 32
)

var band = Params{
	ExpansionRatio:   0.7,
	ExpansionKnee:    30,
	ThresholdGain:    20,
	CompressionRatio: 2,
	CompressionKnee:  50,
	Bolt:             100,
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, band.Validate())
	require.NoError(t, DefaultGlobals().Validate())

	tests := []struct {
		name string
		mod  func(*Params)
	}{
		{"er zero", func(p *Params) { p.ExpansionRatio = 0 }},
		{"er above one", func(p *Params) { p.ExpansionRatio = 1.5 }},
		{"cr below one", func(p *Params) { p.CompressionRatio = 0.5 }},
		{"nan knee", func(p *Params) { p.CompressionKnee = math.NaN() }},
		{"bolt too high", func(p *Params) { p.Bolt = 200 }},
		{"gain", func(p *Params) { p.ThresholdGain = -100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := band
			tt.mod(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParam)
		})
	}

	g := DefaultGlobals()
	g.AttackMs = 0
	assert.ErrorIs(t, g.Validate(), ErrInvalidParam)
}

func TestCurveRegimes(t *testing.T) {
	c := NewCurve(band)
	ek, tk, pblt := c.Knees()
	assert.Equal(t, 30.0, ek)
	assert.Equal(t, 50.0, tk)
	// tkgo = 20 + 50*(1-1/2) = 45, pblt = 2*(100-45) = 110
	assert.InDelta(t, 110.0, pblt, 1e-12)

	assert.InDelta(t, 20-5*(1/0.7-1), c.Gain(25), 1e-12)
	assert.Equal(t, 20.0, c.Gain(40))
	assert.InDelta(t, 45-80*0.5, c.Gain(80), 1e-12)
	assert.InDelta(t, 100+(120-110)*0.1-120, c.Gain(120), 1e-12)
}

func TestCurveContinuity(t *testing.T) {
	c := NewCurve(band)
	ek, tk, pblt := c.Knees()
	const d = 1e-9
	for _, knee := range []float64{ek, tk, pblt} {
		assert.InDelta(t, c.Gain(knee-d), c.Gain(knee+d), 1e-6, "knee %v", knee)
	}
}

func TestCurveMonotoneAboveKnee(t *testing.T) {
	params := []Params{
		band,
		{ExpansionRatio: 1, ExpansionKnee: 20, ThresholdGain: 0, CompressionRatio: 1, CompressionKnee: 60, Bolt: 90},
		{ExpansionRatio: 0.5, ExpansionKnee: 40, ThresholdGain: 35, CompressionRatio: 4, CompressionKnee: 55, Bolt: 95},
	}
	for _, p := range params {
		c := NewCurve(p)
		_, tk, _ := c.Knees()
		prev := c.Gain(tk)
		for lvl := tk; lvl <= 140; lvl += 0.25 {
			g := c.Gain(lvl)
			require.LessOrEqual(t, g, prev+1e-12, "params %+v level %v", p, lvl)
			prev = g
		}
	}
}

func TestCurveClampsKneeBelowBolt(t *testing.T) {
	p := Params{ExpansionRatio: 1, ExpansionKnee: 30, ThresholdGain: 40, CompressionRatio: 3, CompressionKnee: 70, Bolt: 100}
	c := NewCurve(p)
	_, tk, _ := c.Knees()
	assert.Equal(t, 60.0, tk)
	assert.Equal(t, 40.0, c.Gain(60))
	assert.Less(t, c.Gain(65), 40.0)
}

func TestEnvelopeHalfLife(t *testing.T) {
	// 5 ms attack and 300 ms release at 1 ms blocks.
	e := NewEnvelope(5, 300, sr, block)
	for range 5 {
		e.Update(1)
	}
	assert.InDelta(t, 0.5, e.Value(), 1e-12)

	e.Reset()
	for range 2000 {
		e.Update(1)
	}
	for range 300 {
		e.Update(0)
	}
	assert.InDelta(t, 0.5, e.Value(), 1e-9)
}

func runTone(t *testing.T, c *Compressor, dbfs float64, blocks int) []float64 {
	t.Helper()
	// fs/16 puts exactly two periods in every block.
	x := testutil.SineDBFS(sr/16, sr, dbfs, block*blocks)
	out := make([]float64, len(x))
	for i, b := range testutil.Blocks(x, block) {
		require.NoError(t, c.ProcessBlockTo(out[i*block:(i+1)*block], b))
	}
	return out
}

func TestExpansionBelowKnee(t *testing.T) {
	c, err := NewCompressor(band, DefaultGlobals(), sr, block)
	require.NoError(t, err)

	out := runTone(t, c, -90, 600)

	assert.InDelta(t, 25.0, c.LevelSPL(), 1e-9)
	want := band.ThresholdGain + (25-30)*(1/0.7-1)
	assert.InDelta(t, want, c.CurrentGainDB(), 1e-6)
	assert.InDelta(t, 20-2.142857, c.CurrentGainDB(), 1e-5)

	tail := out[len(out)-block:]
	assert.InDelta(t, -90+want, testutil.RMSDBFS(tail), 1e-6)
}

func TestGainAtThresholdEqualsThresholdGain(t *testing.T) {
	c, err := NewCompressor(band, DefaultGlobals(), sr, block)
	require.NoError(t, err)

	runTone(t, c, band.CompressionKnee-DefaultGlobals().CalibrationSPL, 600)
	assert.InDelta(t, band.ThresholdGain, c.CurrentGainDB(), 1e-6)
}

func TestGainRampsAcrossBlock(t *testing.T) {
	c, err := NewCompressor(band, DefaultGlobals(), sr, block)
	require.NoError(t, err)

	src := make([]float64, block)
	for i := range src {
		src[i] = 1e-3
	}
	dst := make([]float64, block)
	for range 50 {
		require.NoError(t, c.ProcessBlockTo(dst, src))
	}
	before := core.DBToLinear(c.CurrentGainDB())

	for i := range src {
		src[i] = 0.5
	}
	require.NoError(t, c.ProcessBlockTo(dst, src))
	after := core.DBToLinear(c.CurrentGainDB())
	require.Less(t, after, before)

	assert.InDelta(t, after, dst[block-1]/0.5, 1e-12)
	assert.Greater(t, dst[0]/0.5, after)
	assert.Less(t, dst[0]/0.5, before)
	for i := 1; i < block; i++ {
		assert.LessOrEqual(t, dst[i], dst[i-1]+1e-15)
	}
}

func TestNonFiniteBlockKeepsState(t *testing.T) {
	c, err := NewCompressor(band, DefaultGlobals(), sr, block)
	require.NoError(t, err)
	runTone(t, c, -40, 10)
	level := c.LevelSPL()

	src := make([]float64, block)
	src[3] = math.Inf(1)
	err = c.ProcessBlockTo(make([]float64, block), src)
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, level, c.LevelSPL())
}

func TestLimiterPassesBelowBolt(t *testing.T) {
	l, err := NewLimiter(100, DefaultGlobals(), sr, block)
	require.NoError(t, err)
	assert.Equal(t, 0.0, l.GainDB(60))
	assert.Equal(t, 0.0, l.GainDB(100))
	assert.InDelta(t, -9, l.GainDB(110), 1e-12)
}

func TestBank(t *testing.T) {
	b, err := NewBank([]Params{band, band, band}, DefaultGlobals(), sr, block)
	require.NoError(t, err)
	assert.Equal(t, 3, b.NumBands())

	src := make([]float64, block)
	dst := make([]float64, block)
	assert.ErrorIs(t, b.ProcessBand(3, dst, src), ErrBandIndex)

	src[0] = math.NaN()
	err = b.ProcessBand(1, dst, src)
	assert.ErrorIs(t, err, ErrNonFinite)
	src[0] = 0
	assert.NoError(t, b.ProcessBand(0, dst, src))

	p := band
	p.ThresholdGain = 10
	require.NoError(t, b.SetBandParams(2, p))
	got, err := b.BandParams(2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.ThresholdGain)

	bad := DefaultGlobals()
	bad.ReleaseMs = -1
	assert.Error(t, b.SetGlobals(bad))
	assert.Equal(t, DefaultGlobals(), b.Globals())

	_, err = NewBank([]Params{band, {}}, DefaultGlobals(), sr, block)
	assert.ErrorIs(t, err, ErrInvalidParam)
}
