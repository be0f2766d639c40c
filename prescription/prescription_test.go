package prescription

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-wdrc/dsp/core"
)

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, 8, p.NumBands())
	assert.Equal(t, []float64{250, 500, 1000, 2000, 4000, 8000, 12000}, p.Left.Crossovers)
}

func TestEffectiveBolt(t *testing.T) {
	tests := []struct {
		bolt, ceiling, tkgain, want float64
	}{
		{95, 105, 10, 95},
		{110, 105, 10, 105},
		{110, 105, -5, 100},
		{90, 105, -10, 80},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectiveBolt(tt.bolt, tt.ceiling, tt.tkgain))
	}

	b := Band{ExpansionRatio: 1, ThresholdGain: -3, CompressionRatio: 1, CompressionKnee: 50, Bolt: 120}
	assert.Equal(t, 102.0, b.Runtime(105).Bolt)
	assert.Equal(t, 120.0, b.Bolt)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Prescription)
		want error
	}{
		{"non monotonic", func(p *Prescription) { p.Left.Crossovers[3] = 900 }, ErrNonMonotonic},
		{"too few bands", func(p *Prescription) {
			p.Left.Crossovers = []float64{1000}
			p.Left.Bands = p.Left.Bands[:2]
		}, ErrBandCount},
		{"mismatch", func(p *Prescription) { p.Right.Crossovers = p.Right.Crossovers[:6] }, ErrBandMismatch},
		{"sides differ", func(p *Prescription) {
			r, err := p.Right.Resample(5, MaxBands)
			if err != nil {
				panic(err)
			}
			p.Right = r
		}, ErrBandMismatch},
		{"expansion ratio", func(p *Prescription) { p.Left.Bands[0].ExpansionRatio = 2 }, ErrInvalidParam},
		{"attack", func(p *Prescription) { p.Right.AttackMs = 0 }, ErrInvalidParam},
		{"ceiling", func(p *Prescription) { p.Ceiling = math.NaN() }, ErrInvalidParam},
		{"negative crossover", func(p *Prescription) { p.Left.Crossovers[0] = -1 }, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mod(p)
			err := p.Validate()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrConfigurationRejected)
		})
	}
}

func TestCenterFrequencies(t *testing.T) {
	s := Side{Crossovers: []float64{500, 1000, 2000}}
	c := s.CenterFrequencies()
	require.Len(t, c, 4)
	assert.InDelta(t, 500/math.Sqrt2, c[0], 1e-9)
	assert.InDelta(t, math.Sqrt(500*1000), c[1], 1e-9)
	assert.InDelta(t, math.Sqrt(1000*2000), c[2], 1e-9)
	assert.InDelta(t, 2000*math.Sqrt2, c[3], 1e-9)
}

func TestResampleKeepsEndpointsAndGlobals(t *testing.T) {
	s := Default().Left
	s.AttackMs = 7
	r, err := s.Resample(4, MaxBands)
	require.NoError(t, err)

	require.Len(t, r.Crossovers, 3)
	require.Len(t, r.Bands, 4)
	assert.Equal(t, 250.0, r.Crossovers[0])
	assert.Equal(t, 12000.0, r.Crossovers[2])
	assert.InDelta(t, math.Sqrt(250*12000), r.Crossovers[1], 1e-6)
	assert.Equal(t, 7.0, r.AttackMs)
	assert.Equal(t, s.Calibration, r.Calibration)
	assert.Equal(t, s.Limiter, r.Limiter)
	require.NoError(t, r.Validate(MaxBands))

	// Every interpolated value lies within the range of the old bands.
	for _, b := range r.Bands {
		assert.GreaterOrEqual(t, b.ThresholdGain, 5.0)
		assert.LessOrEqual(t, b.ThresholdGain, 24.0)
	}
	// The source is untouched.
	assert.Len(t, s.Bands, 8)
}

func TestResampleRoundTrip(t *testing.T) {
	s := Default().Left
	four, err := s.Resample(4, MaxBands)
	require.NoError(t, err)
	eight, err := four.Resample(8, MaxBands)
	require.NoError(t, err)

	assert.Equal(t, s.Crossovers[0], eight.Crossovers[0])
	assert.Equal(t, s.Crossovers[6], eight.Crossovers[6])

	direct, err := s.Resample(8, MaxBands)
	require.NoError(t, err)
	for i := 1; i < 6; i++ {
		rel := math.Abs(eight.Crossovers[i]-direct.Crossovers[i]) / direct.Crossovers[i]
		assert.Less(t, rel, 0.01, "crossover %d", i)
	}
}

func TestResampleIdempotent(t *testing.T) {
	s := Default().Left
	once, err := s.Resample(5, MaxBands)
	require.NoError(t, err)
	twice, err := once.Resample(5, MaxBands)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestResampleRange(t *testing.T) {
	s := Default().Left
	for _, n := range []int{2, MaxBands + 1} {
		_, err := s.Resample(n, MaxBands)
		assert.ErrorIs(t, err, ErrBandCount)
		assert.ErrorIs(t, err, ErrConfigurationRejected)
	}
}

func TestClone(t *testing.T) {
	p := Default()
	c := p.Clone()
	c.Left.Bands[0].Bolt = 1
	c.Right.Crossovers[0] = 1
	assert.Equal(t, 95.0, p.Left.Bands[0].Bolt)
	assert.Equal(t, 250.0, p.Right.Crossovers[0])
}

func TestCodecRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatYAML, FormatTOML, FormatJSON} {
		t.Run(f.String(), func(t *testing.T) {
			p := Default()
			p.Name = "round trip"
			p.Left.Bands[3].ThresholdGain = 17.25

			var buf bytes.Buffer
			require.NoError(t, Save(&buf, p, f))
			got, err := Load(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(bytes.NewBufferString(`{"name": "x", "ceiling": 105}`), FormatJSON)
	assert.ErrorIs(t, err, ErrBandCount)

	_, err = Load(bytes.NewBufferString(`{"name": "x", "bogus": 1}`), FormatJSON)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfigurationRejected))

	_, err = Load(bytes.NewBufferString("name: x\nunknown: 2\n"), FormatYAML)
	assert.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fit.yaml", "fit.toml", "fit.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveFile(path, Default()))
		got, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), got)
	}
	_, err := FormatFromPath("fit.ini")
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fit.yaml")
	require.NoError(t, SaveFile(path, Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loaded := make(chan *Prescription, 4)
	failed := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(p *Prescription) { loaded <- p }, func(err error) { failed <- err })
	}()

	changed := Default()
	changed.Name = "changed"

	// The watcher is registered asynchronously; keep saving until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case p := <-loaded:
			assert.Equal(t, "changed", p.Name)
			cancel()
			require.NoError(t, <-done)
			return
		case err := <-failed:
			t.Fatalf("unexpected load error: %v", err)
		case <-tick.C:
			require.NoError(t, SaveFile(path, changed))
		case <-deadline:
			t.Fatal("watcher did not report the change")
		}
	}
}

func TestWatchReportsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fit.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failed := make(chan error, 8)
	go func() {
		_ = Watch(ctx, path, func(*Prescription) {}, func(err error) { failed <- err })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-failed:
			assert.Error(t, err)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(`{"ceiling": -1}`), 0o600))
		case <-deadline:
			t.Fatal("watcher did not report the invalid file")
		}
	}
}
