package device

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-wdrc/dsp/filterbank"
	"github.com/cwbudde/algo-wdrc/dsp/wdrc"
	"github.com/cwbudde/algo-wdrc/prescription"
)

// ProcessingConfig fixes everything about the processors that a prescription
// does not describe.
type ProcessingConfig struct {
	SampleRate float64
	BlockSize  int
	Kind       filterbank.Kind
	Order      int // IIR order, 0 for the default
	Taps       int // FIR length, 0 for the default
	MaxBands   int // largest accepted band count, 0 for prescription.MaxBands
}

func (c ProcessingConfig) maxBands() int {
	if c.MaxBands <= 0 || c.MaxBands > prescription.MaxBands {
		return prescription.MaxBands
	}
	return c.MaxBands
}

// edit is a parameter change to be applied to one live processor.
type edit struct {
	side  int
	apply func(Configurable) error
}

// change is everything staged since the processing goroutine last looked.
// A non-nil procs replaces both processors; edits run afterwards.
type change struct {
	procs *[2]*wdrc.Processor
	edits []edit
}

// Manager owns the stored and live prescriptions and hands new processors
// and parameter changes to the processing goroutine. Its methods may be
// called from any goroutine except Apply, which belongs to the processing
// goroutine.
type Manager struct {
	cfg ProcessingConfig

	mu     sync.Mutex
	live   *prescription.Prescription
	stored *prescription.Prescription

	pending atomic.Pointer[change]
}

// NewManager validates p, builds processors for both ears and stages them.
func NewManager(p *prescription.Prescription, cfg ProcessingConfig) (*Manager, error) {
	if p == nil {
		return nil, fmt.Errorf("device: nil prescription")
	}
	m := &Manager{cfg: cfg}
	if err := m.checkPrescription(p); err != nil {
		return nil, err
	}
	procs, err := m.build(p)
	if err != nil {
		return nil, err
	}
	m.live = p.Clone()
	m.stored = p.Clone()
	m.stage(change{procs: procs})
	return m, nil
}

// Config returns the processing configuration.
func (m *Manager) Config() ProcessingConfig { return m.cfg }

// MaxBands returns the largest band count SetBandCount accepts.
func (m *Manager) MaxBands() int { return m.cfg.maxBands() }

func (m *Manager) checkPrescription(p *prescription.Prescription) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	if n := p.NumBands(); n > m.cfg.maxBands() {
		return fmt.Errorf("device: %w: %d bands, at most %d", prescription.ErrBandCount, n, m.cfg.maxBands())
	}
	return nil
}

func (m *Manager) build(p *prescription.Prescription) (*[2]*wdrc.Processor, error) {
	var procs [2]*wdrc.Processor
	for ch := range procs {
		s := p.Side(ch)
		proc, err := wdrc.New(wdrc.Config{
			SampleRate:      m.cfg.SampleRate,
			BlockSize:       m.cfg.BlockSize,
			Kind:            m.cfg.Kind,
			Order:           m.cfg.Order,
			Taps:            m.cfg.Taps,
			MaxBands:        m.cfg.maxBands(),
			Crossovers:      s.Crossovers,
			Bands:           s.RuntimeBands(p.Ceiling),
			Globals:         s.Globals(),
			BroadbandGainDB: s.BroadbandGainDB,
			Limiter:         s.Limiter.Runtime(p.Ceiling),
		})
		if err != nil {
			return nil, fmt.Errorf("device: %s: %w", sideNames[ch], err)
		}
		procs[ch] = proc
	}
	return &procs, nil
}

// stage merges c into the pending change. Callers hold m.mu, so the only
// concurrent writer is Apply taking the pending change away.
func (m *Manager) stage(c change) {
	for {
		old := m.pending.Load()
		next := &change{procs: c.procs, edits: c.edits}
		if old != nil && c.procs == nil {
			next.procs = old.procs
			next.edits = append(append([]edit(nil), old.edits...), c.edits...)
		}
		if m.pending.CompareAndSwap(old, next) {
			return
		}
	}
}

// Staged reports whether a change is waiting for Apply.
func (m *Manager) Staged() bool { return m.pending.Load() != nil }

// Apply installs the staged change into procs. It must only be called by the
// processing goroutine between blocks. Processors that were replaced are
// returned so the caller can carry over their counters.
func (m *Manager) Apply(procs *[2]*wdrc.Processor) (retired []*wdrc.Processor, err error) {
	c := m.pending.Swap(nil)
	if c == nil {
		return nil, nil
	}
	if c.procs != nil {
		for ch, p := range procs {
			if p != nil {
				retired = append(retired, p)
			}
			procs[ch] = c.procs[ch]
		}
	}
	var errs []error
	for _, e := range c.edits {
		if procs[e.side] == nil {
			continue
		}
		if err := e.apply(procs[e.side]); err != nil {
			errs = append(errs, fmt.Errorf("device: %s: %w", sideNames[e.side], err))
		}
	}
	return retired, errors.Join(errs...)
}

// BandCount returns the current number of bands.
func (m *Manager) BandCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live.NumBands()
}

// Prescription returns a copy of the live prescription.
func (m *Manager) Prescription() *prescription.Prescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live.Clone()
}

// Stored returns a copy of the prescription saved before the last band count
// change or load.
func (m *Manager) Stored() *prescription.Prescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored.Clone()
}

// SetBandCount resamples both ears to n bands. On rejection it returns the
// previous count and an error wrapping prescription.ErrConfigurationRejected;
// nothing changes in that case.
func (m *Manager) SetBandCount(n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.live.NumBands()
	if n < prescription.MinBands || n > m.cfg.maxBands() {
		return prev, fmt.Errorf("device: %w: requested %d, allowed [%d, %d]",
			prescription.ErrBandCount, n, prescription.MinBands, m.cfg.maxBands())
	}

	next, err := m.live.Resample(n, m.cfg.maxBands())
	if err != nil {
		return prev, fmt.Errorf("device: %w", err)
	}
	if err := next.Validate(); err != nil {
		return prev, fmt.Errorf("device: %w", err)
	}
	procs, err := m.build(next)
	if err != nil {
		return prev, err
	}

	m.stored = m.live.Clone()
	m.live = next
	m.stage(change{procs: procs})
	return n, nil
}

// LoadPrescription replaces both the live and the stored prescription.
func (m *Manager) LoadPrescription(p *prescription.Prescription) error {
	if p == nil {
		return fmt.Errorf("device: nil prescription")
	}
	if err := m.checkPrescription(p); err != nil {
		return err
	}
	procs, err := m.build(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = p.Clone()
	m.stored = p.Clone()
	m.stage(change{procs: procs})
	return nil
}

func (m *Manager) checkSide(side int) error {
	if side != Left && side != Right {
		return fmt.Errorf("%w: side %d", ErrUnknownParam, side)
	}
	return nil
}

// commitSide validates a modified copy of one ear and makes it live.
func (m *Manager) commitSide(side int, s prescription.Side, edits ...edit) error {
	if err := s.Validate(m.cfg.maxBands()); err != nil {
		return fmt.Errorf("device: %s: %w", sideNames[side], err)
	}
	*m.live.Side(side) = s
	m.stage(change{edits: edits})
	return nil
}

func runtimeParams(b prescription.Band, ceiling float64) (func(Configurable, int) error, error) {
	rp := b.Runtime(ceiling)
	if err := rp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", prescription.ErrInvalidParam, err)
	}
	return func(c Configurable, band int) error {
		if band == bandLimiter {
			return c.SetLimiter(rp)
		}
		return c.SetBandParams(band, rp)
	}, nil
}

// SetBandParam changes one parameter of one band.
func (m *Manager) SetBandParam(side, band int, p Param, v float64) error {
	if err := m.checkSide(side); err != nil {
		return err
	}
	if p < 0 || p >= numParams {
		return fmt.Errorf("%w: %v", ErrUnknownParam, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live.Side(side).Clone()
	if band < 0 || band >= s.NumBands() {
		return fmt.Errorf("device: %w: band %d of %d", prescription.ErrInvalidParam, band, s.NumBands())
	}
	p.set(&s.Bands[band], v)
	set, err := runtimeParams(s.Bands[band], m.live.Ceiling)
	if err != nil {
		return fmt.Errorf("device: %s band %d: %w", sideNames[side], band, err)
	}
	return m.commitSide(side, s, edit{side: side, apply: func(c Configurable) error { return set(c, band) }})
}

// BandParam returns one parameter of one band.
func (m *Manager) BandParam(side, band int, p Param) (float64, error) {
	if err := m.checkSide(side); err != nil {
		return 0, err
	}
	if p < 0 || p >= numParams {
		return 0, fmt.Errorf("%w: %v", ErrUnknownParam, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live.Side(side)
	if band < 0 || band >= s.NumBands() {
		return 0, fmt.Errorf("device: %w: band %d of %d", prescription.ErrInvalidParam, band, s.NumBands())
	}
	return p.get(s.Bands[band]), nil
}

// SetLimiterParam changes one parameter of the broadband limiter of an ear.
func (m *Manager) SetLimiterParam(side int, p Param, v float64) error {
	if err := m.checkSide(side); err != nil {
		return err
	}
	if p < 0 || p >= numParams {
		return fmt.Errorf("%w: %v", ErrUnknownParam, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live.Side(side).Clone()
	p.set(&s.Limiter, v)
	set, err := runtimeParams(s.Limiter, m.live.Ceiling)
	if err != nil {
		return fmt.Errorf("device: %s limiter: %w", sideNames[side], err)
	}
	return m.commitSide(side, s, edit{side: side, apply: func(c Configurable) error { return set(c, bandLimiter) }})
}

// LimiterParam returns one parameter of the broadband limiter of an ear.
func (m *Manager) LimiterParam(side int, p Param) (float64, error) {
	if err := m.checkSide(side); err != nil {
		return 0, err
	}
	if p < 0 || p >= numParams {
		return 0, fmt.Errorf("%w: %v", ErrUnknownParam, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return p.get(m.live.Side(side).Limiter), nil
}

// SetGlobal changes a parameter shared by every band of one ear.
func (m *Manager) SetGlobal(side int, g Global, v float64) error {
	if err := m.checkSide(side); err != nil {
		return err
	}
	if g < 0 || g >= numGlobals {
		return fmt.Errorf("%w: %v", ErrUnknownParam, g)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live.Side(side).Clone()
	g.set(&s, v)

	var e edit
	if g == BroadbandGain {
		e = edit{side: side, apply: func(c Configurable) error { return c.SetBroadbandGain(v) }}
	} else {
		globals := s.Globals()
		e = edit{side: side, apply: func(c Configurable) error { return c.SetGlobals(globals) }}
	}
	return m.commitSide(side, s, e)
}

// Global returns a parameter shared by every band of one ear.
func (m *Manager) Global(side int, g Global) (float64, error) {
	if err := m.checkSide(side); err != nil {
		return 0, err
	}
	if g < 0 || g >= numGlobals {
		return 0, fmt.Errorf("%w: %v", ErrUnknownParam, g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return g.get(m.live.Side(side)), nil
}

// SetCeiling changes the output ceiling. Every band's effective limiting
// threshold is recomputed on both ears.
func (m *Manager) SetCeiling(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.live.Clone()
	next.Ceiling = v
	if err := next.Validate(); err != nil {
		return fmt.Errorf("device: %w", err)
	}

	var edits []edit
	for side := range sideNames {
		s := next.Side(side)
		for band, b := range append([]prescription.Band{s.Limiter}, s.Bands...) {
			set, err := runtimeParams(b, v)
			if err != nil {
				return fmt.Errorf("device: %s: %w", sideNames[side], err)
			}
			idx := band - 1
			if band == 0 {
				idx = bandLimiter
			}
			edits = append(edits, edit{side: side, apply: func(c Configurable) error { return set(c, idx) }})
		}
	}

	m.live = next
	m.stage(change{edits: edits})
	return nil
}

// SetParam sets a value by dotted name, for example "left.band.2.cr",
// "right.attack", "left.limiter.bolt", "ceiling" or "bands".
func (m *Manager) SetParam(name string, v float64) error {
	a, err := parseName(name)
	if err != nil {
		return err
	}
	switch {
	case a.top == nameCeiling:
		return m.SetCeiling(v)
	case a.top == nameBands:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return fmt.Errorf("device: %w: band count %v", prescription.ErrBandCount, v)
		}
		_, err := m.SetBandCount(int(v))
		return err
	case a.band == bandNone:
		return m.SetGlobal(a.side, a.global, v)
	case a.band == bandLimiter:
		return m.SetLimiterParam(a.side, a.param, v)
	}
	return m.SetBandParam(a.side, a.band, a.param, v)
}

// Param reads a value by dotted name.
func (m *Manager) Param(name string) (float64, error) {
	a, err := parseName(name)
	if err != nil {
		return 0, err
	}
	switch {
	case a.top == nameCeiling:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.live.Ceiling, nil
	case a.top == nameBands:
		return float64(m.BandCount()), nil
	case a.band == bandNone:
		return m.Global(a.side, a.global)
	case a.band == bandLimiter:
		return m.LimiterParam(a.side, a.param)
	}
	return m.BandParam(a.side, a.band, a.param)
}

// Params lists every value of the control surface in a fixed order.
func (m *Manager) Params() []Setting {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Setting{
		{Name: nameCeiling, Value: m.live.Ceiling},
		{Name: nameBands, Value: float64(m.live.NumBands())},
	}
	for side := range sideNames {
		s := m.live.Side(side)
		for g := range numGlobals {
			out = append(out, Setting{Name: globalName(side, g), Value: g.get(s)})
		}
		for p := range numParams {
			out = append(out, Setting{Name: limiterName(side, p), Value: p.get(s.Limiter)})
		}
		for band, b := range s.Bands {
			for p := range numParams {
				out = append(out, Setting{Name: bandName(side, band, p), Value: p.get(b)})
			}
		}
	}
	return out
}
