// Command wdrc runs audio through the simulated hearing aid signal path and
// writes the result as a WAV file.
//
// Usage:
//
//	wdrc [flags] input.{wav,mp3,ogg} output.wav
//	wdrc [flags] -tone 1000 output.wav
//
// The input is fed through a simulated transfer engine at the file's sample
// rate, processed by one WDRC processor per ear and collected again. With
// -realtime the hardware side is paced by the sample clock and the processing
// loop runs on its own goroutine; -console then accepts get/set commands on
// stdin while audio is running.
//
// Examples:
//
//	wdrc speech.wav aided.wav
//	wdrc -rx fitting.yaml -bands 4 speech.wav aided.wav
//	wdrc -kind fir -taps 129 -width 24 music.ogg aided.wav
//	wdrc -tone 2000 -level -40 -duration 2 tone.wav
//	wdrc -realtime -console -watch -rx fitting.toml speech.mp3 aided.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/cmplx"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/cwbudde/algo-vecmath/cpu"
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-wdrc/device"
	"github.com/cwbudde/algo-wdrc/dsp/core"
	"github.com/cwbudde/algo-wdrc/dsp/filterbank"
	"github.com/cwbudde/algo-wdrc/dsp/transfer"
	"github.com/cwbudde/algo-wdrc/internal/source"
	"github.com/cwbudde/algo-wdrc/prescription"
)

type options struct {
	rx       string
	saveRx   string
	bands    int
	kind     string
	order    int
	taps     int
	block    int
	width    int
	channels int

	tone     float64
	level    float64
	duration float64
	rate     int

	realtime bool
	console  bool
	watch    bool
	verbose  bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("wdrc: ")
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.rx, "rx", "", "prescription file (.yaml, .toml, .json); built-in default when empty")
	flag.StringVar(&o.saveRx, "save-rx", "", "write the prescription in effect at exit to this file")
	flag.IntVar(&o.bands, "bands", 0, "resample the prescription to this many bands (3-8)")
	flag.StringVar(&o.kind, "kind", "iir", "filterbank: iir or fir")
	flag.IntVar(&o.order, "order", 0, "Linkwitz-Riley order for -kind iir (2, 4 or 8)")
	flag.IntVar(&o.taps, "taps", 0, "odd FIR length for -kind fir")
	flag.IntVar(&o.block, "block", 32, "frames per block (even)")
	flag.IntVar(&o.width, "width", 16, "hardware word width: 16, 24 or 32")
	flag.IntVar(&o.channels, "channels", 2, "audio paths: 1 or 2")
	flag.Float64Var(&o.tone, "tone", 0, "generate a sine at this frequency instead of reading an input file")
	flag.Float64Var(&o.level, "level", -30, "tone RMS level in dBFS")
	flag.Float64Var(&o.duration, "duration", 1, "tone length in seconds")
	flag.IntVar(&o.rate, "rate", 32000, "tone sample rate in Hz")
	flag.BoolVar(&o.realtime, "realtime", false, "pace the simulated hardware by the sample clock")
	flag.BoolVar(&o.console, "console", false, "read get/set commands from stdin (implies -realtime)")
	flag.BoolVar(&o.watch, "watch", false, "reload -rx whenever the file changes (implies -realtime)")
	flag.BoolVar(&o.verbose, "v", false, "verbose output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wdrc [flags] input.{wav,mp3,ogg} output.wav\n")
		fmt.Fprintf(os.Stderr, "       wdrc [flags] -tone HZ output.wav\n\n")
		fmt.Fprintf(os.Stderr, "Runs audio through the simulated WDRC hearing aid signal path.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if o.console || o.watch {
		o.realtime = true
	}
	if o.watch && o.rx == "" {
		return errors.New("-watch needs -rx")
	}

	args := flag.Args()
	var inputPath, outputPath string
	switch {
	case o.tone > 0 && len(args) == 1:
		outputPath = args[0]
	case o.tone <= 0 && len(args) == 2:
		inputPath, outputPath = args[0], args[1]
	default:
		flag.Usage()
		return errors.New("wrong number of arguments")
	}

	if o.verbose {
		f := cpu.DetectFeatures()
		log.Printf("cpu: %s sse2=%v avx2=%v neon=%v generic=%v",
			f.Architecture, f.HasSSE2, f.HasAVX2, f.HasNEON, f.ForceGeneric)
	}

	src, err := loadSource(o, inputPath)
	if err != nil {
		return err
	}
	rx, err := loadPrescription(o)
	if err != nil {
		return err
	}
	d, err := newDevice(o, src, rx)
	if err != nil {
		return err
	}
	if o.verbose {
		frames := len(src.Data) / src.Format.NumChannels
		log.Printf("input: %d Hz, %d channels, %d-bit, %d frames", src.Format.SampleRate, src.Format.NumChannels, src.SourceBitDepth, frames)
		log.Printf("processing: %d bands, %s bank, %d-frame blocks, latency %d samples",
			d.Manager().BandCount(), o.kind, o.block, d.Latency())
		if err := logLayout(o, d.Manager().Prescription(), float64(src.Format.SampleRate)); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	out, err := simulate(ctx, o, d, src)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := source.WriteWAV(outputPath, out); err != nil {
		return err
	}
	if o.saveRx != "" {
		if err := prescription.SaveFile(o.saveRx, d.Manager().Prescription()); err != nil {
			return err
		}
	}

	st := d.Status()
	fmt.Printf("Processed %d blocks in %.2fs (%d bands)\n", st.Processed, elapsed.Seconds(), st.Bands)
	fmt.Printf("  overruns %d, underruns %d, gaps %d, dropped %d, skipped bands %d, errors %d\n",
		st.Overruns, st.Underruns, st.Gaps, st.Dropped, st.Skipped, st.Errors)
	return nil
}

func loadSource(o options, path string) (*audio.IntBuffer, error) {
	if path == "" {
		return source.Tone(o.tone, o.level, o.rate, o.channels, o.duration, o.width), nil
	}
	return source.Load(path)
}

func loadPrescription(o options) (*prescription.Prescription, error) {
	rx := prescription.Default()
	if o.rx != "" {
		var err error
		if rx, err = prescription.LoadFile(o.rx); err != nil {
			return nil, err
		}
	}
	if o.bands > 0 && o.bands != rx.NumBands() {
		return rx.Resample(o.bands, prescription.MaxBands)
	}
	return rx, nil
}

func newDevice(o options, src *audio.IntBuffer, rx *prescription.Prescription) (*device.Device, error) {
	kind, err := filterbank.ParseKind(o.kind)
	if err != nil {
		return nil, err
	}
	if o.block <= 0 || o.block%2 != 0 {
		return nil, fmt.Errorf("-block must be positive and even, got %d", o.block)
	}
	if o.channels != 1 && o.channels != 2 {
		return nil, fmt.Errorf("-channels must be 1 or 2, got %d", o.channels)
	}
	stream := transfer.NewConfig(transfer.BitWidth(o.width),
		core.WithSampleRate(float64(src.Format.SampleRate)),
		core.WithBlockSize(o.block),
		core.WithChannels(o.channels),
	)
	return device.New(device.Config{
		Stream:  stream,
		Kind:    kind,
		Order:   o.order,
		Taps:    o.taps,
		OnError: func(err error) { log.Printf("processing: %v", err) },
	}, rx)
}

// logLayout reports how the unity band sum of the left ear behaves at every
// crossover and band centre.
func logLayout(o options, rx *prescription.Prescription, rate float64) error {
	kind, err := filterbank.ParseKind(o.kind)
	if err != nil {
		return err
	}
	bank, err := filterbank.New(rx.Left.Crossovers, rate,
		filterbank.WithKind(kind), filterbank.WithOrder(o.order), filterbank.WithTaps(o.taps))
	if err != nil {
		return err
	}

	freqs := append(rx.Left.CenterFrequencies(), rx.Left.Crossovers...)
	slices.Sort(freqs)
	for _, f := range freqs {
		var sum complex128
		for i := range bank.NumBands() {
			h, err := bank.Response(i, f)
			if err != nil {
				return err
			}
			sum += h
		}
		log.Printf("layout: %8.1f Hz  band sum %+.3f dB", f, core.LinearToDB(cmplx.Abs(sum)))
	}
	return nil
}

// simulate drives the engine with src and returns what it transmitted.
func simulate(ctx context.Context, o options, d *device.Device, src *audio.IntBuffer) (*audio.IntBuffer, error) {
	if !o.realtime {
		var stepErr error
		sim, err := transfer.NewSimulator(d.Engine(), src, transfer.WithStepHook(func() {
			if _, err := d.Step(); err != nil && stepErr == nil {
				stepErr = err
			}
		}))
		if err != nil {
			return nil, err
		}
		if err := sim.Run(ctx, false); err != nil {
			return nil, err
		}
		if stepErr != nil && o.verbose {
			log.Printf("processing: %v", stepErr)
		}
		return sim.Output(), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	if o.watch {
		go func() {
			err := prescription.Watch(ctx, o.rx, func(p *prescription.Prescription) {
				if err := d.Manager().LoadPrescription(p); err != nil {
					log.Printf("reload %s: %v", o.rx, err)
					return
				}
				log.Printf("reloaded %s (%d bands)", o.rx, p.NumBands())
			}, func(err error) {
				log.Printf("reload %s: %v", o.rx, err)
			})
			if err != nil {
				log.Printf("watch: %v", err)
			}
		}()
	}
	if o.console {
		go func() {
			if err := newConsole(d, os.Stdout).Run(ctx, os.Stdin); err != nil {
				log.Printf("console: %v", err)
			}
		}()
	}

	sim, err := transfer.NewSimulator(d.Engine(), src)
	if err != nil {
		return nil, err
	}
	simErr := sim.Run(ctx, true)
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if simErr != nil && !errors.Is(simErr, context.Canceled) {
		return nil, simErr
	}
	return sim.Output(), nil
}
