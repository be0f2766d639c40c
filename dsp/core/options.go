package core

import (
	"math"
	"time"
)

// ProcessorConfig defines the fixed-rate block settings shared by every stage
// of the signal path.
type ProcessorConfig struct {
	SampleRate float64
	BlockSize  int
	Channels   int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns the wearable defaults: 32 kHz, 32-sample
// blocks (1 ms block period), stereo.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: 32000,
		BlockSize:  32,
		Channels:   2,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 && !math.IsInf(sampleRate, 0) {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the processing block size. Odd sizes are ignored because
// a block is always moved as two equal half-block transfer quanta.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if blockSize > 0 && blockSize%2 == 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// WithChannels sets the number of audio paths (1 = mono, 2 = stereo).
func WithChannels(channels int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if channels == 1 || channels == 2 {
			cfg.Channels = channels
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// BlockPeriod returns the real-time deadline of one block.
func (cfg ProcessorConfig) BlockPeriod() time.Duration {
	if cfg.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(cfg.BlockSize) / cfg.SampleRate * float64(time.Second))
}

// BlockRate returns the number of blocks per second.
func (cfg ProcessorConfig) BlockRate() float64 {
	if cfg.BlockSize <= 0 {
		return 0
	}
	return cfg.SampleRate / float64(cfg.BlockSize)
}
