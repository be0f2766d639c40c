// Package dynamics implements the per-band wide dynamic range compressor of
// the hearing-assistance path.
//
// A [Curve] maps an input level in dB SPL to a gain in dB with four regimes:
// expansion below the expansion knee, constant threshold gain up to the
// compression knee, compression up to the limiting threshold and 10:1 limiting
// above it. An [Envelope] follows block mean-square energy with separate
// attack and release times. A [Compressor] combines both and ramps its gain
// linearly across each block. A [Bank] holds one compressor per band.
//
// Levels are absolute: a full-scale sine of RMS 0 dBFS corresponds to the
// calibration level in dB SPL.
package dynamics
