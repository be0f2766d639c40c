// Package prescription holds the hearing-aid fitting: per-side crossover
// frequencies, calibration, time constants and per-band WDRC parameters.
//
// It validates prescriptions, converts them into runtime compressor
// parameters, resamples a side to a different band count by log-frequency
// interpolation, reads and writes YAML, TOML and JSON files and can watch a
// file for changes.
package prescription
