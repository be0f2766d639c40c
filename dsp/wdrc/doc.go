// Package wdrc runs the multi-band wide dynamic range compression path of one
// channel: filterbank split, per-band compression, overlap-sum, broadband gain
// and a broadband safety limiter.
//
// A band that fails is skipped for the current block and counted. When no
// band produced output the block is reported with [ErrNoOutput] and must not
// be transmitted.
package wdrc
