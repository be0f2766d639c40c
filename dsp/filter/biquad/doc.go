// Package biquad is the second-order IIR runtime used by the crossover
// filterbank.
//
// A [Section] runs Direct Form II Transposed on one set of [Coefficients];
// a [Chain] cascades sections. Coefficient design lives in
// dsp/filter/design/pass.
package biquad
