// Package fir provides a block FIR runtime and a linear-phase band design.
//
// [Filter] convolves blocks against a kept history so that consecutive calls
// behave like one continuous stream. [Band] designs windowed frequency-sampled
// band filters whose set over a partition of the spectrum sums to a pure
// delay.
package fir
