// Package filterbank splits one input block into N frequency bands.
//
// Band 0 is a lowpass, band N-1 a highpass and every band in between a
// bandpass. Each band is an independent filter fed by the same input, so a
// band can be processed, or fail, on its own.
//
// Two implementations are available. [KindIIR] cascades Linkwitz-Riley
// sections: no added latency, but the band phases rotate around each
// crossover. [KindFIR] uses linear-phase band filters whose sum is an exact
// delay of (taps-1)/2 samples.
package filterbank
