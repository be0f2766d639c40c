// Package pass designs lowpass and highpass biquad cascades (RBJ cookbook,
// Butterworth and Linkwitz-Riley) for crossover networks.
package pass
