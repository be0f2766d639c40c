// Package transfer implements the double-buffered handoff between the audio
// hardware and the block processing context.
//
// The hardware side owns two raw DMA buffers (receive and transmit) holding one
// block of interleaved fixed-point frames each. Every time the hardware crosses
// a half-buffer boundary it calls [Engine.ReceiveISR] and [Engine.TransmitISR].
// Those handlers are the only code that runs in interrupt context and they are
// limited to:
//
//   - converting one half-block quantum between fixed-point words and
//     normalized float samples,
//   - claiming and releasing pool blocks,
//   - pushing to and popping from the two-slot [Queue]s,
//   - ringing the non-blocking doorbell returned by [Engine.Ready].
//
// All DSP arithmetic happens in the processing context, which waits on the
// doorbell, takes input blocks with [Engine.Receive] and hands results back with
// [Engine.Transmit]. When the processing context falls behind, the engine
// substitutes silence and raises the overrun flag; it never stalls the
// hardware clock.
//
// [Simulator] plays the part of the codec for tests and offline tools.
package transfer
