// Package device assembles the signal path of a hearing aid: a block pool, the
// transfer engine and one WDRC processor per ear, driven by a single
// processing goroutine.
//
// Configuration changes arrive on other goroutines through a Manager. The
// Manager validates every change synchronously, rejecting it with an error
// that wraps prescription.ErrConfigurationRejected and leaving the previous
// configuration untouched, and stages accepted changes for the processing
// goroutine, which picks them up between blocks.
package device
