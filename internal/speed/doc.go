// Package speed turns pairs of crossing events into speed readings.
//
// An Estimator and a caller-owned TimerState form a two-state machine: the
// first crossing arms the state, every later crossing is paired with the one
// before it and converted with
//
//	kmh = distance / interval * 3.6
//
// Timestamps come from a Clock, either the wall clock or one derived from the
// frame index and frame rate.
package speed
