// Package pipeline wires the per-frame stages into a processing session.
//
// A session pulls frames from a FrameSource, runs each through a Processor
// (edges, ROI mask, crossing test, trigger, speed estimator), reports any
// measurement, and hands the rendered overlay to an optional OverlaySink.
// Processing is strictly sequential: one frame is finished before the next
// is read, and the Processor is the sole owner of the speed timer state.
//
// # Termination
//
// A session ends normally when the source returns io.EOF, the context is
// cancelled, or the sink returns ErrStopRequested. Everything else, including
// ErrMalformedFrame, aborts the session with an error.
package pipeline
