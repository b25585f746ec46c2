package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/ironsheep/speedline/internal/speed"
)

var (
	// ErrMalformedFrame is returned for zero-sized frames and for frames whose
	// dimensions differ from the first frame of the session.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrStopRequested is returned by an OverlaySink when the viewer asked to
	// end the session. Run treats it as a normal stop.
	ErrStopRequested = errors.New("stop requested")
)

// Frame is one decoded video frame.
type Frame struct {
	// Index is the 0-based position of the frame in its source.
	Index int

	// Image is the color frame. It is never modified by the pipeline.
	Image image.Image
}

// FrameSource yields frames in order.
type FrameSource interface {
	// Next returns the next frame, blocking if necessary.
	// Returns io.EOF when the source is exhausted.
	Next(ctx context.Context) (Frame, error)

	// Close releases the decoder and any child process.
	io.Closer
}

// OverlaySink displays or stores the rendered overlay of each frame.
type OverlaySink interface {
	// Show hands over the overlay for f. Returning ErrStopRequested ends the
	// session without error.
	Show(ctx context.Context, f Frame, overlay image.Image) error

	io.Closer
}

// Reporter receives every speed measurement as it is produced.
type Reporter interface {
	Report(m speed.Measurement)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(m speed.Measurement)

// Report calls f(m).
func (f ReporterFunc) Report(m speed.Measurement) { f(m) }

// TextReporter prints one "Speed: N.NN km/h" line per measurement.
type TextReporter struct {
	W io.Writer
}

// Report writes m to the underlying writer. Write errors are ignored; the
// console is a best-effort side channel.
func (r TextReporter) Report(m speed.Measurement) {
	fmt.Fprintf(r.W, "Speed: %.2f km/h\n", m.KMH)
}

// MultiReporter fans a measurement out to several reporters in order.
type MultiReporter []Reporter

// Report forwards m to every non-nil reporter.
func (mr MultiReporter) Report(m speed.Measurement) {
	for _, r := range mr {
		if r != nil {
			r.Report(m)
		}
	}
}

// MultiSink hands each overlay to several sinks in order. The first error
// stops the fan-out and is returned.
type MultiSink []OverlaySink

// Show forwards the overlay to every sink.
func (ms MultiSink) Show(ctx context.Context, f Frame, overlay image.Image) error {
	for _, s := range ms {
		if err := s.Show(ctx, f, overlay); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (ms MultiSink) Close() error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// SliceSource serves frames from memory. It is used for single-image
// analysis and in tests.
type SliceSource struct {
	frames []image.Image
	next   int
}

// NewSliceSource returns a source over imgs, indexed from 0.
func NewSliceSource(imgs ...image.Image) *SliceSource {
	return &SliceSource{frames: imgs}
}

// Next returns the next image or io.EOF once all have been served.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := Frame{Index: s.next, Image: s.frames[s.next]}
	s.next++
	return f, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }
