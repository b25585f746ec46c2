package speed

import (
	"fmt"
	"time"
)

// Clock assigns a timestamp to a frame.
type Clock interface {
	Now(frameIndex int) time.Time
}

// WallClock stamps frames with the time they are processed.
type WallClock struct{}

// Now returns the current wall-clock time.
func (WallClock) Now(int) time.Time { return time.Now() }

// FrameClock stamps frames by their position in the stream, so speeds from a
// recording do not depend on how fast it is processed.
type FrameClock struct {
	FrameRate float64
	Epoch     time.Time
}

// Now returns Epoch plus frameIndex / FrameRate seconds.
func (c FrameClock) Now(frameIndex int) time.Time {
	if c.FrameRate <= 0 {
		return c.Epoch
	}
	return c.Epoch.Add(time.Duration(float64(frameIndex) / c.FrameRate * float64(time.Second)))
}

// ClockMode names a Clock implementation.
type ClockMode string

const (
	ClockWall  ClockMode = "wall"
	ClockFrame ClockMode = "frame"
)

// NewClock builds the clock for mode. frameRate is only used by ClockFrame.
func NewClock(mode ClockMode, frameRate float64) (Clock, error) {
	switch mode {
	case "", ClockWall:
		return WallClock{}, nil
	case ClockFrame:
		if frameRate <= 0 {
			return nil, fmt.Errorf("frame clock needs a positive frame rate, got %g", frameRate)
		}
		return FrameClock{FrameRate: frameRate}, nil
	default:
		return nil, fmt.Errorf("unknown clock %q (want %q or %q)", mode, ClockWall, ClockFrame)
	}
}
