package pipeline

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/ironsheep/speedline/internal/detection"
	"github.com/ironsheep/speedline/internal/imaging"
	"github.com/ironsheep/speedline/internal/log"
	"github.com/ironsheep/speedline/internal/speed"
)

// Options configures a Processor.
type Options struct {
	Geometry  detection.Geometry
	CannyLow  int
	CannyHigh int

	Trigger  detection.TriggerMode
	Cooldown int

	Estimator speed.Estimator

	// Clock stamps crossing events. Nil means speed.WallClock.
	Clock speed.Clock

	Style imaging.OverlayStyle
}

// DefaultOptions returns the stock strip geometry, Canny 50/150, edge
// triggering, a 0.5 m strip spacing and the wall clock.
func DefaultOptions() Options {
	return Options{
		Geometry:  detection.DefaultGeometry(),
		CannyLow:  imaging.DefaultCannyLow,
		CannyHigh: imaging.DefaultCannyHigh,
		Trigger:   detection.TriggerEdge,
		Estimator: speed.Estimator{Distance: speed.DefaultDistance},
		Clock:     speed.WallClock{},
		Style:     imaging.DefaultOverlayStyle(),
	}
}

// Result is everything the Processor derived from one frame.
type Result struct {
	Frame int

	// Edges is the raw edge map, Masked the same map restricted to the ROI.
	Edges  *image.Gray
	Masked *image.Gray

	Region detection.Region

	// Crossing reports an edge on the detection line; Event reports whether
	// the trigger turned that into a crossing event.
	Crossing bool
	Event    bool

	// Measurement is set when the event completed an interval.
	Measurement *speed.Measurement
}

// Processor runs the per-frame chain: edge extraction, ROI masking, the
// crossing test, the trigger and the speed estimator.
//
// A Processor owns its TimerState and trigger state; it is driven by a single
// loop and is not safe for concurrent use.
type Processor struct {
	opts    Options
	trigger *detection.Trigger
	state   speed.TimerState
	logger  *slog.Logger

	width, height int
	measurements  []speed.Measurement
	label         string
}

// NewProcessor validates opts and returns a ready Processor.
func NewProcessor(opts Options) (*Processor, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	if opts.CannyLow < 0 || opts.CannyHigh < opts.CannyLow {
		return nil, fmt.Errorf("invalid canny thresholds %d/%d", opts.CannyLow, opts.CannyHigh)
	}
	if opts.Estimator.Distance <= 0 {
		return nil, fmt.Errorf("distance between strips must be positive, got %v", opts.Estimator.Distance)
	}
	if opts.Estimator.MaxInterval < 0 {
		return nil, fmt.Errorf("max interval must not be negative, got %v", opts.Estimator.MaxInterval)
	}
	if _, err := detection.ParseTriggerMode(string(opts.Trigger)); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = speed.WallClock{}
	}

	return &Processor{
		opts:    opts,
		trigger: detection.NewTrigger(opts.Trigger, opts.Cooldown),
		logger:  log.With("component", "processor"),
	}, nil
}

// Options returns the effective options.
func (p *Processor) Options() Options {
	return p.opts
}

// Process runs one frame through the chain.
//
// The first frame fixes the session dimensions. Zero-sized frames and frames
// of any other size fail with ErrMalformedFrame.
func (p *Processor) Process(f Frame) (*Result, error) {
	if f.Image == nil {
		return nil, fmt.Errorf("frame %d: %w: no image", f.Index, ErrMalformedFrame)
	}
	b := f.Image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("frame %d: %w: zero size %dx%d", f.Index, ErrMalformedFrame, b.Dx(), b.Dy())
	}
	if p.width == 0 {
		p.width, p.height = b.Dx(), b.Dy()
	} else if b.Dx() != p.width || b.Dy() != p.height {
		return nil, fmt.Errorf("frame %d: %w: got %dx%d, session is %dx%d",
			f.Index, ErrMalformedFrame, b.Dx(), b.Dy(), p.width, p.height)
	}

	edges := imaging.ExtractEdges(f.Image, p.opts.CannyLow, p.opts.CannyHigh)
	masked, region := detection.ApplyROIAndLine(edges, p.opts.Geometry)
	crossing := detection.IsCrossing(masked, region.Line.Y)
	event := p.trigger.Update(crossing)

	res := &Result{
		Frame:    f.Index,
		Edges:    edges,
		Masked:   masked,
		Region:   region,
		Crossing: crossing,
		Event:    event,
	}

	p.logger.Debug("frame processed",
		"frame", f.Index,
		"line_y", region.Line.Y,
		"crossing", crossing,
		"event", event)

	if !event {
		return res, nil
	}

	now := p.opts.Clock.Now(f.Index)
	reading, ok := p.opts.Estimator.OnCrossing(now, &p.state)
	if !ok {
		p.logger.Debug("baseline armed", "frame", f.Index)
		return res, nil
	}

	m := speed.NewMeasurement(f.Index, now, reading)
	p.measurements = append(p.measurements, m)
	p.label = fmt.Sprintf("Speed: %.2f km/h", m.KMH)
	res.Measurement = &m

	p.logger.Info("speed measured",
		"id", m.ID,
		"frame", m.Frame,
		"kmh", m.KMH,
		"interval", m.Interval)

	return res, nil
}

// Overlay renders the display frame for a processed result: the masked edge
// map blended over the frame, the detection line, and the most recent speed.
func (p *Processor) Overlay(f Frame, r *Result) *image.RGBA {
	seg := imaging.Segment{X1: r.Region.Line.XStart, X2: r.Region.Line.XEnd, Y: r.Region.Line.Y}
	return imaging.Composite(f.Image, r.Masked, seg, p.opts.Style, p.label)
}

// Measurements returns a copy of every measurement produced so far.
func (p *Processor) Measurements() []speed.Measurement {
	out := make([]speed.Measurement, len(p.measurements))
	copy(out, p.measurements)
	return out
}

// Reset returns the processor to its initial state, forgetting the session
// dimensions, the trigger history, the speed baseline and all measurements.
func (p *Processor) Reset() {
	p.trigger.Reset()
	p.state.Reset()
	p.width, p.height = 0, 0
	p.measurements = nil
	p.label = ""
}
