package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/speedline/internal/detection"
	"github.com/ironsheep/speedline/internal/speed"
)

// Test frames are 800x100. With the default geometry the detection line is
// row 85 and the ROI spans roughly x=400..628 on that row.
const (
	testWidth  = 800
	testHeight = 100
)

// stripFrame returns a black frame with a full-height white bar starting at
// barX. A negative barX yields an empty frame.
func stripFrame(barX int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if barX >= 0 {
		bar := image.Rect(barX, 0, barX+20, testHeight)
		draw.Draw(img, bar, image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	return img
}

func frameClockOptions() Options {
	opts := DefaultOptions()
	opts.Clock = speed.FrameClock{FrameRate: 60}
	return opts
}

func newTestProcessor(t *testing.T, opts Options) *Processor {
	t.Helper()
	p, err := NewProcessor(opts)
	require.NoError(t, err)
	return p
}

type fakeSink struct {
	shown    []int
	stopAt   int
	err      error
	lastSize image.Rectangle
}

func (s *fakeSink) Show(_ context.Context, f Frame, overlay image.Image) error {
	s.shown = append(s.shown, f.Index)
	s.lastSize = overlay.Bounds()
	if s.err != nil && len(s.shown) == s.stopAt {
		return s.err
	}
	return nil
}

func (s *fakeSink) Close() error { return nil }

type failingSource struct{ err error }

func (s failingSource) Next(context.Context) (Frame, error) { return Frame{}, s.err }
func (s failingSource) Close() error                        { return nil }

func TestProcess_CrossingInsideROI(t *testing.T) {
	p := newTestProcessor(t, frameClockOptions())

	res, err := p.Process(Frame{Index: 0, Image: stripFrame(500)})
	require.NoError(t, err)

	assert.Equal(t, 85, res.Region.Line.Y)
	assert.True(t, res.Crossing)
	assert.True(t, res.Event)
	assert.Nil(t, res.Measurement, "first crossing only arms the timer")
	assert.Equal(t, image.Rect(0, 0, testWidth, testHeight), res.Edges.Rect)
}

func TestProcess_BarOutsideROI(t *testing.T) {
	p := newTestProcessor(t, frameClockOptions())

	res, err := p.Process(Frame{Index: 0, Image: stripFrame(100)})
	require.NoError(t, err)

	assert.False(t, res.Crossing)
	assert.False(t, res.Event)
	assert.True(t, detection.IsCrossing(res.Edges, res.Region.Line.Y), "raw edges do reach the line")
}

func TestProcess_MalformedFrames(t *testing.T) {
	p := newTestProcessor(t, frameClockOptions())

	_, err := p.Process(Frame{Index: 0, Image: image.NewRGBA(image.Rect(0, 0, 0, 10))})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = p.Process(Frame{Index: 0})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = p.Process(Frame{Index: 1, Image: stripFrame(-1)})
	require.NoError(t, err)

	_, err = p.Process(Frame{Index: 2, Image: image.NewRGBA(image.Rect(0, 0, 640, 100))})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	p.Reset()
	_, err = p.Process(Frame{Index: 0, Image: image.NewRGBA(image.Rect(0, 0, 640, 100))})
	assert.NoError(t, err, "Reset forgets the session size")
}

func TestNewProcessor_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero distance", func(o *Options) { o.Estimator.Distance = 0 }},
		{"negative max interval", func(o *Options) { o.Estimator.MaxInterval = -time.Second }},
		{"inverted thresholds", func(o *Options) { o.CannyLow, o.CannyHigh = 150, 50 }},
		{"bad trigger", func(o *Options) { o.Trigger = "sometimes" }},
		{"bad geometry", func(o *Options) { o.Geometry.LineTopFrac = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			_, err := NewProcessor(opts)
			assert.Error(t, err)
		})
	}

	opts := DefaultOptions()
	opts.Clock = nil
	p, err := NewProcessor(opts)
	require.NoError(t, err)
	assert.Equal(t, speed.WallClock{}, p.Options().Clock)
}

func TestRun_MeasuresSpeed(t *testing.T) {
	// Bar on the line at frames 0 and 30; 30 frames at 60 fps is 0.5 s.
	frames := make([]image.Image, 31)
	for i := range frames {
		frames[i] = stripFrame(-1)
	}
	frames[0] = stripFrame(500)
	frames[30] = stripFrame(500)

	p := newTestProcessor(t, frameClockOptions())
	var out bytes.Buffer

	summary, err := Run(context.Background(), p, NewSliceSource(frames...), nil, TextReporter{W: &out})
	require.NoError(t, err)

	assert.Equal(t, "Speed: 3.60 km/h\n", out.String())
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 3.6, summary.MeanKMH, 1e-9)

	ms := p.Measurements()
	require.Len(t, ms, 1)
	assert.Equal(t, 30, ms[0].Frame)
	assert.Equal(t, 500*time.Millisecond, ms[0].Interval)
}

func TestRun_EdgeTriggerIgnoresSustainedCrossing(t *testing.T) {
	frames := []image.Image{stripFrame(500), stripFrame(500), stripFrame(500), stripFrame(500)}

	p := newTestProcessor(t, frameClockOptions())
	summary, err := Run(context.Background(), p, NewSliceSource(frames...), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
}

func TestRun_LevelTriggerFiresEveryFrame(t *testing.T) {
	frames := []image.Image{stripFrame(500), stripFrame(500), stripFrame(500)}

	opts := frameClockOptions()
	opts.Trigger = detection.TriggerLevel
	p := newTestProcessor(t, opts)

	var got []float64
	rep := ReporterFunc(func(m speed.Measurement) { got = append(got, m.KMH) })

	_, err := Run(context.Background(), p, NewSliceSource(frames...), nil, rep)
	require.NoError(t, err)

	// One frame at 60 fps is 1/60 s, so 0.5 m gives 108 km/h.
	require.Len(t, got, 2)
	assert.InDelta(t, 108, got[0], 1e-3)
	assert.InDelta(t, 108, got[1], 1e-3)
}

func TestRun_SinkReceivesOverlays(t *testing.T) {
	sink := &fakeSink{}
	p := newTestProcessor(t, frameClockOptions())

	_, err := Run(context.Background(), p, NewSliceSource(stripFrame(-1), stripFrame(500)), sink, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sink.shown)
	assert.Equal(t, image.Rect(0, 0, testWidth, testHeight), sink.lastSize)
}

func TestRun_StopRequested(t *testing.T) {
	sink := &fakeSink{stopAt: 2, err: ErrStopRequested}
	src := NewSliceSource(stripFrame(-1), stripFrame(-1), stripFrame(-1), stripFrame(-1))
	p := newTestProcessor(t, frameClockOptions())

	_, err := Run(context.Background(), p, src, sink, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sink.shown)
}

func TestRun_SinkError(t *testing.T) {
	boom := errors.New("display gone")
	sink := &fakeSink{stopAt: 1, err: boom}
	p := newTestProcessor(t, frameClockOptions())

	_, err := Run(context.Background(), p, NewSliceSource(stripFrame(-1)), sink, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &fakeSink{}
	p := newTestProcessor(t, frameClockOptions())

	summary, err := Run(ctx, p, NewSliceSource(stripFrame(500)), sink, nil)
	require.NoError(t, err)
	assert.Empty(t, sink.shown)
	assert.Equal(t, speed.Summary{}, summary)
}

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("decoder crashed")
	p := newTestProcessor(t, frameClockOptions())

	_, err := Run(context.Background(), p, failingSource{err: boom}, nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRun_MalformedFrameAborts(t *testing.T) {
	src := NewSliceSource(stripFrame(-1), image.NewRGBA(image.Rect(0, 0, 10, 10)), stripFrame(-1))
	p := newTestProcessor(t, frameClockOptions())

	_, err := Run(context.Background(), p, src, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestOverlay_DrawsDetectionLine(t *testing.T) {
	p := newTestProcessor(t, frameClockOptions())
	f := Frame{Index: 0, Image: stripFrame(-1)}

	res, err := p.Process(f)
	require.NoError(t, err)

	overlay := p.Overlay(f, res)
	green := color.RGBA{G: 255, A: 255}
	line := res.Region.Line
	assert.Equal(t, green, overlay.RGBAAt(line.XStart, line.Y))
	assert.Equal(t, green, overlay.RGBAAt(line.XEnd, line.Y))
	assert.NotEqual(t, green, overlay.RGBAAt(line.XStart-1, line.Y))
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(stripFrame(-1))

	f, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestMultiReporter(t *testing.T) {
	var a, b bytes.Buffer
	mr := MultiReporter{TextReporter{W: &a}, nil, TextReporter{W: &b}}
	mr.Report(speed.Measurement{KMH: 42.126})

	assert.Equal(t, "Speed: 42.13 km/h\n", a.String())
	assert.Equal(t, a.String(), b.String())
}

func TestMultiSink(t *testing.T) {
	a := &fakeSink{}
	b := &fakeSink{}
	ms := MultiSink{a, b}

	img := stripFrame(-1)
	require.NoError(t, ms.Show(context.Background(), Frame{Index: 4, Image: img}, img))
	assert.Equal(t, []int{4}, a.shown)
	assert.Equal(t, []int{4}, b.shown)
	assert.NoError(t, ms.Close())
}

func TestMultiSink_StopsOnError(t *testing.T) {
	a := &fakeSink{err: ErrStopRequested, stopAt: 1}
	b := &fakeSink{}

	img := stripFrame(-1)
	err := MultiSink{a, b}.Show(context.Background(), Frame{Image: img}, img)
	assert.ErrorIs(t, err, ErrStopRequested)
	assert.Empty(t, b.shown)
}
