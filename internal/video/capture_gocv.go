//go:build gocv

package video

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ironsheep/speedline/internal/pipeline"
)

// CaptureSource reads frames through OpenCV's VideoCapture.
type CaptureSource struct {
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	next int
	fps  float64

	closeOnce sync.Once
}

// NewCaptureSource opens a video file or stream URL.
func NewCaptureSource(path string) (*CaptureSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("failed to open video: %s", path)
	}

	return &CaptureSource{
		vc:  vc,
		mat: gocv.NewMat(),
		fps: vc.Get(gocv.VideoCaptureFPS),
	}, nil
}

// FrameRate returns the rate reported by the container, or 0.
func (s *CaptureSource) FrameRate() float64 {
	return s.fps
}

// Next reads and converts the next frame. A failed read is the end of input.
func (s *CaptureSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return pipeline.Frame{}, io.EOF
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("failed to convert frame %d: %w", s.next, err)
	}

	f := pipeline.Frame{Index: s.next, Image: img}
	s.next++
	return f, nil
}

// Close releases the capture and its frame buffer.
func (s *CaptureSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mat.Close()
		err = s.vc.Close()
	})
	return err
}

// WindowSink shows overlays in a HighGUI window. Pressing 'q' ends the
// session.
type WindowSink struct {
	win *gocv.Window
}

// NewWindowSink opens a window titled name.
func NewWindowSink(name string) (pipeline.OverlaySink, error) {
	return &WindowSink{win: gocv.NewWindow(name)}, nil
}

// Show displays the overlay and polls the keyboard for 1 ms.
func (w *WindowSink) Show(ctx context.Context, _ pipeline.Frame, overlay image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mat, err := gocv.ImageToMatRGB(overlay)
	if err != nil {
		return fmt.Errorf("failed to convert overlay: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	if w.win.WaitKey(1)&0xFF == 'q' {
		return pipeline.ErrStopRequested
	}
	return nil
}

// Close destroys the window.
func (w *WindowSink) Close() error {
	return w.win.Close()
}

func openCapture(_ context.Context, path string) (pipeline.FrameSource, float64, error) {
	src, err := NewCaptureSource(path)
	if err != nil {
		return nil, 0, err
	}
	return src, src.FrameRate(), nil
}
