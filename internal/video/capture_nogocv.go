//go:build !gocv

package video

import (
	"context"
	"errors"

	"github.com/ironsheep/speedline/internal/log"
	"github.com/ironsheep/speedline/internal/pipeline"
)

// ErrNoWindow is returned by NewWindowSink in builds without OpenCV.
var ErrNoWindow = errors.New("window display requires a build with -tags gocv")

// NewWindowSink is unavailable without OpenCV.
func NewWindowSink(string) (pipeline.OverlaySink, error) {
	return nil, ErrNoWindow
}

// openCapture decodes video files through ffmpeg.
func openCapture(ctx context.Context, path string) (pipeline.FrameSource, float64, error) {
	src, err := NewFFmpegSource(ctx, path)
	if err != nil {
		return nil, 0, err
	}

	fps, err := ProbeFrameRate(ctx, path)
	if err != nil {
		log.Debug("frame rate unavailable", "path", path, "error", err)
		fps = 0
	}
	return src, fps, nil
}
