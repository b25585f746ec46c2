package video

import (
	"context"
	"fmt"
	"os"

	"github.com/ironsheep/speedline/internal/pipeline"
)

// Open returns a FrameSource for path along with the frame rate it reports,
// or 0 when the rate is unknown.
//
// A directory is read as an image sequence. Anything else is treated as a
// video file, decoded through OpenCV in gocv builds and through ffmpeg
// otherwise.
func Open(ctx context.Context, path string) (pipeline.FrameSource, float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open input: %w", err)
	}

	if info.IsDir() {
		src, err := NewDirSource(path)
		if err != nil {
			return nil, 0, err
		}
		return src, 0, nil
	}

	return openCapture(ctx, path)
}
