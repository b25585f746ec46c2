package video

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/speedline/internal/pipeline"
)

// PNGSink writes every overlay to Dir as overlay_NNNNNN.png, numbered by
// frame index.
type PNGSink struct {
	Dir string

	// Every keeps one overlay out of Every frames. Values below 2 keep all.
	Every int

	written int
}

// NewPNGSink creates dir if needed and returns a sink writing into it.
func NewPNGSink(dir string, every int) (*PNGSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create overlay directory: %w", err)
	}
	return &PNGSink{Dir: dir, Every: every}, nil
}

// Show saves the overlay for f.
func (s *PNGSink) Show(ctx context.Context, f pipeline.Frame, overlay image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Every > 1 && f.Index%s.Every != 0 {
		return nil
	}

	if err := imgio.Save(s.Path(f.Index), overlay, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	s.written++
	return nil
}

// Path returns the file an overlay for frame index is written to.
func (s *PNGSink) Path(index int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("overlay_%06d.png", index))
}

// Written returns the number of overlays saved so far.
func (s *PNGSink) Written() int {
	return s.written
}

// Close is a no-op.
func (s *PNGSink) Close() error {
	return nil
}
