package video

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/speedline/internal/pipeline"
)

// frameExtensions are the still-image formats accepted in a frame directory.
var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// DirSource serves an image sequence from a directory, one file per frame,
// in lexical filename order. Zero-padded names ("frame_000123.png") sort
// correctly.
type DirSource struct {
	paths []string
	next  int
}

// NewDirSource lists the frame files in dir. A directory without any
// recognised image file is an error.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

// Len returns the number of frames in the sequence.
func (s *DirSource) Len() int {
	return len(s.paths)
}

// Next decodes the next file. It returns io.EOF after the last one.
func (s *DirSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	if s.next >= len(s.paths) {
		return pipeline.Frame{}, io.EOF
	}

	path := s.paths[s.next]
	img, err := imaging.Open(path)
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	f := pipeline.Frame{Index: s.next, Image: img}
	s.next++
	return f, nil
}

// Close is a no-op; files are opened and closed per frame.
func (s *DirSource) Close() error {
	return nil
}
