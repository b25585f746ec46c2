package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/speedline/internal/log"
	"github.com/ironsheep/speedline/internal/pipeline"
)

// FFmpegSource decodes a video file through a persistent ffmpeg process that
// writes one PNG per frame to its stdout.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr bytes.Buffer

	next      int
	closeOnce sync.Once
	closeErr  error
}

// NewFFmpegSource starts ffmpeg on path. The process is bound to ctx and is
// killed when ctx is cancelled or Close is called.
func NewFFmpegSource(ctx context.Context, path string) (*FFmpegSource, error) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	s := &FFmpegSource{}
	s.cmd = exec.CommandContext(ctx, bin,
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)
	s.cmd.Stderr = &s.stderr

	s.stdout, err = s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	s.reader = bufio.NewReaderSize(s.stdout, 1<<20)

	log.Debug("ffmpeg started", "path", path, "pid", s.cmd.Process.Pid)
	return s, nil
}

// Next decodes the next PNG from the stream. A clean end of stream yields
// io.EOF; a truncated image or a failed ffmpeg run is an error.
func (s *FFmpegSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}

	if _, err := s.reader.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			if werr := s.wait(); werr != nil {
				return pipeline.Frame{}, werr
			}
			return pipeline.Frame{}, io.EOF
		}
		return pipeline.Frame{}, fmt.Errorf("failed to read ffmpeg output: %w", err)
	}

	img, err := imaging.Decode(s.reader)
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("failed to decode frame %d: %w", s.next, err)
	}

	f := pipeline.Frame{Index: s.next, Image: img}
	s.next++
	return f, nil
}

// Close stops ffmpeg if it is still running and reaps it.
func (s *FFmpegSource) Close() error {
	s.closeOnce.Do(func() {
		s.stdout.Close()
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.cmd.Wait()
	})
	return nil
}

// wait reaps ffmpeg after its output has been drained.
func (s *FFmpegSource) wait() error {
	s.closeOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.closeErr
}

// ProbeFrameRate asks ffprobe for the average frame rate of the first video
// stream in path.
func ProbeFrameRate(ctx context.Context, path string) (float64, error) {
	bin, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	out, err := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", path, err)
	}

	return parseFrameRate(string(out))
}

// parseFrameRate parses ffprobe rates such as "30000/1001", "60/1" or "25".
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty frame rate")
	}

	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	d := 1.0
	if found {
		d, err = strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
		}
	}
	if n <= 0 || d <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n / d, nil
}
