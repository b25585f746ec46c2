package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ironsheep/speedline/internal/log"
	"github.com/ironsheep/speedline/internal/speed"
)

// Run drives p over every frame of src until the source is exhausted, ctx is
// cancelled, or sink returns ErrStopRequested. All three are normal stops and
// yield a nil error.
//
// Each frame is fully processed, reported and shown before the next one is
// read. A nil sink runs headless and a nil rep discards measurements. Any
// other source, processing or sink error aborts the session; the summary of
// what was measured up to that point is still returned.
//
// Run does not close src or sink.
func Run(ctx context.Context, p *Processor, src FrameSource, sink OverlaySink, rep Reporter) (speed.Summary, error) {
	logger := log.With("component", "pipeline")
	start := time.Now()
	frames := 0

	finish := func(reason string) speed.Summary {
		summary := speed.Summarize(p.Measurements())
		logger.Info("session finished",
			"reason", reason,
			"frames", frames,
			"measurements", summary.Count,
			"mean_kmh", summary.MeanKMH,
			"elapsed", time.Since(start))
		return summary
	}

	logger.Info("session started")

	for {
		if ctx.Err() != nil {
			return finish("cancelled"), nil
		}

		f, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return finish("end of input"), nil
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				return finish("cancelled"), nil
			default:
				return finish("read error"), fmt.Errorf("failed to read frame: %w", err)
			}
		}
		frames++

		res, err := p.Process(f)
		if err != nil {
			return finish("bad frame"), err
		}

		if res.Measurement != nil && rep != nil {
			rep.Report(*res.Measurement)
		}

		if sink == nil {
			continue
		}
		if err := sink.Show(ctx, f, p.Overlay(f, res)); err != nil {
			switch {
			case errors.Is(err, ErrStopRequested):
				return finish("stop requested"), nil
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				return finish("cancelled"), nil
			}
			return finish("display error"), fmt.Errorf("failed to show frame %d: %w", f.Index, err)
		}
	}
}
