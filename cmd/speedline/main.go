package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/speedline/internal/config"
	"github.com/ironsheep/speedline/internal/log"
	"github.com/ironsheep/speedline/internal/pipeline"
	"github.com/ironsheep/speedline/internal/server"
	"github.com/ironsheep/speedline/internal/speed"
	"github.com/ironsheep/speedline/internal/video"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("speedline %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage(os.Stdout)
			return
		case "serve":
			os.Exit(runServe(os.Args[2:]))
		}
	}

	os.Exit(runMeasure(os.Args[1:]))
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "speedline - measure vehicle speed from a fixed camera watching two road strips")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  speedline [options] <video file | frame directory>")
	fmt.Fprintln(w, "  speedline serve [-config file] [-log-level level]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Measure options:")
	fmt.Fprintln(w, "  -config file         JSON configuration (see config/speedline.defaults.json)")
	fmt.Fprintln(w, "  -distance m          Distance between the strips in meters")
	fmt.Fprintln(w, "  -clock wall|frame    Timestamp source for crossings")
	fmt.Fprintln(w, "  -frame-rate fps      Frame rate for the frame clock")
	fmt.Fprintln(w, "  -trigger edge|level  When an occupied detection line counts as a crossing")
	fmt.Fprintln(w, "  -max-interval d      Discard crossing baselines older than d (e.g. 2s)")
	fmt.Fprintln(w, "  -overlay-dir dir     Write overlay PNGs into dir")
	fmt.Fprintln(w, "  -overlay-every n     Keep one overlay out of n frames")
	fmt.Fprintln(w, "  -window              Show overlays in a window (gocv builds only); press q to stop")
	fmt.Fprintln(w, "  -log-level level     debug, info, warn or error")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Other commands:")
	fmt.Fprintln(w, "  serve                Run as an MCP server over stdin/stdout")
	fmt.Fprintln(w, "  --version, -v        Print version information")
	fmt.Fprintln(w, "  --help, -h           Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SPEEDLINE_LOG_LEVEL=debug    Default log level")
	fmt.Fprintln(w, "  SPEEDLINE_LOG_FORMAT=json    Log as JSON records")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON configuration file")
	logLevel := fs.String("log-level", os.Getenv("SPEEDLINE_LOG_LEVEL"), "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.Init(*logLevel)
	log.Info("speedline MCP server starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Version = Version
	if err := server.New(cfg).Run(ctx); err != nil {
		log.Error("server error", "error", err)
		return 1
	}
	return 0
}

func runMeasure(args []string) int {
	fs := flag.NewFlagSet("speedline", flag.ContinueOnError)
	fs.Usage = func() { printUsage(os.Stderr) }

	configPath := fs.String("config", "", "JSON configuration file")
	distance := fs.Float64("distance", 0, "distance between strips in meters")
	clock := fs.String("clock", "", "timestamp source: wall or frame")
	frameRate := fs.Float64("frame-rate", 0, "frame rate for the frame clock")
	trigger := fs.String("trigger", "", "crossing trigger: edge or level")
	maxInterval := fs.String("max-interval", "", "maximum interval between crossings")
	overlayDir := fs.String("overlay-dir", "", "directory for overlay PNGs")
	overlayEvery := fs.Int("overlay-every", 1, "keep one overlay out of n frames")
	window := fs.Bool("window", false, "show overlays in a window")
	logLevel := fs.String("log-level", os.Getenv("SPEEDLINE_LOG_LEVEL"), "log level")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		printUsage(os.Stderr)
		return 2
	}
	input := fs.Arg(0)

	log.Init(*logLevel)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		return 1
	}
	cfg.Apply(config.Overrides{
		Distance:    *distance,
		FrameRate:   *frameRate,
		Clock:       *clock,
		Trigger:     *trigger,
		MaxInterval: *maxInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := measure(ctx, cfg, input, *overlayDir, *overlayEvery, *window)
	if err != nil {
		log.Error("measurement failed", "input", input, "error", err)
		return 1
	}

	printSummary(os.Stdout, summary)
	return 0
}

func measure(ctx context.Context, cfg *config.Config, input, overlayDir string, overlayEvery int, window bool) (speed.Summary, error) {
	src, fps, err := video.Open(ctx, input)
	if err != nil {
		return speed.Summary{}, err
	}
	defer src.Close()
	cfg.UseDetectedFrameRate(fps)

	opts, err := cfg.Options()
	if err != nil {
		return speed.Summary{}, err
	}
	p, err := pipeline.NewProcessor(opts)
	if err != nil {
		return speed.Summary{}, err
	}

	var sinks pipeline.MultiSink
	if overlayDir != "" {
		pngSink, err := video.NewPNGSink(overlayDir, overlayEvery)
		if err != nil {
			return speed.Summary{}, err
		}
		sinks = append(sinks, pngSink)
	}
	if window {
		w, err := video.NewWindowSink("speedline")
		if err != nil {
			return speed.Summary{}, err
		}
		sinks = append(sinks, w)
	}
	defer sinks.Close()

	log.Info("measuring",
		"input", input,
		"clock", cfg.GetClock(),
		"frame_rate", cfg.GetFrameRate(),
		"distance_m", cfg.GetDistanceBetweenStrips(),
		"trigger", cfg.GetTrigger())

	var sink pipeline.OverlaySink
	if len(sinks) > 0 {
		sink = sinks
	}
	return pipeline.Run(ctx, p, src, sink, pipeline.TextReporter{W: os.Stdout})
}

func printSummary(w io.Writer, s speed.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "No measurements.")
		return
	}
	fmt.Fprintf(w, "\n%d measurements\n", s.Count)
	fmt.Fprintf(w, "  mean   %.2f km/h (stddev %.2f)\n", s.MeanKMH, s.StdDevKMH)
	fmt.Fprintf(w, "  median %.2f km/h\n", s.MedianKMH)
	fmt.Fprintf(w, "  p85    %.2f km/h\n", s.P85KMH)
	fmt.Fprintf(w, "  range  %.2f - %.2f km/h\n", s.MinKMH, s.MaxKMH)
}
