package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/speedline/internal/detection"
	"github.com/ironsheep/speedline/internal/imaging"
	"github.com/ironsheep/speedline/internal/pipeline"
	"github.com/ironsheep/speedline/internal/speed"
)

// Default values for every key.
const (
	DefaultFrameRate      = 60.0
	DefaultClock          = speed.ClockWall
	DefaultTrigger        = detection.TriggerEdge
	DefaultEdgeColor      = "#FF0000"
	DefaultLineColor      = "#00FF00"
	DefaultLineThickness  = 2
	DefaultOverlayOpacity = 0.2
)

// maxFileSize bounds the config file size.
const maxFileSize = 1 * 1024 * 1024

// Config is the session configuration file. Every field is optional; the
// Get* methods fall back to defaults for anything left out, so a partial
// file is valid.
type Config struct {
	// Speed estimation
	DistanceBetweenStrips *float64 `json:"distance_between_strips_m,omitempty"`
	FrameRate             *float64 `json:"frame_rate,omitempty"`
	Clock                 *string  `json:"clock,omitempty"`       // "wall" or "frame"
	MaxInterval           *string  `json:"max_interval,omitempty"` // duration string like "2s"

	// Edge extraction
	CannyLow  *int `json:"canny_low,omitempty"`
	CannyHigh *int `json:"canny_high,omitempty"`

	// Region of interest and detection line
	ROI         *ROIConfig `json:"roi,omitempty"`
	LineTopFrac *float64   `json:"line_top_frac,omitempty"`

	// Crossing events
	Trigger        *string `json:"trigger,omitempty"` // "edge" or "level"
	CooldownFrames *int    `json:"cooldown_frames,omitempty"`

	// Overlay rendering
	EdgeColor      *string  `json:"edge_color,omitempty"`
	LineColor      *string  `json:"line_color,omitempty"`
	LineThickness  *int     `json:"line_thickness,omitempty"`
	OverlayOpacity *float64 `json:"overlay_opacity,omitempty"`
}

// ROIConfig overrides individual ROI anchors.
type ROIConfig struct {
	BaseOuter *detection.Anchor `json:"base_outer,omitempty"`
	ApexUpper *detection.Anchor `json:"apex_upper,omitempty"`
	ApexLower *detection.Anchor `json:"apex_lower,omitempty"`
	BaseInner *detection.Anchor `json:"base_inner,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Load reads a Config from a JSON file.
// The file must have a .json extension and be at most 1 MiB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.DistanceBetweenStrips != nil && *c.DistanceBetweenStrips <= 0 {
		return fmt.Errorf("distance_between_strips_m must be positive, got %f", *c.DistanceBetweenStrips)
	}
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.Clock != nil {
		switch speed.ClockMode(*c.Clock) {
		case speed.ClockWall, speed.ClockFrame:
		default:
			return fmt.Errorf("clock must be %q or %q, got %q", speed.ClockWall, speed.ClockFrame, *c.Clock)
		}
	}
	if c.MaxInterval != nil && *c.MaxInterval != "" {
		d, err := time.ParseDuration(*c.MaxInterval)
		if err != nil {
			return fmt.Errorf("invalid max_interval '%s': %w", *c.MaxInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("max_interval must not be negative, got %s", d)
		}
	}

	low, high := c.GetCannyLow(), c.GetCannyHigh()
	if low < 0 || high < low {
		return fmt.Errorf("canny_low/canny_high must satisfy 0 <= low <= high, got %d/%d", low, high)
	}

	if err := c.GetGeometry().Validate(); err != nil {
		return fmt.Errorf("roi: %w", err)
	}

	if c.Trigger != nil {
		if _, err := detection.ParseTriggerMode(*c.Trigger); err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
	}
	if c.CooldownFrames != nil && *c.CooldownFrames < 0 {
		return fmt.Errorf("cooldown_frames must be non-negative, got %d", *c.CooldownFrames)
	}

	if c.EdgeColor != nil {
		if _, err := imaging.ParseHexColor(*c.EdgeColor); err != nil {
			return fmt.Errorf("edge_color: %w", err)
		}
	}
	if c.LineColor != nil {
		if _, err := imaging.ParseHexColor(*c.LineColor); err != nil {
			return fmt.Errorf("line_color: %w", err)
		}
	}
	if c.LineThickness != nil && *c.LineThickness < 1 {
		return fmt.Errorf("line_thickness must be at least 1, got %d", *c.LineThickness)
	}
	if c.OverlayOpacity != nil && (*c.OverlayOpacity < 0 || *c.OverlayOpacity > 1) {
		return fmt.Errorf("overlay_opacity must be between 0 and 1, got %f", *c.OverlayOpacity)
	}

	return nil
}

// GetDistanceBetweenStrips returns the strip spacing in meters.
func (c *Config) GetDistanceBetweenStrips() float64 {
	if c.DistanceBetweenStrips == nil {
		return speed.DefaultDistance
	}
	return *c.DistanceBetweenStrips
}

// GetFrameRate returns the declared frame rate used by the frame clock.
func (c *Config) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return DefaultFrameRate
	}
	return *c.FrameRate
}

// GetClock returns the clock mode.
func (c *Config) GetClock() speed.ClockMode {
	if c.Clock == nil || *c.Clock == "" {
		return DefaultClock
	}
	return speed.ClockMode(*c.Clock)
}

// GetMaxInterval returns the speed timer timeout; 0 means never.
func (c *Config) GetMaxInterval() time.Duration {
	if c.MaxInterval == nil || *c.MaxInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.MaxInterval)
	if err != nil {
		return 0
	}
	return d
}

// GetCannyLow returns the low hysteresis threshold.
func (c *Config) GetCannyLow() int {
	if c.CannyLow == nil {
		return imaging.DefaultCannyLow
	}
	return *c.CannyLow
}

// GetCannyHigh returns the high hysteresis threshold.
func (c *Config) GetCannyHigh() int {
	if c.CannyHigh == nil {
		return imaging.DefaultCannyHigh
	}
	return *c.CannyHigh
}

// GetGeometry returns the default geometry with any configured anchors and
// line fraction applied on top.
func (c *Config) GetGeometry() detection.Geometry {
	g := detection.DefaultGeometry()
	if c.ROI != nil {
		if c.ROI.BaseOuter != nil {
			g.BaseOuter = *c.ROI.BaseOuter
		}
		if c.ROI.ApexUpper != nil {
			g.ApexUpper = *c.ROI.ApexUpper
		}
		if c.ROI.ApexLower != nil {
			g.ApexLower = *c.ROI.ApexLower
		}
		if c.ROI.BaseInner != nil {
			g.BaseInner = *c.ROI.BaseInner
		}
	}
	if c.LineTopFrac != nil {
		g.LineTopFrac = *c.LineTopFrac
	}
	return g
}

// GetTrigger returns the trigger mode.
func (c *Config) GetTrigger() detection.TriggerMode {
	if c.Trigger == nil || *c.Trigger == "" {
		return DefaultTrigger
	}
	return detection.TriggerMode(*c.Trigger)
}

// GetCooldownFrames returns the minimum frame gap between edge-mode events.
func (c *Config) GetCooldownFrames() int {
	if c.CooldownFrames == nil {
		return 0
	}
	return *c.CooldownFrames
}

// GetOverlayStyle returns the overlay colors, thickness and opacity.
// Unparseable colors fall back to the defaults.
func (c *Config) GetOverlayStyle() imaging.OverlayStyle {
	style := imaging.DefaultOverlayStyle()
	if c.EdgeColor != nil {
		if col, err := imaging.ParseHexColor(*c.EdgeColor); err == nil {
			style.EdgeColor = col
		}
	}
	if c.LineColor != nil {
		if col, err := imaging.ParseHexColor(*c.LineColor); err == nil {
			style.LineColor = col
		}
	}
	if c.LineThickness != nil {
		style.LineThickness = *c.LineThickness
	}
	if c.OverlayOpacity != nil {
		style.Opacity = *c.OverlayOpacity
	}
	return style
}

// Options builds pipeline options from the configuration.
func (c *Config) Options() (pipeline.Options, error) {
	if err := c.Validate(); err != nil {
		return pipeline.Options{}, err
	}

	clock, err := speed.NewClock(c.GetClock(), c.GetFrameRate())
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Geometry:  c.GetGeometry(),
		CannyLow:  c.GetCannyLow(),
		CannyHigh: c.GetCannyHigh(),
		Trigger:   c.GetTrigger(),
		Cooldown:  c.GetCooldownFrames(),
		Estimator: speed.Estimator{
			Distance:    c.GetDistanceBetweenStrips(),
			MaxInterval: c.GetMaxInterval(),
		},
		Clock: clock,
		Style: c.GetOverlayStyle(),
	}, nil
}

// UseDetectedFrameRate adopts the rate reported by the input when the file
// did not set one. Non-positive rates are ignored.
func (c *Config) UseDetectedFrameRate(fps float64) {
	if c.FrameRate == nil && fps > 0 {
		c.FrameRate = ptrFloat64(fps)
	}
}

// Overrides carries command-line values that take precedence over the file.
// Zero values leave the file setting in place.
type Overrides struct {
	Distance    float64
	FrameRate   float64
	Clock       string
	Trigger     string
	MaxInterval string
}

// Apply copies every non-zero override into c.
func (c *Config) Apply(o Overrides) {
	if o.Distance != 0 {
		c.DistanceBetweenStrips = ptrFloat64(o.Distance)
	}
	if o.FrameRate != 0 {
		c.FrameRate = ptrFloat64(o.FrameRate)
	}
	if o.Clock != "" {
		c.Clock = ptrString(o.Clock)
	}
	if o.Trigger != "" {
		c.Trigger = ptrString(o.Trigger)
	}
	if o.MaxInterval != "" {
		c.MaxInterval = ptrString(o.MaxInterval)
	}
}
