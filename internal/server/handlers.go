package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/speedline/internal/config"
	"github.com/ironsheep/speedline/internal/detection"
	"github.com/ironsheep/speedline/internal/imaging"
	"github.com/ironsheep/speedline/internal/log"
	"github.com/ironsheep/speedline/internal/pipeline"
	"github.com/ironsheep/speedline/internal/speed"
	"github.com/ironsheep/speedline/internal/video"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "speed_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_dimensions":
		return s.handleImageDimensions(args)

	case "speed_geometry":
		return s.handleSpeedGeometry(args)
	case "speed_edges":
		return s.handleSpeedEdges(args)
	case "speed_detect":
		return s.handleSpeedDetect(args)
	case "speed_strips":
		return s.handleSpeedStrips(args)
	case "speed_analyze":
		return s.handleSpeedAnalyze(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating a missing object as empty.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Image Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Speed Handlers ===

type speedGeometryArgs struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleSpeedGeometry(args json.RawMessage) (interface{}, error) {
	var a speedGeometryArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("width and height must be positive, got %dx%d", a.Width, a.Height)
	}
	return s.cfg.GetGeometry().Resolve(a.Width, a.Height), nil
}

type speedEdgesArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleSpeedEdges(args json.RawMessage) (interface{}, error) {
	var a speedEdgesArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = s.cfg.GetCannyLow()
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = s.cfg.GetCannyHigh()
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}

type speedDetectArgs struct {
	Path           string  `json:"path"`
	IncludeOverlay bool    `json:"include_overlay"`
	PreviewScale   float64 `json:"preview_scale"`
}

// DetectResult describes a single frame run through the detection chain.
type DetectResult struct {
	Width            int              `json:"width"`
	Height           int              `json:"height"`
	Region           detection.Region `json:"region"`
	EdgePixels       int              `json:"edge_pixels"`
	MaskedEdgePixels int              `json:"masked_edge_pixels"`
	Crossing         bool             `json:"crossing"`
	OverlayBase64    string           `json:"overlay_base64,omitempty"`
	MimeType         string           `json:"mime_type,omitempty"`
}

func (s *Server) handleSpeedDetect(args json.RawMessage) (interface{}, error) {
	var a speedDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	opts, err := s.cfg.Options()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewProcessor(opts)
	if err != nil {
		return nil, err
	}

	frame := pipeline.Frame{Index: 0, Image: img}
	res, err := p.Process(frame)
	if err != nil {
		return nil, err
	}

	out := &DetectResult{
		Width:            res.Region.Width,
		Height:           res.Region.Height,
		Region:           res.Region,
		EdgePixels:       imaging.CountEdgePixels(res.Edges),
		MaskedEdgePixels: imaging.CountEdgePixels(res.Masked),
		Crossing:         res.Crossing,
	}

	if a.IncludeOverlay {
		preview := imaging.ScalePreview(p.Overlay(frame, res), a.PreviewScale)
		encoded, err := imaging.EncodePNGBase64(preview)
		if err != nil {
			return nil, fmt.Errorf("failed to encode overlay: %w", err)
		}
		out.OverlayBase64 = encoded
		out.MimeType = "image/png"
	}

	return out, nil
}

type speedStripsArgs struct {
	Path        string `json:"path"`
	MinLength   int    `json:"min_length"`
	MaxSegments int    `json:"max_segments"`
	Unmasked    bool   `json:"unmasked"`
}

// StripsResult lists straight segments found in a frame's edge map.
type StripsResult struct {
	Region   detection.Region    `json:"region"`
	Masked   bool                `json:"masked"`
	Segments []detection.Segment `json:"segments"`
	Count    int                 `json:"count"`
}

func (s *Server) handleSpeedStrips(args json.RawMessage) (interface{}, error) {
	a := speedStripsArgs{MinLength: 40, MaxSegments: 10}
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	edges := imaging.ExtractEdges(img, s.cfg.GetCannyLow(), s.cfg.GetCannyHigh())
	masked, region := detection.ApplyROIAndLine(edges, s.cfg.GetGeometry())
	search := masked
	if a.Unmasked {
		search = edges
	}

	segments := detection.FindSegments(search, a.MinLength, a.MaxSegments)
	if segments == nil {
		segments = []detection.Segment{}
	}
	return &StripsResult{
		Region:   region,
		Masked:   !a.Unmasked,
		Segments: segments,
		Count:    len(segments),
	}, nil
}

type speedAnalyzeArgs struct {
	Path        string  `json:"path"`
	ConfigPath  string  `json:"config_path"`
	OverlayDir  string  `json:"overlay_dir"`
	Clock       string  `json:"clock"`
	FrameRate   float64 `json:"frame_rate"`
	Distance    float64 `json:"distance"`
	Trigger     string  `json:"trigger"`
	MaxInterval string  `json:"max_interval"`
}

// AnalyzeResult is the outcome of a full pipeline run.
type AnalyzeResult struct {
	Frames       int                 `json:"frames"`
	FrameRate    float64             `json:"frame_rate"`
	Clock        speed.ClockMode     `json:"clock"`
	Measurements []speed.Measurement `json:"measurements"`
	Summary      speed.Summary       `json:"summary"`
	OverlayDir   string              `json:"overlay_dir,omitempty"`
	Elapsed      string              `json:"elapsed"`
}

func (s *Server) handleSpeedAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a speedAnalyzeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	cfg := *s.cfg
	if a.ConfigPath != "" {
		loaded, err := config.Load(a.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	cfg.Apply(config.Overrides{
		Distance:    a.Distance,
		FrameRate:   a.FrameRate,
		Clock:       a.Clock,
		Trigger:     a.Trigger,
		MaxInterval: a.MaxInterval,
	})

	src, fps, err := video.Open(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	cfg.UseDetectedFrameRate(fps)

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewProcessor(opts)
	if err != nil {
		return nil, err
	}

	var sink pipeline.OverlaySink
	if a.OverlayDir != "" {
		pngSink, err := video.NewPNGSink(a.OverlayDir, 0)
		if err != nil {
			return nil, err
		}
		defer pngSink.Close()
		sink = pngSink
	}

	counted := &countingSource{FrameSource: src}
	start := time.Now()
	summary, err := pipeline.Run(ctx, p, counted, sink, nil)
	if err != nil {
		return nil, err
	}

	return &AnalyzeResult{
		Frames:       counted.n,
		FrameRate:    cfg.GetFrameRate(),
		Clock:        cfg.GetClock(),
		Measurements: p.Measurements(),
		Summary:      summary,
		OverlayDir:   a.OverlayDir,
		Elapsed:      time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

// countingSource counts the frames successfully read from a source.
type countingSource struct {
	pipeline.FrameSource
	n int
}

func (c *countingSource) Next(ctx context.Context) (pipeline.Frame, error) {
	f, err := c.FrameSource.Next(ctx)
	if err == nil {
		c.n++
	}
	return f, err
}
