package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema shared by every tool that takes an image path.
func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},

		// Calibration
		{
			Name:        "speed_geometry",
			Description: "Resolve the region of interest polygon and the detection line for a frame size, using the server's configured geometry.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Frame width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Frame height in pixels",
					},
				},
				"required": []string{"width", "height"},
			},
		},
		{
			Name:        "speed_edges",
			Description: "Run Canny edge extraction on a frame and return the binary edge map as base64-encoded PNG. White pixels are edges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the frame image"),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low hysteresis threshold. Default from config (50)",
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High hysteresis threshold. Default from config (150)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "speed_detect",
			Description: "Run one frame through edge extraction, ROI masking and the crossing test. Reports whether an edge sits on the detection line, and can return the rendered overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the frame image"),
					"include_overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the overlay (edges blended over the frame plus the detection line) as base64 PNG",
						"default":     false,
					},
					"preview_scale": map[string]interface{}{
						"type":        "number",
						"description": "Shrink the overlay by this factor, between 0 and 1. Default full size",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "speed_strips",
			Description: "Find straight segments (such as the painted strips) in a frame's edge map. By default only the region of interest is searched, which shows whether the configured ROI actually covers the strips.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the frame image"),
					"min_length": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum segment length in pixels. Default: 40",
						"default":     40,
					},
					"max_segments": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of segments returned, strongest first. Default: 10",
						"default":     10,
					},
					"unmasked": map[string]interface{}{
						"type":        "boolean",
						"description": "Search the whole frame instead of the region of interest",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name:        "speed_analyze",
			Description: "Measure speeds over a whole input: a video file or a directory of frame images. Returns every measurement and a session summary.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty("Absolute path to a video file or a directory of frames"),
					"config_path": pathProperty("Optional JSON config file replacing the server's config"),
					"overlay_dir": pathProperty("Optional directory to write overlay PNGs into"),
					"clock": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"wall", "frame"},
						"description": "Timestamp source for crossings. 'frame' derives time from the frame index and frame rate",
					},
					"frame_rate": map[string]interface{}{
						"type":        "number",
						"description": "Frame rate for the frame clock. Default: detected from the video, else config",
					},
					"distance": map[string]interface{}{
						"type":        "number",
						"description": "Distance between strips in meters",
					},
					"trigger": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"edge", "level"},
						"description": "'edge' counts a crossing when the line becomes occupied, 'level' on every occupied frame",
					},
					"max_interval": map[string]interface{}{
						"type":        "string",
						"description": "Discard a crossing baseline older than this duration, e.g. \"2s\"",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
