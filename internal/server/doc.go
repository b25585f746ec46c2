// Package server implements the MCP (Model Context Protocol) server that
// exposes the speedline pipeline as tools.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_dimensions: Get width and height of a frame image
//   - speed_geometry: Resolve the ROI polygon and detection line for a frame size
//   - speed_edges: Canny edge map of a frame
//   - speed_detect: Crossing test on a single frame, with optional overlay
//   - speed_strips: Straight segments in the edge map, for checking ROI placement
//   - speed_analyze: Full measurement run over a video or frame directory
//
// Tools default to the configuration the server was created with;
// speed_analyze accepts per-call overrides.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
package server
