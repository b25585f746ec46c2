// Package detection restricts an edge map to the camera's region of interest
// and decides, frame by frame, whether something is crossing the detection line.
//
// # Region of Interest
//
// The ROI is a quadrilateral whose vertices are given as absolute pixel columns
// and fractions of the frame height (see Geometry). It is resolved against the
// frame size on every call; nothing is calibrated per video. Pixels outside the
// polygon are zeroed with a filled-polygon mask, and vertices that fall outside
// the frame are clipped, so the mask never exceeds the frame.
//
// # Detection Line
//
// The detection line is a single pixel row at the midpoint of the band between
// LineTopFrac·H and the frame bottom. Its rendered x-bounds are taken from two
// ROI vertices and are deliberately not clipped to the polygon; the crossing
// test itself examines the whole row of the masked map.
//
// # Crossing Events
//
// IsCrossing is level-sensitive: it is true on every frame in which an edge
// pixel sits on the line. Trigger converts that level signal into events,
// either on every crossing frame (TriggerLevel) or on rising transitions with
// an optional frame cooldown (TriggerEdge).
//
// # Calibration
//
// FindSegments runs a Hough transform over an edge map and reports the
// straight segments in it. Run over the masked map it shows whether the
// painted strips actually fall inside the configured region.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
