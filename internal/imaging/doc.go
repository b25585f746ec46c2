// Package imaging provides the pixel-level stages of the speedline pipeline.
//
// It turns color frames into binary edge maps (ExtractEdges), renders the
// display overlay for a processed frame (Composite), and loads still frames
// from disk (ImageCache). All operations work with standard Go image.Image
// types and use a coordinate system where (0,0) is at the top-left corner,
// X increases rightward, and Y increases downward.
//
// # Edge Maps
//
// Edge maps are *image.Gray with their origin at (0,0) and the same width and
// height as the source frame. Pixels are either 255 (edge) or 0 (background).
// The Canny parameters default to a 5x5 Gaussian and hysteresis thresholds of
// 50/150.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. ExtractEdges and Composite
// are stateless and never modify their inputs, so they can be called
// concurrently on different frames.
package imaging
