package detection

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Anchor is one vertex of the region of interest.
//
// X is an absolute pixel column. YFrac is a fraction of the frame height, so
// 1.0 places the vertex on the row just below the last pixel row. Resolved
// rows are truncated toward zero.
type Anchor struct {
	X     int     `json:"x"`
	YFrac float64 `json:"y_frac"`
}

// Geometry describes the fixed camera framing: a quadrilateral ROI and the
// vertical fraction used to place the detection line.
//
// The polygon is filled in the order BaseOuter, ApexUpper, ApexLower, BaseInner.
// For the default framing the two base vertices sit on the bottom edge of the
// frame and the two apex vertices sit on a vertical at x=700.
type Geometry struct {
	// BaseOuter is the outer vertex on the bottom edge (default 25, H).
	BaseOuter Anchor `json:"base_outer"`

	// ApexUpper is the upper apex vertex (default 700, 0.73·H).
	ApexUpper Anchor `json:"apex_upper"`

	// ApexLower is the lower apex vertex (default 700, 0.79·H).
	ApexLower Anchor `json:"apex_lower"`

	// BaseInner is the inner vertex on the bottom edge (default 450, H).
	BaseInner Anchor `json:"base_inner"`

	// LineTopFrac is the top of the band whose midpoint becomes the
	// detection line; the band always ends at the frame bottom (default 0.7).
	LineTopFrac float64 `json:"line_top_frac"`
}

// DefaultGeometry returns the framing of the reference strip camera.
func DefaultGeometry() Geometry {
	return Geometry{
		BaseOuter:   Anchor{X: 25, YFrac: 1.0},
		ApexUpper:   Anchor{X: 700, YFrac: 0.73},
		ApexLower:   Anchor{X: 700, YFrac: 0.79},
		BaseInner:   Anchor{X: 450, YFrac: 1.0},
		LineTopFrac: 0.7,
	}
}

// Validate checks that the geometry can produce a valid detection line.
func (g Geometry) Validate() error {
	for name, a := range map[string]Anchor{
		"base_outer": g.BaseOuter,
		"apex_upper": g.ApexUpper,
		"apex_lower": g.ApexLower,
		"base_inner": g.BaseInner,
	} {
		if a.YFrac < 0 || a.YFrac > 1 || math.IsNaN(a.YFrac) {
			return fmt.Errorf("%s.y_frac must be between 0 and 1, got %f", name, a.YFrac)
		}
	}
	if g.LineTopFrac < 0 || g.LineTopFrac >= 1 || math.IsNaN(g.LineTopFrac) {
		return fmt.Errorf("line_top_frac must be in [0, 1), got %f", g.LineTopFrac)
	}
	if g.BaseInner.X >= g.ApexUpper.X {
		return fmt.Errorf("detection line needs base_inner.x < apex_upper.x, got %d >= %d",
			g.BaseInner.X, g.ApexUpper.X)
	}
	return nil
}

// DetectionLine is the horizontal trigger row plus the x-bounds used when
// rendering it.
//
// XStart and XEnd come straight from two ROI vertices (BaseInner.X and
// ApexUpper.X) and are not the row's true intersection with the ROI. They
// only affect the drawn segment; the crossing test scans the whole row.
type DetectionLine struct {
	Y      int `json:"y"`
	XStart int `json:"x_start"`
	XEnd   int `json:"x_end"`
}

// Region is a Geometry resolved against concrete frame dimensions.
type Region struct {
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Polygon []Point       `json:"polygon"`
	Line    DetectionLine `json:"line"`
}

// Resolve computes the ROI polygon and detection line for a width×height frame.
//
// The line row is (top + H) / 2 with top = trunc(LineTopFrac·H), using integer
// division. For any H >= 1 and LineTopFrac in [0, 1) this lands in [0, H).
func (g Geometry) Resolve(width, height int) Region {
	resolve := func(a Anchor) Point {
		return Point{X: a.X, Y: int(float64(height) * a.YFrac)}
	}

	topY := int(float64(height) * g.LineTopFrac)
	lineY := (topY + height) / 2
	if lineY >= height {
		lineY = height - 1
	}
	if lineY < 0 {
		lineY = 0
	}

	return Region{
		Width:  width,
		Height: height,
		Polygon: []Point{
			resolve(g.BaseOuter),
			resolve(g.ApexUpper),
			resolve(g.ApexLower),
			resolve(g.BaseInner),
		},
		Line: DetectionLine{
			Y:      lineY,
			XStart: g.BaseInner.X,
			XEnd:   g.ApexUpper.X,
		},
	}
}

// ApplyROIAndLine zeroes every edge pixel outside the ROI and returns the
// masked map together with the resolved region.
//
// The input is not modified. The output has the same bounds as the input and
// each output pixel is the bitwise AND of the edge pixel and the polygon mask,
// so masking can only remove edge pixels. ROI vertices outside the frame are
// clipped silently.
func ApplyROIAndLine(edges *image.Gray, g Geometry) (*image.Gray, Region) {
	b := edges.Bounds()
	region := g.Resolve(b.Dx(), b.Dy())

	mask := PolygonMask(b.Dx(), b.Dy(), region.Polygon)
	masked := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		src := edges.Pix[edges.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := masked.Pix[masked.PixOffset(b.Min.X, b.Min.Y+y):]
		m := mask.Pix[mask.PixOffset(0, y):]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x] & m[x]
		}
	}

	return masked, region
}

// PolygonMask rasterizes a filled polygon into a width×height mask where
// covered pixels are 255 and everything else is 0.
//
// Interior spans use an even-odd scanline fill; the polygon outline is drawn
// as well so boundary pixels are always covered. All writes are clipped to
// the mask, whatever the vertex values.
func PolygonMask(width, height int, poly []Point) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	if len(poly) < 3 || width <= 0 || height <= 0 {
		return mask
	}

	minY, maxY := poly[0].Y, poly[0].Y
	for _, p := range poly[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	minY = max(minY, 0)
	maxY = min(maxY, height-1)

	xs := make([]float64, 0, len(poly))
	for y := minY; y <= maxY; y++ {
		fy := float64(y)
		xs = xs[:0]
		for i := range poly {
			p, q := poly[i], poly[(i+1)%len(poly)]
			if p.Y == q.Y {
				continue
			}
			if p.Y > q.Y {
				p, q = q, p
			}
			// Half-open in y so shared vertices are counted once.
			if fy < float64(p.Y) || fy >= float64(q.Y) {
				continue
			}
			xs = append(xs, float64(p.X)+(fy-float64(p.Y))*float64(q.X-p.X)/float64(q.Y-p.Y))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			fillSpan(mask, y, int(math.Ceil(xs[i])), int(math.Floor(xs[i+1])))
		}
	}

	for i := range poly {
		drawSegment(mask, poly[i], poly[(i+1)%len(poly)])
	}

	return mask
}

// fillSpan sets mask pixels [x1, x2] on row y, clipped to the mask width.
func fillSpan(mask *image.Gray, y, x1, x2 int) {
	w := mask.Rect.Dx()
	x1 = max(x1, 0)
	x2 = min(x2, w-1)
	if x1 > x2 {
		return
	}
	row := mask.Pix[y*mask.Stride:]
	for x := x1; x <= x2; x++ {
		row[x] = 255
	}
}

// drawSegment rasterizes a 1-pixel segment with Bresenham's algorithm,
// skipping points outside the mask.
func drawSegment(mask *image.Gray, a, b Point) {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		if x >= 0 && x < w && y >= 0 && y < h {
			mask.Pix[y*mask.Stride+x] = 255
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
