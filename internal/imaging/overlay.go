package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OverlayStyle controls how Composite renders the edge tint, the detection
// line and the label.
type OverlayStyle struct {
	// EdgeColor is painted on every edge pixel of the tint layer.
	EdgeColor color.RGBA

	// LineColor is used for the detection line segment.
	LineColor color.RGBA

	// LineThickness is the segment thickness in pixels. Values below 1 are
	// treated as 1.
	LineThickness int

	// Opacity is the weight of the tint layer; the frame gets 1-Opacity.
	Opacity float64
}

// DefaultOverlayStyle returns red edges blended at 20% and a 2px green line.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		EdgeColor:     color.RGBA{R: 255, A: 255},
		LineColor:     color.RGBA{G: 255, A: 255},
		LineThickness: 2,
		Opacity:       0.2,
	}
}

// Segment is a horizontal line from (X1,Y) to (X2,Y), both ends inclusive.
type Segment struct {
	X1 int
	X2 int
	Y  int
}

// Composite renders the display overlay for one frame.
//
// The masked edge map is turned into a tint layer (EdgeColor on edge pixels,
// black elsewhere) and blended over the frame with weight style.Opacity, so
// non-edge pixels come out darkened to 1-Opacity of their original value.
// The segment is then drawn on top, followed by label when it is non-empty.
// The result has its origin at (0,0); frame is not modified.
func Composite(frame image.Image, masked *image.Gray, seg Segment, style OverlayStyle, label string) *image.RGBA {
	base := imaging.Clone(frame)
	bounds := base.Bounds()

	tint := image.NewRGBA(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.RGBA{A: 255}
			if masked != nil && edgeAt(masked, x, y) {
				c = style.EdgeColor
				c.A = 255
			}
			tint.SetRGBA(x, y, c)
		}
	}

	out := blend.Opacity(base, tint, style.Opacity)
	drawSegment(out, seg, style.LineColor, style.LineThickness)

	if label != "" {
		drawLabel(out, 6, 6, label)
	}
	return out
}

// edgeAt reports whether the edge map has a set pixel at (x,y) relative to
// its own origin. Points outside the map are not edges.
func edgeAt(m *image.Gray, x, y int) bool {
	p := image.Pt(m.Rect.Min.X+x, m.Rect.Min.Y+y)
	if !p.In(m.Rect) {
		return false
	}
	return m.Pix[m.PixOffset(p.X, p.Y)] != 0
}

// drawSegment paints a horizontal band of the given thickness centered on
// seg.Y, clipped to the image.
func drawSegment(img *image.RGBA, seg Segment, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	x1, x2 := seg.X1, seg.X2
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	top := seg.Y - thickness/2
	band := image.Rect(x1, top, x2+1, top+thickness).Intersect(img.Bounds())
	if band.Empty() {
		return
	}
	draw.Draw(img, band, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawLabel writes text with its top-left corner at (x,y) on a dark backing box.
func drawLabel(img *image.RGBA, x, y int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	width := d.MeasureString(text).Ceil()
	box := image.Rect(x-2, y-2, x+width+2, y+face.Height+2).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(color.RGBA{A: 200}), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y+face.Ascent)
	d.DrawString(text)
}
