package detection

import (
	"image"
	"math"
	"sort"
)

// Segment is a straight run of edge pixels, such as a painted strip seen
// through the region of interest.
type Segment struct {
	Start        Point   `json:"start"`
	End          Point   `json:"end"`
	Length       float64 `json:"length"`
	AngleDegrees float64 `json:"angle_degrees"`
	Votes        int     `json:"votes"`
}

// houghAngles is the angular resolution of the accumulator, one bin per degree.
const houghAngles = 180

// FindSegments locates straight segments in a binary edge map with a Hough
// transform. Segments shorter than minLength pixels are dropped and at most
// maxSegments are returned, strongest first. Start is always the left end.
//
// It is a calibration aid: running it on the masked map shows whether the
// strips actually fall inside the configured region.
func FindSegments(edges *image.Gray, minLength, maxSegments int) []Segment {
	b := edges.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 || maxSegments <= 0 {
		return nil
	}
	if minLength < 2 {
		minLength = 2
	}

	var points []Point
	for y := 0; y < height; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+width]
		for x, v := range row {
			if v != 0 {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	if len(points) < minLength {
		return nil
	}

	cosT := make([]float64, houghAngles)
	sinT := make([]float64, houghAngles)
	for t := 0; t < houghAngles; t++ {
		angle := float64(t) * math.Pi / houghAngles
		cosT[t] = math.Cos(angle)
		sinT[t] = math.Sin(angle)
	}

	// rho ranges over [-maxDist, maxDist]
	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	rhoBins := 2*maxDist + 1
	acc := make([]int, rhoBins*houghAngles)
	for _, p := range points {
		for t := 0; t < houghAngles; t++ {
			rho := int(math.Round(float64(p.X)*cosT[t]+float64(p.Y)*sinT[t])) + maxDist
			acc[rho*houghAngles+t]++
		}
	}

	type peak struct {
		rho, theta, votes int
	}
	var peaks []peak
	threshold := minLength / 2
	for r := 0; r < rhoBins; r++ {
		for t := 0; t < houghAngles; t++ {
			votes := acc[r*houghAngles+t]
			if votes < threshold || !isLocalMax(acc, rhoBins, r, t) {
				continue
			}
			peaks = append(peaks, peak{rho: r - maxDist, theta: t, votes: votes})
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	var (
		segments []Segment
		accepted []peak
	)
	for _, pk := range peaks {
		if len(segments) >= maxSegments {
			break
		}
		duplicate := false
		for _, a := range accepted {
			if sameLine(a.rho, a.theta, pk.rho, pk.theta) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		seg, ok := traceSegment(points, pk.rho, cosT[pk.theta], sinT[pk.theta], minLength)
		if !ok {
			continue
		}
		accepted = append(accepted, pk)
		seg.Votes = pk.votes
		seg.Start = Point{X: seg.Start.X + b.Min.X, Y: seg.Start.Y + b.Min.Y}
		seg.End = Point{X: seg.End.X + b.Min.X, Y: seg.End.Y + b.Min.Y}
		segments = append(segments, seg)
	}
	return segments
}

// isLocalMax reports whether bin (r, t) is not exceeded by any bin in its
// 5x5 neighborhood. Theta wraps around, and (rho, theta) at the wrap is the
// same line as (-rho, theta-180).
func isLocalMax(acc []int, rhoBins, r, t int) bool {
	v := acc[r*houghAngles+t]
	for dr := -2; dr <= 2; dr++ {
		for dt := -2; dt <= 2; dt++ {
			if dr == 0 && dt == 0 {
				continue
			}
			nr, nt := r+dr, t+dt
			if nt < 0 || nt >= houghAngles {
				nt = (nt + houghAngles) % houghAngles
				nr = rhoBins - 1 - nr
			}
			if nr < 0 || nr >= rhoBins {
				continue
			}
			if acc[nr*houghAngles+nt] > v {
				return false
			}
		}
	}
	return true
}

// sameLine reports whether two accumulator peaks describe nearly the same line.
func sameLine(rho1, theta1, rho2, theta2 int) bool {
	if abs(rho1-rho2) <= 3 && abs(theta1-theta2) <= 3 {
		return true
	}
	return abs(rho1+rho2) <= 3 && houghAngles-abs(theta1-theta2) <= 3
}

// traceSegment gathers the edge points within 2px of the line
// x·cos + y·sin = rho and returns the extent of them along the line.
func traceSegment(points []Point, rho int, cosA, sinA float64, minLength int) (Segment, bool) {
	var (
		start, end Point
		minT       = math.MaxFloat64
		maxT       = -math.MaxFloat64
		n          int
	)
	for _, p := range points {
		x, y := float64(p.X), float64(p.Y)
		if math.Abs(x*cosA+y*sinA-float64(rho)) >= 2 {
			continue
		}
		n++
		// position along the line direction (-sin, cos)
		along := -x*sinA + y*cosA
		if along < minT {
			minT, start = along, p
		}
		if along > maxT {
			maxT, end = along, p
		}
	}
	if n < minLength {
		return Segment{}, false
	}

	if end.X < start.X || (end.X == start.X && end.Y < start.Y) {
		start, end = end, start
	}
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length < float64(minLength) {
		return Segment{}, false
	}

	return Segment{
		Start:        start,
		End:          end,
		Length:       math.Round(length*10) / 10,
		AngleDegrees: math.Round(math.Atan2(dy, dx)*180/math.Pi*10) / 10,
	}, true
}
