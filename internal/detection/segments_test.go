package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawRun marks n edge pixels starting at (x, y) and stepping by (dx, dy).
func drawRun(img *image.Gray, x, y, dx, dy, n int) {
	for i := 0; i < n; i++ {
		img.SetGray(x+i*dx, y+i*dy, color.Gray{Y: 255})
	}
}

func TestFindSegments_Horizontal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	drawRun(img, 10, 50, 1, 0, 81)

	segs := FindSegments(img, 40, 10)
	require.Len(t, segs, 1)

	s := segs[0]
	assert.Equal(t, Point{X: 10, Y: 50}, s.Start)
	assert.Equal(t, Point{X: 90, Y: 50}, s.End)
	assert.Equal(t, 80.0, s.Length)
	assert.Equal(t, 0.0, s.AngleDegrees)
	assert.Equal(t, 81, s.Votes)
}

func TestFindSegments_Diagonal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	drawRun(img, 10, 10, 1, 1, 70)

	segs := FindSegments(img, 40, 10)
	require.Len(t, segs, 1)

	s := segs[0]
	assert.Equal(t, Point{X: 10, Y: 10}, s.Start)
	assert.Equal(t, Point{X: 79, Y: 79}, s.End)
	assert.InDelta(t, 97.6, s.Length, 0.05)
	assert.Equal(t, 45.0, s.AngleDegrees)
}

func TestFindSegments_TwoStrips(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	drawRun(img, 10, 20, 1, 0, 81)
	drawRun(img, 10, 70, 1, 0, 61)

	segs := FindSegments(img, 40, 10)
	require.Len(t, segs, 2)

	// strongest first
	assert.Equal(t, 20, segs[0].Start.Y)
	assert.Equal(t, 70, segs[1].Start.Y)
	assert.Greater(t, segs[0].Votes, segs[1].Votes)

	assert.Len(t, FindSegments(img, 40, 1), 1)
}

func TestFindSegments_ShortRunsIgnored(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	drawRun(img, 10, 50, 1, 0, 20)

	assert.Empty(t, FindSegments(img, 40, 10))
}

func TestFindSegments_Empty(t *testing.T) {
	assert.Empty(t, FindSegments(image.NewGray(image.Rect(0, 0, 50, 50)), 10, 10))
	assert.Empty(t, FindSegments(image.NewGray(image.Rect(0, 0, 0, 0)), 10, 10))

	img := image.NewGray(image.Rect(0, 0, 100, 100))
	drawRun(img, 10, 50, 1, 0, 81)
	assert.Empty(t, FindSegments(img, 40, 0))
}

func TestFindSegments_NonZeroOrigin(t *testing.T) {
	img := image.NewGray(image.Rect(200, 300, 300, 400))
	drawRun(img, 210, 350, 1, 0, 81)

	segs := FindSegments(img, 40, 10)
	require.Len(t, segs, 1)
	assert.Equal(t, Point{X: 210, Y: 350}, segs[0].Start)
	assert.Equal(t, Point{X: 290, Y: 350}, segs[0].End)
}

func TestFindSegments_VerticalNotDuplicated(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	drawRun(img, 50, 10, 0, 1, 81)

	segs := FindSegments(img, 40, 10)
	require.Len(t, segs, 1)
	assert.Equal(t, Point{X: 50, Y: 10}, segs[0].Start)
	assert.Equal(t, Point{X: 50, Y: 90}, segs[0].End)
	assert.Equal(t, 90.0, segs[0].AngleDegrees)
}

func TestSameLine(t *testing.T) {
	assert.True(t, sameLine(50, 90, 52, 88))
	assert.True(t, sameLine(50, 0, -50, 179))
	assert.False(t, sameLine(50, 90, 60, 90))
	assert.False(t, sameLine(50, 0, 50, 179))
}
