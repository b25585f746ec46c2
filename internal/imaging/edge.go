package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
)

// Default Canny parameters for strip footage.
const (
	DefaultCannyLow    = 50
	DefaultCannyHigh   = 150
	GaussianKernelSize = 5
)

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of edge pixels in the map.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs ExtractEdges and returns the edge map as base64 PNG.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) (*EdgeDetectResult, error) {
	edges := ExtractEdges(img, thresholdLow, thresholdHigh)

	encoded, err := EncodePNGBase64(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Width:       edges.Rect.Dx(),
		Height:      edges.Rect.Dy(),
		EdgePixels:  CountEdgePixels(edges),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// ExtractEdges converts a color frame into a binary edge map.
//
// The returned map has the same width and height as img, with its origin at
// (0,0). Edge pixels are 255 and background pixels are 0. The function is
// deterministic: the same frame always produces the same map. Frames with a
// zero dimension produce an empty map; callers are expected to reject them
// before getting here.
//
// # Algorithm
//
//  1. Grayscale conversion with ITU-R BT.601 weights
//     (0.299*R + 0.587*G + 0.114*B) on the 0-255 scale
//
//  2. Gaussian blur with a 5x5 kernel; sigma is derived from the kernel
//     size as 0.3*((k-1)/2 - 1) + 0.8, i.e. 1.1
//
//  3. Sobel gradients, magnitude |Gx| + |Gy|, direction atan2(Gy, Gx)
//
//  4. Non-maximum suppression along the quantized gradient direction
//
//  5. Hysteresis: pixels at or above thresholdHigh seed edges, and pixels at
//     or above thresholdLow are kept when 8-connected to a seed
func ExtractEdges(img image.Image, thresholdLow, thresholdHigh int) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	result := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return result
	}

	gray := luminance(img)
	blurred := gaussianBlur(gray, width, height, GaussianKernelSize)
	magnitude, direction := sobel(blurred, width, height)
	suppressed := suppressNonMaxima(magnitude, direction, width, height)
	hysteresis(suppressed, result, float64(thresholdLow), float64(thresholdHigh))

	return result
}

// CountEdgePixels returns the number of non-zero pixels in an edge map.
func CountEdgePixels(edges *image.Gray) int {
	n := 0
	b := edges.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := edges.PixOffset(b.Min.X, y)
		for _, v := range edges.Pix[off : off+b.Dx()] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// EncodePNGBase64 encodes img as PNG and returns it base64-encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// luminance returns BT.601 luma (0-255) in row-major order.
func luminance(img image.Image) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+3]
				out[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+3]
				out[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				out[y*w+x] = float64(row[x])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
				out[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			}
		}
	}
	return out
}

// gaussianSigma derives sigma from the kernel size the way Canny pipelines
// conventionally do when no sigma is supplied.
func gaussianSigma(ksize int) float64 {
	return 0.3*(float64(ksize-1)*0.5-1) + 0.8
}

// gaussianKernel returns a normalized 1-D Gaussian kernel of odd size ksize.
func gaussianKernel(ksize int) []float64 {
	sigma := gaussianSigma(ksize)
	half := ksize / 2
	k := make([]float64, ksize)
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianBlur applies a separable ksize×ksize Gaussian blur.
// Border pixels use clamped (replicated) edge values.
func gaussianBlur(img []float64, width, height, ksize int) []float64 {
	k := gaussianKernel(ksize)
	half := ksize / 2

	tmp := make([]float64, len(img))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for i, kv := range k {
				px := clamp(x+i-half, 0, width-1)
				sum += img[y*width+px] * kv
			}
			tmp[y*width+x] = sum
		}
	}

	out := make([]float64, len(img))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for i, kv := range k {
				py := clamp(y+i-half, 0, height-1)
				sum += tmp[py*width+x] * kv
			}
			out[y*width+x] = sum
		}
	}
	return out
}

// sobel returns the L1 gradient magnitude and the gradient direction.
func sobel(img []float64, width, height int) (magnitude, direction []float64) {
	magnitude = make([]float64, len(img))
	direction = make([]float64, len(img))

	at := func(x, y int) float64 {
		return img[clamp(y, 0, height-1)*width+clamp(x, 0, width-1)]
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)

			i := y*width + x
			magnitude[i] = math.Abs(gx) + math.Abs(gy)
			direction[i] = math.Atan2(gy, gx)
		}
	}
	return magnitude, direction
}

// suppressNonMaxima keeps only pixels that are local maxima along their
// gradient direction. The one-pixel frame border is always suppressed.
func suppressNonMaxima(magnitude, direction []float64, width, height int) []float64 {
	out := make([]float64, len(magnitude))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag == 0 {
				continue
			}
			angle := direction[i]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			}

			if mag >= n1 && mag >= n2 {
				out[i] = mag
			}
		}
	}
	return out
}

// hysteresis marks strong pixels and every weak pixel 8-connected to one.
func hysteresis(suppressed []float64, dst *image.Gray, low, high float64) {
	width := dst.Rect.Dx()
	height := dst.Rect.Dy()

	stack := make([]int, 0, 64)
	for i, v := range suppressed {
		if v >= high && dst.Pix[i] == 0 {
			dst.Pix[i] = 255
			stack = append(stack, i)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				j := ny*width + nx
				if dst.Pix[j] == 0 && suppressed[j] >= low {
					dst.Pix[j] = 255
					stack = append(stack, j)
				}
			}
		}
	}
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
