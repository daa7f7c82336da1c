package imaging

import (
	"image"
	"image/color"
	"math"
)

// Gradient holds per-pixel Sobel derivatives of a grayscale image.
//
// Values are stored row-major: index y*Width + x. Derivatives are computed on
// 0-255 samples, so a full black/white step gives |GX| or |GY| of 1020.
type Gradient struct {
	Width  int
	Height int
	GX     []float64
	GY     []float64
}

// At returns the derivatives at (x, y), relative to the image origin.
func (g *Gradient) At(x, y int) (gx, gy float64) {
	i := y*g.Width + x
	return g.GX[i], g.GY[i]
}

// Sobel computes 3x3 Sobel derivatives of gray. Border pixels use clamped
// (replicated) edge values.
func Sobel(gray *image.Gray) *Gradient {
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	grad := &Gradient{
		Width:  width,
		Height: height,
		GX:     make([]float64, width*height),
		GY:     make([]float64, width*height),
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					v := float64(gray.Pix[gray.PixOffset(px+bounds.Min.X, py+bounds.Min.Y)])
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			grad.GX[y*width+x] = gx
			grad.GY[y*width+x] = gy
		}
	}
	return grad
}

// Canny finds edges in the derivatives grad and returns a binary map where
// edge pixels are 255 and everything else is 0. The map has its origin at
// (0, 0). Callers pass the Sobel field so that it is computed once when they
// also need gradient directions.
//
// # Algorithm
//
//  1. Magnitude: L1 norm |Gx| + |Gy|
//
//  2. Non-maximum suppression: keep a pixel only if its magnitude is not
//     smaller than both neighbours along the quantised gradient direction
//
//  3. Hysteresis thresholding:
//     - Pixels at or above thresholdHigh are strong edges (always kept)
//     - Pixels between thresholdLow and thresholdHigh are kept only when
//     8-connected, directly or through other weak pixels, to a strong edge
//     - Pixels below thresholdLow are discarded
//
// No smoothing is applied; callers blur beforehand if they need it.
func Canny(grad *Gradient, thresholdLow, thresholdHigh float64) *image.Gray {
	width := grad.Width
	height := grad.Height

	magnitude := make([]float64, width*height)
	for i := range magnitude {
		magnitude[i] = math.Abs(grad.GX[i]) + math.Abs(grad.GY[i])
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < thresholdLow {
				continue
			}

			angle := math.Atan2(grad.GY[i], grad.GX[i])

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			} else {
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Hysteresis: grow strong edges through connected weak pixels
	result := image.NewGray(image.Rect(0, 0, width, height))
	stack := make([]int, 0, 64)
	for i, v := range suppressed {
		if v >= thresholdHigh && result.Pix[i] == 0 {
			result.Pix[i] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%width, p/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := px+dx, py+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					n := ny*width + nx
					if result.Pix[n] == 0 && suppressed[n] >= thresholdLow && suppressed[n] > 0 {
						result.Pix[n] = 255
						stack = append(stack, n)
					}
				}
			}
		}
	}

	return result
}

// CountEdges returns the number of non-zero pixels in a binary edge map.
func CountEdges(edges *image.Gray) int {
	n := 0
	b := edges.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if edges.GrayAt(x, y) != (color.Gray{}) {
				n++
			}
		}
	}
	return n
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
