package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// ITU-R BT.601 luminance weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Grayscale converts img to a single-channel buffer using ITU-R BT.601
// luminance weights (0.299*R + 0.587*G + 0.114*B).
//
// The result has the same spatial dimensions as img, with its origin at (0, 0).
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if b.Empty() {
		return out
	}
	// bild writes the luminance into R, G and B alike
	return redChannel(effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB), out)
}

// redChannel copies the R samples of src into dst, which must have the same
// size. src may have any origin.
func redChannel(src *image.RGBA, dst *image.Gray) *image.Gray {
	sb := src.Bounds()
	for y := 0; y < dst.Bounds().Dy(); y++ {
		row := src.Pix[src.PixOffset(sb.Min.X, sb.Min.Y+y):]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < dst.Bounds().Dx(); x++ {
			out[x] = row[x*4]
		}
	}
	return dst
}

// MedianBlur replaces every pixel with the median of its ksize x ksize
// neighbourhood. Pixels outside the image repeat the nearest edge pixel.
//
// ksize must be odd and positive; 1 returns an unchanged copy. A buffer of a
// single constant value is returned unchanged for any ksize.
func MedianBlur(gray *image.Gray, ksize int) (*image.Gray, error) {
	if ksize < 1 || ksize%2 == 0 {
		return nil, fmt.Errorf("median window must be a positive odd number, got %d", ksize)
	}
	b := gray.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("median blur of empty image")
	}

	// bild filters on RGBA; for a gray input R == G == B, so the red channel
	// carries the result back without a second luminance rounding.
	filtered := effect.Median(gray, float64(ksize/2))

	return redChannel(filtered, image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))), nil
}

// Preprocess turns a colour buffer into the smoothed grayscale buffer that
// circle detection runs on: luminance conversion followed by a median blur
// of window ksize.
//
// The output always has the same width and height as img.
func Preprocess(img image.Image, ksize int) (*image.Gray, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("preprocess: empty image")
	}
	return MedianBlur(Grayscale(img), ksize)
}
