package annotate

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/circle-detect/internal/detection"
)

func grayCanvas(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 40, 40, 255
	}
	return img
}

func circle(x, y, r int) detection.Circle {
	return detection.Circle{Center: detection.Point{X: x, Y: y}, Radius: r}
}

func TestAnnotate_OnlyTouchesShapeNeighbourhoods(t *testing.T) {
	img := grayCanvas(120, 100)
	before := image.NewNRGBA(img.Bounds())
	copy(before.Pix, img.Pix)

	circles := []detection.Circle{circle(40, 50, 20), circle(95, 30, 12)}
	require.NoError(t, Annotate(img, circles, DefaultStyle()))

	assert.Equal(t, before.Bounds(), img.Bounds())
	assert.Equal(t, len(before.Pix), len(img.Pix))

	for y := 0; y < 100; y++ {
		for x := 0; x < 120; x++ {
			if img.NRGBAAt(x, y) == before.NRGBAAt(x, y) {
				continue
			}
			near := false
			for _, c := range circles {
				d := math.Hypot(float64(x-c.Center.X), float64(y-c.Center.Y))
				if d <= 2.5 || math.Abs(d-float64(c.Radius)) <= 1.5 {
					near = true
				}
			}
			if !near {
				t.Fatalf("pixel (%d,%d) changed away from any drawn shape", x, y)
			}
		}
	}
}

func TestAnnotate_Colors(t *testing.T) {
	img := grayCanvas(100, 100)

	require.NoError(t, Annotate(img, []detection.Circle{circle(50, 50, 30)}, DefaultStyle()))

	assert.Equal(t, color.NRGBA{100, 100, 0, 255}, img.NRGBAAt(50, 50), "center marker")
	assert.Equal(t, color.NRGBA{255, 0, 255, 255}, img.NRGBAAt(80, 50), "ring")
	assert.Equal(t, color.NRGBA{40, 40, 40, 255}, img.NRGBAAt(65, 50), "interior")
}

func TestAnnotate_LaterCirclesOverpaint(t *testing.T) {
	img := grayCanvas(100, 100)

	style := DefaultStyle()
	// The second circle's ring passes through the first circle's center
	circles := []detection.Circle{circle(50, 50, 20), circle(70, 50, 20)}
	require.NoError(t, Annotate(img, circles, style))

	assert.Equal(t, color.NRGBA{255, 0, 255, 255}, img.NRGBAAt(50, 50))
}

func TestAnnotate_Empty(t *testing.T) {
	img := grayCanvas(30, 30)
	before := append([]uint8(nil), img.Pix...)

	require.NoError(t, Annotate(img, nil, DefaultStyle()))
	assert.Equal(t, before, img.Pix)
}

func TestAnnotate_InvalidStyle(t *testing.T) {
	img := grayCanvas(30, 30)
	before := append([]uint8(nil), img.Pix...)

	style := DefaultStyle()
	style.RingColor = "magenta"

	assert.Error(t, Annotate(img, []detection.Circle{circle(15, 15, 5)}, style))
	assert.Equal(t, before, img.Pix, "failed annotation must not draw")
	assert.Error(t, style.Validate())
	assert.NoError(t, DefaultStyle().Validate())
}
