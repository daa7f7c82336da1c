package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
)

// ParseHexColor parses a "#RRGGBB" or "#RGB" colour into an opaque colour.
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// DrawCircle paints a circle outline onto img in place.
//
// The outline is the annulus between radius-thickness/2 and
// radius+thickness/2 around the centre of pixel c, so a thickness of 3 gives
// a 3px ring. A negative thickness fills the disk. The annulus is rasterised
// with golang.org/x/image/vector and a pixel is painted, without blending,
// when at least half of it is covered. Pixels outside img are clipped.
//
// With radius 1 and thickness 3 the result is a solid dot of radius 2.5,
// which is what center markers use.
func DrawCircle(img *image.NRGBA, c image.Point, radius, thickness int, col color.Color) {
	if radius < 0 {
		return
	}
	nc := color.NRGBAModel.Convert(col).(color.NRGBA)

	r := float64(radius)
	inner, outer := 0.0, r
	if thickness >= 0 {
		half := float64(thickness) / 2
		inner = math.Max(0, r-half)
		outer = r + half
	}
	if outer <= 0 {
		return
	}

	reach := int(math.Ceil(outer)) + 1
	box := image.Rect(c.X-reach, c.Y-reach, c.X+reach+1, c.Y+reach+1)
	if !box.Overlaps(img.Bounds()) {
		return
	}

	// Rasteriser space has its origin at box.Min; pixel centres sit at +0.5
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	cx := float32(c.X-box.Min.X) + 0.5
	cy := float32(c.Y-box.Min.Y) + 0.5
	addCirclePath(z, cx, cy, float32(outer), 1)
	if inner > 0 {
		// Opposite winding cuts the hole
		addCirclePath(z, cx, cy, float32(inner), -1)
	}

	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	area := box.Intersect(img.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if mask.AlphaAt(x-box.Min.X, y-box.Min.Y).A >= 0x80 {
				img.SetNRGBA(x, y, nc)
			}
		}
	}
}

// bezierArc is the control point distance for a quarter circle of radius 1
// drawn as one cubic Bézier.
const bezierArc = 0.5522847498

// addCirclePath adds a closed circle of radius r around (cx, cy) to z as four
// cubic segments. dir is 1 or -1 and selects the winding direction.
func addCirclePath(z *vector.Rasterizer, cx, cy, r, dir float32) {
	k := r * bezierArc
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+dir*k, cx+k, cy+dir*r, cx, cy+dir*r)
	z.CubeTo(cx-k, cy+dir*r, cx-r, cy+dir*k, cx-r, cy)
	z.CubeTo(cx-r, cy-dir*k, cx-k, cy-dir*r, cx, cy-dir*r)
	z.CubeTo(cx+k, cy-dir*r, cx+r, cy-dir*k, cx+r, cy)
	z.ClosePath()
}
