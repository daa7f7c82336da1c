package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func blankNRGBA(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FF00FF", color.NRGBA{255, 0, 255, 255}, false},
		{"#646400", color.NRGBA{100, 100, 0, 255}, false},
		{"00ff00", color.NRGBA{0, 255, 0, 255}, false},
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"", color.NRGBA{}, true},
		{"#GG0000", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawCircle_Ring(t *testing.T) {
	img := blankNRGBA(100, 100)
	ring := color.NRGBA{255, 0, 255, 255}
	center := image.Pt(50, 50)

	DrawCircle(img, center, 20, 3, ring)

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			d := math.Hypot(float64(x-50), float64(y-50))
			got := img.NRGBAAt(x, y)
			switch {
			case math.Abs(d-20) <= 1.0:
				if got != ring {
					t.Fatalf("pixel (%d,%d) at distance %.2f not painted", x, y, d)
				}
			case math.Abs(d-20) > 1.5:
				if got != (color.NRGBA{0, 0, 0, 255}) {
					t.Fatalf("pixel (%d,%d) at distance %.2f painted", x, y, d)
				}
			}
		}
	}
}

func TestDrawCircle_CenterMarker(t *testing.T) {
	img := blankNRGBA(20, 20)
	marker := color.NRGBA{100, 100, 0, 255}

	DrawCircle(img, image.Pt(10, 10), 1, 3, marker)

	for _, p := range []image.Point{{10, 10}, {11, 10}, {10, 12}, {8, 10}} {
		if img.NRGBAAt(p.X, p.Y) != marker {
			t.Errorf("marker pixel %v not painted", p)
		}
	}
	if img.NRGBAAt(10, 13) == marker || img.NRGBAAt(13, 13) == marker {
		t.Error("marker extends beyond radius 2.5")
	}
}

func TestDrawCircle_Filled(t *testing.T) {
	img := blankNRGBA(30, 30)
	fill := color.NRGBA{0, 255, 0, 255}

	DrawCircle(img, image.Pt(15, 15), 5, -1, fill)

	if img.NRGBAAt(15, 15) != fill || img.NRGBAAt(17, 16) != fill {
		t.Error("filled disk has unpainted interior")
	}
	if img.NRGBAAt(15, 21) == fill {
		t.Error("filled disk painted outside its radius")
	}
}

func TestDrawCircle_ClipsToBounds(t *testing.T) {
	img := blankNRGBA(20, 20)

	// Must not panic when the circle leaves the image
	DrawCircle(img, image.Pt(0, 0), 15, 3, color.White)
	DrawCircle(img, image.Pt(-50, -50), 10, 3, color.White)

	if img.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Errorf("bounds changed: %v", img.Bounds())
	}
	if img.NRGBAAt(15, 0) != (color.NRGBA{255, 255, 255, 255}) {
		t.Error("visible part of clipped ring not painted")
	}
}
