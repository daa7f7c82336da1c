// Package annotate draws detected circles onto colour images.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ironsheep/circle-detect/internal/detection"
	"github.com/ironsheep/circle-detect/internal/imaging"
)

// Style describes how circles are drawn. Colours are "#RRGGBB" hex strings.
type Style struct {
	MarkerColor     string `yaml:"marker_color"`
	MarkerRadius    int    `yaml:"marker_radius"`
	MarkerThickness int    `yaml:"marker_thickness"`
	RingColor       string `yaml:"ring_color"`
	RingThickness   int    `yaml:"ring_thickness"`
}

// DefaultStyle marks centers with a small olive dot and outlines circles in
// a 3px magenta ring.
func DefaultStyle() Style {
	return Style{
		MarkerColor:     "#646400",
		MarkerRadius:    1,
		MarkerThickness: 3,
		RingColor:       "#FF00FF",
		RingThickness:   3,
	}
}

// painter is a Style with its colours parsed.
type painter struct {
	style  Style
	marker color.NRGBA
	ring   color.NRGBA
}

func (s Style) painter() (*painter, error) {
	marker, err := imaging.ParseHexColor(s.MarkerColor)
	if err != nil {
		return nil, fmt.Errorf("marker color: %w", err)
	}
	ring, err := imaging.ParseHexColor(s.RingColor)
	if err != nil {
		return nil, fmt.Errorf("ring color: %w", err)
	}
	return &painter{style: s, marker: marker, ring: ring}, nil
}

// Validate checks that both colours parse.
func (s Style) Validate() error {
	_, err := s.painter()
	return err
}

// Annotate draws every circle onto img in place, in slice order: first the
// center marker, then the ring. Later circles overpaint earlier ones where
// they overlap. The image keeps its bounds and colour model; an empty slice
// leaves it untouched.
func Annotate(img *image.NRGBA, circles []detection.Circle, style Style) error {
	p, err := style.painter()
	if err != nil {
		return err
	}

	for _, c := range circles {
		center := image.Pt(c.Center.X, c.Center.Y)
		imaging.DrawCircle(img, center, p.style.MarkerRadius, p.style.MarkerThickness, p.marker)
		imaging.DrawCircle(img, center, c.Radius, p.style.RingThickness, p.ring)
	}
	return nil
}
