package detection

import "fmt"

// Params tunes the gradient Hough circle transform.
type Params struct {
	// DP is the inverse ratio of accumulator resolution to image resolution.
	// 1 gives an accumulator the size of the image, 2 half the width and height.
	DP float64 `yaml:"dp" json:"dp"`

	// MinDist is the minimum distance in pixels between detected centers.
	MinDist float64 `yaml:"min_dist" json:"min_dist"`

	// Param1 is the upper Canny threshold; the lower one is half of it.
	Param1 float64 `yaml:"param1" json:"param1"`

	// Param2 is the number of edge pixels a circle must have more of.
	// Smaller values accept weaker, more false, circles.
	Param2 float64 `yaml:"param2" json:"param2"`

	// MinRadius and MaxRadius bound the radii searched, in pixels.
	// A MaxRadius of 0 means the larger image dimension.
	MinRadius int `yaml:"min_radius" json:"min_radius"`
	MaxRadius int `yaml:"max_radius" json:"max_radius"`
}

// DefaultParams returns the detector settings used by the circle-detect command.
// They suit well-separated circles of 10-60px on photographs.
func DefaultParams() Params {
	return Params{
		DP:        1,
		MinDist:   50,
		Param1:    150,
		Param2:    80,
		MinRadius: 10,
		MaxRadius: 60,
	}
}

// Validate reports the first out-of-range field.
func (p Params) Validate() error {
	switch {
	case p.DP <= 0:
		return fmt.Errorf("dp must be positive, got %v", p.DP)
	case p.MinDist <= 0:
		return fmt.Errorf("min_dist must be positive, got %v", p.MinDist)
	case p.Param1 <= 0:
		return fmt.Errorf("param1 must be positive, got %v", p.Param1)
	case p.Param2 <= 0:
		return fmt.Errorf("param2 must be positive, got %v", p.Param2)
	case p.MinRadius < 0:
		return fmt.Errorf("min_radius must not be negative, got %d", p.MinRadius)
	case p.MaxRadius < 0:
		return fmt.Errorf("max_radius must not be negative, got %d", p.MaxRadius)
	case p.MaxRadius > 0 && p.MaxRadius < p.MinRadius:
		return fmt.Errorf("max_radius %d is smaller than min_radius %d", p.MaxRadius, p.MinRadius)
	}
	return nil
}
