package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/circle-detect/internal/imaging"
)

// Gradient lines of a digitised circle do not meet in one cell. Their
// directions are off by a few degrees, more on thin outlines, so the votes
// form a small crater around the true center whose width grows with the
// radius. The accumulator is therefore only used to propose centers; each
// proposal is then fitted against the edge pixels themselves.
const (
	// centerSpread is the crater radius as a fraction of the circle radius.
	centerSpread = 0.15

	// Bounds of the proposal window half-width, in accumulator cells.
	minSupportRadius = 2
	maxSupportRadius = 12

	// proposalShare is the fraction of Param2 gradient lines a window needs
	// before its center is worth fitting.
	proposalShare = 0.25

	// radialCos is the cosine of the largest angle, about 32 degrees, between
	// an edge pixel's gradient and the radius through it for the pixel to
	// count toward a circle.
	radialCos = 0.85

	// ringBand is the half-width in pixels of the kernel that scores how well
	// edge distances agree on one radius.
	ringBand = 2.5

	// voteBand is how far from the fitted radius an edge pixel may lie and
	// still be counted in Votes.
	voteBand = 1.5

	// minRadiusSupport is the share of the circumference (2πr) that Votes
	// must reach. Arcs of other circles that merely touch a candidate stay
	// well below it.
	minRadiusSupport = 0.5
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x" yaml:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y" yaml:"y"` // Vertical position (0 = topmost)
}

// Circle is one detected circle. Coordinates and radius are rounded to whole pixels.
type Circle struct {
	// Center is the detected center point of the circle.
	Center Point `json:"center" yaml:"center"`

	// Radius is the detected radius in pixels.
	Radius int `json:"radius" yaml:"radius"`

	// Votes is the number of edge pixels on the circle: within 1.5px of the
	// radius, with a gradient pointing along the radius.
	Votes int `json:"votes" yaml:"votes"`
}

// CirclesResult contains all circles detected in an image.
type CirclesResult struct {
	// Circles is ordered by Votes, highest first. Empty, never nil, when
	// nothing was found.
	Circles []Circle `json:"circles" yaml:"circles"`

	// Count is the number of circles detected.
	Count int `json:"count" yaml:"count"`

	// EdgePixels is the size of the Canny edge map the circles were fitted to.
	EdgePixels int `json:"edge_pixels" yaml:"edge_pixels"`
}

// Shape returns the dimensions of the result as the (1, n, 3) triple the
// command prints: one batch of n records of (x, y, radius).
func (r *CirclesResult) Shape() [3]int {
	return [3]int{1, len(r.Circles), 3}
}

type edgePoint struct {
	x, y   int
	dx, dy float64 // unit gradient direction
}

type candidate struct {
	x, y  int // accumulator cell
	score int // summed votes in the support window
}

// ringFit is a circle fitted to the edge pixels around a proposal.
type ringFit struct {
	x, y   int // center, relative to the image origin
	radius float64
	votes  int
	weight float64 // kernel score of the center at its best radius
}

// HoughCircles finds circles in a grayscale image with the gradient Hough transform.
//
// Parameters:
//   - gray: Smoothed grayscale image. Callers normally median-blur it first.
//   - p: Detector settings, see Params and DefaultParams.
//
// Returns:
//   - *CirclesResult: Detected circles, strongest first. Finding none is not an error.
//   - error: Non-nil if p is invalid or the image is empty.
//
// # Algorithm
//
//  1. Edge Detection: Canny with thresholds Param1/2 and Param1
//  2. Accumulator Voting: every edge pixel walks both ways along its gradient
//     and votes at each distance in [MinRadius, MaxRadius]
//  3. Proposals: the accumulator is summed over a window that grows with
//     MaxRadius; local maxima of that sum, strongest first and at least a
//     window apart, become proposals
//  4. Fitting: around each proposal the center and radius that best agree
//     with the distances of radially oriented edge pixels are searched
//  5. Acceptance: a fit needs more than Param2 votes and half of its
//     circumference; fits are ranked by votes and one closer than MinDist
//     to a stronger one is dropped
func HoughCircles(gray *image.Gray, p Params) (*CirclesResult, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector params: %w", err)
	}

	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("circle detection on empty image")
	}

	minR := max(p.MinRadius, 1)
	maxR := p.MaxRadius
	if maxR == 0 {
		maxR = max(width, height)
	}
	maxR = max(maxR, minR)

	grad := imaging.Sobel(gray)
	edges := imaging.Canny(grad, p.Param1/2, p.Param1)

	result := &CirclesResult{
		Circles:    []Circle{},
		EdgePixels: imaging.CountEdges(edges),
	}

	points := collectEdgePoints(edges, grad)
	if len(points) == 0 {
		return result, nil
	}

	accW := int(math.Ceil(float64(width) / p.DP))
	accH := int(math.Ceil(float64(height) / p.DP))
	acc := vote(points, accW, accH, minR, maxR, p.DP)

	support := supportRadius(maxR, p.DP)
	proposals := findCandidates(acc, accW, accH, support, p.Param2*proposalShare)

	fitter := newRingFitter(points, width, height, minR, maxR)
	reach := int(math.Ceil(float64(support) * p.DP))

	fits := make([]ringFit, 0, len(proposals))
	for _, c := range proposals {
		px := min(int(math.Round(float64(c.x)*p.DP)), width-1)
		py := min(int(math.Round(float64(c.y)*p.DP)), height-1)

		fit, ok := fitter.refine(px, py, reach)
		if !ok || float64(fit.votes) <= p.Param2 {
			continue
		}
		if float64(fit.votes) < minRadiusSupport*2*math.Pi*fit.radius {
			continue
		}
		fits = append(fits, fit)
	}

	sort.SliceStable(fits, func(i, j int) bool {
		return fits[i].votes > fits[j].votes
	})

	minDist2 := p.MinDist * p.MinDist
	for _, f := range fits {
		tooClose := false
		for _, c := range result.Circles {
			dx := float64(f.x + bounds.Min.X - c.Center.X)
			dy := float64(f.y + bounds.Min.Y - c.Center.Y)
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		radius := math.Min(math.Max(math.Round(f.radius), float64(minR)), float64(maxR))
		result.Circles = append(result.Circles, Circle{
			Center: Point{X: f.x + bounds.Min.X, Y: f.y + bounds.Min.Y},
			Radius: int(radius),
			Votes:  f.votes,
		})
	}

	result.Count = len(result.Circles)
	return result, nil
}

// supportRadius returns the proposal window half-width in accumulator cells
// for circles up to maxR pixels.
func supportRadius(maxR int, dp float64) int {
	s := int(math.Ceil(float64(maxR) * centerSpread / dp))
	return min(max(s, minSupportRadius), maxSupportRadius)
}

// collectEdgePoints lists edge pixels together with their unit gradient direction.
// Edges with a zero gradient carry no direction and are skipped.
func collectEdgePoints(edges *image.Gray, grad *imaging.Gradient) []edgePoint {
	points := make([]edgePoint, 0)
	for y := 0; y < grad.Height; y++ {
		row := edges.Pix[y*edges.Stride:]
		for x := 0; x < grad.Width; x++ {
			if row[x] == 0 {
				continue
			}
			gx, gy := grad.At(x, y)
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			points = append(points, edgePoint{x: x, y: y, dx: gx / mag, dy: gy / mag})
		}
	}
	return points
}

// vote fills the accumulator. A circle's center lies on the gradient line of
// each of its edge pixels at distance r, on the inner side for one polarity
// and the outer side for the other, so both directions are walked.
func vote(points []edgePoint, accW, accH, minR, maxR int, dp float64) []int32 {
	acc := make([]int32, accW*accH)
	inv := 1 / dp

	for _, pt := range points {
		for _, sign := range [2]float64{1, -1} {
			sx := sign * pt.dx
			sy := sign * pt.dy
			for r := minR; r <= maxR; r++ {
				ax := int(math.Floor((float64(pt.x)+sx*float64(r))*inv + 0.5))
				ay := int(math.Floor((float64(pt.y)+sy*float64(r))*inv + 0.5))
				// The walk is a ray; once outside the image it never returns
				if ax < 0 || ay < 0 || ax >= accW || ay >= accH {
					break
				}
				acc[ay*accW+ax]++
			}
		}
	}
	return acc
}

// findCandidates scores every cell by the votes in the window of half-width
// support around it and returns the local maxima whose window holds more than
// minLines gradient lines, strongest first. Ties are broken by row, then
// column. A maximum within support cells of a stronger one is dropped.
func findCandidates(acc []int32, accW, accH, support int, minLines float64) []candidate {
	// Summed-area table with a zero row and column in front
	sw := accW + 1
	sat := make([]int64, sw*(accH+1))
	for y := 0; y < accH; y++ {
		var rowSum int64
		for x := 0; x < accW; x++ {
			rowSum += int64(acc[y*accW+x])
			sat[(y+1)*sw+x+1] = sat[y*sw+x+1] + rowSum
		}
	}

	score := make([]int, accW*accH)
	for y := 0; y < accH; y++ {
		y0 := max(y-support, 0)
		y1 := min(y+support+1, accH)
		for x := 0; x < accW; x++ {
			x0 := max(x-support, 0)
			x1 := min(x+support+1, accW)
			score[y*accW+x] = int(sat[y1*sw+x1] - sat[y0*sw+x1] - sat[y1*sw+x0] + sat[y0*sw+x0])
		}
	}

	// A line through the window leaves about one vote per column it crosses
	minScore := minLines * float64(2*support+1)

	peaks := make([]candidate, 0)
	for y := 0; y < accH; y++ {
		for x := 0; x < accW; x++ {
			s := score[y*accW+x]
			if float64(s) <= minScore || !isPeak(score, accW, accH, x, y) {
				continue
			}
			peaks = append(peaks, candidate{x: x, y: y, score: s})
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].score > peaks[j].score
	})

	taken := make([]bool, accW*accH)
	candidates := make([]candidate, 0, len(peaks))
	for _, c := range peaks {
		if taken[c.y*accW+c.x] {
			continue
		}
		candidates = append(candidates, c)
		for y := max(c.y-support, 0); y < min(c.y+support+1, accH); y++ {
			for x := max(c.x-support, 0); x < min(c.x+support+1, accW); x++ {
				taken[y*accW+x] = true
			}
		}
	}
	return candidates
}

// isPeak reports whether the cell beats its earlier neighbours in raster
// order and is not beaten by later ones, so a flat plateau yields one peak.
func isPeak(score []int, accW, accH, x, y int) bool {
	s := score[y*accW+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= accW || ny >= accH {
				continue
			}
			n := score[ny*accW+nx]
			earlier := dy < 0 || (dy == 0 && dx < 0)
			if n > s || (earlier && n == s) {
				return false
			}
		}
	}
	return true
}

// ringFitter fits circles to edge pixels near a proposed center.
type ringFitter struct {
	points        []edgePoint // raster order, hence sorted by y
	width, height int
	minR, maxR    int

	weights []float64   // per radius, reused between scores
	local   []edgePoint // reused between refinements
}

func newRingFitter(points []edgePoint, width, height, minR, maxR int) *ringFitter {
	return &ringFitter{
		points:  points,
		width:   width,
		height:  height,
		minR:    minR,
		maxR:    maxR,
		weights: make([]float64, maxR-minR+1),
	}
}

// refine searches the centers within reach of (px, py) for the best circle.
// A coarse pass on every other pixel finds the basin, then single steps
// climb to its top.
func (f *ringFitter) refine(px, py, reach int) (ringFit, bool) {
	local := f.gather(px, py, reach)
	if len(local) == 0 {
		return ringFit{}, false
	}

	best := ringFit{weight: -1}
	try := func(x, y int) bool {
		if x < 0 || y < 0 || x >= f.width || y >= f.height {
			return false
		}
		w, r := f.score(x, y, local)
		if w <= best.weight {
			return false
		}
		best = ringFit{x: x, y: y, radius: float64(r), weight: w}
		return true
	}

	for dy := -reach; dy <= reach; dy += 2 {
		for dx := -reach; dx <= reach; dx += 2 {
			try(px+dx, py+dy)
		}
	}
	if best.weight <= 0 {
		return ringFit{}, false
	}

	for step := 0; step <= reach; step++ {
		cx, cy := best.x, best.y
		moved := false
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if (dx != 0 || dy != 0) && try(cx+dx, cy+dy) {
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}

	best.radius, best.votes = f.measure(best.x, best.y, int(best.radius), local)
	return best, true
}

// gather returns the edge pixels that can lie on a circle centered within
// reach of (px, py).
func (f *ringFitter) gather(px, py, reach int) []edgePoint {
	span := reach + f.maxR + int(math.Ceil(ringBand)) + 1
	y0, y1 := py-span, py+span
	x0, x1 := px-span, px+span

	first := sort.Search(len(f.points), func(i int) bool { return f.points[i].y >= y0 })
	f.local = f.local[:0]
	for _, pt := range f.points[first:] {
		if pt.y > y1 {
			break
		}
		if pt.x >= x0 && pt.x <= x1 {
			f.local = append(f.local, pt)
		}
	}
	return f.local
}

// radial reports the distance of pt from (cx, cy) and whether its gradient
// points along that radius, in either direction.
func radial(pt edgePoint, cx, cy int) (float64, bool) {
	dx := float64(pt.x - cx)
	dy := float64(pt.y - cy)
	d := math.Sqrt(dx*dx + dy*dy)
	if d == 0 {
		return 0, false
	}
	return d, math.Abs(pt.dx*dx+pt.dy*dy) >= radialCos*d
}

// score rates (cx, cy) as a center: every radial edge pixel adds a parabolic
// kernel of half-width ringBand around its distance, and the radius with the
// largest total wins. Distances that agree closely score higher than the same
// number spread over the band, which makes the true center a sharp maximum.
func (f *ringFitter) score(cx, cy int, local []edgePoint) (float64, int) {
	clear(f.weights)
	lo := float64(f.minR) - ringBand
	hi := float64(f.maxR) + ringBand

	for _, pt := range local {
		d, ok := radial(pt, cx, cy)
		if !ok || d <= lo || d >= hi {
			continue
		}
		r0 := max(int(math.Ceil(d-ringBand)), f.minR)
		r1 := min(int(math.Floor(d+ringBand)), f.maxR)
		for r := r0; r <= r1; r++ {
			e := (d - float64(r)) / ringBand
			f.weights[r-f.minR] += 1 - e*e
		}
	}

	best, bestW := f.minR, 0.0
	for i, w := range f.weights {
		if w > bestW {
			best, bestW = f.minR+i, w
		}
	}
	return bestW, best
}

// measure turns the best whole-pixel radius r at (cx, cy) into a kernel
// weighted mean distance and counts the radial edge pixels within voteBand
// of it.
func (f *ringFitter) measure(cx, cy, r int, local []edgePoint) (float64, int) {
	var sum, weighted float64
	for _, pt := range local {
		d, ok := radial(pt, cx, cy)
		if !ok {
			continue
		}
		if e := (d - float64(r)) / ringBand; e > -1 && e < 1 {
			w := 1 - e*e
			sum += w
			weighted += w * d
		}
	}
	if sum == 0 {
		return float64(r), 0
	}
	radius := weighted / sum

	votes := 0
	for _, pt := range local {
		if d, ok := radial(pt, cx, cy); ok && math.Abs(d-radius) <= voteBand {
			votes++
		}
	}
	return radius, votes
}
