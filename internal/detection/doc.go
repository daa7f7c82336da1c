// Package detection locates circles in grayscale images.
//
// HoughCircles implements the gradient variant of the Hough circle transform.
// Instead of voting on a full circle around every edge pixel, each edge pixel
// votes only along its gradient direction, which keeps the accumulator two
// dimensional (center x, center y) and the cost proportional to the number of
// edge pixels times the radius range.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Reported centers and radii are rounded to whole, non-negative pixels.
//
// # Output Contract
//
// Circles are returned strongest first, ordered by the accumulator support of
// their center. An image without circles yields an empty result and a nil
// error; errors are reserved for invalid parameters and empty images.
//
// # Limitations
//
// The transform works best on clean, high-contrast circles:
//   - Concentric circles share a center and only the best-supported radius is reported
//   - Circles closer than Params.MinDist collapse into one detection
//   - Arcs shorter than about a third of a circumference are rejected
package detection
