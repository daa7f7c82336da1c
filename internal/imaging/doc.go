// Package imaging provides the pixel-level building blocks of the circle
// detection pipeline: loading, preprocessing, edge extraction and drawing.
//
// All operations work with standard Go image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases downward.
//
// # Buffers
//
// Colour buffers are *image.NRGBA with opaque alpha; Load and ImageCache.Load
// always return a fresh copy the caller owns and may draw on. Grayscale
// buffers are *image.Gray. Every function that derives one buffer from another
// keeps the spatial dimensions unchanged, so coordinates found on a grayscale
// buffer are valid on the colour buffer it came from.
//
// # Preprocessing
//
// Grayscale uses ITU-R BT.601 luminance weights. MedianBlur suppresses
// salt-and-pepper noise that would otherwise create spurious edges; the window
// size must be odd.
//
// # Error Handling
//
// Load failures (missing file, unreadable or undecodable content) wrap
// ErrLoadFailure so callers can tell them apart with errors.Is. Other
// functions return errors only for invalid arguments such as an even median
// window or an empty image.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
package imaging
