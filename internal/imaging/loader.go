package imaging

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrLoadFailure is wrapped by every error returned from FindFile, Load and
// ImageCache.Load. A failed load never yields an empty buffer.
var ErrLoadFailure = errors.New("image load failure")

// FindFile resolves name to a readable file.
//
// The literal name is tried first, then name joined onto each directory of
// searchPath in order. Absolute names are never joined.
//
// Returns the first existing regular file, or an error wrapping ErrLoadFailure
// listing how many locations were tried.
func FindFile(name string, searchPath []string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty file name", ErrLoadFailure)
	}

	candidates := []string{name}
	if !filepath.IsAbs(name) {
		for _, dir := range searchPath {
			if dir == "" {
				continue
			}
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found (searched %d locations)", ErrLoadFailure, name, len(candidates))
}

// Load decodes the image at path into an owned colour buffer.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. JPEG EXIF
// orientation is applied so that the buffer matches what a viewer shows.
// The result is always a fresh, fully opaque *image.NRGBA with its origin at
// (0, 0) that the caller may mutate. Alpha is dropped, not composited: every
// pixel keeps its stored colour.
//
// # Errors
//
//   - the file does not exist or cannot be read
//   - the content is not a decodable image
//   - the image has zero width or height
//
// All of them wrap ErrLoadFailure.
func Load(path string) (*image.NRGBA, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return opaqueClone(img), nil
}

func opaqueClone(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func decodeFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image %s: %v", ErrLoadFailure, path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: image %s is empty", ErrLoadFailure, path)
	}
	return img, nil
}

// ImageCache provides thread-safe caching of decoded images to avoid redundant disk reads.
//
// The cache stores decoded images keyed by their file path. Load always hands
// out a private copy, so annotating the returned buffer never changes what
// later callers receive.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/image.png")
//	if err != nil {
//	    return err
//	}
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns a copy of the cached image for path, decoding it from disk on
// first use. Errors wrap ErrLoadFailure, see the package-level Load.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	c.mu.RLock()
	img, ok := c.images[path]
	c.mu.RUnlock()

	if !ok {
		var err error
		img, err = decodeFile(path)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.images[path] = img
		c.mu.Unlock()
	}

	return opaqueClone(img), nil
}
