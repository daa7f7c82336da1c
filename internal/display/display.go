// Package display presents annotated frames and waits for the user.
//
// There is no windowing toolkit behind it. A Display receives a finished frame
// under a window title and then blocks until the user acknowledges it.
// FileDisplay writes the frame as a PNG named after the title and waits for
// a key on its input stream.
package display

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Display shows a frame and blocks for acknowledgement.
type Display interface {
	// Show makes img visible under title.
	Show(title string, img image.Image) error

	// WaitKey blocks until a key is pressed or ctx ends.
	WaitKey(ctx context.Context) error
}

// Fit resizes img to exactly width x height using Lanczos resampling.
// The aspect ratio is not preserved; a source of a different shape is
// stretched rather than letterboxed.
func Fit(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("display size must be positive, got %dx%d", width, height)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot display an empty image")
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// Present fits img to width x height, shows it under title, and blocks
// until d reports a key press.
func Present(ctx context.Context, d Display, title string, img image.Image, width, height int) error {
	frame, err := Fit(img, width, height)
	if err != nil {
		return err
	}
	if err := d.Show(title, frame); err != nil {
		return fmt.Errorf("show %q: %w", title, err)
	}
	return d.WaitKey(ctx)
}

// FileDisplay saves frames as PNG files in Dir and reads key presses from In.
type FileDisplay struct {
	Dir    string
	In     io.Reader
	Prompt io.Writer
	Logger *zap.Logger

	lastPath string
}

// NewFileDisplay returns a display writing into dir and waiting on stdin.
func NewFileDisplay(dir string, logger *zap.Logger) *FileDisplay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileDisplay{
		Dir:    dir,
		In:     os.Stdin,
		Prompt: os.Stderr,
		Logger: logger,
	}
}

// FileName maps a window title to the file Show writes.
func FileName(title string) string {
	name := strings.Join(strings.Fields(strings.ToLower(title)), "-")
	if name == "" {
		name = "frame"
	}
	return name + ".png"
}

// Show writes img to Dir/FileName(title).
func (d *FileDisplay) Show(title string, img image.Image) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(d.Dir, FileName(title))
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save frame: %w", err)
	}

	d.lastPath = path
	b := img.Bounds()
	d.Logger.Info("frame shown",
		zap.String("title", title),
		zap.String("path", path),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))
	return nil
}

// LastPath returns the file written by the most recent Show.
func (d *FileDisplay) LastPath() string {
	return d.lastPath
}

// WaitKey blocks until one byte can be read from In. End of input counts as a
// key press so that the program also ends when stdin is closed or redirected.
func (d *FileDisplay) WaitKey(ctx context.Context) error {
	if d.Prompt != nil {
		fmt.Fprintln(d.Prompt, "Press Enter to exit.")
	}

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(d.In).ReadByte()
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("waiting for key: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
