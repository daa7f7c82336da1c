package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/circle-detect/internal/config"
	"github.com/ironsheep/circle-detect/internal/detection"
	"github.com/ironsheep/circle-detect/internal/imaging"
)

type disk struct {
	cx, cy, r int
}

var (
	background = color.NRGBA{30, 30, 60, 255}
	foreground = color.NRGBA{230, 210, 180, 255}
)

// recordingDisplay remembers what it was asked to show.
type recordingDisplay struct {
	title  string
	frame  image.Rectangle
	shown  int
	waited int
}

func (d *recordingDisplay) Show(title string, img image.Image) error {
	d.title = title
	d.frame = img.Bounds()
	d.shown++
	return nil
}

func (d *recordingDisplay) WaitKey(ctx context.Context) error {
	d.waited++
	return ctx.Err()
}

func diskImage(width, height int, disks ...disk) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := background
			for _, d := range disks {
				dx, dy := x-d.cx, y-d.cy
				if dx*dx+dy*dy <= d.r*d.r {
					c = foreground
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synthetic.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func testConfig(imagePath string) config.Config {
	cfg := config.Default()
	cfg.Image = imagePath
	cfg.SearchPath = nil
	return cfg
}

func matchDisk(c detection.Circle, truth []disk, tol float64) (disk, bool) {
	for _, d := range truth {
		dist := math.Hypot(float64(c.Center.X-d.cx), float64(c.Center.Y-d.cy))
		if dist <= tol && math.Abs(float64(c.Radius-d.r)) <= tol {
			return d, true
		}
	}
	return disk{}, false
}

func TestRun_ThreeDisks(t *testing.T) {
	truth := []disk{
		{cx: 110, cy: 120, r: 15},
		{cx: 330, cy: 150, r: 20},
		{cx: 220, cy: 370, r: 25},
	}
	original := diskImage(500, 500, truth...)
	path := writePNG(t, original)

	var stdout bytes.Buffer
	d := &recordingDisplay{}
	p := New(testConfig(path), d, WithStdout(&stdout))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExited, res.State)
	assert.Equal(t, path, res.Path)

	// Exactly one detection per disk
	require.Equal(t, 3, res.Circles.Count, "circles: %+v", res.Circles.Circles)
	seen := map[disk]bool{}
	for _, c := range res.Circles.Circles {
		d, ok := matchDisk(c, truth, 2)
		require.True(t, ok, "circle %+v matches no disk", c)
		assert.False(t, seen[d], "disk %+v detected twice", d)
		seen[d] = true
	}

	// Buffers keep their dimensions
	assert.Equal(t, original.Bounds(), res.Source.Bounds())
	assert.Equal(t, original.Bounds().Size(), res.Gray.Bounds().Size())

	// Pixels changed only around centers and rings, and around every one of them
	touched := make([]bool, len(truth))
	b := res.Source.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if res.Source.NRGBAAt(x, y) == original.NRGBAAt(x, y) {
				continue
			}
			near := false
			for i, d := range truth {
				dist := math.Hypot(float64(x-d.cx), float64(y-d.cy))
				// Detections are within 2px of the truth in center and radius
				if dist <= 5 || math.Abs(dist-float64(d.r)) <= 6 {
					near = true
					touched[i] = true
				}
			}
			if !near {
				t.Fatalf("pixel (%d,%d) changed away from any disk", x, y)
			}
		}
	}
	for i, d := range truth {
		assert.True(t, touched[i], "disk %+v was not annotated", d)
		assert.NotEqual(t, original.NRGBAAt(d.cx, d.cy), res.Source.NRGBAAt(d.cx, d.cy), "center of %+v not marked", d)
	}

	// Presented once, at display size, under the window title
	assert.Equal(t, 1, d.shown)
	assert.Equal(t, 1, d.waited)
	assert.Equal(t, "detected circles", d.title)
	assert.Equal(t, image.Rect(0, 0, 1280, 800), d.frame)

	assert.Equal(t, "(500, 500)\n(1, 3, 3)\n", stdout.String())
}

func TestRun_LoadFailure(t *testing.T) {
	d := &recordingDisplay{}
	var stdout bytes.Buffer
	p := New(testConfig(filepath.Join(t.TempDir(), "missing.png")), d, WithStdout(&stdout))

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrLoadFailure), "got %v", err)
	assert.Equal(t, StateLoad, res.State)
	assert.Nil(t, res.Source)
	assert.Zero(t, d.shown, "nothing may be shown after a load failure")
	assert.Empty(t, stdout.String())
}

func TestRun_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("\xff\xd8 truncated"), 0o644))

	_, err := New(testConfig(path), &recordingDisplay{}, WithStdout(&bytes.Buffer{})).Run(context.Background())
	assert.True(t, errors.Is(err, imaging.ErrLoadFailure), "got %v", err)
}

func TestRun_SearchPath(t *testing.T) {
	path := writePNG(t, diskImage(120, 100))

	cfg := testConfig(filepath.Base(path))
	cfg.SearchPath = []string{t.TempDir(), filepath.Dir(path)}

	var stdout bytes.Buffer
	res, err := New(cfg, &recordingDisplay{}, WithStdout(&stdout)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)

	// No detections: only the gray shape is printed
	assert.Equal(t, 0, res.Circles.Count)
	assert.Equal(t, "(100, 120)\n", stdout.String())
}

func TestRun_CancelledWhilePresenting(t *testing.T) {
	path := writePNG(t, diskImage(80, 80))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(testConfig(path), &recordingDisplay{}, WithStdout(&bytes.Buffer{})).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatePresent, res.State)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.BlurSize = 2

	_, err := New(cfg, &recordingDisplay{}).Run(context.Background())
	assert.Error(t, err)

	_, err = New(config.Default(), nil).Run(context.Background())
	assert.Error(t, err)
}

func TestProcess_SingleDisk(t *testing.T) {
	truth := disk{cx: 70, cy: 60, r: 22}
	src := diskImage(150, 130, truth)

	var stdout bytes.Buffer
	res, err := New(config.Default(), nil, WithStdout(&stdout)).Process(src)
	require.NoError(t, err)

	assert.Equal(t, StateAnnotate, res.State)
	require.NotZero(t, res.Circles.Count)
	_, ok := matchDisk(res.Circles.Circles[0], []disk{truth}, 2)
	assert.True(t, ok, "top circle %+v", res.Circles.Circles[0])
	assert.True(t, strings.HasPrefix(stdout.String(), "(130, 150)\n"))
	assert.Same(t, src, res.Source)
}

func TestState_String(t *testing.T) {
	want := []string{"load", "preprocess", "detect", "annotate", "present", "exited"}
	for i, w := range want {
		assert.Equal(t, w, State(i).String())
	}
	assert.Equal(t, "state(42)", State(42).String())
}
