// Package pipeline runs circle detection end to end:
// load, preprocess, detect, annotate, present.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/circle-detect/internal/annotate"
	"github.com/ironsheep/circle-detect/internal/config"
	"github.com/ironsheep/circle-detect/internal/detection"
	"github.com/ironsheep/circle-detect/internal/display"
	"github.com/ironsheep/circle-detect/internal/imaging"
)

// State is a stage of a run. Stages only move forward.
type State int

const (
	StateLoad State = iota
	StatePreprocess
	StateDetect
	StateAnnotate
	StatePresent
	StateExited
)

func (s State) String() string {
	switch s {
	case StateLoad:
		return "load"
	case StatePreprocess:
		return "preprocess"
	case StateDetect:
		return "detect"
	case StateAnnotate:
		return "annotate"
	case StatePresent:
		return "present"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is what a run produced. On error, State is the stage that failed and
// only the fields of earlier stages are set.
type Result struct {
	State   State
	Path    string
	Source  *image.NRGBA // annotated in place once StateAnnotate completes
	Gray    *image.Gray
	Circles *detection.CirclesResult
}

// Pipeline carries the configuration and collaborators of a run.
type Pipeline struct {
	cfg     config.Config
	display display.Display
	cache   *imaging.ImageCache
	stdout  io.Writer
	logger  *zap.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithStdout sets where the buffer shapes are printed. Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) { p.stdout = w }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithCache shares an image cache between pipelines.
func WithCache(c *imaging.ImageCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// New returns a pipeline that presents its result on d.
func New(cfg config.Config, d display.Display, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		display: d,
		stdout:  os.Stdout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = imaging.NewImageCache()
	}
	return p
}

// Run executes every stage in order and blocks in the present stage until
// the display reports a key press. A load failure stops the run before
// anything is shown and wraps imaging.ErrLoadFailure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{State: StateLoad}
	if err := p.cfg.Validate(); err != nil {
		return res, fmt.Errorf("invalid config: %w", err)
	}
	if p.display == nil {
		return res, errors.New("no display configured")
	}

	p.enter(res, StateLoad)
	path, err := imaging.FindFile(p.cfg.Image, p.cfg.SearchPath)
	if err != nil {
		return res, err
	}
	src, err := p.cache.Load(path)
	if err != nil {
		return res, err
	}
	res.Path = path
	p.logger.Info("image loaded",
		zap.String("path", path),
		zap.Int("width", src.Bounds().Dx()),
		zap.Int("height", src.Bounds().Dy()))

	if err := p.process(res, src); err != nil {
		return res, err
	}

	p.enter(res, StatePresent)
	err = display.Present(ctx, p.display, p.cfg.WindowTitle, res.Source, p.cfg.DisplayWidth, p.cfg.DisplayHeight)
	if err != nil {
		return res, fmt.Errorf("present: %w", err)
	}

	p.enter(res, StateExited)
	return res, nil
}

// Process runs the preprocess, detect and annotate stages on src, drawing on
// it in place. It is Run without the file and the display.
func (p *Pipeline) Process(src *image.NRGBA) (*Result, error) {
	res := &Result{State: StatePreprocess}
	if err := p.cfg.Validate(); err != nil {
		return res, fmt.Errorf("invalid config: %w", err)
	}
	err := p.process(res, src)
	return res, err
}

func (p *Pipeline) process(res *Result, src *image.NRGBA) error {
	res.Source = src

	p.enter(res, StatePreprocess)
	gray, err := imaging.Preprocess(src, p.cfg.BlurSize)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if gray.Bounds().Size() != src.Bounds().Size() {
		return fmt.Errorf("preprocess: gray buffer %v does not match colour buffer %v",
			gray.Bounds().Size(), src.Bounds().Size())
	}
	res.Gray = gray
	fmt.Fprintf(p.stdout, "(%d, %d)\n", gray.Bounds().Dy(), gray.Bounds().Dx())

	p.enter(res, StateDetect)
	circles, err := detection.HoughCircles(gray, p.cfg.Detector)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	// Centers are relative to the gray origin; shift them onto the colour buffer
	if off := src.Bounds().Min.Sub(gray.Bounds().Min); off != (image.Point{}) {
		for i := range circles.Circles {
			circles.Circles[i].Center.X += off.X
			circles.Circles[i].Center.Y += off.Y
		}
	}
	res.Circles = circles
	p.logger.Info("circles detected",
		zap.Int("count", circles.Count),
		zap.Int("edge_pixels", circles.EdgePixels))
	if circles.Count > 0 {
		shape := circles.Shape()
		fmt.Fprintf(p.stdout, "(%d, %d, %d)\n", shape[0], shape[1], shape[2])
	}
	for i, c := range circles.Circles {
		p.logger.Debug("circle",
			zap.Int("rank", i),
			zap.Int("x", c.Center.X),
			zap.Int("y", c.Center.Y),
			zap.Int("radius", c.Radius),
			zap.Int("votes", c.Votes))
	}

	p.enter(res, StateAnnotate)
	if err := annotate.Annotate(src, circles.Circles, p.cfg.Style); err != nil {
		return fmt.Errorf("annotate: %w", err)
	}
	return nil
}

func (p *Pipeline) enter(res *Result, s State) {
	res.State = s
	p.logger.Debug("stage", zap.Stringer("state", s))
}
