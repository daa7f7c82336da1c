package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/circle-detect/internal/config"
	"github.com/ironsheep/circle-detect/internal/display"
	"github.com/ironsheep/circle-detect/internal/logger"
	"github.com/ironsheep/circle-detect/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type command int

const (
	commandRun command = iota
	commandVersion
	commandHelp
)

// parseArgs decides what to do from the arguments after the program name.
// The only positional argument is the image; anything else that looks like
// an option is refused rather than taken for a file name.
func parseArgs(args []string) (command, string, error) {
	if len(args) == 0 {
		return commandRun, "", nil
	}
	switch args[0] {
	case "--version", "-v", "version":
		return commandVersion, "", nil
	case "--help", "-h", "help":
		return commandHelp, "", nil
	}
	if strings.HasPrefix(args[0], "-") {
		return commandRun, "", fmt.Errorf("unknown option %q", args[0])
	}
	if len(args) > 1 {
		return commandRun, "", fmt.Errorf("unexpected argument %q", args[1])
	}
	return commandRun, args[0], nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "circle-detect - find circles in an image and show them")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: circle-detect [options] [image]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=circles.yaml      Overlay settings from a YAML file\n", config.EnvConfigFile)
	fmt.Fprintf(w, "  %s=dir1:dir2   Extra directories to find the image in\n", config.EnvSamplesPath)
	fmt.Fprintf(w, "  %s=out          Where the annotated frame is written\n", config.EnvOutputDir)
	fmt.Fprintf(w, "  %s=debug         Enable debug logging\n", config.EnvLogLevel)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without an image argument the configured sample (fang.JPG) is used.")
}

func main() {
	cmd, image, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "circle-detect: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	}
	switch cmd {
	case commandVersion:
		fmt.Printf("circle-detect %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case commandHelp:
		printUsage(os.Stdout)
		return
	}

	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "circle-detect: %v\n", err)
		os.Exit(1)
	}
	if image != "" {
		cfg.Image = image
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "circle-detect: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(level); err != nil {
		fmt.Fprintf(os.Stderr, "circle-detect: failed to initialise logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Log()
	log.Debug("circle-detect starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := display.NewFileDisplay(cfg.OutputDir, log)
	res, err := pipeline.New(cfg, d, pipeline.WithLogger(log)).Run(ctx)
	if err != nil {
		log.Error("circle detection failed",
			zap.Stringer("state", res.State),
			zap.String("image", cfg.Image),
			zap.Error(err))
		logger.Sync()
		stop()
		os.Exit(1)
	}
	log.Debug("circle-detect finished", zap.String("frame", d.LastPath()))
}
