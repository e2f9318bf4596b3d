// Command psodraw runs one body-coverage drawing step end to end: it lays a
// region silhouette out in a view, replays recorded strokes onto it, and
// prints the coverage, zone selection and saved drawing as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/app"
	"psoriasis-draw/internal/config"
	bitmap "psoriasis-draw/internal/image"
	"psoriasis-draw/internal/prefs"
	"psoriasis-draw/internal/processor"
	"psoriasis-draw/internal/surface"
	"psoriasis-draw/internal/version"
	"psoriasis-draw/internal/zone"
	"psoriasis-draw/pkg/geometry"
)

type options struct {
	configPath  string
	zonesPath   string
	jointsPath  string
	maskPath    string
	strokesPath string
	view        string
	outDir      string
	stepID      string
	summaryDir  string
	isolate     bool
}

// report is what psodraw prints on success.
type report struct {
	Version     string             `json:"version"`
	Summary     *app.StepSummary   `json:"summary"`
	SummaryPath string             `json:"summaryPath,omitempty"`
	Body        *app.BodyCoverage  `json:"body,omitempty"`
	Results     *processor.Results `json:"results"`
	Frames      []geometry.Rect    `json:"zoneFrames,omitempty"`
	AspectFit   geometry.Rect      `json:"aspectFit"`
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Config file (.json or .toml)")
	flag.StringVar(&opts.zonesPath, "zones", "", "Zone map (.json, .yaml or .yml)")
	flag.StringVar(&opts.jointsPath, "joints", "", "Joint map (.json, .yaml or .yml), used instead of -zones")
	flag.StringVar(&opts.maskPath, "mask", "", "Body region silhouette image")
	flag.StringVar(&opts.strokesPath, "strokes", "", "Recorded strokes (JSON)")
	flag.StringVar(&opts.view, "view", "", "View size as WxH (defaults to the mask size)")
	flag.StringVar(&opts.outDir, "out", "", "Directory the drawing is saved to (overrides config)")
	flag.StringVar(&opts.stepID, "id", "psoDraw", "Step identifier")
	flag.StringVar(&opts.summaryDir, "summary", "", "Compose a body summary from region drawings in this directory")
	flag.BoolVar(&opts.isolate, "isolate", false, "Keep only the exact fill color of the mask image")
	debug := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("psodraw"))
		return
	}
	if opts.maskPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: psodraw -mask <image> [-zones <map>] [-strokes <json>] [-view WxH] [-out <dir>]")
		os.Exit(2)
	}

	logger := initLogger(*debug)
	logger.WithFields(logrus.Fields{
		"version":    version.Version,
		"debug_mode": *debug,
	}).Debug("Starting psodraw")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := run(ctx, opts, *debug, logger)
	if err != nil {
		logger.WithError(err).Error("Drawing step failed")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		logger.WithError(err).Error("Failed to write results")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, debug bool, logger *logrus.Logger) (*report, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if !bitmap.IsSupportedFormat(opts.maskPath) {
		return nil, fmt.Errorf("unsupported mask format: %s", filepath.Ext(opts.maskPath))
	}
	mask, err := bitmap.Load(opts.maskPath)
	if err != nil {
		return nil, err
	}

	var zones zone.Map
	switch {
	case opts.zonesPath != "" && opts.jointsPath != "":
		return nil, errors.New("-zones and -joints are mutually exclusive")
	case opts.zonesPath != "":
		if zones, err = zone.Load(opts.zonesPath); err != nil {
			return nil, err
		}
	case opts.jointsPath != "":
		joints, err := zone.LoadJointMap(opts.jointsPath)
		if err != nil {
			return nil, err
		}
		zones = joints.Zones()
	}

	viewSize := imageSize(mask)
	if opts.view != "" {
		if viewSize, err = geometry.ParseSize(opts.view); err != nil {
			return nil, err
		}
	}

	var strokes []surface.Stroke
	if opts.strokesPath != "" {
		if strokes, err = loadStrokes(opts.strokesPath); err != nil {
			return nil, err
		}
	}

	store, err := prefs.Open(cfg.PrefsBackend, cfg.PrefsPath, cfg.AppID, logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("cache", prefs.Describe(store)).Debug("Opened baseline cache")
	proc := processor.New(processor.Options{
		Store:       store,
		Logger:      logger,
		Namespace:   cfg.CacheNamespace,
		JPEGQuality: cfg.JPEGQuality,
	})
	defer proc.Close()

	session := app.NewSession(opts.stepID, cfg, zones, mask, proc, logger)
	session.IsolateMask = opts.isolate
	session.On(app.EventMaskApplied, func(data interface{}) {
		logger.WithField("frame", data).Debug("Mask applied")
	})
	session.On(app.EventDrawComplete, func(data interface{}) {
		if st, ok := data.(surface.Stroke); ok {
			logger.WithField("points", len(st.Points)).Debug("Stroke complete")
		}
	})

	if err := session.Layout(viewSize); err != nil {
		return nil, err
	}
	if err := session.Restore(strokes); err != nil {
		return nil, err
	}

	summary, err := session.Complete(ctx)
	if err != nil {
		return nil, err
	}

	rep := &report{
		Version:   version.Version,
		Summary:   summary,
		Results:   proc.Results(),
		Frames:    session.ZoneFrames(),
		AspectFit: session.AspectFit(),
	}

	if opts.summaryDir != "" {
		path, coverage, err := writeBodySummary(ctx, cfg, proc, opts.summaryDir, logger)
		if err != nil {
			return nil, err
		}
		rep.SummaryPath = path
		rep.Body = coverage
	}
	return rep, nil
}

// writeBodySummary composes the region drawings found in dir into one image
// and, when a baseline is cached for their resolution, their whole-body
// coverage.
func writeBodySummary(ctx context.Context, cfg *config.Config, proc *processor.Processor, dir string, logger *logrus.Logger) (string, *app.BodyCoverage, error) {
	images, err := app.LoadRegionImages(ctx, cfg, app.FileLoader(dir, bitmap.FormatPNG, logger), nil, logger)
	if err != nil {
		return "", nil, err
	}
	file, err := app.AttachSummary(ctx, proc, cfg, images)
	if err != nil {
		return "", nil, err
	}
	path := file.Path
	logger.WithField("path", path).Info("Wrote body summary")

	coverage, err := app.ComputeBodyCoverage(ctx, proc, cfg, images)
	if errors.Is(err, app.ErrNoBaseline) {
		logger.WithError(err).Warn("Skipping body coverage, run baselinegen first")
		return path, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return path, coverage, nil
}

func loadStrokes(path string) ([]surface.Stroke, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open strokes: %w", err)
	}
	defer f.Close()
	return surface.DecodeStrokes(f)
}

func imageSize(img image.Image) geometry.Size {
	b := img.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// initLogger logs to stderr so stdout carries only the JSON report.
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
