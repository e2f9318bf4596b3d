// Command baselinegen precomputes full-coverage baselines: for every
// rendering size it fills each body region mask and stores the reachable
// pixel counts in the preferences file the drawing steps read from.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/app"
	"psoriasis-draw/internal/config"
	bitmap "psoriasis-draw/internal/image"
	"psoriasis-draw/internal/prefs"
	"psoriasis-draw/internal/processor"
	"psoriasis-draw/internal/version"
	"psoriasis-draw/pkg/geometry"
)

func main() {
	configPath := flag.String("config", "", "Config file (.json or .toml)")
	masksDir := flag.String("masks", "", "Directory holding <region>.png silhouettes")
	sizes := flag.String("sizes", "326x412", "Comma-separated rendering sizes (WxH)")
	force := flag.Bool("force", false, "Recompute baselines that are already cached")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("baselinegen"))
		return
	}
	if *masksDir == "" {
		fmt.Println("Usage: baselinegen -masks <dir> [-sizes 326x412,652x824] [-config <file>] [-force]")
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	keys, err := parseSizes(*sizes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -sizes: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	masks, err := loadMasks(*masksDir, cfg.Regions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load masks: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := prefs.Open(cfg.PrefsBackend, cfg.PrefsPath, cfg.AppID, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open baseline cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Baseline cache: %s\n", prefs.Describe(store))
	if err := generate(ctx, os.Stdout, cfg, store, masks, keys, *force, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Baseline generation failed: %v\n", err)
		os.Exit(1)
	}
}

// generate computes and stores the baseline for each key and prints one
// table row per resolution.
func generate(ctx context.Context, w io.Writer, cfg *config.Config, store prefs.Cache, masks map[string]image.Image, keys []processor.ResolutionKey, force bool, logger *logrus.Logger) error {
	proc := processor.New(processor.Options{
		Store:     store,
		Logger:    logger,
		Namespace: cfg.CacheNamespace,
	})
	defer proc.Close()

	factory := app.MaskFactory(masks)

	fmt.Fprintf(w, "%-12s", "Size")
	for _, region := range cfg.Regions {
		fmt.Fprintf(w, " %20s", region)
	}
	fmt.Fprintf(w, " %10s\n", "Total")

	for _, key := range keys {
		if force {
			store.Delete(proc.BaselineKey(key))
		}
		counts, err := proc.ComputeFullCoverageBaseline(ctx, key, cfg.Regions, factory)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-12s", key)
		for _, n := range counts {
			fmt.Fprintf(w, " %20d", n)
		}
		fmt.Fprintf(w, " %10d\n", processor.BaselineTotal(counts))
	}
	fmt.Fprintf(w, "\nFill passes: %d\n", proc.FillCount())
	return proc.Wait(ctx)
}

func parseSizes(s string) ([]processor.ResolutionKey, error) {
	var keys []processor.ResolutionKey
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		size, err := geometry.ParseSize(part)
		if err != nil {
			return nil, err
		}
		keys = append(keys, processor.KeyFor(size))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return keys, nil
}

func loadMasks(dir string, regions []string) (map[string]image.Image, error) {
	masks := make(map[string]image.Image, len(regions))
	for _, region := range regions {
		img, err := bitmap.Load(filepath.Join(dir, region+".png"))
		if err != nil {
			return nil, err
		}
		masks[region] = img
	}
	return masks, nil
}
