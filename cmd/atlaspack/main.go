// Command atlaspack packs image files into sprite sheet pages and writes a
// JSON description of where every frame ended up.
//
//	atlaspack [flags] inputs...
//	atlaspack -unpack sheet.json -o frames/
//
// Inputs may be image files or directories. Settings come from the
// defaults, then the -config file, then flags given explicitly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/atlaspack"
	"github.com/gogpu/atlaspack/internal/importer"
	"github.com/gogpu/atlaspack/metadata"
	"github.com/gogpu/atlaspack/trimcache"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "atlaspack:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	cfg        atlaspack.Config
	configPath string
	outDir     string
	name       string
	format     string
	trimCache  string
	unpack     string
	verbose    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	o := &options{cfg: atlaspack.DefaultConfig()}
	fs := flag.NewFlagSet("atlaspack", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&o.outDir, "o", ".", "output directory")
	fs.StringVar(&o.name, "name", "atlas", "base name of the page images and metadata file")
	fs.StringVar(&o.format, "format", metadata.FormatArray.String(), "metadata layout: array or hash")
	fs.StringVar(&o.trimCache, "trim-cache", "", "directory of a persistent trim cache")
	fs.StringVar(&o.unpack, "unpack", "", "unpack the frames of this metadata file instead of packing")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")

	fs.IntVar(&o.cfg.MaxPageWidth, "max-width", o.cfg.MaxPageWidth, "maximum page width")
	fs.IntVar(&o.cfg.MaxPageHeight, "max-height", o.cfg.MaxPageHeight, "maximum page height")
	fs.IntVar(&o.cfg.Padding, "padding", o.cfg.Padding, "padding around every frame")
	fs.BoolVar(&o.cfg.AllowRotation, "rotate", o.cfg.AllowRotation, "allow frames to be rotated 90°")
	fs.TextVar(&o.cfg.GrowPolicy, "grow", o.cfg.GrowPolicy, "page growth: growable or fixed")
	fs.TextVar(&o.cfg.PageSizePolicy, "size", o.cfg.PageSizePolicy, "page size policy: powerOfTwo or exact")
	fs.TextVar(&o.cfg.PaddingMode, "pad-mode", o.cfg.PaddingMode, "padding fill: transparent or clamp-edge")
	fs.TextVar(&o.cfg.Method, "method", o.cfg.Method, "layout method: packed or grid")
	fs.Func("alpha", "alpha trim threshold, 0-255", func(s string) error {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return err
		}
		o.cfg.AlphaTrimThreshold = uint8(v)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if o.configPath != "" {
		cfg, err := atlaspack.LoadConfig(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		// Flags given explicitly override the file.
		o.cfg = cfg
		if err := fs.Parse(args); err != nil {
			return nil, nil, err
		}
	}
	return o, fs.Args(), nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, inputs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		_, err := fmt.Fprintln(stderr, "atlaspack", atlaspack.Version)
		return err
	}
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	atlaspack.SetLogger(logger)

	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}
	if o.unpack != "" {
		return unpack(o, logger)
	}
	if len(inputs) == 0 {
		return errors.New("no inputs")
	}
	return pack(ctx, o, inputs, logger)
}

func pack(ctx context.Context, o *options, inputs []string, logger *slog.Logger) error {
	format, err := metadata.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	var storeOpts []atlaspack.StoreOption
	if o.trimCache != "" {
		cache, err := trimcache.OpenLevelDB(o.trimCache, logger)
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()
		storeOpts = append(storeOpts, atlaspack.WithTrimCache(cache))
	}
	store := atlaspack.NewStore(o.cfg.AlphaTrimThreshold, storeOpts...)
	defer store.Close()

	srcs, err := importer.LoadPaths(inputs)
	if err != nil {
		return err
	}
	if err := store.AddAll(ctx, srcs); err != nil {
		return err
	}

	ctrl, err := atlaspack.NewController(store, o.cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	if err := ctrl.Repack(ctx); err != nil {
		return err
	}
	atlas := ctrl.Atlas()

	pattern := strings.ReplaceAll(o.name, "%", "%%") + "-%d.png"
	if _, err := atlas.SavePages(o.outDir, pattern); err != nil {
		return err
	}
	metaPath := filepath.Join(o.outDir, o.name+".json")
	err = metadata.WriteFile(metaPath, atlas.Layout, metadata.Options{ImagePattern: pattern, Format: format})
	if err != nil {
		return err
	}
	for _, e := range atlas.Layout.Empty {
		logger.Warn("frame is fully transparent", "frame", e.ID)
	}
	logger.Info("wrote atlas",
		"metadata", metaPath,
		"pages", len(atlas.Pages),
		"frames", atlas.Layout.FrameCount(),
		"efficiency", fmt.Sprintf("%.1f%%", atlas.Layout.Efficiency()*100))
	return nil
}

func unpack(o *options, logger *slog.Logger) error {
	sheet, err := metadata.ReadFile(o.unpack)
	if err != nil {
		return err
	}
	pages, err := metadata.LoadPages(sheet, filepath.Dir(o.unpack))
	if err != nil {
		return err
	}
	frames, err := metadata.Unpack(sheet, pages)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(frames))
	for n := range frames {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if !filepath.IsLocal(n + ".png") {
			return fmt.Errorf("frame %q: %w", n, metadata.ErrUnsafePath)
		}
	}
	for _, n := range names {
		if err := frames[n].SavePNG(filepath.Join(o.outDir, n+".png")); err != nil {
			return err
		}
	}
	logger.Info("unpacked frames", "count", len(names), "dir", o.outDir)
	return nil
}
