// Command bundle packs tabular files into one Arrow IPC bundle that the
// viewer can load.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/core"
	"github.com/JonMunkholm/frameview/internal/frame"
	"github.com/JonMunkholm/frameview/internal/logging"
	"github.com/JonMunkholm/frameview/internal/source"
)

func main() {
	out := flag.String("out", "bundle.arrows", "Path of the bundle to write")
	format := flag.String("format", formatArrow, "Bundle layout: arrow or json")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `bundle packs data files into an Arrow IPC bundle.

Usage:
  bundle -out sales.arrows q1.csv q2.parquet extra.json
  bundle -format json -out sales.json q1.csv

Each table is named after its file stem. Files holding several tables get
a 1-based suffix (extra_1, extra_2).

Supported inputs: %s

Flags:
`, strings.Join(source.Extensions(), " "))
		flag.PrintDefaults()
	}
	flag.Parse()

	cleanup := logging.Setup(*logLevel, "text", "")
	defer cleanup()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), *out, *format, flag.Args()); err != nil {
		slog.Debug("bundle failed", "error", err, "code", core.MapError(err).Code)
		fmt.Fprintf(os.Stderr, "bundle: %v\n%s\n", err, core.FormatUserError(err))
		cleanup()
		os.Exit(exitCode(err))
	}
}

const (
	formatArrow = "arrow"
	formatJSON  = "json"
)

var errUnknownFormat = errors.New("unknown bundle format")

// exitCode is 3 when an input could not be read as tables and 1 otherwise.
func exitCode(err error) int {
	if catalog.IsLoadError(err) {
		return 3
	}
	return 1
}

// run decodes inputs and writes them to out as one bundle.
func run(ctx context.Context, out, format string, inputs []string) error {
	var write func(io.Writer, []*frame.Frame) error
	switch format {
	case formatArrow:
		write = source.WriteArrowBundle
	case formatJSON:
		write = source.EncodeJSONBundle
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	var frames []*frame.Frame
	for _, path := range inputs {
		fs, err := collect(ctx, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		frames = append(frames, fs...)
	}
	if len(frames) == 0 {
		return errors.New("no tables found in inputs")
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := write(f, frames); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	slog.Info("bundle written", "path", out, "format", format, "tables", len(frames))
	return nil
}

// collect decodes one file into named frames.
func collect(ctx context.Context, path string) ([]*frame.Frame, error) {
	raw, err := source.DecodeFile(ctx, path, source.Options{})
	if err != nil {
		return nil, catalog.NewLoadError(err)
	}
	cat, err := catalog.Construct(raw)
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	frames := make([]*frame.Frame, 0, cat.Len())
	for i, ds := range cat.Datasets() {
		f, ok := core.FrameOf(ds)
		if !ok {
			return nil, fmt.Errorf("table %d is not exportable", i)
		}
		name := stem
		if cat.Len() > 1 {
			name = fmt.Sprintf("%s_%d", stem, i+1)
		}
		frames = append(frames, f.WithAttr(catalog.NameAttr, name))
	}

	slog.Debug("collected tables", "path", path, "tables", len(frames))
	return frames, nil
}
