// Package source locates and decodes serialized table bundles.
//
// Each supported file format registers a [Format] at init time. A decoder
// turns raw bytes into the loader's raw value (normally []*frame.Frame, but
// any value is passed through) and leaves shape validation and naming to
// catalog.Construct. Database sources live alongside the file formats but
// are called directly since they have no file to dispatch on.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnsupportedFormat is returned when no registered format handles a file.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyFile is returned by decoders that find no data at all.
var ErrEmptyFile = errors.New("empty file")

// Options carries decoder settings that come from configuration.
type Options struct {
	// MaxTables caps remote sources that enumerate tables (0 = unlimited).
	MaxTables int

	// RowLimit caps rows read per table by database sources (0 = unlimited).
	RowLimit int

	// Timeout bounds remote calls made by a decoder (0 = none).
	Timeout time.Duration
}

// DecodeFunc decodes one serialized bundle into a raw value.
type DecodeFunc func(ctx context.Context, r io.Reader, opts Options) (any, error)

// Format describes a decodable file type.
type Format struct {
	Name       string   // Short identifier: "json", "arrow", ...
	Label      string   // Display name: "Arrow IPC bundle"
	Extensions []string // Lowercase, with dot: ".arrows"
	Decode     DecodeFunc
}

var (
	formats   = make(map[string]Format) // by extension
	formatsMu sync.RWMutex
)

// Register adds a format. Panics if one of its extensions is taken.
func Register(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	for _, ext := range f.Extensions {
		ext = strings.ToLower(ext)
		if existing, ok := formats[ext]; ok {
			panic(fmt.Sprintf("extension %s already registered by %s", ext, existing.Name))
		}
		formats[ext] = f
	}
}

// ForPath returns the format registered for the file's extension.
func ForPath(path string) (Format, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	f, ok := formats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Extensions returns every registered extension, sorted.
func Extensions() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether a registered format handles path.
func Supported(path string) bool {
	_, ok := ForPath(path)
	return ok
}

// Decode picks a format by name's extension and decodes r.
func Decode(ctx context.Context, name string, r io.Reader, opts Options) (any, error) {
	f, ok := ForPath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}

	raw, err := f.Decode(ctx, r, opts)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return raw, nil
}

// DecodeFile opens path and decodes it.
func DecodeFile(ctx context.Context, path string, opts Options) (any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer file.Close()

	return Decode(ctx, path, file, opts)
}
