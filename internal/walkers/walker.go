package walkers

import (
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"edge-log-analytics/internal/shared/loggers"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
)

const (
	ContainerFile  = "file"
	ContainerGzip  = "gzip"
	ContainerBzip2 = "bzip2"
	Container7z    = "7z"
)

var (
	ErrInputNotFound = errors.New("input not found")
	ErrOpenArchive   = errors.New("failed to open archive")
)

// StreamFunc receives every decodable stream found in an input file. name identifies the
// stream for logs, e.g. "logs/day1.7z!access.log.bz2".
type StreamFunc func(ctx context.Context, name string, r io.Reader) error

//go:generate mockgen -source=walker.go -destination=./mocks/walker_mock.go -package=mocks
type Walker interface {
	// Discover lists the input files under root, a file or a directory, in lexical order.
	Discover(ctx context.Context, root string) ([]string, error)
	// Expand opens path, unpacks its containers and calls fn once per log stream.
	Expand(ctx context.Context, path string, fn StreamFunc) error
}

type walker struct{}

func NewWalker() Walker {
	return &walker{}
}

func (w *walker) Discover(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, root)
		}
		return nil, fmt.Errorf("failed to stat input %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	logger := loggers.Ctx(ctx)
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supported(d.Name()) {
			logger.Debug().Str(loggers.FieldFile, path).Msg("skipped unsupported file")
			metricFileSkippedTotal.WithLabelValues().Inc()
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

func (w *walker) Expand(ctx context.Context, path string, fn StreamFunc) error {
	if ext(path) == ".7z" {
		return w.expand7z(ctx, path, fn)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	metricFileWalkedTotal.WithLabelValues(ContainerFile).Inc()
	return w.dispatch(ctx, path, filepath.Base(path), f, fn, false)
}

func (w *walker) expand7z(ctx context.Context, path string, fn StreamFunc) error {
	archive, err := sevenzip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenArchive, path, err)
	}
	defer archive.Close()

	metricFileWalkedTotal.WithLabelValues(Container7z).Inc()
	entries := make([]archiveEntry, 0, len(archive.File))
	for _, f := range archive.File {
		entries = append(entries, archiveEntry{name: f.Name, isDir: f.FileInfo().IsDir(), open: f.Open})
	}
	return w.expandEntries(ctx, path, entries, fn)
}

type archiveEntry struct {
	name  string
	isDir bool
	open  func() (io.ReadCloser, error)
}

func (w *walker) expandEntries(ctx context.Context, path string, entries []archiveEntry, fn StreamFunc) error {
	for _, entry := range entries {
		if entry.isDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.expandEntry(ctx, path+"!"+entry.name, entry, fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) expandEntry(ctx context.Context, name string, entry archiveEntry, fn StreamFunc) error {
	rc, err := entry.open()
	if err != nil {
		return fmt.Errorf("%w: entry %s: %w", ErrOpenArchive, name, err)
	}
	defer rc.Close()
	return w.dispatch(ctx, name, filepath.Base(entry.name), rc, fn, false)
}

// dispatch routes r on the extension of base. Plain .log and .json streams go to fn, as do
// decompressed streams whose inner name has no extension at all.
func (w *walker) dispatch(ctx context.Context, name, base string, r io.Reader, fn StreamFunc, decompressed bool) error {
	logger := loggers.Ctx(ctx)

	switch ext(base) {
	case ".log", ".json":
		return fn(ctx, name, r)
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream %s: %w", name, err)
		}
		defer gz.Close()
		metricFileWalkedTotal.WithLabelValues(ContainerGzip).Inc()
		return w.dispatch(ctx, name, strings.TrimSuffix(base, filepath.Ext(base)), gz, fn, true)
	case ".bz2":
		metricFileWalkedTotal.WithLabelValues(ContainerBzip2).Inc()
		return w.dispatch(ctx, name, strings.TrimSuffix(base, filepath.Ext(base)), bzip2.NewReader(r), fn, true)
	case ".7z":
		logger.Warn().Str(loggers.FieldFile, name).Msg("skipped 7z archive nested in a stream")
		metricFileSkippedTotal.WithLabelValues().Inc()
		return nil
	default:
		if decompressed && filepath.Ext(base) == "" {
			return fn(ctx, name, r)
		}
		logger.Debug().Str(loggers.FieldFile, name).Msg("skipped unsupported stream")
		metricFileSkippedTotal.WithLabelValues().Inc()
		return nil
	}
}

func ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

func supported(name string) bool {
	switch ext(name) {
	case ".log", ".json", ".gz", ".bz2", ".7z":
		return true
	}
	return false
}
