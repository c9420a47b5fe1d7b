// Package finder lists directories and finds files whose names are close to
// a requested name anywhere below a root directory.
package finder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultCutoff is the similarity threshold used when none is given.
const DefaultCutoff = 0.6

// Finder searches a filesystem. The zero value is not usable; use New.
type Finder struct {
	fs        afero.Fs
	logger    *zap.Logger
	maxPerDir int
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger that reports skipped directories.
func WithLogger(l *zap.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMaxPerDirectory keeps at most n best matches from each directory.
// n <= 0 keeps every match.
func WithMaxPerDirectory(n int) Option {
	return func(f *Finder) { f.maxPerDir = n }
}

// New returns a Finder over fs. A nil fs means the host filesystem.
func New(fs afero.Fs, opts ...Option) *Finder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f := &Finder{fs: fs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ListDirectory lists path on the host filesystem.
func ListDirectory(path string) []string {
	return New(nil).ListDirectory(path)
}

// SearchDirectory searches path on the host filesystem.
func SearchDirectory(path, filename string, cutoff float64) []string {
	return New(nil).SearchDirectory(path, filename, cutoff)
}

// ListDirectory returns the names of the entries directly inside path,
// sorted by name. It never fails: when path cannot be read the result holds
// a single element with the error text.
func (f *Finder) ListDirectory(path string) []string {
	infos, err := afero.ReadDir(f.fs, path)
	if err != nil {
		return []string{err.Error()}
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

// SearchDirectory walks path and returns the files whose names score at
// least cutoff against filename. Directories are visited depth first in
// name order, parents before children. Within one directory the best
// matches come first. Unreadable directories are skipped. Returned paths
// are joined with filepath.Join and therefore cleaned, so a search from
// "./" yields "finder.go" rather than "./finder.go".
func (f *Finder) SearchDirectory(path, filename string, cutoff float64) []string {
	matches, _ := f.SearchDirectoryContext(context.Background(), path, filename, cutoff)
	return matches
}

// SearchDirectoryContext is SearchDirectory with cancellation. The context is
// checked before each directory is read; on cancellation the matches found so
// far are returned together with the context error.
func (f *Finder) SearchDirectoryContext(ctx context.Context, path, filename string, cutoff float64) ([]string, error) {
	w := &walker{
		finder:  f,
		matcher: NewMatcher(filename),
		cutoff:  cutoff,
		matches: []string{},
	}
	err := w.walk(ctx, path)
	return w.matches, err
}

type walker struct {
	finder  *Finder
	matcher *Matcher
	cutoff  float64
	matches []string
}

func (w *walker) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := afero.ReadDir(w.finder.fs, dir)
	if err != nil {
		w.finder.logger.Debug("skipping unreadable directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	var files, subdirs []string
	for _, info := range infos {
		switch w.finder.kind(dir, info) {
		case kindDir:
			subdirs = append(subdirs, info.Name())
		case kindFile:
			files = append(files, info.Name())
		}
	}

	for _, m := range w.matcher.Rank(files, w.finder.maxPerDir, w.cutoff) {
		w.matches = append(w.matches, filepath.Join(dir, m.Name))
	}

	for _, sub := range subdirs {
		if err := w.walk(ctx, filepath.Join(dir, sub)); err != nil {
			return err
		}
	}
	return nil
}

type entryKind int

const (
	kindSkip entryKind = iota
	kindFile
	kindDir
)

// kind classifies a directory entry. Symbolic links are resolved: links to
// directories are neither searched nor descended into, any other link
// (including a dangling one) is a file candidate.
func (f *Finder) kind(dir string, info os.FileInfo) entryKind {
	if info.Mode()&os.ModeSymlink == 0 {
		if info.IsDir() {
			return kindDir
		}
		return kindFile
	}
	target, err := f.fs.Stat(filepath.Join(dir, info.Name()))
	if err == nil && target.IsDir() {
		return kindSkip
	}
	return kindFile
}
