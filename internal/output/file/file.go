// Package file writes classified abstracts as NDJSON files. The path may
// carry a {source} placeholder so each abstract source gets its own file,
// and files rotate between abstracts once they pass a size limit.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
)

// SourcePlaceholder in a path is replaced by the abstract's source name.
const SourcePlaceholder = "{source}"

const (
	defaultBufSize    = 64 * 1024
	defaultMaxBackups = 5
	unknownSource     = "unknown"
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the size in bytes past which a file is rotated before
// the next abstract. 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithMaxBackups sets how many rotated files ({path}.1 .. {path}.n) are
// kept. Default: 5.
func WithMaxBackups(n int) Option {
	return func(o *Output) { o.maxBackups = n }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output writes one JSON line per classified abstract.
type Output struct {
	mu         sync.Mutex
	pattern    string
	verbosity  output.Verbosity
	maxSize    int64
	maxBackups int
	bufSize    int
	sinks      map[string]*sink
	written    int
}

// sink is one open NDJSON file.
type sink struct {
	path      string
	f         *os.File
	w         *bufio.Writer
	size      int64
	abstracts int // lines in the current file
}

// New creates a file output. Without a {source} placeholder the file is
// opened immediately so a bad path fails before any classification.
func New(path string, verbosity output.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		pattern:    path,
		verbosity:  verbosity,
		maxBackups: defaultMaxBackups,
		bufSize:    defaultBufSize,
		sinks:      make(map[string]*sink),
	}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.Contains(path, SourcePlaceholder) {
		if _, err := o.sinkFor(path); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// PathFor returns the file an abstract from source is written to.
func (o *Output) PathFor(source string) string {
	if source == "" {
		source = unknownSource
	}
	return strings.ReplaceAll(o.pattern, SourcePlaceholder, source)
}

// Written returns the number of abstracts written since New.
func (o *Output) Written() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Write appends a as one line. A line never straddles two files: rotation
// happens before the abstract that would cross the limit, and an empty
// file always takes the abstract whole.
func (o *Output) Write(_ context.Context, a model.ClassifiedAbstract) error {
	data, err := json.Marshal(output.FormatAbstract(a, o.verbosity))
	if err != nil {
		return fmt.Errorf("file output: marshal %s: %w", a.ID, err)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	s, err := o.sinkFor(o.PathFor(a.Source))
	if err != nil {
		return err
	}
	if o.maxSize > 0 && s.size > 0 && s.size+int64(len(data)) > o.maxSize {
		if err := o.rotate(s); err != nil {
			return fmt.Errorf("file output: rotate %s: %w", s.path, err)
		}
	}
	n, err := s.w.Write(data)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write %s: %w", s.path, err)
	}
	s.abstracts++
	o.written++
	return nil
}

// Close flushes and closes every open file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var firstErr error
	for path, s := range o.sinks {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("file output: close %s: %w", path, err)
		}
		delete(o.sinks, path)
	}
	return firstErr
}

// sinkFor returns the open sink for path, opening it on first use.
func (o *Output) sinkFor(path string) (*sink, error) {
	if s, ok := o.sinks[path]; ok {
		return s, nil
	}
	s := &sink{path: path}
	if err := s.open(o.bufSize); err != nil {
		return nil, err
	}
	o.sinks[path] = s
	return s, nil
}

// rotate closes the current file, shifts {path}.n to {path}.n+1 dropping
// the oldest, and reopens an empty file.
func (o *Output) rotate(s *sink) error {
	lines := s.abstracts
	if err := s.close(); err != nil {
		return err
	}
	if o.maxBackups <= 0 {
		if err := os.Remove(s.path); err != nil {
			return err
		}
		return s.open(o.bufSize)
	}

	os.Remove(fmt.Sprintf("%s.%d", s.path, o.maxBackups)) // may not exist
	for i := o.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", s.path, i), fmt.Sprintf("%s.%d", s.path, i+1))
	}
	if err := os.Rename(s.path, s.path+".1"); err != nil {
		return err
	}
	slog.Debug("rotated output file", "path", s.path, "abstracts", lines)
	return s.open(o.bufSize)
}

func (s *sink) open(bufSize int) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", s.path, err)
	}
	s.f = f
	s.w = bufio.NewWriterSize(f, bufSize)
	s.size = info.Size()
	s.abstracts = 0
	return nil
}

func (s *sink) close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
