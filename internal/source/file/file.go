// Package file reads abstracts from a plain-text file. Abstracts are
// separated by blank lines; wrapped lines of one abstract are joined. A line
// starting with "###" sets the ID of the abstract that follows it.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/source"
)

const (
	providerName = "file"
	idMarker     = "###"
)

func init() {
	source.Register(providerName, func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source for local files. A Path of "-" reads
// standard input.
type Source struct {
	// Stdin replaces os.Stdin for Path "-".
	Stdin io.Reader
}

func (s *Source) open(path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, errors.New("file source: missing path")
	}
	if path == "-" {
		if s.Stdin != nil {
			return io.NopCloser(s.Stdin), nil
		}
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	return f, nil
}

// Query reads the whole file.
func (s *Source) Query(ctx context.Context, cfg source.Config, params source.QueryParams) ([]model.Abstract, error) {
	rc, err := s.open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var out []model.Abstract
	err = Scan(rc, func(a model.Abstract) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out = append(out, a)
		if params.Limit > 0 && len(out) >= params.Limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}

// Stream sends abstracts as they are read.
func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.Abstract, error) {
	rc, err := s.open(cfg.Path)
	if err != nil {
		return nil, err
	}

	ch := make(chan model.Abstract, 16)
	go func() {
		defer close(ch)
		defer rc.Close()
		_ = Scan(rc, func(a model.Abstract) error {
			select {
			case ch <- a:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return ch, nil
}

var errStop = errors.New("stop")

// Scan calls fn for every abstract in r, in order. Abstracts without an
// explicit ID are numbered from 1.
func Scan(r io.Reader, fn func(model.Abstract) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		lines []string
		id    string
		n     int
	)
	emit := func() error {
		if len(lines) == 0 {
			return nil
		}
		n++
		a := model.Abstract{ID: id, Source: providerName, Text: strings.Join(lines, " ")}
		if a.ID == "" {
			a.ID = strconv.Itoa(n)
		}
		lines, id = nil, ""
		return fn(a)
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			if err := emit(); err != nil {
				return err
			}
		case strings.HasPrefix(line, idMarker):
			if err := emit(); err != nil {
				return err
			}
			id = strings.TrimSpace(strings.TrimPrefix(line, idMarker))
		default:
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("file source: read: %w", err)
	}
	return emit()
}
