// Package corpus reads the labeled-abstract training format into line records.
//
// The format groups sentences into abstracts:
//
//	###24293578
//	OBJECTIVE	To investigate the efficacy of ...
//	METHODS	A total of 125 patients ...
//
//	###24854809
//	...
//
// A marker line starts an abstract and every following non-blank line carries
// a label and the sentence separated by a tab. A blank line flushes the lines
// accumulated so far; the abstract is committed when the next marker (or the
// end of input) is reached, so blank lines inside one abstract never split it.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/crimson-sun/skimmer/internal/model"
)

// MarkerPrefix starts an abstract ID line.
const MarkerPrefix = "###"

// ErrMalformedRecord is wrapped by every MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a sentence line without a label/text tab split.
type MalformedRecordError struct {
	Line int    // 1-based line number in the input
	Text string // offending line, trimmed of its newline
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("corpus: line %d: missing tab between label and text: %q", e.Line, e.Text)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

type options struct {
	progress io.Writer
	name     string
}

// Option configures extraction.
type Option func(*options)

// WithProgress renders a progress bar to w while lines are processed.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// WithName sets the label shown on the progress bar.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Extract parses r and returns one record per labeled sentence, in input order.
func Extract(r io.Reader, opts ...Option) ([]model.LineRecord, error) {
	o := options{name: "abstracts"}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("corpus: read: %w", err)
	}
	lines := splitLines(string(data))

	var bar *mpb.Bar
	var p *mpb.Progress
	if o.progress != nil {
		p = mpb.New(mpb.WithOutput(o.progress), mpb.WithWidth(60))
		bar = p.AddBar(int64(len(lines)),
			mpb.PrependDecorators(
				decor.Name("processing "+o.name+": "),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
			),
		)
	}

	records, err := extractLines(lines, bar)
	if p != nil {
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
	}
	return records, err
}

// ExtractFile parses the file at path.
func ExtractFile(path string, opts ...Option) ([]model.LineRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	defer f.Close()

	opts = append([]Option{WithName(filepath.Base(path))}, opts...)
	return Extract(bufio.NewReader(f), opts...)
}

func extractLines(lines []string, bar *mpb.Bar) ([]model.LineRecord, error) {
	var (
		records []model.LineRecord
		current []model.LineRecord // records of the open abstract as of its last blank line
		block   []string
		blockAt []int
	)

	for i, line := range lines {
		if bar != nil {
			bar.Increment()
		}
		switch {
		case strings.HasPrefix(line, MarkerPrefix):
			records = append(records, current...)
			current = nil
			block = block[:0]
			blockAt = blockAt[:0]
		case isBlank(line):
			flushed, err := flush(block, blockAt)
			if err != nil {
				return nil, err
			}
			current = flushed
		default:
			block = append(block, line)
			blockAt = append(blockAt, i+1)
		}
	}
	return append(records, current...), nil
}

// flush turns an accumulated abstract into records. Position metadata is
// derived from the block itself, so every record shares TotalLines.
func flush(block []string, lineNos []int) ([]model.LineRecord, error) {
	if len(block) == 0 {
		return nil, nil
	}
	out := make([]model.LineRecord, 0, len(block))
	for i, line := range block {
		label, text, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, &MalformedRecordError{Line: lineNos[i], Text: line}
		}
		out = append(out, model.LineRecord{
			Target:     label,
			Text:       strings.ToLower(text),
			LineNumber: i,
			TotalLines: len(block) - 1,
		})
	}
	return out, nil
}

// splitLines splits on '\n' and drops a trailing '\r' so CRLF files parse the
// same as LF files. A final line without a newline is kept.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// isBlank reports whether a line is empty or whitespace only.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
