// Package testdata ships a small PubMed RCT style corpus for tests: six
// labeled abstracts covering every rhetorical role.
package testdata

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/skimmer/internal/corpus"
	"github.com/crimson-sun/skimmer/internal/model"
)

//go:embed sample_rct.txt
var sampleRCT string

// Corpus returns the raw corpus text in the PubMed 20k RCT file format.
func Corpus() string { return sampleRCT }

// Records extracts the labeled sentences of the corpus.
func Records() ([]model.LineRecord, error) {
	recs, err := corpus.Extract(strings.NewReader(sampleRCT))
	if err != nil {
		return nil, fmt.Errorf("testdata: %w", err)
	}
	return recs, nil
}

// Abstracts returns each abstract as free text with its original casing,
// the way a user would paste it.
func Abstracts() []string {
	var (
		out  []string
		sent []string
	)
	for _, line := range strings.Split(sampleRCT, "\n") {
		_, text, ok := strings.Cut(line, "\t")
		switch {
		case ok:
			sent = append(sent, strings.TrimSpace(text))
		case strings.TrimSpace(line) == "" && len(sent) > 0:
			out = append(out, strings.Join(sent, " "))
			sent = nil
		}
	}
	return out
}

// WriteSplits writes the corpus as train.txt, dev.txt and test.txt in dir.
func WriteSplits(dir string) error {
	for _, name := range []string{corpus.TrainFile, corpus.DevFile, corpus.TestFile} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sampleRCT), 0o644); err != nil {
			return fmt.Errorf("testdata: %w", err)
		}
	}
	return nil
}
