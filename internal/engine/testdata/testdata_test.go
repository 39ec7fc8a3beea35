package testdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crimson-sun/skimmer/internal/model"
)

func TestRecords(t *testing.T) {
	recs, err := Records()
	if err != nil {
		t.Fatalf("Records() error: %v", err)
	}
	if len(recs) != 34 {
		t.Fatalf("got %d records, want 34", len(recs))
	}

	covered := map[string]bool{}
	for i, r := range recs {
		if r.Text == "" {
			t.Errorf("record[%d] has empty text", i)
		}
		if r.Text != strings.ToLower(r.Text) {
			t.Errorf("record[%d] is not lowercased: %q", i, r.Text)
		}
		covered[r.Target] = true
	}
	for _, role := range model.Roles {
		if !covered[role] {
			t.Errorf("role %s has no example", role)
		}
	}
}

func TestAbstracts(t *testing.T) {
	abs := Abstracts()
	if len(abs) != 6 {
		t.Fatalf("got %d abstracts, want 6", len(abs))
	}
	if !strings.HasPrefix(abs[0], "Chronic low back pain") {
		t.Errorf("unexpected first abstract: %q", abs[0])
	}
	for i, a := range abs {
		if strings.Contains(a, "\t") || strings.Contains(a, "###") {
			t.Errorf("abstract %d leaks corpus markup: %q", i, a)
		}
	}
}

func TestWriteSplits(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSplits(dir); err != nil {
		t.Fatalf("WriteSplits() error: %v", err)
	}
	for _, name := range []string{"train.txt", "dev.txt", "test.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != Corpus() {
			t.Errorf("%s differs from the embedded corpus", name)
		}
	}
}
