package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/output"
)

func testAbstract() model.ClassifiedAbstract {
	return model.ClassifiedAbstract{
		ID:       "24845963",
		Source:   "file",
		Sections: map[string][]string{model.Methods: {"We randomised 40 adults."}},
		Sentences: []model.SentencePrediction{
			{Text: "We randomised 40 adults.", Label: model.Methods, Confidence: 0.88},
		},
	}
}

// captureStdout redirects os.Stdout to capture output.
func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestOutputCompactJSON(t *testing.T) {
	result := captureStdout(func() {
		out := New(output.Full, false)
		out.Write(context.Background(), testAbstract())
	})

	// Should be single line (NDJSON).
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["id"] != "24845963" {
		t.Fatalf("expected id=24845963, got %v", m["id"])
	}
	if _, ok := m["sentences"]; !ok {
		t.Fatal("sentences should be present at Full")
	}
}

func TestOutputPrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Full, true)
	if err := out.Write(context.Background(), testAbstract()); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !strings.Contains(buf.String(), "  ") {
		t.Fatal("expected indented output for pretty mode")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected multi-line pretty output, got %d lines", len(lines))
	}
}

func TestOutputMinimalOmitsSentences(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf, output.Minimal, false)
	out.Write(context.Background(), testAbstract())
	out.Write(context.Background(), testAbstract())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := m["sentences"]; ok {
		t.Fatal("sentences should be omitted at Minimal")
	}
	if _, ok := m["sections"]; !ok {
		t.Fatal("sections should be present")
	}
}
