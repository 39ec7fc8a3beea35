package model

// LineRecord is one sentence of an abstract with its position metadata.
// Target is empty for unlabeled (inference-time) records.
type LineRecord struct {
	Target     string `json:"target,omitempty"`
	Text       string `json:"text"`
	LineNumber int    `json:"line_number"`
	TotalLines int    `json:"total_lines"` // index of the last sentence, i.e. count - 1
}

// Labeled reports whether the record carries a target label.
func (r LineRecord) Labeled() bool {
	return r.Target != ""
}
