package model

// Abstract is an unsegmented abstract handed to the classifier.
type Abstract struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"` // provider name (e.g. "file", "pubmed")
	Text   string `json:"text"`
}

// SentencePrediction is the classifier's verdict for one sentence.
type SentencePrediction struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	LineNumber int     `json:"line_number"`
}

// ClassifiedAbstract is the output type of the batch classification pipeline.
type ClassifiedAbstract struct {
	ID        string               `json:"id,omitempty"`
	Source    string               `json:"source,omitempty"`
	Sections  map[string][]string  `json:"sections"`
	Sentences []SentencePrediction `json:"sentences,omitempty"`
}
