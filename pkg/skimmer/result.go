package skimmer

// Result is the classification of one abstract.
// This is the stable public type. Internal representations may evolve
// independently without breaking consumers.
type Result struct {
	// Sections maps every role to its sentences in original order. Roles
	// without sentences map to an empty slice.
	Sections  map[string][]string `json:"sections"`
	Sentences []Sentence          `json:"sentences"`
}

// Sentence is one classified sentence.
type Sentence struct {
	Text       string  `json:"text"`
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"` // probability of Role
	LineNumber int     `json:"line_number"`
}

// Abstract is a document with an optional identity. Use with
// ClassifyAbstracts when results must be matched back to their source.
type Abstract struct {
	ID   string // e.g. a PMID (optional)
	Text string
}

// Classified pairs an abstract's ID with its result.
type Classified struct {
	ID string `json:"id,omitempty"`
	Result
}
