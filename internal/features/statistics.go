package features

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/skimmer/internal/model"
)

// SequencePercentile is the share of training sentences that must fit the
// fixed vectorization widths without truncation.
const SequencePercentile = 95

// Statistics are fitted once on the training split and frozen. Validation,
// test and serving data are encoded against the same values.
type Statistics struct {
	CharVocabSize       int          `json:"char_vocab_size"`
	TokenSequenceLength int          `json:"token_sequence_length"`
	CharSequenceLength  int          `json:"char_sequence_length"`
	LineNumberDepth     int          `json:"line_number_depth"`
	TotalLinesDepth     int          `json:"total_lines_depth"`
	PositionPolicy      Policy       `json:"position_policy"`
	TokenVocab          *Vocabulary  `json:"token_vocab"`
	CharVocab           *Vocabulary  `json:"char_vocab"`
	Labels              LabelEncoder `json:"labels"`
}

// FitOptions tunes Fit. The zero value uses the defaults.
type FitOptions struct {
	MaxTokens       int
	LineNumberDepth int
	TotalLinesDepth int
	PositionPolicy  Policy
}

func (o FitOptions) withDefaults() FitOptions {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.LineNumberDepth <= 0 {
		o.LineNumberDepth = DefaultLineNumberDepth
	}
	if o.TotalLinesDepth <= 0 {
		o.TotalLinesDepth = DefaultTotalLinesDepth
	}
	return o
}

// Fit computes Statistics from the training records. Fit is deterministic:
// the same records always produce the same statistics.
func Fit(records []model.LineRecord, opts FitOptions) (*Statistics, error) {
	if len(records) == 0 {
		return nil, errors.New("features: cannot fit statistics on an empty split")
	}
	opts = opts.withDefaults()

	texts := make([]string, len(records))
	chars := make([]string, len(records))
	tokenLens := make([]int, len(records))
	charLens := make([]int, len(records))
	targets := make([]string, 0, len(records))
	for i, r := range records {
		texts[i] = r.Text
		chars[i] = SplitChars(r.Text)
		tokenLens[i] = tokenCount(r.Text)
		charLens[i] = charCount(r.Text)
		if r.Labeled() {
			targets = append(targets, r.Target)
		}
	}
	if len(targets) != len(records) {
		return nil, fmt.Errorf("features: %d of %d training records are unlabeled",
			len(records)-len(targets), len(records))
	}

	return &Statistics{
		CharVocabSize:       CharVocabSize(),
		TokenSequenceLength: percentileWidth(tokenLens, SequencePercentile),
		CharSequenceLength:  percentileWidth(charLens, SequencePercentile),
		LineNumberDepth:     opts.LineNumberDepth,
		TotalLinesDepth:     opts.TotalLinesDepth,
		PositionPolicy:      opts.PositionPolicy,
		TokenVocab:          AdaptVocabulary(texts, opts.MaxTokens),
		CharVocab:           AdaptVocabulary(chars, CharVocabSize()),
		Labels:              FitLabels(targets),
	}, nil
}

// TokenVectorizer returns the fixed-width token vectorizer.
func (s *Statistics) TokenVectorizer() Vectorizer {
	return Vectorizer{Vocab: s.TokenVocab, Width: s.TokenSequenceLength}
}

// CharVectorizer returns the fixed-width character vectorizer.
func (s *Statistics) CharVectorizer() Vectorizer {
	return Vectorizer{Vocab: s.CharVocab, Width: s.CharSequenceLength}
}

// Validate checks that the statistics are complete enough to encode with.
func (s *Statistics) Validate() error {
	var errs []error
	if s.TokenSequenceLength < 1 {
		errs = append(errs, fmt.Errorf("token_sequence_length must be >= 1, got %d", s.TokenSequenceLength))
	}
	if s.CharSequenceLength < 1 {
		errs = append(errs, fmt.Errorf("char_sequence_length must be >= 1, got %d", s.CharSequenceLength))
	}
	if s.LineNumberDepth < 1 || s.TotalLinesDepth < 1 {
		errs = append(errs, fmt.Errorf("positional depths must be >= 1, got %d/%d", s.LineNumberDepth, s.TotalLinesDepth))
	}
	if s.TokenVocab == nil || s.CharVocab == nil {
		errs = append(errs, errors.New("vocabularies missing"))
	}
	if s.Labels.Len() == 0 {
		errs = append(errs, errors.New("label ordering missing"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("features: invalid statistics: %w", errors.Join(errs...))
	}
	return nil
}
