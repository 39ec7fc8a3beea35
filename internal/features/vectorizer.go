package features

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
)

// Reserved vocabulary entries. Index 0 pads, index 1 absorbs unknown tokens.
const (
	PadToken = ""
	OOVToken = "[UNK]"

	PadID = 0
	OOVID = 1
)

// DefaultMaxTokens caps the token vocabulary, reserved entries included.
const DefaultMaxTokens = 68000

const punctuation = `!"#$%&'()*+,-./:;<=>?@[\]^_` + "`{|}~"

// Vocabulary maps tokens to integer IDs. IDs are positions in Tokens.
type Vocabulary struct {
	Tokens []string `json:"tokens"`

	index map[string]int32
}

// NewVocabulary builds a lookup over tokens. tokens must start with the
// reserved entries.
func NewVocabulary(tokens []string) *Vocabulary {
	v := &Vocabulary{Tokens: tokens}
	v.buildIndex()
	return v
}

func (v *Vocabulary) buildIndex() {
	v.index = make(map[string]int32, len(v.Tokens))
	for i, tok := range v.Tokens {
		if _, dup := v.index[tok]; !dup {
			v.index[tok] = int32(i)
		}
	}
}

// Size returns the number of entries including the reserved ones.
func (v *Vocabulary) Size() int {
	return len(v.Tokens)
}

// Lookup returns the ID of tok, or OOVID when tok is unknown.
func (v *Vocabulary) Lookup(tok string) int32 {
	if id, ok := v.index[tok]; ok && id > PadID {
		return id
	}
	return OOVID
}

// UnmarshalJSON restores the tokens and rebuilds the lookup index.
func (v *Vocabulary) UnmarshalJSON(b []byte) error {
	var raw struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.Tokens = raw.Tokens
	v.buildIndex()
	return nil
}

// Standardize lowercases text and strips ASCII punctuation.
func Standardize(text string) string {
	text = strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		if r < 128 && strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, text)
}

// AdaptVocabulary fits a vocabulary over texts: standardized, whitespace
// split, ordered by descending frequency with ties broken lexically, and
// capped at maxTokens entries including the reserved ones.
func AdaptVocabulary(texts []string, maxTokens int) *Vocabulary {
	counts := make(map[string]int)
	for _, t := range texts {
		for _, tok := range strings.Fields(Standardize(t)) {
			counts[tok]++
		}
	}

	type entry struct {
		tok string
		n   int
	}
	entries := make([]entry, 0, len(counts))
	for tok, n := range counts {
		entries = append(entries, entry{tok, n})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.tok, b.tok)
	})

	limit := len(entries)
	if maxTokens > 0 && limit > maxTokens-reservedSlots {
		limit = max(maxTokens-reservedSlots, 0)
	}

	tokens := make([]string, 0, limit+reservedSlots)
	tokens = append(tokens, PadToken, OOVToken)
	for _, e := range entries[:limit] {
		tokens = append(tokens, e.tok)
	}
	return NewVocabulary(tokens)
}

// Vectorizer turns a string into a fixed-width sequence of vocabulary IDs,
// padding with PadID or truncating at the end.
type Vectorizer struct {
	Vocab *Vocabulary
	Width int
}

// Transform vectorizes one text.
func (v Vectorizer) Transform(text string) []int32 {
	out := make([]int32, v.Width)
	i := 0
	for _, tok := range strings.Fields(Standardize(text)) {
		if i == v.Width {
			break
		}
		out[i] = v.Vocab.Lookup(tok)
		i++
	}
	return out
}

// TransformBatch vectorizes texts into a flat [len(texts) * Width] slice.
func (v Vectorizer) TransformBatch(texts []string) []int32 {
	out := make([]int32, 0, len(texts)*v.Width)
	for _, t := range texts {
		out = append(out, v.Transform(t)...)
	}
	return out
}
