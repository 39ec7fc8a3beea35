package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxSeqLen caps the token sequence, [CLS] and [SEP] included.
const DefaultMaxSeqLen = 128

// maxWordRunes is the longest word WordPiece will try to decompose.
const maxWordRunes = 200

// encodedBatch is a tokenized batch ready for inference. All slices are flat
// [batchSize * seqLen].
type encodedBatch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// wordPiece is an uncased BERT tokenizer.
type wordPiece struct {
	ids       map[string]int64
	maxSeqLen int

	pad, unk, cls, sep int64
}

func loadWordPiece(path string, maxSeqLen int) (*wordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()
	return readWordPiece(f, maxSeqLen)
}

// readWordPiece reads a vocab.txt stream: one token per line, the line
// number being the token ID.
func readWordPiece(r io.Reader, maxSeqLen int) (*wordPiece, error) {
	if maxSeqLen <= 2 {
		maxSeqLen = DefaultMaxSeqLen
	}
	w := &wordPiece{ids: make(map[string]int64, 32000), maxSeqLen: maxSeqLen}

	sc := bufio.NewScanner(r)
	var n int64
	for sc.Scan() {
		w.ids[sc.Text()] = n
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: empty vocabulary")
	}

	for tok, dst := range map[string]*int64{"[PAD]": &w.pad, "[UNK]": &w.unk, "[CLS]": &w.cls, "[SEP]": &w.sep} {
		id, ok := w.ids[tok]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", tok)
		}
		*dst = id
	}
	return w, nil
}

func (w *wordPiece) lookup(tok string) int64 {
	if id, ok := w.ids[tok]; ok {
		return id
	}
	return w.unk
}

// encode returns [CLS] tokens... [SEP] for text, truncated to maxSeqLen.
func (w *wordPiece) encode(text string) []int64 {
	var pieces []string
	for _, word := range basicTokens(text) {
		pieces = append(pieces, w.split(word)...)
	}
	if limit := w.maxSeqLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}

	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, w.cls)
	for _, p := range pieces {
		ids = append(ids, w.lookup(p))
	}
	return append(ids, w.sep)
}

// encodeBatch tokenizes texts and pads them to the longest sequence.
func (w *wordPiece) encodeBatch(texts []string) encodedBatch {
	seqs := make([][]int64, len(texts))
	longest := 0
	for i, t := range texts {
		seqs[i] = w.encode(t)
		longest = max(longest, len(seqs[i]))
	}

	b := encodedBatch{batchSize: int64(len(texts)), seqLen: int64(longest)}
	total := len(texts) * longest
	b.inputIDs = make([]int64, total)
	b.attentionMask = make([]int64, total)
	b.tokenTypeIDs = make([]int64, total)
	for i, seq := range seqs {
		row := i * longest
		for j := range longest {
			if j < len(seq) {
				b.inputIDs[row+j] = seq[j]
				b.attentionMask[row+j] = 1
			} else {
				b.inputIDs[row+j] = w.pad
			}
		}
	}
	return b
}

// split decomposes one basic token into greedy longest-match subwords.
func (w *wordPiece) split(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := len(runes)
		match := ""
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := w.ids[sub]; ok {
				match = sub
				break
			}
		}
		if match == "" {
			return []string{"[UNK]"}
		}
		out = append(out, match)
		start = end
	}
	return out
}

// basicTokens cleans, lowercases and strips accents from text, then splits it
// on whitespace and punctuation. CJK ideographs become single tokens.
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	var tokens []string
	for _, word := range strings.Fields(stripAccents(strings.ToLower(b.String()))) {
		tokens = append(tokens, splitPunct(word)...)
	}
	return tokens
}

func stripAccents(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, norm.NFD.String(text))
}

func splitPunct(word string) []string {
	var out []string
	start := -1
	for i, r := range word {
		if isPunct(r) {
			if start >= 0 {
				out = append(out, word[start:i])
				start = -1
			}
			out = append(out, string(r))
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word[start:])
	}
	return out
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunct treats every non-alphanumeric ASCII symbol as punctuation, plus the
// Unicode punctuation categories.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
