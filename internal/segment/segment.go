// Package segment splits free-text abstracts into sentences with
// punctuation rules tuned for biomedical prose. Abbreviations, initials,
// decimals and citation-style "et al." do not end a sentence.
package segment

import (
	"strings"
	"unicode"
)

// defaultAbbreviations never end a sentence when followed by a period.
var defaultAbbreviations = []string{
	"al", "approx", "ca", "cf", "dr", "e.g", "eg", "eq", "esp", "etc", "fig", "figs",
	"i.e", "ie", "inc", "jr", "min", "mr", "mrs", "ms", "no", "nos", "prof", "ref",
	"resp", "sr", "st", "vol", "vs", "wt",
}

// Segmenter splits text into sentences.
type Segmenter struct {
	abbrevs map[string]bool
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithAbbreviations adds words (without the trailing period, any case) that
// must not end a sentence.
func WithAbbreviations(words ...string) Option {
	return func(s *Segmenter) {
		for _, w := range words {
			s.abbrevs[strings.ToLower(strings.TrimSuffix(w, "."))] = true
		}
	}
}

// New creates a Segmenter with the default abbreviation list.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{abbrevs: make(map[string]bool, len(defaultAbbreviations))}
	for _, a := range defaultAbbreviations {
		s.abbrevs[a] = true
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Segment returns the sentences of text in order, trimmed of surrounding
// whitespace. A blank line always ends a sentence.
func (s *Segmenter) Segment(text string) []string {
	var out []string
	for _, para := range paragraphs(text) {
		out = append(out, s.splitParagraph(para)...)
	}
	return out
}

// paragraphs splits on blank lines and joins wrapped lines with spaces.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return paras
}

func (s *Segmenter) splitParagraph(p string) []string {
	runes := []rune(p)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		// Collapse runs like "?!" or "..." and trailing closers.
		for end < len(runes) && (isTerminal(runes[end]) || isCloser(runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next < len(runes) && !startsSentence(runes[next]) {
			i = end - 1
			continue
		}
		if r == '.' && next < len(runes) && s.continues(lastWord(runes[start:i]), runes[next]) {
			i = end - 1
			continue
		}

		if sent := strings.TrimSpace(string(runes[start:end])); sent != "" {
			out = append(out, sent)
		}
		start = next
		i = next - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// continues reports whether a period after word is part of the word
// rather than a sentence end. Abbreviations and initials never end a
// sentence; dotted acronyms like "U.S." only end one before a capital.
func (s *Segmenter) continues(word string, next rune) bool {
	if word == "" {
		return false
	}
	w := []rune(word)
	if len(w) == 1 && unicode.IsUpper(w[0]) {
		return true
	}
	if s.abbrevs[strings.ToLower(word)] {
		return true
	}
	return unicode.IsLower(next) && strings.ContainsRune(word, '.')
}

// lastWord returns the word ending the span, without a leading bracket.
func lastWord(span []rune) string {
	j := len(span)
	for j > 0 && !unicode.IsSpace(span[j-1]) && span[j-1] != '(' {
		j--
	}
	return string(span[j:])
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

func isCloser(r rune) bool {
	return r == ')' || r == ']' || r == '"' || r == '\'' || r == '”' || r == '’'
}

// startsSentence reports whether r can open a new sentence. Lowercase
// letters count: gene and assay names (mRNA, p53, eGFR) often lead.
func startsSentence(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '(' || r == '[' || r == '"' || r == '“'
}
