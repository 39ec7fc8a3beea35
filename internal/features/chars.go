package features

import "strings"

// Alphabet is the character set the character vectorizer is sized for:
// lowercase ASCII letters, digits and ASCII punctuation.
const Alphabet = "abcdefghijklmnopqrstuvwxyz" + "0123456789" + `!"#$%&'()*+,-./:;<=>?@[\]^_` + "`{|}~"

// reservedSlots are the padding and out-of-vocabulary entries.
const reservedSlots = 2

// CharVocabSize is the size of the character vocabulary including the
// reserved slots.
func CharVocabSize() int {
	return len(Alphabet) + reservedSlots
}

// SplitChars returns text with every character separated by a single space,
// the representation the character vectorizer consumes.
func SplitChars(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text) * 2)
	for i, r := range runes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// tokenCount counts whitespace-separated tokens.
func tokenCount(text string) int {
	return len(strings.Fields(text))
}

// charCount counts characters (runes), spaces included.
func charCount(text string) int {
	return len([]rune(text))
}
