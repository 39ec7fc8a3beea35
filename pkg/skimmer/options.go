package skimmer

import "github.com/crimson-sun/skimmer/internal/engine/encoder"

type options struct {
	modelDir      string
	modelRoot     string
	encoder       encoder.Config
	abbreviations []string
}

// Option configures a Skimmer instance.
type Option func(*options)

// WithModelDir loads the run saved in dir (manifest.json and
// weights.safetensors).
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelRoot loads the most recent run under root. Ignored when
// WithModelDir is set. Default: "models".
func WithModelRoot(root string) Option {
	return func(o *options) {
		o.modelRoot = root
	}
}

// WithEncoderPaths sets the sentence encoder files. Only the "token" and
// "token_char" variants need one; projection may be empty.
func WithEncoderPaths(model, vocab, projection string) Option {
	return func(o *options) {
		o.encoder.ModelPath = model
		o.encoder.VocabPath = vocab
		o.encoder.ProjectionPath = projection
	}
}

// WithAbbreviations adds words that never end a sentence, on top of the
// built-in list ("et al.", "e.g.", "vs." and friends).
func WithAbbreviations(words ...string) Option {
	return func(o *options) {
		o.abbreviations = append(o.abbreviations, words...)
	}
}

func defaultOptions() options {
	return options{modelRoot: "models"}
}
