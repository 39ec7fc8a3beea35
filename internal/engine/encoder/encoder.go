// Package encoder turns sentences into fixed-size vectors with a frozen,
// pretrained BERT-style model served by ONNX Runtime. The pipeline is:
// WordPiece tokenize → ONNX inference → attention-masked mean pool →
// optional dense projection.
package encoder

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnavailable is returned when no encoder model is configured.
var ErrUnavailable = errors.New("sentence encoder not configured")

// Encoder produces one vector per sentence. Implementations are frozen: the
// same text always yields the same vector.
type Encoder interface {
	Encode(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// Config locates the encoder files.
type Config struct {
	ModelPath string // ONNX model
	VocabPath string // WordPiece vocab.txt
	// ProjectionPath is an optional safetensors file holding a
	// "linear.weight" matrix applied after pooling.
	ProjectionPath string
	// LibraryPath is the ONNX Runtime shared library. Defaults to
	// libonnxruntime.so next to the model.
	LibraryPath string
	MaxSeqLen   int
}

// Enabled reports whether a model is configured.
func (c Config) Enabled() bool {
	return c.ModelPath != "" && c.VocabPath != ""
}

// ONNXEncoder runs a transformer encoder through ONNX Runtime.
type ONNXEncoder struct {
	session *onnxSession
	tok     *wordPiece
	proj    *projection
}

// New loads the model, vocabulary and optional projection.
func New(cfg Config) (*ONNXEncoder, error) {
	if !cfg.Enabled() {
		return nil, ErrUnavailable
	}
	lib := cfg.LibraryPath
	if lib == "" {
		lib = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}

	sess, err := newONNXSession(cfg.ModelPath, lib)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	tok, err := loadWordPiece(cfg.VocabPath, cfg.MaxSeqLen)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("encoder: %w", err)
	}

	e := &ONNXEncoder{session: sess, tok: tok}
	if cfg.ProjectionPath != "" {
		proj, err := loadProjection(cfg.ProjectionPath)
		if err != nil {
			sess.close()
			return nil, fmt.Errorf("encoder: %w", err)
		}
		if int(sess.hiddenDim) != proj.inDim {
			sess.close()
			return nil, fmt.Errorf("encoder: ONNX output dim %d != projection input dim %d",
				sess.hiddenDim, proj.inDim)
		}
		e.proj = proj
	}
	return e, nil
}

// Dim returns the output vector width.
func (e *ONNXEncoder) Dim() int {
	if e.proj != nil {
		return e.proj.outDim
	}
	return int(e.session.hiddenDim)
}

// Encode embeds texts in one inference call, padded to the longest sentence.
func (e *ONNXEncoder) Encode(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.tok.encodeBatch(texts)
	hidden, err := e.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	dim := e.session.hiddenDim
	pooled := meanPool(hidden, batch.attentionMask, batch.batchSize, batch.seqLen, dim)

	out := make([][]float32, batch.batchSize)
	for i := range out {
		vec := pooled[int64(i)*dim : int64(i+1)*dim]
		if e.proj != nil {
			vec = e.proj.apply(vec)
		}
		out[i] = vec
	}
	return out, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEncoder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
