package encoder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv is the process-wide ONNX Runtime environment.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// bertInputs are the tensors every supported model must accept, in feed order.
var bertInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// onnxSession wraps a DynamicAdvancedSession producing per-token hidden
// states of shape [batch, seq, hiddenDim].
type onnxSession struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	outputName string
	hiddenDim  int64
}

func newONNXSession(modelPath, libPath string) (*onnxSession, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	if err := checkInputs(inputs); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[2] <= 0 {
		return nil, fmt.Errorf("onnx: expected [batch, seq, dim] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, bertInputs, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}
	return &onnxSession{session: session, outputName: outputs[0].Name, hiddenDim: dims[2]}, nil
}

func checkInputs(inputs []ort.InputOutputInfo) error {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	for _, name := range bertInputs {
		if !have[name] {
			return fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return nil
}

// infer returns the flat [batchSize * seqLen * hiddenDim] hidden states.
func (s *onnxSession) infer(b encodedBatch) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shape := ort.NewShape(b.batchSize, b.seqLen)
	var inputs []ort.Value
	for _, data := range [][]int64{b.inputIDs, b.attentionMask, b.tokenTypeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: input tensor: %w", err)
		}
		defer t.Destroy()
		inputs = append(inputs, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.batchSize, b.seqLen, s.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}
	src := out.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
