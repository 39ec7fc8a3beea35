package classifier

import (
	"fmt"
	"sync"

	"github.com/crimson-sun/skimmer/internal/engine/nn"
	"github.com/crimson-sun/skimmer/internal/features"
)

// network is one architecture. forward returns pre-softmax logits; backward
// takes their gradient and accumulates parameter gradients.
type network interface {
	forward(b features.Bundle, training bool) (*nn.Mat, error)
	backward(dlogits *nn.Mat)
	params() []*nn.Param
	layers() []layerInfo
}

// compiled binds a network to its loss, optimizer and metric. Layers cache
// activations, so every pass runs under mu.
type compiled struct {
	variant Variant
	net     network
	opt     *nn.Adam

	mu sync.Mutex
}

func compile(v Variant, net network, lr float64) *compiled {
	return &compiled{variant: v, net: net, opt: nn.NewAdam(net.params(), lr)}
}

func (c *compiled) Variant() Variant { return c.variant }

func (c *compiled) Params() []*nn.Param { return c.net.params() }

func (c *compiled) LearningRate() float64 { return c.opt.LR }

func (c *compiled) SetLearningRate(lr float64) { c.opt.LR = lr }

// Predict returns softmax probabilities, one row per record.
func (c *compiled) Predict(b features.Bundle) ([][]float32, error) {
	if b.Len() == 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	logits, err := c.net.forward(b, false)
	if err != nil {
		return nil, err
	}
	probs := nn.Softmax(logits)
	out := make([][]float32, probs.Rows)
	for i := range out {
		out[i] = probs.Row(i)
	}
	return out, nil
}

func (c *compiled) TrainStep(b features.Bundle) (Metrics, error) {
	targets, err := labelMat(b)
	if err != nil {
		return Metrics{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	logits, err := c.net.forward(b, true)
	if err != nil {
		return Metrics{}, err
	}
	probs := nn.Softmax(logits)
	loss, dlogits := nn.CrossEntropy(probs, targets)

	nn.ZeroGrads(c.net.params())
	c.net.backward(dlogits)
	c.opt.Step()

	return Metrics{LossSum: loss * float64(b.Len()), Correct: nn.Correct(probs, targets), Count: b.Len()}, nil
}

func (c *compiled) Evaluate(b features.Bundle) (Metrics, error) {
	targets, err := labelMat(b)
	if err != nil {
		return Metrics{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	logits, err := c.net.forward(b, false)
	if err != nil {
		return Metrics{}, err
	}
	probs := nn.Softmax(logits)
	loss, _ := nn.CrossEntropy(probs, targets)
	return Metrics{LossSum: loss * float64(b.Len()), Correct: nn.Correct(probs, targets), Count: b.Len()}, nil
}

func (c *compiled) Summary() string {
	return renderSummary(string(c.variant), c.net.layers())
}

func labelMat(b features.Bundle) (*nn.Mat, error) {
	if b.Len() == 0 {
		return nil, fmt.Errorf("classifier: empty batch")
	}
	if len(b.Labels) != b.Len() {
		return nil, fmt.Errorf("classifier: batch of %d records has %d labels", b.Len(), len(b.Labels))
	}
	return nn.FromRows(b.Labels), nil
}
