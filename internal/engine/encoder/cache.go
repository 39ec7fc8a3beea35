package encoder

import "sync"

// Cache memoizes a frozen encoder by sentence. Training passes over the same
// sentences every epoch, so each is sent to the model once.
type Cache struct {
	enc Encoder

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewCache wraps enc.
func NewCache(enc Encoder) *Cache {
	return &Cache{enc: enc, vectors: make(map[string][]float32)}
}

// Encode returns cached vectors and encodes the misses in one call.
func (c *Cache) Encode(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missText []string

	c.mu.RLock()
	for i, t := range texts {
		if v, ok := c.vectors[t]; ok {
			out[i] = v
		} else {
			missIdx = append(missIdx, i)
			missText = append(missText, t)
		}
	}
	c.mu.RUnlock()

	if len(missText) == 0 {
		return out, nil
	}
	vecs, err := c.enc.Encode(missText)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.vectors[missText[j]] = vecs[j]
	}
	c.mu.Unlock()
	return out, nil
}

// Len returns the number of cached sentences.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Dim implements Encoder.
func (c *Cache) Dim() int { return c.enc.Dim() }

// Close closes the wrapped encoder.
func (c *Cache) Close() error { return c.enc.Close() }
