// Package safetensors reads and writes F32 tensors in the safetensors file
// format: an 8-byte little-endian header length, a JSON header mapping tensor
// names to dtype, shape and byte offsets, then the raw tensor bytes.
package safetensors

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
)

const (
	dtypeF32    = "F32"
	metadataKey = "__metadata__"
	// maxHeader guards against reading a garbage length as a huge allocation.
	maxHeader = 100 << 20
)

// Tensor is a named row-major float32 tensor.
type Tensor struct {
	Shape []int
	Data  []float32
}

// File is the content of a safetensors file.
type File struct {
	Tensors  map[string]Tensor
	Metadata map[string]string
}

type tensorHeader struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// ReadFile parses the safetensors file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: %w", err)
	}
	return Parse(data)
}

// Parse decodes a safetensors blob. Only F32 tensors are supported.
func Parse(data []byte) (*File, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > maxHeader || uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("safetensors: parse header: %w", err)
	}

	body := data[8+headerLen:]
	f := &File{Tensors: make(map[string]Tensor, len(header))}
	for name, raw := range header {
		if name == metadataKey {
			if err := json.Unmarshal(raw, &f.Metadata); err != nil {
				return nil, fmt.Errorf("safetensors: parse metadata: %w", err)
			}
			continue
		}
		var meta tensorHeader
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}
		if meta.Dtype != dtypeF32 {
			return nil, fmt.Errorf("safetensors: tensor %q: expected dtype F32, got %s", name, meta.Dtype)
		}
		n := 1
		for _, d := range meta.Shape {
			n *= d
		}
		start, end := meta.DataOffsets[0], meta.DataOffsets[1]
		if start < 0 || end > len(body) || end-start != n*4 {
			return nil, fmt.Errorf("safetensors: tensor %q: data range [%d:%d] does not match shape %v",
				name, start, end, meta.Shape)
		}
		vals := make([]float32, n)
		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[start+i*4:]))
		}
		f.Tensors[name] = Tensor{Shape: meta.Shape, Data: vals}
	}
	return f, nil
}

// Write encodes f to w. Tensors are laid out in name order so output is
// deterministic.
func Write(w io.Writer, f *File) error {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)

	header := make(map[string]any, len(names)+1)
	if len(f.Metadata) > 0 {
		header[metadataKey] = f.Metadata
	}
	offset := 0
	for _, name := range names {
		t := f.Tensors[name]
		size := len(t.Data) * 4
		header[name] = tensorHeader{Dtype: dtypeF32, Shape: t.Shape, DataOffsets: [2]int{offset, offset + size}}
		offset += size
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("safetensors: encode header: %w", err)
	}
	// Pad so the tensor data starts 8-byte aligned.
	if pad := len(hdr) % 8; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte{' '}, 8-pad)...)
	}

	buf := make([]byte, 8, 8+len(hdr)+offset)
	binary.LittleEndian.PutUint64(buf, uint64(len(hdr)))
	buf = append(buf, hdr...)
	for _, name := range names {
		for _, v := range f.Tensors[name].Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	_, err = w.Write(buf)
	return err
}

// WriteFile writes f to path.
func WriteFile(path string, f *File) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	if err := Write(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
