package device

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	r, err := Probe(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Threads, 1)
	assert.Greater(t, r.MemTotal, uint64(0))
	assert.Equal(t, runtime.Version(), r.GoVersion)
}

func TestReport_String(t *testing.T) {
	r := Report{CPUModel: "Test CPU", Cores: 4, Threads: 8, MemTotal: 16 << 30, GoVersion: "go1.24", GOMAXPROCS: 8}
	s := r.String()
	assert.True(t, strings.HasPrefix(s, "GPU not available"))
	assert.Contains(t, s, "Test CPU (4 cores, 8 threads, GOMAXPROCS=8)")
	assert.Contains(t, s, "16.0 GiB")
	assert.Contains(t, Report{}.String(), "unknown cpu")
}

func TestSample(t *testing.T) {
	u, err := Sample(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, u.MemPercent, 0.0)
	assert.LessOrEqual(t, u.MemPercent, 100.0)
	assert.Contains(t, u.String(), "RAM:")
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
		3 << 40: "3.0 TiB",
	}
	for n, want := range tests {
		assert.Equal(t, want, FormatBytes(n), "%d", n)
	}
}
