package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/source"
)

const sample = `###24845963
Chronic pain is common.
Drug A was tested.

We randomised 40 adults.


###24845964
Outcomes improved.
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abstracts.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestScan(t *testing.T) {
	var got []model.Abstract
	err := Scan(strings.NewReader(sample), func(a model.Abstract) error {
		got = append(got, a)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Abstract{
		{ID: "24845963", Source: "file", Text: "Chronic pain is common. Drug A was tested."},
		{ID: "2", Source: "file", Text: "We randomised 40 adults."},
		{ID: "24845964", Source: "file", Text: "Outcomes improved."},
	}, got)
}

func TestScan_Empty(t *testing.T) {
	calls := 0
	require.NoError(t, Scan(strings.NewReader("\n\n  \n"), func(model.Abstract) error { calls++; return nil }))
	assert.Zero(t, calls)
}

func TestQuery(t *testing.T) {
	s := &Source{}
	got, err := s.Query(context.Background(), source.Config{Path: writeSample(t)}, source.QueryParams{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.Query(context.Background(), source.Config{Path: writeSample(t)}, source.QueryParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQuery_Errors(t *testing.T) {
	s := &Source{}
	_, err := s.Query(context.Background(), source.Config{}, source.QueryParams{})
	assert.ErrorContains(t, err, "missing path")
	_, err = s.Query(context.Background(), source.Config{Path: "/nonexistent/abstracts.txt"}, source.QueryParams{})
	assert.Error(t, err)
}

func TestStream_Stdin(t *testing.T) {
	s := &Source{Stdin: strings.NewReader(sample)}
	ch, err := s.Stream(context.Background(), source.Config{Path: "-"})
	require.NoError(t, err)
	var ids []string
	for a := range ch {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"24845963", "2", "24845964"}, ids)
}

func TestRegistered(t *testing.T) {
	ctor, err := source.Get("file")
	require.NoError(t, err)
	assert.IsType(t, &Source{}, ctor())
}
