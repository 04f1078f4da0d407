package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxlab/internal/walkforward"
)

func writeGrids(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grids.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGridLoaderSnapshot(t *testing.T) {
	path := writeGrids(t, `
grids:
  classic:
    default: true
    candidates: [25, 30, 35, 40, 70, 75, 80]
  tight:
    candidates: [30, 70]
`)
	l, err := NewGridLoader(path)
	require.NoError(t, err)

	snap := l.Snapshot()
	require.Len(t, snap.Grids, 2)

	// 指定名称
	assert.Equal(t, []float64{30, 70}, snap.Candidates("tight"))
	// 空名称回落到 default 标记的网格
	assert.Equal(t, []float64{25, 30, 35, 40, 70, 75, 80}, snap.Candidates(""))
	// 未知名称同样回落
	assert.Equal(t, []float64{25, 30, 35, 40, 70, 75, 80}, snap.Candidates("nope"))
}

func TestGridLoaderFallbackToBuiltin(t *testing.T) {
	path := writeGrids(t, `
grids: {}
`)
	l, err := NewGridLoader(path)
	require.NoError(t, err)
	assert.Equal(t, walkforward.DefaultCandidates, l.Snapshot().Candidates(""))
}

func TestGridLoaderRejectsBadGrids(t *testing.T) {
	_, err := NewGridLoader(writeGrids(t, `
grids:
  solo:
    candidates: [30]
`))
	assert.Error(t, err)

	_, err = NewGridLoader(writeGrids(t, `
grids:
  oob:
    candidates: [30, 170]
`))
	assert.Error(t, err)

	_, err = NewGridLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGridLoaderCandidatesSorted(t *testing.T) {
	path := writeGrids(t, `
grids:
  shuffled:
    candidates: [70, 25, 40]
`)
	l, err := NewGridLoader(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{25, 40, 70}, l.Snapshot().Candidates("shuffled"))
}
