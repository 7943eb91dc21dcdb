package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastConfig(ticks int) Config {
	return Config{Ticks: ticks, TickInterval: time.Millisecond, Recency: 3 * time.Minute}
}

func TestAwaitExactName(t *testing.T) {
	dir := t.TempDir()
	name := "relatorio-vendas-ptv-rj-edicao-5877.csv"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644))

	w := NewWatcher(dir, fastConfig(5), nil, zap.NewNop())
	path, err := w.Await(context.Background(), name, 5877)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), path)
}

func TestAwaitRecencyScanOnNameDrift(t *testing.T) {
	dir := t.TempDir()
	// the panel slugged the title differently than we predicted
	actual := "relatorio-vendas-ptv-rio-de-janeiro-edicao-5877.csv"
	require.NoError(t, os.WriteFile(filepath.Join(dir, actual), []byte("data"), 0o644))

	w := NewWatcher(dir, fastConfig(5), nil, zap.NewNop())
	path, err := w.Await(context.Background(), "relatorio-vendas-ptv-rj-edicao-5877.csv", 5877)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, actual), path)
}

func TestAwaitIgnoresStaleAndUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "relatorio-vendas-ptv-rj-edicao-5877.old.csv")
	require.NoError(t, os.WriteFile(stale, []byte("data"), 0o644))
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(stale, old, old))

	other := filepath.Join(dir, "relatorio-vendas-pt-rj-edicao-1234.csv")
	require.NoError(t, os.WriteFile(other, []byte("data"), 0o644))

	w := NewWatcher(dir, fastConfig(3), nil, zap.NewNop())
	_, err := w.Await(context.Background(), "relatorio-vendas-ptv-rj-edicao-5877.csv", 5877)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAwaitFiresTriggerAtMidpoint(t *testing.T) {
	dir := t.TempDir()
	name := "relatorio-vendas-ptn-rj-edicao-42.csv"

	fired := false
	trigger := func(ctx context.Context) error {
		fired = true
		return os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644)
	}

	w := NewWatcher(dir, fastConfig(10), trigger, zap.NewNop())
	path, err := w.Await(context.Background(), name, 42)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, filepath.Join(dir, name), path)
}

func TestAwaitTimeoutReportsCandidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relatorio-vendas-outro.csv"), []byte("x"), 0o644))
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "relatorio-vendas-outro.csv"), old, old))

	w := NewWatcher(dir, fastConfig(2), nil, zap.NewNop())
	_, err := w.Await(context.Background(), "relatorio-vendas-nunca.csv", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relatorio-vendas-outro.csv")
}

func TestAwaitHonorsContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWatcher(dir, fastConfig(20), nil, zap.NewNop())
	_, err := w.Await(ctx, "relatorio-vendas-x.csv", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
