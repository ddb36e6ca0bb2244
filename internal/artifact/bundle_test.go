package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-io/sentra/internal/fraud"
)

func TestOpen(t *testing.T) {
	b, err := Open("testdata")
	require.NoError(t, err)

	assert.Equal(t, 5, b.Merchants.Len())
	assert.Equal(t, 14, b.Categories.Len())
	assert.Equal(t, 59, b.Encoder.Width())
	require.Len(t, b.Models, 3)

	var totalWeight float64
	for _, m := range b.Models {
		w, ok := b.Weights[m.Name()]
		require.True(t, ok, "model %s has no weight", m.Name())
		totalWeight += w
	}
	assert.InDelta(t, 1.0, totalWeight, 1e-9)
}

func TestFrequencyTableFallbacks(t *testing.T) {
	b, err := Open("testdata")
	require.NoError(t, err)

	assert.Equal(t, 1800.0, b.Merchants.Lookup("fraud_Kirlin and Sons"))
	assert.Equal(t, 1.0, b.Merchants.Lookup("fraud_Never Seen"))

	assert.Equal(t, 52553.0, b.Categories.Lookup("grocery_pos"))
	// Unseen categories fall back to the median count, not to rare.
	assert.Equal(t, 39268.0, b.Categories.Lookup("category_of_the_future"))
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open("testdata/does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fraud.ErrArtifactUnavailable))
}

func TestOpenCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{merchantFreqFile, categoryFreqFile, preprocessorFile, registryFile} {
		src, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), src, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, registryFile), []byte("{not json"), 0o644))

	_, err := Open(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fraud.ErrArtifactUnavailable))
}

func TestOpenMissingModelFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{merchantFreqFile, categoryFreqFile, preprocessorFile} {
		src, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), src, 0o644))
	}
	reg := `{"models":[{"file":"ghost.json","weight":1.0}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, registryFile), []byte(reg), 0o644))

	_, err := Open(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fraud.ErrArtifactUnavailable))
}

func TestLazyLoadsOnce(t *testing.T) {
	l := NewLazy("testdata")

	var wg sync.WaitGroup
	bundles := make([]*Bundle, 16)
	for i := range bundles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := l.Get()
			assert.NoError(t, err)
			bundles[i] = b
		}(i)
	}
	wg.Wait()

	for _, b := range bundles {
		require.NotNil(t, b)
		// Same pointer: the load ran exactly once.
		assert.Same(t, bundles[0], b)
	}
}

func TestLazyFailureIsSticky(t *testing.T) {
	l := NewLazy("testdata/does-not-exist")

	_, err1 := l.Get()
	require.Error(t, err1)
	_, err2 := l.Get()
	assert.Equal(t, err1, err2)
}
