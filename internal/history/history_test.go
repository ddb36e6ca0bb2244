package history

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-io/sentra/internal/fraud"
)

func TestFoldFromNothing(t *testing.T) {
	h := Fold(nil, "cust-1", 120, 14)

	assert.Equal(t, "cust-1", h.CustomerID)
	assert.Equal(t, 120.0, h.AvgAmount)
	assert.Equal(t, 0.0, h.StdAmount)
	assert.Equal(t, 1, h.TxCount)
	assert.Equal(t, []int{14}, h.UsualHours)
}

func TestFoldRunningStats(t *testing.T) {
	var h *fraud.CustomerHistory
	amounts := []float64{100, 150, 80, 120, 50}
	for _, a := range amounts {
		h = Fold(h, "cust-1", a, 10)
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(len(amounts))
	var m2 float64
	for _, a := range amounts {
		m2 += (a - mean) * (a - mean)
	}

	assert.Equal(t, len(amounts), h.TxCount)
	assert.InDelta(t, mean, h.AvgAmount, 1e-9)
	assert.InDelta(t, math.Sqrt(m2/float64(len(amounts))), h.StdAmount, 1e-9)
	assert.Equal(t, []int{10}, h.UsualHours)
}

func TestFoldDoesNotMutateInput(t *testing.T) {
	orig := &fraud.CustomerHistory{CustomerID: "cust-1", AvgAmount: 100, StdAmount: 20, TxCount: 10, UsualHours: []int{9}}
	out := Fold(orig, "cust-1", 500, 23)

	assert.Equal(t, 100.0, orig.AvgAmount)
	assert.Equal(t, 10, orig.TxCount)
	assert.Equal(t, []int{9}, orig.UsualHours)

	assert.Equal(t, 11, out.TxCount)
	assert.Equal(t, []int{9, 23}, out.UsualHours)
	assert.Greater(t, out.AvgAmount, orig.AvgAmount)
}

func TestFoldDeduplicatesHours(t *testing.T) {
	h := Fold(nil, "cust-1", 100, 9)
	h = Fold(h, "cust-1", 110, 9)
	assert.Equal(t, []int{9}, h.UsualHours)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	missing, err := s.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	h := &fraud.CustomerHistory{CustomerID: "cust-1", AvgAmount: 75, StdAmount: 12, TxCount: 30, UsualHours: []int{9, 12}}
	require.NoError(t, s.Upsert(ctx, h))

	got, err := s.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, h, got)

	// Stored state is isolated from caller mutation.
	got.UsualHours[0] = 3
	again, err := s.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, []int{9, 12}, again.UsualHours)

	h.AvgAmount = 80
	require.NoError(t, s.Upsert(ctx, h))
	updated, err := s.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, updated.AvgAmount)
}
