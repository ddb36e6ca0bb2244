// Package history stores per-customer behavioral baselines: the running
// amount statistics and usual transaction hours that the feature engineer
// and anomaly detector score against.
package history

import (
	"context"
	"math"

	"github.com/sentra-io/sentra/internal/fraud"
)

// Store persists customer baselines. Get returns nil without error for an
// unknown customer; the pipeline treats that as a new customer.
type Store interface {
	Get(ctx context.Context, customerID string) (*fraud.CustomerHistory, error)
	Upsert(ctx context.Context, h *fraud.CustomerHistory) error
}

// Fold returns a new baseline with one observed transaction folded in,
// using incremental mean/variance updates. The input baseline is not
// mutated. A nil baseline starts a fresh one for the customer.
func Fold(h *fraud.CustomerHistory, customerID string, amount float64, hour int) *fraud.CustomerHistory {
	if h == nil {
		return &fraud.CustomerHistory{
			CustomerID: customerID,
			AvgAmount:  amount,
			StdAmount:  0,
			TxCount:    1,
			UsualHours: []int{hour},
		}
	}

	n := float64(h.TxCount)
	mean := h.AvgAmount
	// Recover the sum of squared deviations from the stored std, fold the
	// new observation in, and re-derive the population std.
	m2 := h.StdAmount * h.StdAmount * n

	n++
	delta := amount - mean
	mean += delta / n
	m2 += delta * (amount - mean)

	out := &fraud.CustomerHistory{
		CustomerID: h.CustomerID,
		AvgAmount:  mean,
		StdAmount:  math.Sqrt(m2 / n),
		TxCount:    h.TxCount + 1,
		UsualHours: appendHour(h.UsualHours, hour),
	}
	if out.CustomerID == "" {
		out.CustomerID = customerID
	}
	return out
}

func appendHour(hours []int, hour int) []int {
	out := append([]int(nil), hours...)
	for _, h := range out {
		if h == hour {
			return out
		}
	}
	return append(out, hour)
}
