// Package velocity grades transaction velocity from the caller-supplied
// recent-activity counters. It is a rule check, not a model: missing
// counters mean the check passes rather than fails.
package velocity

import (
	"fmt"

	"github.com/sentra-io/sentra/internal/fraud"
)

// Velocity thresholds on recent transaction counts.
const (
	criticalPerHour = 5
	highPerHour     = 3
	mediumPerDay    = 15
)

// Check is the outcome of the velocity rules for one customer.
type Check struct {
	Band        fraud.RiskBand `json:"band"`
	Triggered   bool           `json:"triggered"`
	Explanation string         `json:"explanation"`
}

// Evaluate grades the customer's recent transaction velocity. hist may be
// nil or carry no counters, which reads as low velocity.
func Evaluate(hist *fraud.CustomerHistory) *Check {
	perHour, perDay := 0, 0
	if hist != nil {
		if hist.TxCountLastHour != nil {
			perHour = *hist.TxCountLastHour
		}
		if hist.TxCountLastDay != nil {
			perDay = *hist.TxCountLastDay
		}
	}

	switch {
	case perHour > criticalPerHour:
		return &Check{
			Band:        fraud.BandCritical,
			Triggered:   true,
			Explanation: fmt.Sprintf("%d transactions in the last hour", perHour),
		}
	case perHour > highPerHour:
		return &Check{
			Band:        fraud.BandHigh,
			Triggered:   true,
			Explanation: fmt.Sprintf("%d transactions in the last hour", perHour),
		}
	case perDay > mediumPerDay:
		return &Check{
			Band:        fraud.BandMedium,
			Triggered:   true,
			Explanation: fmt.Sprintf("%d transactions in the last day", perDay),
		}
	default:
		return &Check{
			Band:        fraud.BandLow,
			Explanation: "transaction velocity within normal range",
		}
	}
}
