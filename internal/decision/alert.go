package decision

import (
	"fmt"

	"github.com/sentra-io/sentra/internal/fraud"
)

// Alert is the analyst notification derived from a decision. Only
// decisions above the low band produce one.
type Alert struct {
	Level         fraud.RiskBand `json:"level"`
	TransactionID string         `json:"transaction_id"`
	Message       string         `json:"message"`

	// RequiresPage marks alerts that should interrupt the on-call analyst
	// rather than queue.
	RequiresPage bool `json:"requires_page"`
}

// AlertFor builds the notification for a decision, or returns nil when the
// outcome is routine (low band, approved).
func AlertFor(d *Decision) *Alert {
	if d.RiskBand == fraud.BandLow && d.Action == fraud.ActionApprove {
		return nil
	}
	return &Alert{
		Level:         d.RiskBand,
		TransactionID: d.TransactionID,
		Message: fmt.Sprintf("%s: transaction %s scored %d (%s): %s",
			d.Action, d.TransactionID, d.RiskScore, d.RiskBand, d.Reasoning),
		RequiresPage: d.RiskBand == fraud.BandCritical || d.Action == fraud.ActionBlock,
	}
}
