package decision

import (
	"fmt"

	"github.com/sentra-io/sentra/internal/anomaly"
	"github.com/sentra-io/sentra/internal/ensemble"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/scoring"
)

// Decision thresholds on the 0-100 risk score.
const (
	// ApproveBelow is the score under which a transaction can be approved,
	// provided no high-severity anomaly is present.
	ApproveBelow = 30

	// BlockAbove is the score over which a transaction is always blocked.
	BlockAbove = 90
)

// SystemErrorFactor names the key factor attached to the error-fallback
// decision.
const SystemErrorFactor = "System Error"

// Recommended follow-ups per action, surfaced to the analyst tooling.
var recommendedActions = map[fraud.Action][]string{
	fraud.ActionBlock: {
		"Block transaction immediately",
		"Freeze card pending investigation",
		"Contact customer to verify recent activity",
		"Open a fraud case",
	},
	fraud.ActionManualReview: {
		"Route to fraud analyst queue",
		"Request additional verification from customer",
		"Hold transaction until reviewed",
	},
	fraud.ActionApprove: {
		"Process transaction normally",
		"Continue standard monitoring",
	},
}

// Policy maps risk scores to actions. Stateless; safe for concurrent use.
type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// Decide produces the terminal decision for one scored transaction. pred
// may be nil when scoring ran anomaly-only. The caller assigns ID,
// transaction linkage, and timestamp.
//
// BLOCK wins on a score above BlockAbove or an extreme-deviation override.
// APPROVE requires both a score under ApproveBelow and the absence of any
// high-severity anomaly. Everything else lands in MANUAL_REVIEW.
func (p *Policy) Decide(score *scoring.Score, report *anomaly.Report, pred *ensemble.Prediction) *Decision {
	d := &Decision{
		RiskScore:  score.Total,
		RiskBand:   score.Band,
		KeyFactors: keyFactors(score, report, pred),
	}

	switch {
	case score.Override || score.Total > BlockAbove:
		d.Action = fraud.ActionBlock
		d.Confidence = score.Total
		d.Reasoning = fmt.Sprintf("Risk score %d (%s) exceeds the block threshold.", score.Total, score.Band)
		if score.Override {
			d.Reasoning = fmt.Sprintf("Transaction amount is extremely far outside the customer's history; risk score pinned at %d.", score.Total)
		}
	case score.Total < ApproveBelow && !report.HasSeverity(fraud.SeverityHigh):
		d.Action = fraud.ActionApprove
		d.Confidence = 100 - score.Total
		d.Reasoning = fmt.Sprintf("Risk score %d (%s) is low and no high-severity anomaly was detected.", score.Total, score.Band)
	default:
		d.Action = fraud.ActionManualReview
		d.Confidence = manualReviewConfidence
		d.Reasoning = fmt.Sprintf("Risk score %d (%s) is ambiguous; routing to manual review.", score.Total, score.Band)
	}

	d.RecommendedActions = recommendedActions[d.Action]
	return d
}

// manualReviewConfidence reflects that the policy is deliberately
// abstaining rather than asserting either outcome.
const manualReviewConfidence = 50

// Fallback is the decision emitted when the pipeline itself failed. The
// caller always receives a complete decision, never an error in place of
// one.
func (p *Policy) Fallback(transactionID string) *Decision {
	return &Decision{
		TransactionID:      transactionID,
		Action:             fraud.ActionManualReview,
		Confidence:         0,
		Reasoning:          "Scoring failed internally; the transaction requires human review.",
		RiskBand:           fraud.BandMedium,
		KeyFactors:         []string{SystemErrorFactor},
		RecommendedActions: recommendedActions[fraud.ActionManualReview],
	}
}

func keyFactors(score *scoring.Score, report *anomaly.Report, pred *ensemble.Prediction) []string {
	var factors []string

	if score.Override {
		factors = append(factors, "Extreme deviation from customer spending history")
	}
	if pred != nil {
		factors = append(factors, fmt.Sprintf("Ensemble fraud probability %.1f%% (%s)", pred.Probability*100, pred.Consensus))
		for _, f := range pred.Failures {
			factors = append(factors, fmt.Sprintf("Model %s unavailable", f.Model))
		}
	}
	if score.ModelUnavailable {
		factors = append(factors, "Scored on anomaly signal only; no model output")
	}
	for _, f := range report.Flags() {
		if f.Triggered {
			factors = append(factors, f.Explanation)
		}
	}
	if len(factors) == 0 {
		factors = append(factors, "No anomalous signals detected")
	}
	return factors
}
