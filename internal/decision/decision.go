// Package decision maps a risk score to a terminal action and persists the
// resulting decision records for audit.
//
// The policy is a pure function of its inputs: the same score, anomaly
// report, and ensemble prediction always produce the same decision. Every
// transaction ends in exactly one of APPROVE, BLOCK, or MANUAL_REVIEW;
// there is no unclassified outcome.
package decision

import (
	"context"
	"time"

	"github.com/sentra-io/sentra/internal/fraud"
)

// Decision is the terminal verdict for one transaction. Computed once,
// immutable thereafter.
type Decision struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id,omitempty"`

	Action     fraud.Action `json:"action"`
	Confidence int          `json:"confidence"`
	Reasoning  string       `json:"reasoning"`

	RiskScore int            `json:"risk_score"`
	RiskBand  fraud.RiskBand `json:"risk_band"`

	KeyFactors         []string `json:"key_factors"`
	RecommendedActions []string `json:"recommended_actions"`

	DecidedAt time.Time `json:"decided_at"`
}

// Store persists decisions for the audit trail.
type Store interface {
	Record(ctx context.Context, d *Decision) error
	Get(ctx context.Context, id string) (*Decision, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Decision, error)
	ListRecent(ctx context.Context, limit int) ([]*Decision, error)
}
