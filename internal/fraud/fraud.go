// Package fraud defines the shared domain types for the transaction
// decisioning pipeline: the raw transaction input, the customer's behavioral
// history, and the severity/risk-band vocabulary used by every downstream
// stage. It also carries the sentinel errors of the pipeline's failure
// taxonomy.
package fraud

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline failure taxonomy. Callers should test
// with errors.Is; construction sites wrap these with context via %w.
var (
	// ErrInvalidInput marks unparseable or out-of-range raw fields.
	// The transaction is rejected; nothing downstream runs.
	ErrInvalidInput = errors.New("invalid transaction input")

	// ErrArtifactUnavailable marks a failure to load the encoder, model set,
	// or frequency tables. Fatal at startup, recoverable only by restart.
	ErrArtifactUnavailable = errors.New("model artifact unavailable")

	// ErrPredictionUnavailable means every ensemble member failed. The
	// pipeline degrades to anomaly-only scoring with an explicit flag.
	ErrPredictionUnavailable = errors.New("no ensemble member produced a prediction")

	// ErrEncoderContract marks a mismatch between the engineered feature set
	// and the column set/typing the external encoder expects.
	ErrEncoderContract = errors.New("feature set violates encoder contract")
)

// Severity grades a single anomaly dimension.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Points returns the risk-score contribution for an anomaly of this severity.
func (s Severity) Points() int {
	switch s {
	case SeverityHigh:
		return 20
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// RiskBand is the coarse risk classification shared by the anomaly report
// and the final risk score.
type RiskBand string

const (
	BandLow      RiskBand = "LOW"
	BandMedium   RiskBand = "MEDIUM"
	BandHigh     RiskBand = "HIGH"
	BandCritical RiskBand = "CRITICAL"
)

// Action is the terminal decision for a transaction.
type Action string

const (
	ActionApprove      Action = "APPROVE"
	ActionBlock        Action = "BLOCK"
	ActionManualReview Action = "MANUAL_REVIEW"
)

// Transaction is a single transaction to be scored. Immutable once built.
//
// Timestamp is kept as the raw wire string; the feature engineer parses it
// and rejects the transaction if it cannot. Optional fields use pointers so
// "absent" is distinguishable from a zero value.
type Transaction struct {
	ID         string  `json:"transaction_id,omitempty"`
	CustomerID string  `json:"customer_id,omitempty"`
	Amount     float64 `json:"amt"`
	Timestamp  string  `json:"trans_date_trans_time"`
	Merchant   string  `json:"merchant"`
	Category   string  `json:"category"`

	// Customer location
	Lat  *float64 `json:"lat,omitempty"`
	Long *float64 `json:"long,omitempty"`

	// Merchant location
	MerchLat  *float64 `json:"merch_lat,omitempty"`
	MerchLong *float64 `json:"merch_long,omitempty"`

	// DistanceFromHomeKM, when reported by the caller, is used verbatim.
	// Extreme values (5000km) must survive untouched.
	DistanceFromHomeKM *float64 `json:"distance_from_home,omitempty"`

	// Customer demographics
	DOB     string `json:"dob,omitempty"`
	Gender  string `json:"gender,omitempty"`
	State   string `json:"state,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Job     string `json:"job,omitempty"`
	CityPop int    `json:"city_pop,omitempty"`
}

// Validate rejects structurally unusable transactions before any feature
// work happens. Parse failures of Timestamp/DOB are the feature engineer's
// concern; Validate only checks ranges that are wrong in any interpretation.
func (t *Transaction) Validate() error {
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidInput, t.Amount)
	}
	if t.Timestamp == "" {
		return fmt.Errorf("%w: missing transaction timestamp", ErrInvalidInput)
	}
	if t.Merchant == "" {
		return fmt.Errorf("%w: missing merchant", ErrInvalidInput)
	}
	if t.Lat != nil && (*t.Lat < -90 || *t.Lat > 90) {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, *t.Lat)
	}
	if t.Long != nil && (*t.Long < -180 || *t.Long > 180) {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, *t.Long)
	}
	if t.MerchLat != nil && (*t.MerchLat < -90 || *t.MerchLat > 90) {
		return fmt.Errorf("%w: merchant latitude %v out of range", ErrInvalidInput, *t.MerchLat)
	}
	if t.MerchLong != nil && (*t.MerchLong < -180 || *t.MerchLong > 180) {
		return fmt.Errorf("%w: merchant longitude %v out of range", ErrInvalidInput, *t.MerchLong)
	}
	if t.DistanceFromHomeKM != nil && *t.DistanceFromHomeKM < 0 {
		return fmt.Errorf("%w: distance_from_home %v is negative", ErrInvalidInput, *t.DistanceFromHomeKM)
	}
	return nil
}

// CustomerHistory is the customer's behavioral baseline at scoring time.
// It may be absent entirely, or degenerate (Count 0, Std 0) for new
// customers; the pipeline never divides by a raw Std.
type CustomerHistory struct {
	CustomerID string  `json:"customer_id,omitempty"`
	AvgAmount  float64 `json:"cust_avg_amt"`
	StdAmount  float64 `json:"cust_std_amt"`
	TxCount    int     `json:"cust_tx_count"`

	// UsualHours is the set of hours (0-23) the customer usually transacts
	// in. Empty means unknown, which disables the unusual-hour check.
	UsualHours []int `json:"usual_hours,omitempty"`

	// Recent velocity counts, when the caller tracks them.
	TxCountLastHour *int `json:"tx_count_1h,omitempty"`
	TxCountLastDay  *int `json:"tx_count_24h,omitempty"`
}

// HasUsualHour reports whether h is one of the customer's usual hours.
// Returns true when the set is unknown, so unknown never flags.
func (h *CustomerHistory) HasUsualHour(hour int) bool {
	if h == nil || len(h.UsualHours) == 0 {
		return true
	}
	for _, u := range h.UsualHours {
		if u == hour {
			return true
		}
	}
	return false
}
