// Package scoring combines the ensemble probability, the anomaly report,
// and the business rules into one 0-100 risk score with a coarse band and
// a per-source breakdown.
package scoring

import (
	"math"

	"github.com/sentra-io/sentra/internal/anomaly"
	"github.com/sentra-io/sentra/internal/ensemble"
	"github.com/sentra-io/sentra/internal/feature"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/velocity"
)

// Scoring policy constants. Each contribution is capped independently so no
// single source can saturate the total on its own.
const (
	// modelPointsMax scales the ensemble probability into points.
	modelPointsMax = 50.0

	// anomalyPointsCap bounds the summed severity points.
	anomalyPointsCap = 40.0

	// businessBonus is the flat business-rule contribution and its cap.
	businessBonus = 10.0

	// largeAmountThreshold is the absolute amount that alone sets the
	// business flag.
	largeAmountThreshold = 1000.0

	// Extreme-deviation policy. Past softDeviationZ the model has never
	// seen anything like this input, so its probability is discounted;
	// past hardDeviationZ it is bypassed entirely and the score pins to
	// overrideScore.
	softDeviationZ  = 100.0
	hardDeviationZ  = 1000.0
	softModelWeight = 0.2
	overrideScore   = 99
)

// Band boundaries, defined once for the whole pipeline.
const (
	bandLowMax    = 30
	bandMediumMax = 60
	bandHighMax   = 85
)

// Breakdown itemizes where the points came from.
type Breakdown struct {
	Model    float64 `json:"model"`
	Anomaly  float64 `json:"anomaly"`
	Business float64 `json:"business"`
}

// Score is the combined risk assessment for one transaction.
type Score struct {
	Total     int            `json:"total"`
	Band      fraud.RiskBand `json:"band"`
	Breakdown Breakdown      `json:"breakdown"`

	// Override is set when the amount deviation was extreme enough to
	// bypass the model. Decision policy blocks on it unconditionally.
	Override bool `json:"extreme_deviation_override"`

	// ModelUnavailable is set when scoring ran without any ensemble
	// output, on anomaly signal alone.
	ModelUnavailable bool `json:"model_unavailable,omitempty"`
}

// BandFor maps a total to its band. LOW up to 30, MEDIUM up to 60, HIGH up
// to 85, CRITICAL above.
func BandFor(total int) fraud.RiskBand {
	switch {
	case total <= bandLowMax:
		return fraud.BandLow
	case total <= bandMediumMax:
		return fraud.BandMedium
	case total <= bandHighMax:
		return fraud.BandHigh
	default:
		return fraud.BandCritical
	}
}

// Scorer is stateless and safe for concurrent use.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score combines the three contribution sources. pred may be nil when the
// whole ensemble was unavailable; scoring then proceeds on anomalies and
// business rules alone. vel may be nil when no velocity counters exist.
func (s *Scorer) Score(pred *ensemble.Prediction, report *anomaly.Report, fs *feature.FeatureSet, vel *velocity.Check) *Score {
	zMag := math.Abs(fs.AmountZScore)

	if zMag > hardDeviationZ {
		// The input is so far outside the training distribution that the
		// model's probability is meaningless. Anomaly evidence alone pins
		// the score just under the cap.
		return &Score{
			Total:            overrideScore,
			Band:             fraud.BandCritical,
			Breakdown:        Breakdown{Anomaly: float64(overrideScore)},
			Override:         true,
			ModelUnavailable: pred == nil,
		}
	}

	out := &Score{ModelUnavailable: pred == nil}

	if pred != nil {
		model := pred.Probability * modelPointsMax
		if zMag > softDeviationZ {
			model *= softModelWeight
		}
		out.Breakdown.Model = clamp(model, 0, modelPointsMax)
	}

	var anomalyPoints float64
	for _, f := range report.Flags() {
		if f.Triggered {
			anomalyPoints += float64(f.Severity.Points())
		}
	}
	out.Breakdown.Anomaly = clamp(anomalyPoints, 0, anomalyPointsCap)

	if s.businessFlag(report, fs, vel) {
		out.Breakdown.Business = businessBonus
	}

	total := out.Breakdown.Model + out.Breakdown.Anomaly + out.Breakdown.Business
	out.Total = int(clamp(math.Round(total), 0, 100))
	out.Band = BandFor(out.Total)
	return out
}

// businessFlag is true when two or more anomalies fire at medium severity
// or above simultaneously, or when a fixed business condition holds: a
// large absolute amount, a high-risk merchant category, a brand-new
// customer, or a failed velocity check.
func (s *Scorer) businessFlag(report *anomaly.Report, fs *feature.FeatureSet, vel *velocity.Check) bool {
	elevated := 0
	for _, f := range report.Flags() {
		if f.Triggered && f.Severity.AtLeast(fraud.SeverityMedium) {
			elevated++
		}
	}
	if elevated >= 2 {
		return true
	}
	if fs.Amount >= largeAmountThreshold {
		return true
	}
	if fs.IsHighRiskCat {
		return true
	}
	if vel != nil && vel.Triggered && (vel.Band == fraud.BandHigh || vel.Band == fraud.BandCritical) {
		return true
	}
	return fs.CustTxCount <= 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
