// Package anomaly flags statistical anomalies in an engineered feature set,
// independent of the trained model. Detection is a pure function of the
// features and the customer's usual-hours set; it never touches the network
// or the model artifacts.
package anomaly

import (
	"fmt"

	"github.com/sentra-io/sentra/internal/feature"
	"github.com/sentra-io/sentra/internal/fraud"
)

// Detection thresholds. The z-score and distance cutoffs match the values
// the risk policy was calibrated against.
const (
	// Amount z-score magnitudes that trigger and escalate the amount check.
	amountZTrigger = 3.0
	amountZHigh    = 5.0

	// Distance in km that triggers and escalates the location check.
	locationTriggerKM = 80.0
	locationHighKM    = 500.0

	// Leading-digit probabilities below this are counted as a weak
	// digit-pattern signal. Under Benford's law only digit 9 (about 4.6%)
	// falls under it.
	benfordRareProbability = 0.05
)

// Flag is the outcome of one anomaly dimension.
type Flag struct {
	Triggered   bool           `json:"is_anomaly"`
	Severity    fraud.Severity `json:"severity"`
	Explanation string         `json:"explanation,omitempty"`
}

// Report aggregates the per-dimension flags into an overall risk band.
type Report struct {
	Amount       Flag `json:"amount"`
	Time         Flag `json:"time"`
	Location     Flag `json:"location"`
	DigitPattern Flag `json:"digit_pattern"`

	TriggeredCount int            `json:"triggered_count"`
	Band           fraud.RiskBand `json:"risk_band"`
}

// Flags returns the per-dimension flags in a fixed order.
func (r *Report) Flags() []Flag {
	return []Flag{r.Amount, r.Time, r.Location, r.DigitPattern}
}

// HasSeverity reports whether any triggered dimension is at least min severe.
func (r *Report) HasSeverity(min fraud.Severity) bool {
	for _, f := range r.Flags() {
		if f.Triggered && f.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}

// Detector runs the statistical checks. Stateless and safe for concurrent use.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect evaluates every anomaly dimension for one engineered feature set.
// hist may be nil; an unknown usual-hours set disables the unusual-hour
// condition rather than flagging it.
func (d *Detector) Detect(fs *feature.FeatureSet, hist *fraud.CustomerHistory) *Report {
	r := &Report{
		Amount:       d.amount(fs),
		Time:         d.time(fs, hist),
		Location:     d.location(fs),
		DigitPattern: d.digitPattern(fs),
	}
	for _, f := range r.Flags() {
		if f.Triggered {
			r.TriggeredCount++
		}
	}
	r.Band = d.band(r)
	return r
}

func (d *Detector) amount(fs *feature.FeatureSet) Flag {
	z := fs.AmountZScore
	mag := z
	if mag < 0 {
		mag = -mag
	}
	if mag <= amountZTrigger {
		return Flag{Severity: fraud.SeverityNone}
	}
	sev := fraud.SeverityMedium
	if mag > amountZHigh {
		sev = fraud.SeverityHigh
	}
	return Flag{
		Triggered:   true,
		Severity:    sev,
		Explanation: fmt.Sprintf("amount is %.1f standard deviations from the customer average", z),
	}
}

func (d *Detector) time(fs *feature.FeatureSet, hist *fraud.CustomerHistory) Flag {
	night := fs.IsNight
	unusual := !hist.HasUsualHour(fs.Hour)
	switch {
	case night && unusual:
		return Flag{
			Triggered:   true,
			Severity:    fraud.SeverityHigh,
			Explanation: fmt.Sprintf("night transaction at %02d:00, outside the customer's usual hours", fs.Hour),
		}
	case night:
		return Flag{
			Triggered:   true,
			Severity:    fraud.SeverityMedium,
			Explanation: fmt.Sprintf("night transaction at %02d:00", fs.Hour),
		}
	case unusual:
		return Flag{
			Triggered:   true,
			Severity:    fraud.SeverityMedium,
			Explanation: fmt.Sprintf("hour %02d:00 is outside the customer's usual hours", fs.Hour),
		}
	default:
		return Flag{Severity: fraud.SeverityNone}
	}
}

func (d *Detector) location(fs *feature.FeatureSet) Flag {
	if fs.DistanceKM <= locationTriggerKM {
		return Flag{Severity: fraud.SeverityNone}
	}
	sev := fraud.SeverityMedium
	if fs.DistanceKM > locationHighKM {
		sev = fraud.SeverityHigh
	}
	return Flag{
		Triggered:   true,
		Severity:    sev,
		Explanation: fmt.Sprintf("transaction %.0f km from the customer's home location", fs.DistanceKM),
	}
}

func (d *Detector) digitPattern(fs *feature.FeatureSet) Flag {
	if fs.BenfordExpected >= benfordRareProbability {
		return Flag{Severity: fraud.SeverityNone}
	}
	// Auxiliary signal only. Low severity by construction, and the band
	// aggregation ignores it, so it can never drive a high classification
	// on its own.
	return Flag{
		Triggered:   true,
		Severity:    fraud.SeverityLow,
		Explanation: fmt.Sprintf("leading digit %d has Benford probability %.1f%%", fs.FirstDigit, fs.BenfordExpected*100),
	}
}

// band aggregates the three primary dimensions (amount, time, location).
// The digit-pattern flag contributes to the triggered count and the score,
// not to the band.
func (d *Detector) band(r *Report) fraud.RiskBand {
	primary := []Flag{r.Amount, r.Time, r.Location}
	fired := 0
	anyHigh := false
	for _, f := range primary {
		if f.Triggered {
			fired++
			if f.Severity == fraud.SeverityHigh {
				anyHigh = true
			}
		}
	}
	switch {
	case fired == len(primary):
		return fraud.BandCritical
	case fired >= 2 || anyHigh:
		return fraud.BandHigh
	case fired == 1:
		return fraud.BandMedium
	default:
		return fraud.BandLow
	}
}
