package ensemble

import (
	"context"
	"fmt"

	"github.com/sentra-io/sentra/internal/feature"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/logging"
)

// Policy constants of the reduction.
const (
	// FraudThreshold is the probability at which the binary call flips
	// to fraud.
	FraudThreshold = 0.5

	// Consensus spread boundaries. Spread is max minus min per-model
	// probability among the models that answered.
	tightSpread = 0.2
	wideSpread  = 0.5
)

// Consensus labels.
const (
	ConsensusHighFraud = "HIGH_AGREEMENT_FRAUD"
	ConsensusHighLegit = "HIGH_AGREEMENT_LEGIT"
	ConsensusModerate  = "MODERATE_AGREEMENT"
	ConsensusLow       = "LOW_AGREEMENT"
)

// DefaultWeights is the documented per-model reduction weighting, set from
// validation recall at training time. A weight of 0 marks a model kept for
// diagnostics but excluded from the reduction.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"xgboost":      0.40,
		"lightgbm":     0.35,
		"randomforest": 0.25,
	}
}

// Encoder produces the shared classifier input vector for a feature set.
type Encoder interface {
	Encode(fs *feature.FeatureSet) ([]float64, error)
}

// ModelFailure records one ensemble member that failed to answer. These are
// notices, not errors: scoring continues on the survivors.
type ModelFailure struct {
	Model string `json:"model"`
	Error string `json:"error"`
}

// Prediction is the reduced ensemble output for one transaction.
type Prediction struct {
	PerModel    map[string]float64 `json:"per_model"`
	Probability float64            `json:"fraud_probability"`
	IsFraud     bool               `json:"is_fraud"`
	Consensus   string             `json:"consensus"`
	Failures    []ModelFailure     `json:"failures,omitempty"`
}

// Predictor calls every ensemble member on the encoded vector and reduces
// their probabilities with the configured weights. Immutable after
// construction; safe for concurrent use.
type Predictor struct {
	enc     Encoder
	models  []Classifier
	weights map[string]float64
}

// NewPredictor builds a predictor over the given members. Models absent
// from weights reduce with weight 0, which keeps their probability visible
// in PerModel without letting it move the reduced result.
func NewPredictor(enc Encoder, models []Classifier, weights map[string]float64) (*Predictor, error) {
	if enc == nil {
		return nil, fmt.Errorf("ensemble: nil encoder")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("ensemble: no models")
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Predictor{enc: enc, models: models, weights: weights}, nil
}

// Predict encodes the feature set once and asks every member for its
// probability. A member's failure is logged and recorded as a notice, never
// propagated, unless every member fails, which surfaces as
// ErrPredictionUnavailable.
func (p *Predictor) Predict(ctx context.Context, fs *feature.FeatureSet) (*Prediction, error) {
	vec, err := p.enc.Encode(fs)
	if err != nil {
		return nil, err
	}

	pred := &Prediction{PerModel: make(map[string]float64, len(p.models))}
	for _, m := range p.models {
		prob, err := m.PredictProba(vec)
		if err != nil {
			logging.L(ctx).Warn("ensemble member failed", "model", m.Name(), "error", err)
			pred.Failures = append(pred.Failures, ModelFailure{Model: m.Name(), Error: err.Error()})
			continue
		}
		pred.PerModel[m.Name()] = prob
	}
	if len(pred.PerModel) == 0 {
		return nil, fmt.Errorf("%w: all %d members failed", fraud.ErrPredictionUnavailable, len(p.models))
	}

	pred.Probability = p.reduce(pred.PerModel)
	pred.IsFraud = pred.Probability >= FraudThreshold
	pred.Consensus = consensus(pred.PerModel, pred.Probability)
	return pred, nil
}

// reduce combines the surviving probabilities with the configured weights.
// If every survivor carries weight 0 the reduction falls back to a simple
// mean, so a prediction is always produced.
func (p *Predictor) reduce(perModel map[string]float64) float64 {
	var weighted, totalWeight float64
	for name, prob := range perModel {
		w := p.weights[name]
		weighted += w * prob
		totalWeight += w
	}
	if totalWeight > 0 {
		return weighted / totalWeight
	}
	var sum float64
	for _, prob := range perModel {
		sum += prob
	}
	return sum / float64(len(perModel))
}

func consensus(perModel map[string]float64, probability float64) string {
	min, max := 1.0, 0.0
	for _, p := range perModel {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	spread := max - min
	switch {
	case spread <= tightSpread && probability >= FraudThreshold:
		return ConsensusHighFraud
	case spread <= tightSpread:
		return ConsensusHighLegit
	case spread <= wideSpread:
		return ConsensusModerate
	default:
		return ConsensusLow
	}
}
