// Package ensemble reduces the per-model fraud probabilities of a trained
// classifier collection into one probability, a binary call at a fixed
// threshold, and a consensus label. The classifiers themselves are opaque
// scoring functions reconstructed from exported model parameters.
package ensemble

import (
	"fmt"
	"math"
)

// Classifier is one trained model. PredictProba returns the probability of
// the positive (fraud) class for an encoded feature vector.
type Classifier interface {
	Name() string
	PredictProba(vec []float64) (float64, error)
}

// ModelSpec is the serialized form of one exported model.
type ModelSpec struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // "logistic" or "gbdt"

	// Logistic parameters.
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`

	// Gradient-boosted tree parameters.
	BaseScore float64    `json:"base_score,omitempty"`
	Trees     []TreeSpec `json:"trees,omitempty"`
}

// TreeSpec is one regression tree in flat-array form. Node i is a leaf when
// SplitFeature[i] < 0, in which case Value[i] is the leaf output; otherwise
// the walk descends to Left[i] or Right[i] on vec[SplitFeature[i]] <=
// Threshold[i].
type TreeSpec struct {
	SplitFeature []int     `json:"split_feature"`
	Threshold    []float64 `json:"threshold"`
	Left         []int     `json:"left"`
	Right        []int     `json:"right"`
	Value        []float64 `json:"value"`
}

// FromSpec reconstructs a scoring classifier from exported parameters.
func FromSpec(spec ModelSpec) (Classifier, error) {
	switch spec.Type {
	case "logistic":
		if len(spec.Coefficients) == 0 {
			return nil, fmt.Errorf("model %q: logistic spec has no coefficients", spec.Name)
		}
		return &logistic{name: spec.Name, coefficients: spec.Coefficients, intercept: spec.Intercept}, nil
	case "gbdt":
		if len(spec.Trees) == 0 {
			return nil, fmt.Errorf("model %q: gbdt spec has no trees", spec.Name)
		}
		for i, tr := range spec.Trees {
			n := len(tr.SplitFeature)
			if len(tr.Threshold) != n || len(tr.Left) != n || len(tr.Right) != n || len(tr.Value) != n {
				return nil, fmt.Errorf("model %q: tree %d has inconsistent node arrays", spec.Name, i)
			}
		}
		return &gbdt{name: spec.Name, baseScore: spec.BaseScore, trees: spec.Trees}, nil
	default:
		return nil, fmt.Errorf("model %q: unknown model type %q", spec.Name, spec.Type)
	}
}

type logistic struct {
	name         string
	coefficients []float64
	intercept    float64
}

func (m *logistic) Name() string { return m.name }

func (m *logistic) PredictProba(vec []float64) (float64, error) {
	if len(vec) != len(m.coefficients) {
		return 0, fmt.Errorf("model %q expects %d features, got %d", m.name, len(m.coefficients), len(vec))
	}
	z := m.intercept
	for i, c := range m.coefficients {
		z += c * vec[i]
	}
	return sigmoid(z), nil
}

type gbdt struct {
	name      string
	baseScore float64
	trees     []TreeSpec
}

func (m *gbdt) Name() string { return m.name }

func (m *gbdt) PredictProba(vec []float64) (float64, error) {
	raw := m.baseScore
	for i := range m.trees {
		leaf, err := m.trees[i].walk(vec)
		if err != nil {
			return 0, fmt.Errorf("model %q: %w", m.name, err)
		}
		raw += leaf
	}
	return sigmoid(raw), nil
}

func (t *TreeSpec) walk(vec []float64) (float64, error) {
	node := 0
	for steps := 0; steps <= len(t.SplitFeature); steps++ {
		if node < 0 || node >= len(t.SplitFeature) {
			return 0, fmt.Errorf("tree walk left node range at node %d", node)
		}
		f := t.SplitFeature[node]
		if f < 0 {
			return t.Value[node], nil
		}
		if f >= len(vec) {
			return 0, fmt.Errorf("tree split on feature %d but vector has %d", f, len(vec))
		}
		if vec[f] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return 0, fmt.Errorf("tree walk did not reach a leaf")
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
