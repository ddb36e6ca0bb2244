// Package encoder turns an engineered feature set into the numeric vector
// the trained classifiers expect: numeric columns standard-scaled with the
// training-time mean and scale, categorical columns replaced by their
// training-time target encoding. Column order is fixed by the exported
// preprocessor parameters and must match the classifiers exactly.
package encoder

import (
	"fmt"

	"github.com/sentra-io/sentra/internal/feature"
	"github.com/sentra-io/sentra/internal/fraud"
)

// Params are the exported preprocessor parameters, trained offline.
type Params struct {
	NumericColumns     []string `json:"numeric_columns"`
	CategoricalColumns []string `json:"categorical_columns"`

	Scaler struct {
		Mean  map[string]float64 `json:"mean"`
		Scale map[string]float64 `json:"scale"`
	} `json:"scaler"`

	// TargetEncoding maps each categorical column to its value encoding.
	// Values unseen at training time fall back to the column prior.
	TargetEncoding map[string]TargetEncoding `json:"target_encoding"`
}

// TargetEncoding is the trained encoding for one categorical column.
type TargetEncoding struct {
	Mapping map[string]float64 `json:"mapping"`
	Prior   float64            `json:"prior"`
}

// Encoder applies the trained preprocessing. Immutable after construction;
// safe for concurrent use.
type Encoder struct {
	params Params
}

// New validates the exported parameters and builds the encoder. Every
// declared numeric column must carry scaler parameters and every declared
// categorical column a target encoding; a gap here would otherwise surface
// as a silent misencoding at scoring time.
func New(params Params) (*Encoder, error) {
	if len(params.NumericColumns) == 0 {
		return nil, fmt.Errorf("%w: preprocessor declares no numeric columns", fraud.ErrEncoderContract)
	}
	for _, col := range params.NumericColumns {
		if _, ok := params.Scaler.Mean[col]; !ok {
			return nil, fmt.Errorf("%w: no scaler mean for column %q", fraud.ErrEncoderContract, col)
		}
		if _, ok := params.Scaler.Scale[col]; !ok {
			return nil, fmt.Errorf("%w: no scaler scale for column %q", fraud.ErrEncoderContract, col)
		}
	}
	for _, col := range params.CategoricalColumns {
		if _, ok := params.TargetEncoding[col]; !ok {
			return nil, fmt.Errorf("%w: no target encoding for column %q", fraud.ErrEncoderContract, col)
		}
	}
	return &Encoder{params: params}, nil
}

// Columns returns the full encoded column order, numeric first.
func (e *Encoder) Columns() []string {
	cols := make([]string, 0, len(e.params.NumericColumns)+len(e.params.CategoricalColumns))
	cols = append(cols, e.params.NumericColumns...)
	cols = append(cols, e.params.CategoricalColumns...)
	return cols
}

// Width returns the length of the encoded vector.
func (e *Encoder) Width() int {
	return len(e.params.NumericColumns) + len(e.params.CategoricalColumns)
}

// Encode produces the classifier input vector for one feature set. A column
// the preprocessor requires but the feature set does not carry is a contract
// violation, reported as ErrEncoderContract rather than defaulted.
func (e *Encoder) Encode(fs *feature.FeatureSet) ([]float64, error) {
	numeric := fs.Numeric()
	categorical := fs.Categorical()

	vec := make([]float64, 0, e.Width())
	for _, col := range e.params.NumericColumns {
		v, ok := numeric[col]
		if !ok {
			return nil, fmt.Errorf("%w: feature set missing numeric column %q", fraud.ErrEncoderContract, col)
		}
		mean := e.params.Scaler.Mean[col]
		scale := e.params.Scaler.Scale[col]
		if scale == 0 {
			// Constant training column. Center only, matching how the
			// exporter serializes a zero-variance scaler.
			scale = 1
		}
		vec = append(vec, (v-mean)/scale)
	}
	for _, col := range e.params.CategoricalColumns {
		v, ok := categorical[col]
		if !ok {
			return nil, fmt.Errorf("%w: feature set missing categorical column %q", fraud.ErrEncoderContract, col)
		}
		enc := e.params.TargetEncoding[col]
		if encoded, ok := enc.Mapping[v]; ok {
			vec = append(vec, encoded)
		} else {
			vec = append(vec, enc.Prior)
		}
	}
	return vec, nil
}
