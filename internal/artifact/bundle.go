package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sentra-io/sentra/internal/encoder"
	"github.com/sentra-io/sentra/internal/ensemble"
	"github.com/sentra-io/sentra/internal/fraud"
)

// Artifact file names within a bundle directory.
const (
	merchantFreqFile = "merchant_frequencies.json"
	categoryFreqFile = "category_frequencies.json"
	preprocessorFile = "preprocessor.json"
	registryFile     = "model_registry.json"
)

// Bundle is the complete set of loaded artifacts. Immutable; share one
// instance across all concurrent scoring requests.
type Bundle struct {
	Merchants  *FrequencyTable
	Categories *FrequencyTable
	Encoder    *encoder.Encoder
	Models     []ensemble.Classifier

	// Weights is the per-model reduction weighting from the registry.
	Weights map[string]float64
}

// registry is the serialized model index.
type registry struct {
	Models []struct {
		File   string  `json:"file"`
		Weight float64 `json:"weight"`
	} `json:"models"`
}

// Open loads every artifact from dir. Any failure wraps
// ErrArtifactUnavailable: a partially loaded bundle is never returned, and
// the caller treats the failure as fatal at startup.
func Open(dir string) (*Bundle, error) {
	b := &Bundle{Weights: make(map[string]float64)}

	var err error
	if b.Merchants, err = loadFrequencyTable(filepath.Join(dir, merchantFreqFile)); err != nil {
		return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
	}
	if b.Categories, err = loadFrequencyTable(filepath.Join(dir, categoryFreqFile)); err != nil {
		return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
	}

	params, err := loadPreprocessor(filepath.Join(dir, preprocessorFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
	}
	if b.Encoder, err = encoder.New(params); err != nil {
		return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
	}

	reg, err := loadRegistry(filepath.Join(dir, registryFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
	}
	for _, entry := range reg.Models {
		spec, err := loadModelSpec(filepath.Join(dir, entry.File))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
		}
		m, err := ensemble.FromSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", fraud.ErrArtifactUnavailable, err)
		}
		b.Models = append(b.Models, m)
		b.Weights[m.Name()] = entry.Weight
	}
	if len(b.Models) == 0 {
		return nil, fmt.Errorf("%w: registry lists no models", fraud.ErrArtifactUnavailable)
	}
	return b, nil
}

func loadPreprocessor(path string) (encoder.Params, error) {
	var params encoder.Params
	raw, err := os.ReadFile(path)
	if err != nil {
		return params, err
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, fmt.Errorf("parse %s: %w", path, err)
	}
	return params, nil
}

func loadRegistry(path string) (registry, error) {
	var reg registry
	raw, err := os.ReadFile(path)
	if err != nil {
		return reg, err
	}
	if err := json.Unmarshal(raw, &reg); err != nil {
		return reg, fmt.Errorf("parse %s: %w", path, err)
	}
	return reg, nil
}

func loadModelSpec(path string) (ensemble.ModelSpec, error) {
	var spec ensemble.ModelSpec
	raw, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return spec, fmt.Errorf("parse %s: %w", path, err)
	}
	return spec, nil
}

// Lazy defers the bundle load to first use while guaranteeing it happens
// exactly once, even under concurrent first calls. A failed load is sticky;
// the process restarts to retry.
type Lazy struct {
	dir  string
	once sync.Once
	b    *Bundle
	err  error
}

// NewLazy wraps dir for load-on-first-use.
func NewLazy(dir string) *Lazy {
	return &Lazy{dir: dir}
}

// Get returns the loaded bundle, loading it on the first call.
func (l *Lazy) Get() (*Bundle, error) {
	l.once.Do(func() {
		l.b, l.err = Open(l.dir)
	})
	return l.b, l.err
}
