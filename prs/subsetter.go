// Package prs implements the polygenic-score estimator suite: feature
// subsetting by p-value threshold, validation splitting, partitioned
// ensembles, and the fit pipeline shared by the tree-based and linear
// estimator variants.
package prs

import (
	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// Subsetter selects the covariate columns plus one threshold's variant
// columns from a feature table. Variant sets are keyed by the threshold
// label used during association filtering (e.g. "p1e-05").
type Subsetter struct {
	Covariates  []string
	VariantSets map[string][]string
}

// Subset returns a view of t holding the covariates followed by the
// variants of the given threshold. The input table is not modified.
func (s *Subsetter) Subset(t dataset.Table, threshold string) (dataset.Table, error) {
	variants, ok := s.VariantSets[threshold]
	if !ok {
		return nil, errors.NewLookupError("prs.Subset", threshold)
	}

	cols := make([]string, 0, len(s.Covariates)+len(variants))
	cols = append(cols, s.Covariates...)
	cols = append(cols, variants...)
	return t.Select(cols)
}

// Thresholds returns the available threshold keys.
func (s *Subsetter) Thresholds() []string {
	keys := make([]string, 0, len(s.VariantSets))
	for k := range s.VariantSets {
		keys = append(keys, k)
	}
	return keys
}
