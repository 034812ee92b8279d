package prs

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// ValidationSplit is the outcome of SplitValidation: the training and
// validation portions of the table and labels, plus the row masks that
// produced them so callers can apply the same draw to aligned side data
// such as group labels.
type ValidationSplit struct {
	TrainX, ValX dataset.Table
	TrainY, ValY *mat.VecDense
	TrainMask    []bool
	ValMask      []bool
}

// SplitValidation divides rows into a training and a validation portion
// with one Bernoulli(valFrac) draw per row. The same mask is applied to
// the feature table and the labels, so the two stay aligned. The split
// is not stratified; a degenerate draw that leaves one side empty
// surfaces as an error from the table filter.
func SplitValidation(t dataset.Table, y *mat.VecDense, valFrac float64, rng *rand.Rand) (*ValidationSplit, error) {
	if valFrac <= 0 || valFrac >= 1 {
		return nil, errors.NewValueError("prs.SplitValidation",
			fmt.Sprintf("val_frac must be in (0, 1), got %g", valFrac))
	}
	n := t.NumRows()
	if y.Len() != n {
		return nil, errors.NewDimensionError("prs.SplitValidation", n, y.Len(), 0)
	}

	valMask := validationMask(n, valFrac, rng)
	trainMask := make([]bool, n)
	for i := 0; i < n; i++ {
		trainMask[i] = !valMask[i]
	}

	trainX, err := t.FilterRows(trainMask)
	if err != nil {
		return nil, errors.Wrap(err, "training split")
	}
	valX, err := t.FilterRows(valMask)
	if err != nil {
		return nil, errors.Wrap(err, "validation split")
	}

	return &ValidationSplit{
		TrainX:    trainX,
		ValX:      valX,
		TrainY:    filterVec(y, trainMask),
		ValY:      filterVec(y, valMask),
		TrainMask: trainMask,
		ValMask:   valMask,
	}, nil
}

// validationMask draws one Bernoulli(valFrac) per row; true marks a
// validation row.
func validationMask(n int, valFrac float64, rng *rand.Rand) []bool {
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		mask[i] = rng.Float64() < valFrac
	}
	return mask
}

// filterVec copies the masked elements of v into a new vector.
func filterVec(v *mat.VecDense, mask []bool) *mat.VecDense {
	var kept []float64
	for i, keep := range mask {
		if keep {
			kept = append(kept, v.AtVec(i))
		}
	}
	return mat.NewVecDense(len(kept), kept)
}
