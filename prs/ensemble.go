package prs

import (
	"math/rand/v2"

	"github.com/cheggaaa/pb/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/model"
	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
	"github.com/RossDeVito/AutoML-PRS/pkg/log"
)

// CloneableLearner is a learner the ensemble can stamp fresh copies of:
// fit/predict plus parameter-preserving Clone.
type CloneableLearner interface {
	model.Estimator
	model.SKLearnCompatible
}

// DefaultNPartitions is the ensemble-level default partition count.
const DefaultNPartitions = 3

// PartitionedEnsemble fits one clone of the prototype learner per random
// row partition and predicts with the unweighted mean of the members.
// Rows are permuted once, then cut into NPartitions contiguous blocks of
// floor(N/n) rows; the last block absorbs the remainder.
type PartitionedEnsemble struct {
	model.BaseEstimator
	Prototype   CloneableLearner
	NPartitions int
	Seed        uint64
	Verbose     int

	members []model.Estimator
	logger  log.Logger
}

// NewPartitionedEnsemble creates an ensemble over clones of prototype.
// nPartitions <= 0 falls back to the default.
func NewPartitionedEnsemble(prototype CloneableLearner, nPartitions int) *PartitionedEnsemble {
	if nPartitions <= 0 {
		nPartitions = DefaultNPartitions
	}
	return &PartitionedEnsemble{
		Prototype:   prototype,
		NPartitions: nPartitions,
		Seed:        1,
		logger:      log.GetLoggerWithName("prs.PartitionedEnsemble"),
	}
}

// Fit trains one member per partition, sequentially and in partition
// order. A failing member aborts the whole fit.
func (e *PartitionedEnsemble) Fit(X dataset.Table, y *mat.VecDense) error {
	n := X.NumRows()
	if y.Len() != n {
		return errors.NewDimensionError("prs.PartitionedEnsemble.Fit", n, y.Len(), 0)
	}
	if n < e.NPartitions {
		return errors.NewValueError("prs.PartitionedEnsemble.Fit",
			"fewer rows than partitions")
	}

	rng := rand.New(rand.NewPCG(e.Seed, e.Seed))
	perm := rng.Perm(n)
	blockSize := n / e.NPartitions

	var bar *pb.ProgressBar
	if e.Verbose > 0 {
		bar = pb.New(e.NPartitions).Start()
	}

	e.members = make([]model.Estimator, 0, e.NPartitions)
	for p := 0; p < e.NPartitions; p++ {
		startIdx := p * blockSize
		endIdx := startIdx + blockSize
		if p == e.NPartitions-1 {
			endIdx = n
		}

		mask := make([]bool, n)
		for _, row := range perm[startIdx:endIdx] {
			mask[row] = true
		}
		blockX, err := X.FilterRows(mask)
		if err != nil {
			return errors.Wrapf(err, "partition %d", p)
		}
		blockY := filterVec(y, mask)

		member, ok := e.Prototype.Clone().(model.Estimator)
		if !ok {
			return errors.NewValueError("prs.PartitionedEnsemble.Fit",
				"prototype clone is not an estimator")
		}
		e.logger.Debug("fitting partition member",
			log.PartitionKey, p,
			log.SamplesKey, endIdx-startIdx,
		)
		// A panicking member surfaces as an error instead of tearing down
		// the whole fit.
		err = errors.SafeExecute("partition member fit", func() error {
			return member.Fit(blockX.Matrix(), vecToColumn(blockY))
		})
		if err != nil {
			return errors.Wrapf(err, "partition %d", p)
		}
		e.members = append(e.members, member)

		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	e.SetFitted()
	return nil
}

// Predict returns the unweighted mean of the member predictions.
func (e *PartitionedEnsemble) Predict(X dataset.Table) (*mat.VecDense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("PartitionedEnsemble", "Predict")
	}

	features := X.Matrix()
	n := X.NumRows()
	sum := mat.NewVecDense(n, nil)
	for p, member := range e.members {
		pred, err := member.Predict(features)
		if err != nil {
			return nil, errors.Wrapf(err, "partition %d", p)
		}
		for i := 0; i < n; i++ {
			sum.SetVec(i, sum.AtVec(i)+pred.At(i, 0))
		}
	}
	sum.ScaleVec(1/float64(e.NPartitions), sum)
	return sum, nil
}

// Members returns the fitted partition members in partition order.
func (e *PartitionedEnsemble) Members() []model.Estimator {
	return e.members
}

// vecToColumn wraps a vector's values as an n x 1 dense matrix.
func vecToColumn(v *mat.VecDense) *mat.Dense {
	out := mat.NewDense(v.Len(), 1, nil)
	for i := 0; i < v.Len(); i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
}
