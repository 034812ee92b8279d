package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// rankPair couples one item's predicted score with its relevance label.
type rankPair = struct {
	score     float64
	relevance float64
}

// NDCG computes the normalized discounted cumulative gain at k with the
// exponential gain 2^rel - 1. Pass k = -1 to evaluate the full list.
// Relevance labels must be non-negative. If every label is zero the gain
// is undefined and 0 is returned with a warning.
func NDCG(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	pairs, err := rankPairs("NDCG", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	n := len(pairs)
	if k == -1 {
		k = n
	}
	if k <= 0 {
		return 0, errors.NewValueError("NDCG", "k must be positive or -1 for the full list")
	}
	if k > n {
		k = n
	}
	for _, p := range pairs {
		if p.relevance < 0 {
			return 0, errors.NewValueError("NDCG", "relevance labels must be non-negative")
		}
	}

	// Predicted order: descending score. Stable so ties keep input order.
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].score > pairs[b].score
	})
	actual := dcg(pairs, k)

	ideal := make([]rankPair, n)
	copy(ideal, pairs)
	sort.SliceStable(ideal, func(a, b int) bool {
		return ideal[a].relevance > ideal[b].relevance
	})
	best := dcg(ideal, k)

	if best == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("NDCG", "all relevance labels are zero", 0))
		return 0, nil
	}
	return actual / best, nil
}

// dcg sums the discounted exponential gains of the first k pairs in
// their current order.
func dcg(pairs []rankPair, k int) float64 {
	if k > len(pairs) {
		k = len(pairs)
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += (math.Pow(2, pairs[i].relevance) - 1) / math.Log2(float64(i)+2)
	}
	return sum
}

// NDCGMatrix computes NDCG for matrix inputs, using the first column.
func NDCGMatrix(yTrue, yPred mat.Matrix, k int) (float64, error) {
	yTrueVec, yPredVec, err := firstColumns("NDCGMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return NDCG(yTrueVec, yPredVec, k)
}

// GroupedNDCG computes the mean full-list NDCG over consecutive groups,
// where groupCounts gives the number of rows in each group in order. This
// is the validation metric the ranking objective reports.
func GroupedNDCG(yTrue, yPred *mat.VecDense, groupCounts []int) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("GroupedNDCG", "nil vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("GroupedNDCG", n, yPred.Len(), 0)
	}
	if len(groupCounts) == 0 {
		return 0, errors.NewValueError("GroupedNDCG", "no groups")
	}
	total := 0
	for _, c := range groupCounts {
		if c <= 0 {
			return 0, errors.NewValueError("GroupedNDCG", "group counts must be positive")
		}
		total += c
	}
	if total != n {
		return 0, errors.NewDimensionError("GroupedNDCG", n, total, 0)
	}

	var sum float64
	start := 0
	for _, c := range groupCounts {
		gTrue := mat.NewVecDense(c, nil)
		gPred := mat.NewVecDense(c, nil)
		for i := 0; i < c; i++ {
			gTrue.SetVec(i, yTrue.AtVec(start+i))
			gPred.SetVec(i, yPred.AtVec(start+i))
		}
		score, err := NDCG(gTrue, gPred, -1)
		if err != nil {
			return 0, err
		}
		sum += score
		start += c
	}
	return sum / float64(len(groupCounts)), nil
}

// AveragePrecision computes the average precision of a binary-relevance
// ranking: the mean of precision-at-rank over the relevant items, with
// items ordered by descending predicted score. Labels must be 0 or 1.
// Returns 0 when no item is relevant.
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	pairs, err := rankPairs("AveragePrecision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	for _, p := range pairs {
		if p.relevance != 0 && p.relevance != 1 {
			return 0, errors.NewValueError("AveragePrecision", "relevance labels must be 0 or 1")
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].score > pairs[b].score
	})

	var sum float64
	hits := 0
	for i, p := range pairs {
		if p.relevance == 1 {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0, nil
	}
	return sum / float64(hits), nil
}

// MeanAveragePrecision averages AveragePrecision over multiple queries.
func MeanAveragePrecision(yTrueList, yPredList []*mat.VecDense) (float64, error) {
	if len(yTrueList) == 0 {
		return 0, errors.NewValueError("MeanAveragePrecision", "no queries")
	}
	if len(yTrueList) != len(yPredList) {
		return 0, errors.NewDimensionError("MeanAveragePrecision", len(yTrueList), len(yPredList), 0)
	}

	var sum float64
	for i := range yTrueList {
		ap, err := AveragePrecision(yTrueList[i], yPredList[i])
		if err != nil {
			return 0, err
		}
		sum += ap
	}
	return sum / float64(len(yTrueList)), nil
}

// rankPairs validates a ranking input pair and zips it into score and
// relevance pairs.
func rankPairs(op string, yTrue, yPred *mat.VecDense) ([]rankPair, error) {
	if yTrue == nil || yPred == nil {
		return nil, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	pairs := make([]rankPair, n)
	for i := 0; i < n; i++ {
		pairs[i] = rankPair{score: yPred.AtVec(i), relevance: yTrue.AtVec(i)}
	}
	return pairs, nil
}
