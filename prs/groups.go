package prs

import (
	"fmt"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// GroupCounts run-length encodes consecutive per-row group labels into
// per-group row counts, the form the ranking learner consumes. Rows of
// one group must be consecutive; a label that reappears after a
// different one is an error because the encoding would silently split
// the group.
func GroupCounts(labels []int) ([]int, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	seen := map[int]bool{}
	var counts []int
	current := labels[0]
	run := 0
	for _, label := range labels {
		if label == current {
			run++
			continue
		}
		if seen[label] {
			return nil, errors.NewValueError("prs.GroupCounts",
				fmt.Sprintf("group %d is not consecutive", label))
		}
		seen[current] = true
		counts = append(counts, run)
		current = label
		run = 1
	}
	counts = append(counts, run)
	return counts, nil
}

// filterInts copies the masked elements of labels into a new slice.
func filterInts(labels []int, mask []bool) []int {
	if labels == nil {
		return nil
	}
	var kept []int
	for i, keep := range mask {
		if keep {
			kept = append(kept, labels[i])
		}
	}
	return kept
}
