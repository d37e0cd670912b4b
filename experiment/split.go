package experiment

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// SplitResult is a train/test partition of a table. TrainIdx and TestIdx
// are ascending, disjoint, and together cover every row.
type SplitResult struct {
	TrainIdx []int
	TestIdx  []int

	XTrain, XTest *dataset.Table
	YTrain, YTest []dataset.Value
}

// TestSize returns round(fraction·n), rounding halves away from zero.
func TestSize(n int, fraction float64) int {
	return int(math.Round(fraction * float64(n)))
}

// SplitIndices partitions rows 0..n-1. A permutation drawn from seed picks
// the test rows; each partition then keeps the original row order.
func SplitIndices(n int, fraction float64, seed int64) (train, test []int, err error) {
	if !(fraction > 0 && fraction < 1) {
		return nil, nil, errors.NewValidationError("split", "must be strictly between 0 and 1", fraction)
	}
	if n < 2 {
		return nil, nil, errors.NewDataInsufficiencyError("split", n, "insufficient data")
	}
	nTest := TestSize(n, fraction)
	if nTest == 0 || nTest == n {
		return nil, nil, errors.NewDataInsufficiencyError("split", n, "insufficient data: a partition would be empty")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}

// Split partitions a feature table and its aligned target values.
func Split(X *dataset.Table, y []dataset.Value, fraction float64, seed int64) (SplitResult, error) {
	if X.NumRows() != len(y) {
		return SplitResult{}, errors.NewDimensionError("Split", X.NumRows(), len(y), 0)
	}
	train, test, err := SplitIndices(len(y), fraction, seed)
	if err != nil {
		return SplitResult{}, err
	}
	return SplitResult{
		TrainIdx: train,
		TestIdx:  test,
		XTrain:   X.Take(train),
		XTest:    X.Take(test),
		YTrain:   pick(y, train),
		YTest:    pick(y, test),
	}, nil
}

func pick(values []dataset.Value, rows []int) []dataset.Value {
	out := make([]dataset.Value, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}
