package svm

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.ProbabilisticClassifier = (*SVC)(nil)
	_ model.DecisionFunctioner      = (*SVC)(nil)
)

func blobs(centers ...[2]float64) (*mat.Dense, *mat.Dense) {
	offsets := [][2]float64{{0, 0}, {0.2, 0.1}, {-0.1, 0.2}, {0.15, -0.2}, {-0.2, -0.1}}
	n := len(centers) * len(offsets)
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	row := 0
	for c, center := range centers {
		for _, o := range offsets {
			X.Set(row, 0, center[0]+o[0])
			X.Set(row, 1, center[1]+o[1])
			y.Set(row, 0, float64(c))
			row++
		}
	}
	return X, y
}

func TestSVC_Binary(t *testing.T) {
	X, y := blobs([2]float64{0, 0}, [2]float64{2, 2})

	svc := NewSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	acc, err := svc.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 1.0 {
		t.Errorf("Expected perfect training accuracy, got %v", acc)
	}
	if svc.NSupport() == 0 {
		t.Error("Expected at least one support vector")
	}

	scores, err := svc.DecisionFunction(mat.NewDense(2, 2, []float64{0, 0, 2, 2}))
	if err != nil {
		t.Fatal(err)
	}
	if _, c := scores.Dims(); c != 1 {
		t.Fatalf("Binary decision function should have 1 column, got %d", c)
	}
	if scores.At(0, 0) >= 0 || scores.At(1, 0) <= 0 {
		t.Errorf("Decision scores have wrong sign: %v", mat.Formatted(scores))
	}

	probas, err := svc.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	rows, cols := probas.Dims()
	if cols != 2 {
		t.Fatalf("Expected 2 probability columns, got %d", cols)
	}
	for i := 0; i < rows; i++ {
		if math.Abs(probas.At(i, 0)+probas.At(i, 1)-1) > 1e-9 {
			t.Errorf("Probabilities for sample %d don't sum to 1", i)
		}
	}
}

func TestSVC_Multiclass(t *testing.T) {
	X, y := blobs([2]float64{0, 0}, [2]float64{3, 0}, [2]float64{0, 3})

	svc := NewSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	acc, err := svc.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 1.0 {
		t.Errorf("Expected perfect training accuracy, got %v", acc)
	}

	scores, err := svc.DecisionFunction(X)
	if err != nil {
		t.Fatal(err)
	}
	rows, cols := scores.Dims()
	if cols != 3 {
		t.Fatalf("Multiclass decision function should have 3 columns, got %d", cols)
	}
	pred, _ := svc.Predict(X)
	for i := 0; i < rows; i++ {
		best := 0
		for c := 1; c < cols; c++ {
			if scores.At(i, c) > scores.At(i, best) {
				best = c
			}
		}
		if float64(best) != pred.At(i, 0) {
			t.Errorf("Sample %d: decision argmax %d disagrees with prediction %v", i, best, pred.At(i, 0))
		}
	}

	probas, err := svc.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			sum += probas.At(i, c)
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
	}
}

func TestSVC_Errors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})

	var notFitted *errors.NotFittedError
	if _, err := NewSVC().Predict(X); !errors.As(err, &notFitted) {
		t.Errorf("Expected NotFittedError, got %v", err)
	}

	var valueErr *errors.ValueError
	if err := NewSVC().Fit(X, mat.NewDense(3, 1, []float64{1, 1, 1})); !errors.As(err, &valueErr) {
		t.Errorf("Expected ValueError for a single class, got %v", err)
	}

	var valErr *errors.ValidationError
	if err := NewSVC(WithC(0)).Fit(X, mat.NewDense(3, 1, []float64{0, 1, 1})); !errors.As(err, &valErr) {
		t.Errorf("Expected ValidationError for C=0, got %v", err)
	}
}

func TestCouple_SymmetricPairs(t *testing.T) {
	r := [][]float64{
		{0, 0.5, 0.5},
		{0.5, 0, 0.5},
		{0.5, 0.5, 0},
	}
	p := couple(r)
	for i, v := range p {
		if math.Abs(v-1.0/3.0) > 1e-9 {
			t.Errorf("p[%d] = %v, want 1/3", i, v)
		}
	}
}
