package linear_model

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1000))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 6; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.At(i, 0), predictions.At(i, 0))
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0,
		3.0, 3.0,
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 0 || testPreds.At(1, 0) != 1 {
		t.Errorf("Unexpected test predictions: %v", mat.Formatted(testPreds))
	}

	scores, err := lr.DecisionFunction(XTest)
	if err != nil {
		t.Fatalf("DecisionFunction failed: %v", err)
	}
	if _, c := scores.Dims(); c != 1 {
		t.Errorf("Binary decision function should have 1 column, got %d", c)
	}
	if scores.At(0, 0) >= 0 || scores.At(1, 0) <= 0 {
		t.Errorf("Decision scores have wrong sign: %v", mat.Formatted(scores))
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}
	predictions, _ := lr.Predict(X)
	for i := 0; i < rows; i++ {
		sum := probas.At(i, 0) + probas.At(i, 1)
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
		pred := int(predictions.At(i, 0))
		if probas.At(i, pred) < 0.5 {
			t.Errorf("Sample %d: predicted class %d has probability %v", i, pred, probas.At(i, pred))
		}
	}
}

// TestLogisticRegression_Multiclass tests the multinomial model
func TestLogisticRegression_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
		4, 4,
		4, 5,
		5, 4,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRC(10.0))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit multiclass model: %v", err)
	}
	if got := lr.Classes(); len(got) != 3 {
		t.Errorf("Expected 3 classes, got %v", got)
	}

	acc, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc < 8.0/9.0-1e-9 {
		t.Errorf("Multiclass accuracy too low: %v", acc)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if cols != 3 {
		t.Errorf("Expected 3 probability columns, got %d", cols)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += probas.At(i, j)
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
	}

	scores, err := lr.DecisionFunction(X)
	if err != nil {
		t.Fatalf("DecisionFunction failed: %v", err)
	}
	if _, c := scores.Dims(); c != 3 {
		t.Errorf("Multiclass decision function should have 3 columns, got %d", c)
	}
}

// TestLogisticRegression_Deterministic checks that two fits agree exactly.
func TestLogisticRegression_Deterministic(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 0, 1, 1})

	a := NewLogisticRegression()
	b := NewLogisticRegression()
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pa, _ := a.PredictProba(X)
	pb, _ := b.PredictProba(X)
	if !mat.Equal(pa, pb) {
		t.Error("Repeated fits produced different probabilities")
	}
}

func TestLogisticRegression_SingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})

	err := NewLogisticRegression().Fit(X, y)
	var valueErr *errors.ValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("Expected ValueError, got %v", err)
	}
}

func TestLogisticRegression_GetParams(t *testing.T) {
	params := NewLogisticRegression().GetParams()
	if params["C"].(float64) != 1.0 {
		t.Errorf("Default C should be 1.0, got %v", params["C"])
	}
	if params["max_iter"].(int) != 100 {
		t.Errorf("Default max_iter should be 100, got %v", params["max_iter"])
	}
}

// TestLogisticRegression_NotFitted tests error when predicting without fitting
func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	var notFitted *errors.NotFittedError
	if _, err := lr.Predict(X); !errors.As(err, &notFitted) {
		t.Errorf("Expected NotFittedError from Predict, got %v", err)
	}
	if _, err := lr.PredictProba(X); !errors.As(err, &notFitted) {
		t.Errorf("Expected NotFittedError from PredictProba, got %v", err)
	}
}
