package linear_model

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.LinearModel             = (*LinearRegression)(nil)
	_ model.Regressor               = (*Ridge)(nil)
	_ model.Regressor               = (*Lasso)(nil)
	_ model.ProbabilisticClassifier = (*LogisticRegression)(nil)
	_ model.DecisionFunctioner      = (*LogisticRegression)(nil)
)

func TestLinearRegression_ExactFit(t *testing.T) {
	// y = 1 + 2*x1 + 3*x2
	X := mat.NewDense(5, 2, []float64{
		1, 0,
		0, 1,
		2, 1,
		3, 5,
		4, 2,
	})
	y := mat.NewDense(5, 1, nil)
	for i := 0; i < 5; i++ {
		y.Set(i, 0, 1+2*X.At(i, 0)+3*X.At(i, 1))
	}

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	coef := lr.Coefficients()
	if math.Abs(coef[0]-2) > 1e-8 || math.Abs(coef[1]-3) > 1e-8 {
		t.Errorf("coefficients = %v, want [2 3]", coef)
	}
	if math.Abs(lr.Intercept()-1) > 1e-8 {
		t.Errorf("intercept = %v, want 1", lr.Intercept())
	}
	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(score-1) > 1e-10 {
		t.Errorf("R2 = %v, want 1", score)
	}
}

// Duplicate columns have no unique solution; the minimum-norm one splits
// the weight evenly.
func TestLinearRegression_RankDeficient(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if lr.Rank() != 1 {
		t.Errorf("rank = %d, want 1", lr.Rank())
	}
	coef := lr.Coefficients()
	if math.Abs(coef[0]-1) > 1e-8 || math.Abs(coef[1]-1) > 1e-8 {
		t.Errorf("coefficients = %v, want [1 1]", coef)
	}
	pred, err := lr.Predict(mat.NewDense(1, 2, []float64{5, 5}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pred.At(0, 0)-11) > 1e-8 {
		t.Errorf("prediction = %v, want 11", pred.At(0, 0))
	}
}

func TestRidge_SingleFeature(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	tests := []struct {
		alpha         float64
		wantCoef      float64
		wantIntercept float64
	}{
		{alpha: 0, wantCoef: 2, wantIntercept: 0},
		{alpha: 1, wantCoef: 10.0 / 6.0, wantIntercept: 5 - 10.0/6.0*2.5},
		{alpha: 5, wantCoef: 1, wantIntercept: 2.5},
	}
	for _, tt := range tests {
		r := NewRidge(WithRidgeAlpha(tt.alpha))
		if err := r.Fit(X, y); err != nil {
			t.Fatalf("alpha=%v: Fit failed: %v", tt.alpha, err)
		}
		if got := r.Coefficients()[0]; math.Abs(got-tt.wantCoef) > 1e-9 {
			t.Errorf("alpha=%v: coef = %v, want %v", tt.alpha, got, tt.wantCoef)
		}
		if got := r.Intercept(); math.Abs(got-tt.wantIntercept) > 1e-9 {
			t.Errorf("alpha=%v: intercept = %v, want %v", tt.alpha, got, tt.wantIntercept)
		}
	}
}

func TestRidge_NegativeAlpha(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewDense(2, 1, []float64{1, 2})
	err := NewRidge(WithRidgeAlpha(-1)).Fit(X, y)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestLasso_SoftThreshold(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	// w = (xᵀy - n·alpha) / xᵀx on centered data: xᵀy = 10, xᵀx = 5, n = 4
	tests := []struct {
		alpha         float64
		wantCoef      float64
		wantIntercept float64
	}{
		{alpha: 1, wantCoef: 1.2, wantIntercept: 2},
		{alpha: 0.5, wantCoef: 1.6, wantIntercept: 1},
		{alpha: 10, wantCoef: 0, wantIntercept: 5},
	}
	for _, tt := range tests {
		l := NewLasso(WithLassoAlpha(tt.alpha))
		if err := l.Fit(X, y); err != nil {
			t.Fatalf("alpha=%v: Fit failed: %v", tt.alpha, err)
		}
		if got := l.Coefficients()[0]; math.Abs(got-tt.wantCoef) > 1e-9 {
			t.Errorf("alpha=%v: coef = %v, want %v", tt.alpha, got, tt.wantCoef)
		}
		if got := l.Intercept(); math.Abs(got-tt.wantIntercept) > 1e-9 {
			t.Errorf("alpha=%v: intercept = %v, want %v", tt.alpha, got, tt.wantIntercept)
		}
	}
}

func TestLinearModels_NotFittedAndDimensions(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 2, 1, 3, 4})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	models := map[string]interface {
		Fit(X, y mat.Matrix) error
		Predict(X mat.Matrix) (mat.Matrix, error)
	}{
		"linear": NewLinearRegression(),
		"ridge":  NewRidge(),
		"lasso":  NewLasso(),
	}
	for name, m := range models {
		var notFitted *errors.NotFittedError
		if _, err := m.Predict(X); !errors.As(err, &notFitted) {
			t.Errorf("%s: expected NotFittedError, got %v", name, err)
		}
		if err := m.Fit(X, y); err != nil {
			t.Fatalf("%s: Fit failed: %v", name, err)
		}
		var dimErr *errors.DimensionError
		if _, err := m.Predict(mat.NewDense(1, 3, nil)); !errors.As(err, &dimErr) {
			t.Errorf("%s: expected DimensionError, got %v", name, err)
		}
		if err := m.Fit(X, mat.NewDense(2, 1, nil)); !errors.As(err, &dimErr) {
			t.Errorf("%s: expected DimensionError for mismatched y, got %v", name, err)
		}
	}
}
