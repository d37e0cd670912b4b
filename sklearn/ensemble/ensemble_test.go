package ensemble

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.ProbabilisticClassifier = (*RandomForestClassifier)(nil)
	_ model.Regressor               = (*RandomForestRegressor)(nil)
	_ model.ProbabilisticClassifier = (*GradientBoostingClassifier)(nil)
	_ model.DecisionFunctioner      = (*GradientBoostingClassifier)(nil)
	_ model.Regressor               = (*GradientBoostingRegressor)(nil)
)

// clusters returns nPer points around each of the given centers, labelled
// by center index.
func clusters(nPer int, centers ...[2]float64) (*mat.Dense, *mat.Dense) {
	n := nPer * len(centers)
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	offsets := [][2]float64{{0, 0}, {0.3, 0.1}, {0.1, 0.4}, {-0.2, 0.2}, {0.2, -0.3}, {-0.4, -0.1}, {0.05, 0.25}, {-0.15, -0.35}}
	for c, center := range centers {
		for i := 0; i < nPer; i++ {
			o := offsets[i%len(offsets)]
			row := c*nPer + i
			X.Set(row, 0, center[0]+o[0])
			X.Set(row, 1, center[1]+o[1])
			y.Set(row, 0, float64(c))
		}
	}
	return X, y
}

func checkProbaRows(t *testing.T, probas mat.Matrix, wantCols int) {
	t.Helper()
	rows, cols := probas.Dims()
	if cols != wantCols {
		t.Fatalf("Expected %d probability columns, got %d", wantCols, cols)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := probas.At(i, j)
			if p < 0 || p > 1 {
				t.Errorf("Invalid probability at (%d, %d): %v", i, j, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
	}
}

func TestRandomForestClassifier_Clusters(t *testing.T) {
	X, y := clusters(8, [2]float64{0, 0}, [2]float64{5, 5})

	rf := NewRandomForestClassifier(WithNEstimators(25), WithForestRandomState(42))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	acc, err := rf.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 1.0 {
		t.Errorf("Expected perfect training accuracy, got %v", acc)
	}
	probas, err := rf.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	checkProbaRows(t, probas, 2)

	imps := rf.FeatureImportances()
	if len(imps) != 2 {
		t.Fatalf("Expected 2 importances, got %d", len(imps))
	}
}

func TestRandomForestClassifier_SeedDeterminism(t *testing.T) {
	X, y := clusters(6, [2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 0})

	fit := func(seed int64) mat.Matrix {
		rf := NewRandomForestClassifier(WithNEstimators(10), WithForestRandomState(seed))
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		p, err := rf.PredictProba(X)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	if !mat.Equal(fit(42), fit(42)) {
		t.Error("Same seed produced different forests")
	}
}

func TestRandomForestRegressor_Step(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{0, 1, 2, 3, 4, 10, 11, 12, 13, 14})
	y := mat.NewDense(10, 1, []float64{1, 1, 1, 1, 1, 9, 9, 9, 9, 9})

	rf := NewRandomForestRegressor(WithNEstimators(20), WithForestRandomState(42))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	pred, err := rf.Predict(mat.NewDense(2, 1, []float64{2, 12}))
	if err != nil {
		t.Fatal(err)
	}
	if pred.At(0, 0) >= 5 || pred.At(1, 0) <= 5 {
		t.Errorf("Predictions on the wrong side of the step: %v", mat.Formatted(pred))
	}
}

func TestRandomForest_InvalidParams(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})

	var valErr *errors.ValidationError
	if err := NewRandomForestClassifier(WithNEstimators(0)).Fit(X, y); !errors.As(err, &valErr) {
		t.Errorf("Expected ValidationError for n_estimators, got %v", err)
	}
	if err := NewRandomForestRegressor(WithForestMaxFeatures("half")).Fit(X, y); !errors.As(err, &valErr) {
		t.Errorf("Expected ValidationError for max_features, got %v", err)
	}
}

func TestGradientBoostingRegressor_FitsQuadratic(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i*i))
	}

	gb := NewGradientBoostingRegressor()
	if err := gb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	r2, err := gb.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if r2 < 0.99 {
		t.Errorf("Expected training R2 >= 0.99, got %v", r2)
	}
}

func TestGradientBoostingClassifier_Binary(t *testing.T) {
	X, y := clusters(8, [2]float64{0, 0}, [2]float64{3, 3})

	gb := NewGradientBoostingClassifier(WithBoostingNEstimators(50))
	if err := gb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	acc, err := gb.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 1.0 {
		t.Errorf("Expected perfect training accuracy, got %v", acc)
	}

	scores, err := gb.DecisionFunction(X)
	if err != nil {
		t.Fatal(err)
	}
	if _, c := scores.Dims(); c != 1 {
		t.Errorf("Binary decision function should have 1 column, got %d", c)
	}
	probas, err := gb.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	checkProbaRows(t, probas, 2)
}

func TestGradientBoostingClassifier_Multiclass(t *testing.T) {
	X, y := clusters(6, [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{0, 4})

	gb := NewGradientBoostingClassifier(WithBoostingNEstimators(30))
	if err := gb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	acc, err := gb.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 1.0 {
		t.Errorf("Expected perfect training accuracy, got %v", acc)
	}
	scores, err := gb.DecisionFunction(X)
	if err != nil {
		t.Fatal(err)
	}
	if _, c := scores.Dims(); c != 3 {
		t.Errorf("Multiclass decision function should have 3 columns, got %d", c)
	}
	probas, err := gb.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	checkProbaRows(t, probas, 3)
}

func TestGradientBoostingClassifier_SingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})

	err := NewGradientBoostingClassifier().Fit(X, y)
	var valueErr *errors.ValueError
	if !errors.As(err, &valueErr) {
		t.Errorf("Expected ValueError, got %v", err)
	}
}
