package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSEAndRMSE(t *testing.T) {
	tests := []struct {
		name     string
		yTrue    *mat.VecDense
		yPred    *mat.VecDense
		wantMSE  float64
		wantRMSE float64
		wantErr  bool
	}{
		{
			name:     "perfect prediction",
			yTrue:    mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred:    mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			wantMSE:  0,
			wantRMSE: 0,
		},
		{
			name:     "simple case",
			yTrue:    mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred:    mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			wantMSE:  0.25,
			wantRMSE: 0.5,
		},
		{
			name:     "larger errors",
			yTrue:    mat.NewVecDense(3, []float64{10, 20, 30}),
			yPred:    mat.NewVecDense(3, []float64{12, 18, 33}),
			wantMSE:  17.0 / 3.0,
			wantRMSE: math.Sqrt(17.0 / 3.0),
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
		{
			name:    "nil vector",
			yTrue:   nil,
			yPred:   mat.NewVecDense(1, []float64{1}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.Abs(mse-tt.wantMSE) > 1e-10 {
				t.Errorf("MSE() = %v, want %v", mse, tt.wantMSE)
			}
			rmse, err := RMSE(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(rmse-tt.wantRMSE) > 1e-10 {
				t.Errorf("RMSE() = %v, want %v", rmse, tt.wantRMSE)
			}
			if rmse < 0 {
				t.Error("RMSE must be non-negative")
			}
		})
	}
}

func TestMAE(t *testing.T) {
	got, err := MAE(mat.NewVecDense(3, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{2, 2, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("MAE() = %v, want 1", got)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"perfect", []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, 1},
		{"mean predictor", []float64{1, 2, 3, 4}, []float64{2.5, 2.5, 2.5, 2.5}, 0},
		// 平均より悪い予測では負の値になる
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
		{"constant truth, exact", []float64{5, 5}, []float64{5, 5}, 1},
		{"constant truth, off", []float64{5, 5}, []float64{4, 6}, 0},
		{"single sample", []float64{7}, []float64{3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(mat.NewVecDense(len(tt.yTrue), tt.yTrue), mat.NewVecDense(len(tt.yPred), tt.yPred))
			if err != nil {
				t.Fatalf("R2Score() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}
