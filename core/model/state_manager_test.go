package model

import (
	"testing"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

func TestStateManagerLifecycle(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("Ridge", "Predict")
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
	if nf.ModelName != "Ridge" || nf.Method != "Predict" {
		t.Errorf("unexpected error fields %+v", nf)
	}

	s.SetDimensions(3, 10)
	s.SetFitted()
	if err := s.RequireFitted("Ridge", "Predict"); err != nil {
		t.Errorf("unexpected error after fit: %v", err)
	}
	if err := s.CheckFeatures("Predict", 3); err != nil {
		t.Errorf("unexpected dimension error: %v", err)
	}

	var dim *errors.DimensionError
	if !errors.As(s.CheckFeatures("Predict", 4), &dim) {
		t.Error("expected DimensionError for 4 features")
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear the fitted flag")
	}
	if f, n := s.GetDimensions(); f != 0 || n != 0 {
		t.Errorf("Reset should clear dimensions, got %d, %d", f, n)
	}
}
