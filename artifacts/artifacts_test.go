package artifacts

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/experiment"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func runOn(t *testing.T, tbl *dataset.Table, target, algo string) *experiment.Result {
	t.Helper()
	res, err := experiment.Run(context.Background(), tbl, experiment.RunConfig{
		Target:        target,
		SplitFraction: 0.25,
		Algorithm:     algo,
	})
	if err != nil {
		t.Fatalf("Run(%s) failed: %v", algo, err)
	}
	return res
}

func peopleTable(t *testing.T) *dataset.Table {
	t.Helper()
	ages := []float64{22, 25, 47, 52, 46, 56, 55, 60, 62, 61, 18, 28, 27, 29, 49, 55}
	cities := []string{"tokyo", "osaka", "nagoya"}
	var age, city, label []dataset.Value
	for i, a := range ages {
		age = append(age, dataset.Num(a))
		city = append(city, dataset.Str(cities[i%3]))
		if a > 40 {
			label = append(label, dataset.Num(1))
		} else {
			label = append(label, dataset.Num(0))
		}
	}
	tbl, err := dataset.New(
		dataset.Column{Name: "age", Values: age},
		dataset.Column{Name: "city", Values: city},
		dataset.Column{Name: "label", Values: label},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func threeClassTable(t *testing.T) *dataset.Table {
	t.Helper()
	var x, y []dataset.Value
	names := []string{"setosa", "versicolor", "virginica"}
	for c := 0; c < 3; c++ {
		for i := 0; i < 8; i++ {
			x = append(x, dataset.Num(float64(c*10+i%4)))
			y = append(y, dataset.Str(names[c]))
		}
	}
	tbl, err := dataset.New(
		dataset.Column{Name: "x", Values: x},
		dataset.Column{Name: "species", Values: y},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func labels(arts []Artifact) []string {
	out := make([]string, len(arts))
	for i, a := range arts {
		out[i] = a.Label
	}
	return out
}

func TestGenerate_Regression(t *testing.T) {
	res := runOn(t, peopleTable(t), "age", "linear_regression")
	arts, skipped := Generate(res)
	if len(skipped) != 0 {
		t.Errorf("unexpected skips: %v", skipped)
	}
	want := []string{LabelResidual, LabelPredictedVsActual}
	got := labels(arts)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for _, a := range arts {
		if a.ContentType != ContentTypePNG || !bytes.HasPrefix(a.Data, pngMagic) {
			t.Errorf("%s is not a PNG", a.Label)
		}
	}
}

func TestGenerate_Classification(t *testing.T) {
	tests := []struct {
		name  string
		table *dataset.Table
		tgt   string
		algo  string
	}{
		{"binary proba", peopleTable(t), "label", "logistic_regression"},
		{"binary knn", peopleTable(t), "label", "knn_classifier"},
		{"multiclass forest", threeClassTable(t), "species", "random_forest_classifier"},
		{"multiclass svc", threeClassTable(t), "species", "svm_classifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runOn(t, tt.table, tt.tgt, tt.algo)
			arts, skipped := Generate(res)
			if len(skipped) != 0 {
				t.Errorf("unexpected skips: %v", skipped)
			}
			got := labels(arts)
			if len(got) != 2 || got[0] != LabelConfusionMatrix || got[1] != LabelROCCurve {
				t.Fatalf("labels = %v", got)
			}
			for _, a := range arts {
				if !bytes.HasPrefix(a.Data, pngMagic) {
					t.Errorf("%s is not a PNG", a.Label)
				}
			}
		})
	}
}

func TestGenerate_SingleClassTestSetSkipsROC(t *testing.T) {
	res := runOn(t, peopleTable(t), "label", "logistic_regression")
	one := *res
	one.YTest = make([]float64, len(res.YTest))
	one.Predictions = make([]float64, len(res.Predictions))

	arts, skipped := Generate(&one)
	if len(arts) != 1 || arts[0].Label != LabelConfusionMatrix {
		t.Errorf("artifacts = %v", labels(arts))
	}
	if len(skipped) != 1 || skipped[0].Label != LabelROCCurve {
		t.Fatalf("skipped = %v", skipped)
	}
	if skipped[0].Reason != "single-class test set" {
		t.Errorf("reason = %q", skipped[0].Reason)
	}
}

func TestRenderConfusionMatrix_DecodesAsPNG(t *testing.T) {
	tests := []struct {
		name  string
		table *dataset.Table
		tgt   string
	}{
		{"binary", peopleTable(t), "label"},
		{"three classes", threeClassTable(t), "species"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runOn(t, tt.table, tt.tgt, "decision_tree_classifier")
			data, err := renderConfusionMatrix(res)
			if err != nil {
				t.Fatalf("renderConfusionMatrix: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("png.Decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
				t.Errorf("empty image %v", b)
			}
		})
	}
}

// labelsOnly hides every score method of the wrapped classifier.
type labelsOnly struct {
	model.Classifier
}

func TestGenerate_NoScoreOutputSkipsROC(t *testing.T) {
	res := runOn(t, peopleTable(t), "label", "logistic_regression")
	clf, ok := res.Pipeline.Estimator().(model.Classifier)
	if !ok {
		t.Fatal("logistic regression is not a classifier")
	}
	bare := *res
	bare.Pipeline = experiment.NewTrainedPipeline(res.Pipeline.Kind, res.Pipeline.Features,
		res.Pipeline.Plan(), labelsOnly{clf}, res.Pipeline.ClassLabels())
	if bare.Pipeline.HasPredictProba() || bare.Pipeline.HasDecisionFunction() {
		t.Fatal("wrapped estimator still exposes scores")
	}

	arts, skipped := Generate(&bare)
	if got := labels(arts); len(got) != 1 || got[0] != LabelConfusionMatrix {
		t.Errorf("artifacts = %v", got)
	}
	if len(skipped) != 1 {
		t.Fatalf("skipped = %v", skipped)
	}
	if skipped[0].Label != LabelROCCurve || skipped[0].Reason != "estimator has no score output" {
		t.Errorf("skip = %+v", skipped[0])
	}
}

func TestRender_ContainsPanics(t *testing.T) {
	boom := func(*experiment.Result) ([]byte, error) { panic("bad glyph") }
	data, s := render("x.png", boom, &experiment.Result{})
	if data != nil || s == nil {
		t.Fatalf("expected a skip, got data=%v skip=%v", data, s)
	}
	if s.Label != "x.png" {
		t.Errorf("label = %q", s.Label)
	}
}

func TestPresentLabels(t *testing.T) {
	got := presentLabels(4, []float64{0, 2, 2}, []float64{3, 0})
	want := []int{0, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
