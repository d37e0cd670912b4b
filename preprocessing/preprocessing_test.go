package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

func nums(vals ...float64) []dataset.Value {
	out := make([]dataset.Value, len(vals))
	for i, v := range vals {
		out[i] = dataset.Num(v) // NaN becomes missing
	}
	return out
}

func strs(vals ...string) []dataset.Value {
	out := make([]dataset.Value, len(vals))
	for i, v := range vals {
		if v == "" {
			out[i] = dataset.Missing()
			continue
		}
		out[i] = dataset.Str(v)
	}
	return out
}

func mustTable(t *testing.T, cols ...dataset.Column) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New(cols...)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(scaler.Mean[0]-2.5) > 1e-12 {
		t.Errorf("Mean[0] = %v, want 2.5", scaler.Mean[0])
	}
	// 母標準偏差 sqrt(1.25)
	if math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v", scaler.Scale[0])
	}
	// 定数列はスケール1
	if scaler.Scale[1] != 1 {
		t.Errorf("constant column scale = %v, want 1", scaler.Scale[1])
	}
	if out.At(1, 1) != 0 {
		t.Errorf("constant column should transform to 0, got %v", out.At(1, 1))
	}

	back, err := scaler.InverseTransform(out)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform did not round trip: %v", mat.Formatted(back))
	}

	if _, err := scaler.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected dimension error")
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	_, err := NewStandardScalerDefault().Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestSimpleImputer(t *testing.T) {
	tests := []struct {
		name     string
		strategy ImputeStrategy
		col      dataset.Column
		want     string
	}{
		{"median odd", Median, dataset.Column{Name: "a", Values: nums(3, math.NaN(), 1, 2)}, "2"},
		{"median even", Median, dataset.Column{Name: "a", Values: nums(4, 1, math.NaN(), 2, 3)}, "2.5"},
		{"median all missing", Median, dataset.Column{Name: "a", Values: nums(math.NaN(), math.NaN())}, "0"},
		{"mode", MostFrequent, dataset.Column{Name: "c", Values: strs("SF", "NY", "", "SF")}, "SF"},
		{"mode tie takes smallest", MostFrequent, dataset.Column{Name: "c", Values: strs("SF", "LA", "", "NY")}, "LA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := NewSimpleImputer(tt.strategy)
			out, err := imp.FitTransform([]dataset.Column{tt.col})
			if err != nil {
				t.Fatal(err)
			}
			if got := imp.Statistics[0].String(); got != tt.want {
				t.Errorf("statistic = %q, want %q", got, tt.want)
			}
			for i, v := range out[0].Values {
				if v.IsMissing() {
					t.Errorf("row %d still missing", i)
				}
			}
		})
	}
}

func TestSimpleImputerMedianRejectsStrings(t *testing.T) {
	imp := NewSimpleImputer(Median)
	err := imp.Fit([]dataset.Column{{Name: "city", Values: strs("NY")}})
	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestOneHotEncoderUnknownCategory(t *testing.T) {
	enc := NewOneHotEncoder()
	train := []dataset.Column{{Name: "city", Values: strs("NY", "SF", "NY")}}
	if err := enc.Fit(train); err != nil {
		t.Fatal(err)
	}
	if got := enc.FeatureNames(); len(got) != 2 || got[0] != "city=NY" || got[1] != "city=SF" {
		t.Errorf("FeatureNames() = %v", got)
	}

	out, err := enc.Transform([]dataset.Column{{Name: "city", Values: strs("SF", "LA")}})
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 2, []float64{
		0, 1,
		0, 0, // LA は未知カテゴリなので全て0
	})
	if !mat.Equal(out, want) {
		t.Errorf("Transform() = %v", mat.Formatted(out))
	}
}

func TestBuildPlanBranches(t *testing.T) {
	tests := []struct {
		name        string
		schema      []dataset.ColumnInfo
		numeric     int
		categorical int
		wantErr     bool
	}{
		{
			name:    "numeric only",
			schema:  []dataset.ColumnInfo{{Name: "a", Kind: dataset.Numeric}, {Name: "b", Kind: dataset.Numeric}},
			numeric: 2,
		},
		{
			name:        "categorical only",
			schema:      []dataset.ColumnInfo{{Name: "city", Kind: dataset.Categorical}},
			categorical: 1,
		},
		{
			name:        "mixed",
			schema:      []dataset.ColumnInfo{{Name: "age", Kind: dataset.Numeric}, {Name: "city", Kind: dataset.Categorical}},
			numeric:     1,
			categorical: 1,
		},
		{name: "empty", schema: nil, wantErr: true},
		{
			name:    "target leaked",
			schema:  []dataset.ColumnInfo{{Name: "label", Kind: dataset.Categorical}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := BuildPlan(tt.schema, "label")
			if tt.wantErr {
				var verr *errors.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(ct.Numeric) != tt.numeric || len(ct.Categorical) != tt.categorical {
				t.Errorf("branches = %v / %v", ct.Numeric, ct.Categorical)
			}
			if (ct.scaler == nil) != (tt.numeric == 0) {
				t.Error("numeric branch presence mismatch")
			}
			if (ct.encoder == nil) != (tt.categorical == 0) {
				t.Error("categorical branch presence mismatch")
			}
		})
	}
}

func TestColumnTransformerFitsOnTrainOnly(t *testing.T) {
	train := mustTable(t,
		dataset.Column{Name: "age", Values: nums(20, 30, math.NaN(), 40)},
		dataset.Column{Name: "city", Values: strs("NY", "SF", "NY", "")},
	)
	test := mustTable(t,
		dataset.Column{Name: "age", Values: nums(math.NaN(), 1000)},
		dataset.Column{Name: "city", Values: strs("LA", "")},
	)

	ct, err := BuildPlan(train.Schema(), "label")
	if err != nil {
		t.Fatal(err)
	}
	Xtr, err := ct.FitTransform(train)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := Xtr.Dims(); r != 4 || c != 3 {
		t.Fatalf("train dims = %dx%d, want 4x3", r, c)
	}

	Xte, err := ct.Transform(test)
	if err != nil {
		t.Fatal(err)
	}
	// 欠損ageは学習データの中央値30で埋められ、標準化後0になる
	if math.Abs(Xte.At(0, 0)) > 1e-12 {
		t.Errorf("imputed test age = %v, want 0", Xte.At(0, 0))
	}
	// 未知カテゴリLAは全て0
	if Xte.At(0, 1) != 0 || Xte.At(0, 2) != 0 {
		t.Errorf("unknown category row = %v, %v", Xte.At(0, 1), Xte.At(0, 2))
	}
	// 欠損cityは学習データの最頻値NYで埋められる
	if Xte.At(1, 1) != 1 || Xte.At(1, 2) != 0 {
		t.Errorf("imputed city row = %v, %v", Xte.At(1, 1), Xte.At(1, 2))
	}

	names := ct.FeatureNames()
	if len(names) != 3 || names[0] != "age" || names[1] != "city=NY" || names[2] != "city=SF" {
		t.Errorf("FeatureNames() = %v", names)
	}
}

func TestColumnTransformerMissingColumn(t *testing.T) {
	train := mustTable(t, dataset.Column{Name: "age", Values: nums(1, 2)})
	ct, err := BuildPlan(train.Schema(), "y")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ct.FitTransform(train); err != nil {
		t.Fatal(err)
	}
	other := mustTable(t, dataset.Column{Name: "height", Values: nums(1)})
	if _, err := ct.Transform(other); err == nil {
		t.Error("expected error for missing feature column")
	}
}
