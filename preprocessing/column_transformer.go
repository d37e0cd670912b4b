package preprocessing

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// ColumnTransformer turns a feature table into a dense design matrix.
//
//	numeric     -> SimpleImputer(median)        -> StandardScaler
//	categorical -> SimpleImputer(most_frequent) -> OneHotEncoder
//
// Output columns are the scaled numeric columns followed by the indicator
// columns. A branch with no columns is omitted.
type ColumnTransformer struct {
	state *model.StateManager

	Numeric     []string
	Categorical []string

	numImputer *SimpleImputer
	scaler     model.Transformer
	catImputer *SimpleImputer
	encoder    *OneHotEncoder
}

// BuildPlan partitions schema into numeric and categorical branches. The
// target must already be removed from the schema.
func BuildPlan(schema []dataset.ColumnInfo, target string) (*ColumnTransformer, error) {
	ct := &ColumnTransformer{state: model.NewStateManager()}
	for _, c := range schema {
		if c.Name == target {
			return nil, errors.NewValidationError("features", "target column present in features", target)
		}
		if c.Kind == dataset.Numeric {
			ct.Numeric = append(ct.Numeric, c.Name)
		} else {
			ct.Categorical = append(ct.Categorical, c.Name)
		}
	}
	if len(ct.Numeric)+len(ct.Categorical) == 0 {
		return nil, errors.NewValidationError("features", "no feature columns", len(schema))
	}
	if len(ct.Numeric) > 0 {
		ct.numImputer = NewSimpleImputer(Median)
		ct.scaler = NewStandardScalerDefault()
	}
	if len(ct.Categorical) > 0 {
		ct.catImputer = NewSimpleImputer(MostFrequent)
		ct.encoder = NewOneHotEncoder()
	}
	return ct, nil
}

// Fit learns imputation values, scaling statistics and category sets from t.
func (ct *ColumnTransformer) Fit(t *dataset.Table) error {
	_, err := ct.fitTransform(t, true)
	return err
}

// FitTransform fits on t and returns its transformed matrix.
func (ct *ColumnTransformer) FitTransform(t *dataset.Table) (*mat.Dense, error) {
	return ct.fitTransform(t, true)
}

// Transform applies the fitted statistics to t. It never refits.
func (ct *ColumnTransformer) Transform(t *dataset.Table) (*mat.Dense, error) {
	if err := ct.state.RequireFitted("ColumnTransformer", "Transform"); err != nil {
		return nil, err
	}
	return ct.fitTransform(t, false)
}

func (ct *ColumnTransformer) fitTransform(t *dataset.Table, fit bool) (*mat.Dense, error) {
	if t.NumRows() == 0 {
		return nil, errors.NewModelError("ColumnTransformer", "empty data", errors.ErrEmptyData)
	}
	var blocks []mat.Matrix

	if len(ct.Numeric) > 0 {
		cols, err := columns(t, ct.Numeric)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if c.Kind() != dataset.Numeric {
				return nil, errors.NewValidationError(c.Name, "non-numeric value in numeric column", c.Name)
			}
		}
		if fit {
			if err := ct.numImputer.Fit(cols); err != nil {
				return nil, err
			}
		}
		filled, err := ct.numImputer.Transform(cols)
		if err != nil {
			return nil, err
		}
		X := numericMatrix(filled)
		if fit {
			if err := ct.scaler.Fit(X); err != nil {
				return nil, err
			}
		}
		scaled, err := ct.scaler.Transform(X)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, scaled)
	}

	if len(ct.Categorical) > 0 {
		cols, err := columns(t, ct.Categorical)
		if err != nil {
			return nil, err
		}
		if fit {
			if err := ct.catImputer.Fit(cols); err != nil {
				return nil, err
			}
		}
		filled, err := ct.catImputer.Transform(cols)
		if err != nil {
			return nil, err
		}
		if fit {
			if err := ct.encoder.Fit(filled); err != nil {
				return nil, err
			}
		}
		encoded, err := ct.encoder.Transform(filled)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, encoded)
	}

	out := hstack(t.NumRows(), blocks)
	if fit {
		_, c := out.Dims()
		ct.state.SetDimensions(c, t.NumRows())
		ct.state.SetFitted()
	}
	return out, nil
}

// NumOutputFeatures is the width of the transformed matrix.
func (ct *ColumnTransformer) NumOutputFeatures() int {
	n, _ := ct.state.GetDimensions()
	return n
}

// FeatureNames lists the output columns of a fitted transformer.
func (ct *ColumnTransformer) FeatureNames() []string {
	names := append([]string(nil), ct.Numeric...)
	if ct.encoder != nil && ct.state.IsFitted() {
		names = append(names, ct.encoder.FeatureNames()...)
	}
	return names
}

func (ct *ColumnTransformer) String() string {
	return fmt.Sprintf("ColumnTransformer(numeric=[%s], categorical=[%s])",
		strings.Join(ct.Numeric, ", "), strings.Join(ct.Categorical, ", "))
}

func columns(t *dataset.Table, names []string) ([]dataset.Column, error) {
	out := make([]dataset.Column, len(names))
	for i, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, errors.NewValidationError("features", "unknown column", n)
		}
		out[i] = c
	}
	return out, nil
}

func numericMatrix(cols []dataset.Column) *mat.Dense {
	n := len(cols[0].Values)
	X := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		for i, v := range c.Values {
			f, _ := v.Float()
			X.Set(i, j, f)
		}
	}
	return X
}

func hstack(rows int, blocks []mat.Matrix) *mat.Dense {
	width := 0
	for _, b := range blocks {
		_, c := b.Dims()
		width += c
	}
	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		if c == 0 {
			continue
		}
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}
