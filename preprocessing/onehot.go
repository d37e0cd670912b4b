package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// OneHotEncoder expands each categorical column into one indicator column per
// category seen during Fit. Categories are sorted. A category not seen during
// Fit encodes as all zeros (sklearn's handle_unknown="ignore").
type OneHotEncoder struct {
	state *model.StateManager

	// Categories は列ごとの学習済みカテゴリ（昇順）
	Categories [][]string

	names  []string
	lookup []map[string]int
	width  int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{state: model.NewStateManager()}
}

// Fit learns the category set of every column. Missing cells are not a
// category; run an imputer first.
func (e *OneHotEncoder) Fit(cols []dataset.Column) error {
	if len(cols) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	e.Categories = make([][]string, len(cols))
	e.lookup = make([]map[string]int, len(cols))
	e.names = make([]string, len(cols))
	e.width = 0
	for j, c := range cols {
		seen := make(map[string]struct{})
		for _, v := range c.Values {
			if v.IsMissing() {
				continue
			}
			seen[v.String()] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for k := range seen {
			cats = append(cats, k)
		}
		sort.Strings(cats)

		idx := make(map[string]int, len(cats))
		for i, k := range cats {
			idx[k] = e.width + i
		}
		e.Categories[j] = cats
		e.lookup[j] = idx
		e.names[j] = c.Name
		e.width += len(cats)
	}
	e.state.SetDimensions(len(cols), len(cols[0].Values))
	e.state.SetFitted()
	return nil
}

// Transform returns an n × (Σ categories) indicator matrix.
func (e *OneHotEncoder) Transform(cols []dataset.Column) (*mat.Dense, error) {
	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if err := e.state.CheckFeatures("OneHotEncoder.Transform", len(cols)); err != nil {
		return nil, err
	}
	n := len(cols[0].Values)
	if n == 0 || e.width == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, e.width, nil)
	for j, c := range cols {
		for i, v := range c.Values {
			if v.IsMissing() {
				continue
			}
			if k, ok := e.lookup[j][v.String()]; ok {
				out.Set(i, k, 1)
			}
		}
	}
	return out, nil
}

// Width is the number of indicator columns produced.
func (e *OneHotEncoder) Width() int { return e.width }

// FeatureNames returns "column=category" for every indicator column.
func (e *OneHotEncoder) FeatureNames() []string {
	out := make([]string, 0, e.width)
	for j, cats := range e.Categories {
		for _, k := range cats {
			out = append(out, fmt.Sprintf("%s=%s", e.names[j], k))
		}
	}
	return out
}
