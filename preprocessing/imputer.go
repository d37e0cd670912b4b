package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// ImputeStrategy selects the fill value for missing cells.
type ImputeStrategy string

const (
	// Median fills numeric columns with the training median.
	Median ImputeStrategy = "median"
	// MostFrequent fills with the training mode; ties go to the smallest value.
	MostFrequent ImputeStrategy = "most_frequent"
)

// SimpleImputer はscikit-learnのSimpleImputer相当。
// 列ごとに学習した統計値で欠損セルを埋める。
//
// 学習データで全て欠損だった列は、数値列なら0、カテゴリ列なら空文字で埋める。
type SimpleImputer struct {
	state    *model.StateManager
	Strategy ImputeStrategy

	// Statistics は列ごとの補完値
	Statistics []dataset.Value
}

// NewSimpleImputer は指定戦略のSimpleImputerを作成する
func NewSimpleImputer(strategy ImputeStrategy) *SimpleImputer {
	return &SimpleImputer{state: model.NewStateManager(), Strategy: strategy}
}

// Fit learns one fill value per column.
func (imp *SimpleImputer) Fit(cols []dataset.Column) error {
	if len(cols) == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	stats := make([]dataset.Value, len(cols))
	for j, c := range cols {
		switch imp.Strategy {
		case Median:
			if c.Kind() != dataset.Numeric {
				return errors.NewValidationError("strategy", "median requires a numeric column", c.Name)
			}
			stats[j] = dataset.Num(medianOf(c.Values))
		case MostFrequent:
			stats[j] = modeOf(c)
		default:
			return errors.NewValidationError("strategy", "unknown imputation strategy", imp.Strategy)
		}
	}
	imp.Statistics = stats
	imp.state.SetDimensions(len(cols), len(cols[0].Values))
	imp.state.SetFitted()
	return nil
}

// Transform returns copies of cols with missing cells replaced.
func (imp *SimpleImputer) Transform(cols []dataset.Column) ([]dataset.Column, error) {
	if err := imp.state.RequireFitted("SimpleImputer", "Transform"); err != nil {
		return nil, err
	}
	if err := imp.state.CheckFeatures("SimpleImputer.Transform", len(cols)); err != nil {
		return nil, err
	}
	out := make([]dataset.Column, len(cols))
	for j, c := range cols {
		vals := make([]dataset.Value, len(c.Values))
		for i, v := range c.Values {
			if v.IsMissing() {
				v = imp.Statistics[j]
			}
			vals[i] = v
		}
		out[j] = dataset.Column{Name: c.Name, Values: vals}
	}
	return out, nil
}

// FitTransform は学習と変換をまとめて行う
func (imp *SimpleImputer) FitTransform(cols []dataset.Column) ([]dataset.Column, error) {
	if err := imp.Fit(cols); err != nil {
		return nil, err
	}
	return imp.Transform(cols)
}

func (imp *SimpleImputer) String() string {
	return fmt.Sprintf("SimpleImputer(strategy=%s)", imp.Strategy)
}

// medianOf ignores missing cells. Even counts average the two middle values.
func medianOf(values []dataset.Value) float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.Float(); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return 0
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return nums[mid]
	}
	return (nums[mid-1] + nums[mid]) / 2
}

func modeOf(c dataset.Column) dataset.Value {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		counts[key]++
		if _, ok := first[key]; !ok {
			first[key] = v
		}
	}
	if len(counts) == 0 {
		if c.Kind() == dataset.Numeric {
			return dataset.Num(0)
		}
		return dataset.Str("")
	}

	var best dataset.Value
	bestCount := -1
	for key, n := range counts {
		v := first[key]
		if n > bestCount || n == bestCount && less(v, best) {
			best, bestCount = v, n
		}
	}
	return best
}

// less orders numbers numerically and strings lexicographically.
func less(a, b dataset.Value) bool {
	fa, aNum := a.Float()
	fb, bNum := b.Float()
	if aNum && bNum {
		return fa < fb
	}
	return a.String() < b.String()
}
